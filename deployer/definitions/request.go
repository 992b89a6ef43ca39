package definitions

import (
	"github.com/samber/lo"
)

// PackageFormat selects which installer variant a deployment uses.
type PackageFormat string

const (
	APK PackageFormat = "apk"
	AAB PackageFormat = "aab"
)

// LogMode controls how the active log tailer filters device output.
type LogMode string

const (
	LogFiltered LogMode = "filtered"
	LogRaw      LogMode = "raw"
)

// DeploymentRequest carries everything a single deployment run needs.
// It is built once from CLI flags (or by an embedding caller) and must not
// be mutated afterwards.
type DeploymentRequest struct {
	Verbosity  int           `json:"verbosity"`
	BuildFlags []string      `json:"build_flags,omitempty"`
	Format     PackageFormat `json:"format"`
	Keystore   Keystore      `json:"keystore"`
	Activity   string        `json:"activity"`
	WorkDir    string        `json:"work_dir"`
	DeviceID   string        `json:"device_id"`
	StreamLogs bool          `json:"stream_logs"`
	ClearLogs  bool          `json:"clear_logs"`
	LogMode    LogMode       `json:"log_mode"`
	Artifact   string        `json:"artifact"`
	LogTags    []string      `json:"log_tags,omitempty"`
	Run        string        `json:"run,omitempty"`
	KillBridge bool          `json:"kill_bridge"`
	Bundletool string        `json:"bundletool,omitempty"`
}

// IsDebugBuild reports whether the upstream build-flag list signals a debug
// build ("-g" or "--debug" present).
func (r *DeploymentRequest) IsDebugBuild() bool {
	return lo.Contains(r.BuildFlags, "-g") || lo.Contains(r.BuildFlags, "--debug")
}

// ShouldClearLog reports whether the device log buffer is cleared before
// install: either explicitly requested, or implied by launching with log
// streaming enabled.
func (r *DeploymentRequest) ShouldClearLog() bool {
	return r.ClearLogs || (r.Run != "" && r.StreamLogs)
}

// Keystore identifies the signing key material used when packaging a bundle.
// Passwords are kept out of JSON dumps.
type Keystore struct {
	Path        string `json:"path"`
	Password    string `json:"-"`
	KeyAlias    string `json:"key_alias"`
	KeyPassword string `json:"-"`
}

// CrashReport is the outcome of scanning the device crash buffer. Crashes are
// reported to the user at warning level, never returned as errors.
type CrashReport struct {
	Detected bool   `json:"detected"`
	Log      string `json:"log,omitempty"`
}
