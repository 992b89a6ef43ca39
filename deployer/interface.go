package deployer

import (
	"context"
	"io"

	"github.com/spance/droidship/deployer/definitions"
)

// Bridge is the device-side tool surface the deployment flow drives.
type Bridge interface {
	Available() error
	ListDeviceIDs(ctx context.Context) ([]string, error)
	ConnectedDevices(ctx context.Context) []definitions.DeviceInfo
	Install(ctx context.Context, deviceID, apkPath string) error
	Launch(ctx context.Context, deviceID, component string) error
	ClearLog(ctx context.Context, deviceID string) error
	TailLogs(ctx context.Context, deviceID string, filters []string, out io.Writer) (bool, error)
	ScanCrashLog(ctx context.Context, deviceID string) (definitions.CrashReport, error)
}

// Bundler turns an app bundle into an installable package set and installs
// it on a device.
type Bundler interface {
	BuildAPKs(ctx context.Context, bundlePath, outputPath string, ks definitions.Keystore) error
	InstallAPKs(ctx context.Context, deviceID, apksPath string) error
}
