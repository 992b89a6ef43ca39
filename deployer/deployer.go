package deployer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/spance/droidship/deployer/android"
	"github.com/spance/droidship/deployer/bundle"
	"github.com/spance/droidship/deployer/definitions"
	"github.com/spance/droidship/deployer/llm"
)

// AutoDevice is the sentinel id that resolves to the first connected device.
const AutoDevice = "auto"

// Deployer runs one linear deployment flow: enumerate, resolve, install,
// optionally launch and tail, always scan for a crash. Fields are set before
// the first Deploy call and left alone afterwards.
type Deployer struct {
	Request *definitions.DeploymentRequest

	Bridge   Bridge
	Bundler  Bundler
	Analyzer *llm.Analyzer

	// Out receives streamed device logs and crash buffers (default stdout).
	Out io.Writer
}

func New(req *definitions.DeploymentRequest) *Deployer {
	return &Deployer{
		Request: req,
		Bridge:  android.NewBridge(ExecRunner{}),
		Out:     os.Stdout,
	}
}

// Deploy executes the flow for the request. An empty device id is an
// explicit no-op: nothing is enumerated, installed, or launched. Every step
// fails fast; there are no retries.
func (d *Deployer) Deploy(ctx context.Context) error {
	req := d.Request

	if req.DeviceID == "" {
		log.Debug().Msg("[Deploy] no device requested, nothing to do")
		return nil
	}

	if err := d.Bridge.Available(); err != nil {
		return err
	}

	deviceID, err := d.resolveDevice(ctx, req.DeviceID)
	if err != nil {
		return err
	}
	log.Info().Str("device", deviceID).Str("artifact", req.Artifact).Msg("[Deploy] deploying")

	switch req.Format {
	case definitions.AAB:
		err = d.deployAAB(ctx, deviceID)
	default:
		err = d.deployAPK(ctx, deviceID)
	}
	if err != nil {
		return err
	}

	return d.postInstall(ctx, deviceID)
}

// resolveDevice maps the requested id onto the enumerated device set.
func (d *Deployer) resolveDevice(ctx context.Context, requested string) (string, error) {
	ids, err := d.Bridge.ListDeviceIDs(ctx)
	if err != nil {
		return "", err
	}

	if requested == AutoDevice {
		if len(ids) == 0 {
			return "", fmt.Errorf("%w: no connected devices to auto-select", definitions.ErrNoDeviceFound)
		}
		return ids[0], nil
	}

	if !lo.Contains(ids, requested) {
		return "", fmt.Errorf("%w: %s (connected: %s)", definitions.ErrDeviceNotConnected, requested, strings.Join(ids, ", "))
	}
	return requested, nil
}

func (d *Deployer) deployAPK(ctx context.Context, deviceID string) error {
	if d.Request.ShouldClearLog() {
		if err := d.Bridge.ClearLog(ctx, deviceID); err != nil {
			return err
		}
	}
	return d.Bridge.Install(ctx, deviceID, d.Request.Artifact)
}

func (d *Deployer) deployAAB(ctx context.Context, deviceID string) error {
	req := d.Request

	bundler := d.Bundler
	if bundler == nil {
		b, err := bundle.NewBundletool(ExecRunner{}, req.Bundletool)
		if err != nil {
			return err
		}
		bundler = b
	}

	ks, err := bundle.ResolveKeystore(req.Keystore)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(req.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create work dir %s: %w", req.WorkDir, err)
	}

	apksPath := bundle.ApksPath(req.Artifact, req.WorkDir)
	if err := bundler.BuildAPKs(ctx, req.Artifact, apksPath, ks); err != nil {
		return err
	}

	if req.ShouldClearLog() {
		if err := d.Bridge.ClearLog(ctx, deviceID); err != nil {
			return err
		}
	}
	return bundler.InstallAPKs(ctx, deviceID, apksPath)
}

// postInstall runs the optional launch, the optional active tail, and the
// unconditional crash scan.
func (d *Deployer) postInstall(ctx context.Context, deviceID string) error {
	req := d.Request

	if req.Run != "" {
		if err := d.Bridge.Launch(ctx, deviceID, req.Run); err != nil {
			return err
		}
		log.Info().Str("component", req.Run).Msg("[Deploy] launched")
	}

	if req.StreamLogs {
		crashed, err := d.Bridge.TailLogs(ctx, deviceID, android.TailFilters(req), d.Out)
		if err != nil {
			return err
		}
		if crashed {
			log.Warn().Msg("[Deploy] crash marker in device log, tail stopped")
		}
	}

	return d.reportCrash(ctx, deviceID)
}

// reportCrash scans the crash buffer and surfaces a detected crash at
// warning level. A crash is reported, never returned as an error.
func (d *Deployer) reportCrash(ctx context.Context, deviceID string) error {
	report, err := d.Bridge.ScanCrashLog(ctx, deviceID)
	if err != nil {
		return err
	}
	if !report.Detected {
		return nil
	}

	log.Warn().Msg("[Deploy] the app seems to have crashed")
	fmt.Fprint(d.Out, report.Log)
	log.Warn().Msgf("[Deploy] clear the crash buffer with: adb -s %s logcat -c", deviceID)

	if dumpPath, err := android.WriteCrashDump(report.Log); err == nil {
		log.Info().Str("path", dumpPath).Msg("[Deploy] crash buffer saved")
	} else {
		log.Debug().Err(err).Msg("[Deploy] saving crash buffer failed")
	}

	if d.Analyzer != nil {
		component := d.Request.Run
		if component == "" {
			component = d.Request.Activity
		}
		analysis, err := d.Analyzer.Analyze(ctx, component, report.Log)
		if err != nil {
			log.Error().Err(err).Msg("[Deploy] crash analysis failed")
			return nil
		}
		log.Warn().Msgf("[Deploy] severity: %s", analysis.Severity)
		log.Warn().Msgf("[Deploy] cause: %s", analysis.Cause)
		log.Warn().Msgf("[Deploy] suggestion: %s", analysis.Suggestion)
	}
	return nil
}
