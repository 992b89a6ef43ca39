package android

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/spance/droidship/constants"
	"github.com/spance/droidship/deployer/definitions"
)

const (
	adbPath = "adb"
)

// Runner executes one external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, op, bin string, args ...string) ([]byte, error)
}

// Bridge drives the adb binary for a deployment flow.
type Bridge struct {
	runner Runner
	path   string
}

func NewBridge(runner Runner) *Bridge {
	return &Bridge{runner: runner, path: adbPath}
}

// Available verifies the bridge binary can be found on PATH.
func (b *Bridge) Available() error {
	if _, err := exec.LookPath(b.path); err != nil {
		return fmt.Errorf("%w: %s (%v)", definitions.ErrToolNotFound, b.path, err)
	}
	return nil
}

// adbArgs prepends the device selector when a device is targeted.
func (b *Bridge) adbArgs(deviceID string, args ...string) []string {
	var cmdArgs []string
	if len(deviceID) > 0 {
		cmdArgs = append(cmdArgs, "-s", deviceID)
	}
	return append(cmdArgs, args...)
}

// ListDeviceIDs enumerates connected devices. Only model-bearing lines of the
// `adb devices -l` output count; the identifier is the token before the first
// space. The returned order is adb's own. An empty device list is not an
// error, a failing list command is.
func (b *Bridge) ListDeviceIDs(ctx context.Context) ([]string, error) {
	rawOutput, err := b.runner.Run(ctx, "ListDevices", b.path, "devices", "-l")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", definitions.ErrDeviceEnumeration, err)
	}

	var ids []string
	scanner := bufio.NewScanner(strings.NewReader(string(rawOutput)))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, " model:") {
			continue
		}
		if id, _, ok := strings.Cut(line, " "); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ConnectedDevices is the best-effort listing used for display. Enumeration
// failures collapse to an empty list instead of propagating.
func (b *Bridge) ConnectedDevices(ctx context.Context) []definitions.DeviceInfo {
	rawOutput, err := b.runner.Run(ctx, "ConnectedDevices", b.path, "devices", "-l")
	if err != nil {
		return nil
	}

	var devices []definitions.DeviceInfo
	scanner := bufio.NewScanner(strings.NewReader(string(rawOutput)))

	// Skip the first line (header)
	scanner.Scan()

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}

		connType := definitions.USB
		if strings.Contains(parts[0], ":") {
			connType = definitions.Remote
		}

		var model string
		for _, part := range parts[2:] {
			if strings.HasPrefix(part, "model:") {
				model = strings.SplitN(part, ":", 2)[1]
				break
			}
		}

		devices = append(devices, definitions.DeviceInfo{
			DeviceID:       parts[0],
			Status:         parts[1],
			ConnectionType: connType,
			Model:          model,
		})
	}
	return devices
}

// Install pushes an APK to the device, replacing any existing install. When
// the package manager rejects it, the matching remedy hint is logged before
// the error propagates.
func (b *Bridge) Install(ctx context.Context, deviceID, apkPath string) error {
	_, err := b.runner.Run(ctx, "Install", b.path, b.adbArgs(deviceID, "install", "-r", apkPath)...)
	if err != nil {
		var cmdErr *definitions.CommandError
		if errors.As(err, &cmdErr) {
			if hint, ok := constants.InstallErrorHint(string(cmdErr.Output)); ok {
				log.Warn().Msgf("[Install] %s", hint)
			}
		}
		return err
	}
	return nil
}

// Launch starts a fully-qualified component on the device.
func (b *Bridge) Launch(ctx context.Context, deviceID, component string) error {
	_, err := b.runner.Run(ctx, "Launch", b.path, b.adbArgs(deviceID, "shell", "am", "start", "-n", component)...)
	return err
}

// ClearLog empties the device log buffers.
func (b *Bridge) ClearLog(ctx context.Context, deviceID string) error {
	_, err := b.runner.Run(ctx, "ClearLog", b.path, b.adbArgs(deviceID, "logcat", "-c")...)
	return err
}

// KillServer force-kills the bridge process by name, releasing the device for
// other tools. Best effort: failures are logged, not returned.
func KillServer() {
	bin, args := "killall", []string{adbPath}
	if runtime.GOOS == "windows" {
		bin, args = "taskkill", []string{"/F", "/IM", adbPath + ".exe"}
	}

	log.Debug().Str("cmd", fmt.Sprintf("[KillServer] run cmd: %s %s", bin, strings.Join(args, " "))).Msg("")
	if err := exec.Command(bin, args...).Run(); err != nil {
		log.Debug().Err(err).Msg("[KillServer] run cmd failed")
	}
}
