package deployer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spance/droidship/deployer/definitions"
)

// fakeBridge records the order of device commands and replays canned results.
type fakeBridge struct {
	ids     []string
	listErr error
	crash   definitions.CrashReport
	ops     []string
}

func (f *fakeBridge) Available() error { return nil }

func (f *fakeBridge) ListDeviceIDs(ctx context.Context) ([]string, error) {
	f.ops = append(f.ops, "list")
	return f.ids, f.listErr
}

func (f *fakeBridge) ConnectedDevices(ctx context.Context) []definitions.DeviceInfo {
	return nil
}

func (f *fakeBridge) Install(ctx context.Context, deviceID, apkPath string) error {
	f.ops = append(f.ops, "install "+deviceID)
	return nil
}

func (f *fakeBridge) Launch(ctx context.Context, deviceID, component string) error {
	f.ops = append(f.ops, "launch "+component)
	return nil
}

func (f *fakeBridge) ClearLog(ctx context.Context, deviceID string) error {
	f.ops = append(f.ops, "clear "+deviceID)
	return nil
}

func (f *fakeBridge) TailLogs(ctx context.Context, deviceID string, filters []string, out io.Writer) (bool, error) {
	f.ops = append(f.ops, "tail")
	return false, nil
}

func (f *fakeBridge) ScanCrashLog(ctx context.Context, deviceID string) (definitions.CrashReport, error) {
	f.ops = append(f.ops, "scan")
	return f.crash, nil
}

func newTestDeployer(req *definitions.DeploymentRequest, bridge *fakeBridge) *Deployer {
	return &Deployer{Request: req, Bridge: bridge, Out: &bytes.Buffer{}}
}

func TestResolveDeviceAuto(t *testing.T) {
	// Test case 1: auto with no devices connected.
	d := newTestDeployer(nil, &fakeBridge{})
	if _, err := d.resolveDevice(context.Background(), AutoDevice); !errors.Is(err, definitions.ErrNoDeviceFound) {
		t.Errorf("Expected ErrNoDeviceFound, got: %v", err)
	}

	// Test case 2: auto picks the first enumerated device.
	d = newTestDeployer(nil, &fakeBridge{ids: []string{"X", "Y"}})
	id, err := d.resolveDevice(context.Background(), AutoDevice)
	if err != nil {
		t.Fatalf("Auto resolution failed: %v", err)
	}
	if id != "X" {
		t.Errorf("Expected first device X, got %s", id)
	}
}

func TestResolveDeviceExplicit(t *testing.T) {
	bridge := &fakeBridge{ids: []string{"X", "Y"}}
	d := newTestDeployer(nil, bridge)

	// Connected id resolves to itself.
	id, err := d.resolveDevice(context.Background(), "Y")
	if err != nil {
		t.Fatalf("Explicit resolution failed: %v", err)
	}
	if id != "Y" {
		t.Errorf("Expected Y, got %s", id)
	}

	// Unknown id fails.
	if _, err := d.resolveDevice(context.Background(), "Z"); !errors.Is(err, definitions.ErrDeviceNotConnected) {
		t.Errorf("Expected ErrDeviceNotConnected, got: %v", err)
	}
}

func TestDeployEmptyDeviceIsNoOp(t *testing.T) {
	bridge := &fakeBridge{ids: []string{"X"}}
	d := newTestDeployer(&definitions.DeploymentRequest{
		Format:   definitions.APK,
		Artifact: "app.apk",
	}, bridge)

	if err := d.Deploy(context.Background()); err != nil {
		t.Fatalf("Expected silent no-op, got: %v", err)
	}
	if len(bridge.ops) != 0 {
		t.Errorf("Expected no device commands without a device id, got: %v", bridge.ops)
	}
}

func TestDeployClearBeforeInstall(t *testing.T) {
	bridge := &fakeBridge{ids: []string{"emulator-5554"}}
	d := newTestDeployer(&definitions.DeploymentRequest{
		Format:    definitions.APK,
		Artifact:  "app.apk",
		DeviceID:  "emulator-5554",
		ClearLogs: true,
	}, bridge)

	if err := d.Deploy(context.Background()); err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}

	ops := strings.Join(bridge.ops, ",")
	clearIdx := strings.Index(ops, "clear")
	installIdx := strings.Index(ops, "install")
	if clearIdx < 0 || installIdx < 0 {
		t.Fatalf("Expected both clear and install, got: %v", bridge.ops)
	}
	if clearIdx > installIdx {
		t.Errorf("Expected log clear before install, got: %v", bridge.ops)
	}
}

func TestDeployLaunchAndScan(t *testing.T) {
	bridge := &fakeBridge{ids: []string{"emulator-5554"}}
	d := newTestDeployer(&definitions.DeploymentRequest{
		Format:   definitions.APK,
		Artifact: "app.apk",
		DeviceID: "emulator-5554",
		Run:      "com.example.app/com.example.app.MainActivity",
	}, bridge)

	if err := d.Deploy(context.Background()); err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}

	want := []string{
		"list",
		"install emulator-5554",
		"launch com.example.app/com.example.app.MainActivity",
		"scan",
	}
	if got := strings.Join(bridge.ops, "\n"); got != strings.Join(want, "\n") {
		t.Errorf("Unexpected command sequence:\n%s", got)
	}
}

func TestDeployCrashIsNotAnError(t *testing.T) {
	crashLog := "crash line 1\ncrash line 2\ncrash line 3\ncrash line 4\n"
	bridge := &fakeBridge{
		ids:   []string{"emulator-5554"},
		crash: definitions.CrashReport{Detected: true, Log: crashLog},
	}
	var out bytes.Buffer
	d := &Deployer{
		Request: &definitions.DeploymentRequest{
			Format:   definitions.APK,
			Artifact: "app.apk",
			DeviceID: "emulator-5554",
		},
		Bridge: bridge,
		Out:    &out,
	}

	if err := d.Deploy(context.Background()); err != nil {
		t.Fatalf("Expected a detected crash to be reported, not returned: %v", err)
	}
	if out.String() != crashLog {
		t.Errorf("Expected crash buffer echoed unmodified, got %q", out.String())
	}
}
