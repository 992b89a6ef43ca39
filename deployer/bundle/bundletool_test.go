package bundle

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spance/droidship/deployer/definitions"
)

// fakeRunner records invocations and optionally probes the filesystem at call
// time, so tests can assert what the world looked like when the tool ran.
type fakeRunner struct {
	calls  []string
	onCall func()
}

func (f *fakeRunner) Run(ctx context.Context, op, bin string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, op+" "+bin+" "+strings.Join(args, " "))
	if f.onCall != nil {
		f.onCall()
	}
	return nil, nil
}

func TestApksPath(t *testing.T) {
	got := ApksPath("/home/dev/out/app-release.aab", "/tmp/build")
	want := filepath.Join("/tmp/build", "app-release.apks")
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestBuildAPKsRemovesStaleOutput(t *testing.T) {
	workDir := t.TempDir()
	outputPath := filepath.Join(workDir, "app-release.apks")
	if err := os.WriteFile(outputPath, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := &fakeRunner{}
	runner.onCall = func() {
		if _, err := os.Stat(outputPath); !os.IsNotExist(err) {
			t.Errorf("Expected stale output removed before build-apks ran")
		}
	}
	tool := &Bundletool{runner: runner, jarPath: "/opt/bundletool.jar"}

	ks := definitions.Keystore{
		Path:        "/home/dev/.android/debug.keystore",
		Password:    "android",
		KeyAlias:    "androiddebugkey",
		KeyPassword: "android",
	}
	if err := tool.BuildAPKs(context.Background(), "app-release.aab", outputPath, ks); err != nil {
		t.Fatalf("BuildAPKs failed: %v", err)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("Expected one build invocation, got %v", runner.calls)
	}

	call := runner.calls[0]
	for _, part := range []string{
		"BuildAPKs java",
		"-jar /opt/bundletool.jar build-apks",
		"--bundle app-release.aab",
		"--output " + outputPath,
		"--ks /home/dev/.android/debug.keystore",
		"--ks-pass pass:android",
		"--ks-key-alias androiddebugkey",
		"--key-pass pass:android",
	} {
		if !strings.Contains(call, part) {
			t.Errorf("Expected %q in build command, got: %s", part, call)
		}
	}
}

func TestInstallAPKsCommand(t *testing.T) {
	runner := &fakeRunner{}
	tool := &Bundletool{runner: runner, jarPath: "/opt/bundletool.jar"}

	if err := tool.InstallAPKs(context.Background(), "emulator-5554", "/tmp/build/app.apks"); err != nil {
		t.Fatalf("InstallAPKs failed: %v", err)
	}
	want := "InstallAPKs java -jar /opt/bundletool.jar install-apks --device-id emulator-5554 --apks /tmp/build/app.apks"
	if len(runner.calls) != 1 || runner.calls[0] != want {
		t.Errorf("Expected %q, got %v", want, runner.calls)
	}
}
