package bundle

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spance/droidship/deployer/definitions"
)

const (
	javaPath = "java"

	// ApksExt is the extension of a packaged device-specific APK set.
	ApksExt = ".apks"
)

// Runner executes one external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, op, bin string, args ...string) ([]byte, error)
}

// Bundletool wraps the bundle packaging jar, executed through the Java
// runtime.
type Bundletool struct {
	runner  Runner
	jarPath string
}

// NewBundletool resolves the Java runtime and the bundletool jar. Either one
// missing is ErrToolNotFound.
func NewBundletool(runner Runner, jarPath string) (*Bundletool, error) {
	if _, err := exec.LookPath(javaPath); err != nil {
		return nil, fmt.Errorf("%w: java runtime (%v)", definitions.ErrToolNotFound, err)
	}
	if jarPath == "" {
		return nil, fmt.Errorf("%w: bundletool jar not configured (DROIDSHIP_BUNDLETOOL)", definitions.ErrToolNotFound)
	}
	if _, err := os.Stat(jarPath); err != nil {
		return nil, fmt.Errorf("%w: bundletool jar %s (%v)", definitions.ErrToolNotFound, jarPath, err)
	}
	return &Bundletool{runner: runner, jarPath: jarPath}, nil
}

// ApksPath computes where the packaged set for an artifact lands inside
// workDir: same base name, extension swapped for .apks.
func ApksPath(artifact, workDir string) string {
	base := filepath.Base(artifact)
	return filepath.Join(workDir, strings.TrimSuffix(base, filepath.Ext(base))+ApksExt)
}

// BuildAPKs converts an app bundle into a signed, installable package set at
// outputPath, replacing any stale set from an earlier run. The signing
// passwords ride on the command line, which the tool accepts as a known
// limitation.
func (t *Bundletool) BuildAPKs(ctx context.Context, bundlePath, outputPath string, ks definitions.Keystore) error {
	if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale %s: %w", outputPath, err)
	}

	cmdArgs := []string{
		"-jar", t.jarPath,
		"build-apks",
		"--bundle", bundlePath,
		"--output", outputPath,
		"--ks", ks.Path,
		"--ks-pass", "pass:" + ks.Password,
		"--ks-key-alias", ks.KeyAlias,
		"--key-pass", "pass:" + ks.KeyPassword,
	}
	_, err := t.runner.Run(ctx, "BuildAPKs", javaPath, cmdArgs...)
	return err
}

// InstallAPKs installs a previously built package set on the device.
func (t *Bundletool) InstallAPKs(ctx context.Context, deviceID, apksPath string) error {
	cmdArgs := []string{
		"-jar", t.jarPath,
		"install-apks",
		"--device-id", deviceID,
		"--apks", apksPath,
	}
	_, err := t.runner.Run(ctx, "InstallAPKs", javaPath, cmdArgs...)
	return err
}
