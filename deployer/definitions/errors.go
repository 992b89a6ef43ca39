package definitions

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the deployment flow. Wrap sites add operation context;
// callers match with errors.Is.
var (
	ErrToolNotFound       = errors.New("deploy: required tool not found")
	ErrDeviceEnumeration  = errors.New("deploy: device enumeration failed")
	ErrNoDeviceFound      = errors.New("deploy: no device found")
	ErrDeviceNotConnected = errors.New("deploy: device not connected")
	ErrKeystore           = errors.New("deploy: keystore resolution failed")
)

// CommandError reports a subprocess that exited nonzero, keeping the combined
// output so the caller can show the user what the tool printed.
type CommandError struct {
	Op     string
	Bin    string
	Args   []string
	Output []byte
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("[%s] %s %s failed: %v", e.Op, e.Bin, strings.Join(e.Args, " "), e.Err)
	if out := strings.TrimSpace(string(e.Output)); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
