package constants

import (
	_ "embed"
	"encoding/json"
	"errors"
	"strings"
	"sync"
)

//go:embed install_errors.json
var installErrorsJSON []byte

var (
	installErrorHints map[string]string
	errLoad           error
	once              = new(sync.Once)
)

// Load loads the install error hint table from the embedded JSON
func Load() (map[string]string, error) {
	once.Do(func() {
		installErrorHints = make(map[string]string)
		if err := json.Unmarshal(installErrorsJSON, &installErrorHints); err != nil {
			errLoad = errors.Join(err, errors.New("failed to unmarshal embedded install_errors.json"))
			return
		}
	})
	return installErrorHints, errLoad
}

// InstallErrorHint scans tool output for a known install failure code and
// returns the matching remedy hint.
func InstallErrorHint(output string) (string, bool) {
	hints, err := Load()
	if err != nil {
		return "", false
	}
	for code, hint := range hints {
		if strings.Contains(output, code) {
			return code + ": " + hint, true
		}
	}
	return "", false
}
