package bundle

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spance/droidship/deployer/definitions"
)

// Defaults matching the standard Android debug keystore.
const (
	debugKeystorePassword = "android"
	debugKeystoreAlias    = "androiddebugkey"
)

// ResolveKeystore fills in a complete signing configuration. An empty path
// falls back to the user's debug keystore with its well-known credentials.
// Anything still unresolved afterwards is ErrKeystore.
func ResolveKeystore(ks definitions.Keystore) (definitions.Keystore, error) {
	if ks.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ks, fmt.Errorf("%w: no keystore given and no home dir (%v)", definitions.ErrKeystore, err)
		}
		ks.Path = filepath.Join(home, ".android", "debug.keystore")
		if ks.Password == "" {
			ks.Password = debugKeystorePassword
		}
		if ks.KeyAlias == "" {
			ks.KeyAlias = debugKeystoreAlias
		}
		if ks.KeyPassword == "" {
			ks.KeyPassword = debugKeystorePassword
		}
	}

	if _, err := os.Stat(ks.Path); err != nil {
		return ks, fmt.Errorf("%w: keystore %s (%v)", definitions.ErrKeystore, ks.Path, err)
	}
	if ks.Password == "" || ks.KeyAlias == "" || ks.KeyPassword == "" {
		return ks, fmt.Errorf("%w: keystore %s needs a password, key alias and key password", definitions.ErrKeystore, ks.Path)
	}
	return ks, nil
}
