package config

import (
	"os"
	"path/filepath"
)

// configExtensions lists the headlamp.config.* suffixes in discovery
// priority order.
var configExtensions = []string{"json", "json5", "yaml", "yml", "toml", "js", "ts"}

const rcFileName = ".headlamprc.json"

// Discover walks upward from startDir looking for a config file, returning
// its absolute path. At each directory it checks headlamp.config.<ext> for
// every extension in priority order before falling back to .headlamprc.json,
// then ascends to the parent directory if nothing matched. Returns ("",
// false, nil) if no config file exists anywhere above startDir.
func Discover(startDir string) (string, bool, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, err
	}

	for {
		for _, ext := range configExtensions {
			candidate := filepath.Join(dir, "headlamp.config."+ext)

			found, statErr := fileExists(candidate)
			if statErr != nil {
				return "", false, statErr
			}

			if found {
				return candidate, true, nil
			}
		}

		rcCandidate := filepath.Join(dir, rcFileName)

		found, statErr := fileExists(rcCandidate)
		if statErr != nil {
			return "", false, statErr
		}

		if found {
			return rcCandidate, true, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}

		dir = parent
	}
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, err
	}

	return !info.IsDir(), nil
}
