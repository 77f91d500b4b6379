package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigNames are the config file names looked up in the root, in order.
var ConfigNames = []string{".apiprobe.yml", ".apiprobe.yaml"}

// DotEnvName is the environment file looked up in the root.
const DotEnvName = ".env"

// Files holds the paths of the configuration sources found for a run. An
// empty path means the source is absent.
type Files struct {
	Config string
	DotEnv string
}

// Locate finds the config and .env files under root. An explicit config
// path must exist; the default names are optional.
func Locate(root, explicitConfig string) (Files, error) {
	var files Files

	if explicitConfig != "" {
		path, err := resolveExplicit(root, explicitConfig)
		if err != nil {
			return files, err
		}
		files.Config = path
	} else {
		for _, name := range ConfigNames {
			path := filepath.Join(root, name)
			ok, err := isFile(path)
			if err != nil {
				return files, err
			}
			if ok {
				files.Config = path
				break
			}
		}
	}

	dotenv := filepath.Join(root, DotEnvName)
	ok, err := isFile(dotenv)
	if err != nil {
		return files, err
	}
	if ok {
		files.DotEnv = dotenv
	}
	return files, nil
}

// Describe renders the located files relative to root for diagnostics.
func (f Files) Describe(root string) string {
	parts := make([]string, 0, 2)
	if f.Config != "" {
		parts = append(parts, "config="+mustRelOrClean(root, f.Config))
	}
	if f.DotEnv != "" {
		parts = append(parts, "dotenv="+mustRelOrClean(root, f.DotEnv))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}

func resolveExplicit(root, input string) (string, error) {
	cleaned := input
	if !filepath.IsAbs(cleaned) {
		cleaned = filepath.Join(root, cleaned)
	}
	info, err := os.Stat(cleaned)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("config %q not found", input)
		}
		return "", fmt.Errorf("stat %q: %w", input, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("config %q is a directory", input)
	}
	return filepath.Clean(cleaned), nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %q: %w", path, err)
	}
	return !info.IsDir(), nil
}

func mustRelOrClean(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.Clean(path)
	}
	rel = filepath.Clean(rel)
	if rel == "." || strings.HasPrefix(rel, "..") {
		return filepath.Clean(path)
	}
	return rel
}
