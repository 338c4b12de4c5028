package workspace

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// envKey is the environment variable used to override the default workspace root.
	envKey = "CAREPATH_WORKSPACE"

	// defaultRootDir is used under the user's home when the env variable is not defined.
	defaultRootDir = ".carepath"
)

// Well known workspace entries.
const (
	ConfigFile  = "config.yaml"
	TokenFile   = "token.json"
	KindExports = "exports"
	KindLogs    = "logs"
)

// Root returns the absolute path to the CarePath workspace directory.
// The lookup order is:
//  1. $CAREPATH_WORKSPACE environment variable, if set and non-empty
//  2. $HOME/.carepath
//
// The directory is created when missing.
func Root() string {
	root := ""
	if env := strings.TrimSpace(os.Getenv(envKey)); env != "" {
		root = abs(ExpandUserHome(env))
	} else if home, err := os.UserHomeDir(); err == nil && home != "" {
		root = filepath.Join(home, defaultRootDir)
	} else {
		root = abs(defaultRootDir)
	}
	_ = os.MkdirAll(root, 0700)
	return root
}

// Path returns a sub-path under the root for the given kind, creating it.
func Path(kind string) string {
	dir := filepath.Join(Root(), kind)
	_ = os.MkdirAll(dir, 0700)
	return dir
}

// File returns the path of name directly under the root.
func File(name string) string {
	return filepath.Join(Root(), name)
}

// ExpandUserHome replaces a leading "~" with the user's home directory.
func ExpandUserHome(v string) string {
	trimmed := strings.TrimSpace(v)
	if trimmed != "~" && !strings.HasPrefix(trimmed, "~/") {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return v
	}
	return filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
}

func abs(p string) string {
	if ret, err := filepath.Abs(p); err == nil {
		return ret
	}
	return p
}
