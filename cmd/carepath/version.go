package carepath

import "fmt"

// version holds the CLI version string, set from main via -ldflags.
var version = "dev"

// SetVersion initializes the version string if non-empty.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Version returns the current CLI version string.
func Version() string { return version }

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Execute(_ []string) error {
	fmt.Println(Version())
	return nil
}
