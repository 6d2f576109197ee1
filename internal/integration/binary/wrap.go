// Package binary locates external tools.
package binary

import (
	"os/exec"
)

// Available reports the path of binName when it is in PATH.
func Available(binName string) (string, bool) {
	path, err := exec.LookPath(binName)

	return path, err == nil
}
