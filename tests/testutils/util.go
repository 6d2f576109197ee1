// Package testutils provides test infrastructure for brontes integration tests.
package testutils

import (
	"path/filepath"
	"runtime"

	"github.com/containerd/nerdctl/mod/tigron/test"

	"github.com/farcloser/agar/pkg/agar"
)

func binary(name string) string {
	_, thisFile, _, _ := runtime.Caller(0) //nolint:dogsled // runtime.Caller returns 4 values, only file is needed
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))

	return filepath.Join(projectRoot, "bin", name)
}

// Setup creates a test case configured to run the brontes binary.
func Setup() *test.Case {
	return agar.Setup(binary("brontes"))
}

// SetupSurvey creates a test case configured to run the brontes-survey binary.
func SetupSurvey() *test.Case {
	return agar.Setup(binary("brontes-survey"))
}
