// Package version carries build information, set at link time:
//
//	go build -ldflags "-X github.com/farcloser/brontes/version.version=v1.2.0 -X github.com/farcloser/brontes/version.commit=$(git rev-parse --short HEAD)"
package version

import (
	"os"
	"path/filepath"
	"runtime/debug"
)

//nolint:gochecknoglobals // set by the linker
var (
	name    = ""
	version = ""
	commit  = ""
)

// Name returns the binary name.
func Name() string {
	if name != "" {
		return name
	}

	return filepath.Base(os.Args[0])
}

// Version returns the release version, or the module version recorded by the go tool.
func Version() string {
	if version != "" {
		return version
	}

	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}

	return "dev"
}

// Commit returns the VCS revision the binary was built from.
func Commit() string {
	if commit != "" {
		return commit
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
	}

	return "unknown"
}
