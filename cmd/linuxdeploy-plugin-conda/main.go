// Command linuxdeploy-plugin-conda bundles a Miniconda-based Python runtime
// into an AppDir and makes it relocatable.
package main

import (
	"os"

	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/cli"
)

// version is overridden at build time via -ldflags
var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
