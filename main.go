// The main package for the sitemapper executable.
package main

import (
	"github.com/webatlas/sitemapper/cmd"
)

func main() {
	cmd.Execute()
}
