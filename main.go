// The main package for the appmeta executable.
package main

import (
	"github.com/JakeFAU/appmeta/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
