// Command semcode is the local semantic code search engine's CLI.
package main

import (
	"fmt"
	"os"

	"github.com/kodesearch/semcode/cmd/semcode/cmd"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := cmd.NewRootCmd()
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return cmd.ExitCode(err)
}
