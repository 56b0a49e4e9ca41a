// Command wasmaot is a minimal driver-adjacent CLI exercising the lowering
// pipeline end-to-end: it reads a JSON class-universe fixture, runs the
// assembler, and writes the emitted module's textual rendering. It is a
// demonstration harness, not the real whole-program driver.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "wasmaot",
		Short: "WebAssembly AOT lowering pipeline demo driver",
	}
	initEmit(root)
	return root
}
