// Command nuvemhost runs the NuvemHost web server, its notification worker
// and database migrations.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCMD = &cobra.Command{
	Use:           "nuvemhost",
	Short:         "nuvemhost",
	Long:          `static site hosting: upload a zip, get a public URL`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if len(os.Args) == 1 {
		// no subcommand keeps the old behaviour of starting the server
		rootCMD.SetArgs([]string{"serve"})
	}
	if err := rootCMD.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
