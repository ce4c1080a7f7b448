// paychaind runs the PayChain settlement engine behind an HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	root := &cobra.Command{
		Use:   "paychaind",
		Short: "PayChain cross-chain payment escrow daemon",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	root.AddCommand(serveCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
