// tourguide serves the tour controller over HTTP and replays tour catalogs
// from the command line.
//
// Usage:
//
//	tourguide serve [--config configs/tourguide.yaml]
//	tourguide replay <catalog.yaml> [--follow <id> --path x,y ...]
//	tourguide init-config [--config configs/tourguide.yaml]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tourguide/pkg/version"
)

const defaultConfigPath = "configs/tourguide.yaml"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tourguide",
	Short: "Author, browse and follow walking tours",
	Long:  "tourguide keeps a set of walking tours, lets you author new ones\nat your current location and guides you along them waypoint by waypoint.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.RunE = runServe
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to the config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(initConfigCmd)
	rootCmd.Version = version.Version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
