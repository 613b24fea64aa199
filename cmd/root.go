package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/edqs/cmd/serve"
	"github.com/ValentinKolb/edqs/cmd/snapshot"
	"github.com/ValentinKolb/edqs/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "edqs",
		Short: "entity data query service",
		Long: fmt.Sprintf(`edqs (v%s)

An in-memory working set of platform entities, attributes, latest values and
relations that answers paged entity data queries and survives restarts by
snapshotting itself to an embedded store.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of edqs",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("edqs v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(snapshot.SnapshotCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
