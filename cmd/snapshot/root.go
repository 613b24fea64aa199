package snapshot

import (
	"github.com/ValentinKolb/edqs/cmd/util"
	"github.com/spf13/cobra"
)

var (
	node *util.Node

	// SnapshotCommands represents the command group working on a snapshot store
	SnapshotCommands = &cobra.Command{
		Use:                "snapshot",
		Short:              "Inspect, query and feed a snapshot store",
		PersistentPreRunE:  openNode,
		PersistentPostRunE: closeNode,
	}
)

func init() {
	// Add common store flags to the snapshot command
	util.SetupStoreFlags(SnapshotCommands)

	// Add subcommands
	SnapshotCommands.AddCommand(inspectCmd)
	SnapshotCommands.AddCommand(ingestCmd)
	SnapshotCommands.AddCommand(queryCmd)
	SnapshotCommands.AddCommand(countCmd)
	SnapshotCommands.AddCommand(statsCmd)
}

// openNode restores the working set from the configured store
func openNode(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	node, err = util.OpenNode()
	return err
}

func closeNode(_ *cobra.Command, _ []string) error {
	if node == nil {
		return nil
	}
	return node.Close()
}
