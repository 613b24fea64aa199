package serve

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cmdUtil "github.com/ValentinKolb/edqs/cmd/util"
	"github.com/ValentinKolb/edqs/lib/repo"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

var (
	log = logger.GetLogger("cmd")

	ServeCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run an edqs node that consumes change events",
		Long: `Restore the working set from the snapshot store, apply change events (one JSON event per line) and snapshot the working set periodically.
The node stops when the input ends or on SIGINT/SIGTERM and takes a final snapshot before it exits.
The configuration can be set via command line flags or environment variables. The format of the environment variables is EDQS_<flag> (e.g. EDQS_SNAPSHOT_INTERVAL=1m)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	cmdUtil.SetupStoreFlags(ServeCmd)

	key := "events"
	ServeCmd.Flags().String(key, "-", cmdUtil.WrapString("File to read change events from, - reads from stdin"))
}

// processConfig binds the flags to viper so they can be overridden by the environment
func processConfig(cmd *cobra.Command, _ []string) error {
	return cmdUtil.BindCommandFlags(cmd)
}

type result struct {
	read, applied int
	err           error
}

// run starts the node and blocks until the input is consumed or a signal arrives
func run(_ *cobra.Command, _ []string) error {
	node, err := cmdUtil.OpenNode()
	if err != nil {
		return err
	}
	defer func() {
		if err := node.Close(); err != nil {
			log.Errorf("failed to close node: %v", err)
		}
	}()

	fmt.Fprintf(os.Stderr, "starting edqs node\n%s\n", node.Config.String())

	scheduler, err := repo.NewScheduler(node.Repo, node.Store, node.Config.SnapshotInterval)
	if err != nil {
		return err
	}
	scheduler.Start()

	in, err := cmdUtil.OpenInput(viper.GetString("events"))
	if err != nil {
		return multierr.Append(err, scheduler.Shutdown())
	}
	defer in.Close()

	done := make(chan result, 1)
	go func() {
		read, applied, err := cmdUtil.ApplyEvents(node.Repo, in)
		done <- result{read: read, applied: applied, err: err}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	var runErr error
	select {
	case res := <-done:
		log.Infof("input consumed: %d events read, %d applied", res.read, res.applied)
		runErr = res.err
	case sig := <-signals:
		log.Infof("received %s, shutting down", sig)
	}

	return multierr.Append(runErr, scheduler.Shutdown())
}
