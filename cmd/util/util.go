package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ValentinKolb/edqs/lib/common"
	"github.com/ValentinKolb/edqs/lib/db"
	"github.com/ValentinKolb/edqs/lib/db/engines/memdb"
	"github.com/ValentinKolb/edqs/lib/db/engines/pebbledb"
	"github.com/ValentinKolb/edqs/lib/repo"
	"github.com/ValentinKolb/edqs/lib/store"
	"github.com/ValentinKolb/edqs/lib/store/lstore"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// SetupStoreFlags adds the flags shared by all commands that work on a
// snapshot store to a command
func SetupStoreFlags(cmd *cobra.Command) {
	defaults := common.DefaultConfig()

	key := "data-dir"
	cmd.PersistentFlags().String(key, defaults.DataDir, WrapString("Directory of the snapshot store. An empty value keeps the snapshot in memory, which is only useful for testing"))

	key = "sync-write"
	cmd.PersistentFlags().Bool(key, defaults.SyncWrite, WrapString("Whether every snapshot write is synced to disk"))

	key = "compression-threshold"
	cmd.PersistentFlags().Int(key, defaults.CompressionThreshold, WrapString("String values longer than this many characters are kept compressed in memory"))

	key = "version-ttl"
	cmd.PersistentFlags().Duration(key, defaults.VersionTTL, WrapString("How long the version of an object is remembered after its last update (e.g. 30m, 1h)"))

	key = "snapshot-interval"
	cmd.PersistentFlags().Duration(key, defaults.SnapshotInterval, WrapString("How often the working set is written to the snapshot store (only for serve)"))

	key = "string-interning"
	cmd.PersistentFlags().Bool(key, defaults.StringInterning, WrapString("Whether equal strings of restored entities share memory"))

	key = "log-level"
	cmd.PersistentFlags().String(key, defaults.LogLevel, WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "log-levels"
	cmd.PersistentFlags().String(key, "", WrapString("Per component log levels overriding log-level, e.g. repo=debug,pebbledb=warn. Components: "+strings.Join(common.LoggerNames, ", ")))
}

// InitConfig loads the .env files and initializes viper to read environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("edqs")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetConfig reads the node configuration from viper and validates it
func GetConfig() (common.Config, error) {
	componentLevels, err := common.ParseComponentLevels(viper.GetString("log-levels"))
	if err != nil {
		return common.Config{}, err
	}

	conf := common.Config{
		DataDir:              viper.GetString("data-dir"),
		SyncWrite:            viper.GetBool("sync-write"),
		CompressionThreshold: viper.GetInt("compression-threshold"),
		VersionTTL:           viper.GetDuration("version-ttl"),
		SnapshotInterval:     viper.GetDuration("snapshot-interval"),
		StringInterning:      viper.GetBool("string-interning"),
		LogLevel:             viper.GetString("log-level"),
		ComponentLogLevels:   componentLevels,
	}
	if err := conf.Validate(); err != nil {
		return conf, err
	}
	return conf, nil
}

// --------------------------------------------------------------------------
// Repo and Store
// --------------------------------------------------------------------------

// Node is a repo together with the store it is snapshotted to
type Node struct {
	Config common.Config
	Repo   *repo.Repo
	Store  store.IStore
}

// OpenNode reads the configuration, initializes the loggers, opens the
// snapshot store and restores the repo from it
func OpenNode() (*Node, error) {
	conf, err := GetConfig()
	if err != nil {
		return nil, err
	}
	if err := common.InitLoggers(conf); err != nil {
		return nil, err
	}

	r, err := repo.New(conf.RepoOptions())
	if err != nil {
		return nil, err
	}

	var factory store.DBFactory
	if conf.DataDir == "" {
		factory = memdb.NewMemDB
	} else {
		factory = func() db.SnapshotDB {
			return pebbledb.NewPebbleDB(pebbledb.Options{Path: conf.DataDir, Sync: conf.SyncWrite})
		}
	}
	s := lstore.NewLocalStore(factory, r.Codec(), lstore.Options{})

	fresh, err := s.Open()
	if err != nil {
		return nil, multierr.Append(err, r.Close())
	}
	if !fresh {
		if _, err := r.Restore(s); err != nil {
			return nil, multierr.Combine(err, s.Close(), r.Close())
		}
	}

	return &Node{Config: conf, Repo: r, Store: s}, nil
}

// Close closes the store and the repo of the node
func (n *Node) Close() error {
	return multierr.Append(n.Store.Close(), n.Repo.Close())
}

// --------------------------------------------------------------------------
// Input
// --------------------------------------------------------------------------

// OpenInput opens the named file, "-" (or an empty name) selects stdin
func OpenInput(name string) (io.ReadCloser, error) {
	if name == "" || name == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", name, err)
	}
	return f, nil
}

// ApplyEvents reads one JSON event per line from in and applies it to r.
// Empty lines are skipped, the first malformed line aborts with its line number.
func ApplyEvents(r *repo.Repo, in io.Reader) (read int, applied int, err error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		data := strings.TrimSpace(scanner.Text())
		if data == "" {
			continue
		}
		e, err := repo.DecodeEvent([]byte(data))
		if err != nil {
			return read, applied, fmt.Errorf("line %d: %w", line, err)
		}
		read++
		if r.Apply(e) {
			applied++
		}
	}
	return read, applied, scanner.Err()
}
