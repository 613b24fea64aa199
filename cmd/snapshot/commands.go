package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/ValentinKolb/edqs/cmd/util"
	dbUtil "github.com/ValentinKolb/edqs/lib/db/util"
	"github.com/ValentinKolb/edqs/lib/edqs"
	"github.com/ValentinKolb/edqs/lib/query"
	"github.com/ValentinKolb/edqs/lib/store"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	key := "tenant"
	queryCmd.Flags().String(key, "", util.WrapString("ID of the tenant the query is executed for"))
	countCmd.Flags().String(key, "", util.WrapString("ID of the tenant the query is executed for"))

	key = "customer"
	queryCmd.Flags().String(key, "", util.WrapString("ID of the customer the query is executed for, empty for tenant users"))
	countCmd.Flags().String(key, "", util.WrapString("ID of the customer the query is executed for, empty for tenant users"))

	key = "query"
	queryCmd.Flags().String(key, "-", util.WrapString("File holding the JSON query, - reads from stdin"))
	countCmd.Flags().String(key, "-", util.WrapString("File holding the JSON query, - reads from stdin"))

	key = "rows"
	inspectCmd.Flags().Bool(key, false, util.WrapString("Whether every row is printed in addition to the summary"))
}

var (
	inspectCmd = &cobra.Command{
		Use:   "inspect",
		Short: "Summarizes the rows of the snapshot store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printRows := viper.GetBool("rows")
			sizes := dbUtil.NewSizeHistogram()
			perType := make(map[edqs.ObjectType]int)

			_, err := node.Store.Load(func(row store.Row) error {
				t := row.Object.ObjectType()
				data, err := node.Repo.Codec().Serialize(t, row.Object)
				if err != nil {
					return err
				}
				sizes.AddSample(len(data))
				perType[t]++
				if printRows {
					fmt.Printf("%-16s %-9s %s\n", t, humanize.Bytes(uint64(len(data))), row.Key())
				}
				return nil
			})
			if err != nil {
				return err
			}

			types := make([]edqs.ObjectType, 0, len(perType))
			for t := range perType {
				types = append(types, t)
			}
			sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

			summary := sizes.Summary()
			fmt.Printf("rows: %s\n", humanize.Comma(summary.Count))
			for _, t := range types {
				fmt.Printf("  %-16s %s\n", t, humanize.Comma(int64(perType[t])))
			}
			fmt.Printf("row size: average %s, median %s, p99 %s\n",
				humanize.Bytes(uint64(summary.Average)),
				humanize.Bytes(uint64(summary.Median)),
				humanize.Bytes(uint64(summary.P99)))
			return nil
		},
	}
	ingestCmd = &cobra.Command{
		Use:   "ingest [file]",
		Short: "Applies change events (one JSON event per line) and snapshots the result",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "-"
			if len(args) == 1 {
				name = args[0]
			}
			in, err := util.OpenInput(name)
			if err != nil {
				return err
			}
			defer in.Close()

			read, applied, err := util.ApplyEvents(node.Repo, in)
			if err != nil {
				return err
			}
			stats, err := node.Repo.Snapshot(node.Store)
			if err != nil {
				return err
			}
			fmt.Printf("events=%d, applied=%d, written=%d, unchanged=%d, deleted=%d\n",
				read, applied, stats.Written, stats.Unchanged, stats.Deleted)
			return nil
		},
	}
	queryCmd = &cobra.Command{
		Use:   "query",
		Short: "Executes an entity data query and prints the page as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := queryContext()
			if err != nil {
				return err
			}
			var q query.EntityDataQuery
			if err := readQuery(&q); err != nil {
				return err
			}
			page, err := node.Repo.FindEntityDataByQuery(ctx, &q)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, page)
		},
	}
	countCmd = &cobra.Command{
		Use:   "count",
		Short: "Counts the entities matching a query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := queryContext()
			if err != nil {
				return err
			}
			var q query.EntityCountQuery
			if err := readQuery(&q); err != nil {
				return err
			}
			count, err := node.Repo.CountEntitiesByQuery(ctx, &q)
			if err != nil {
				return err
			}
			fmt.Println(count)
			return nil
		},
	}
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Prints the content of the working set and the metrics of the restore",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats := node.Repo.Stats()
			fmt.Printf("tenants=%d, attributes=%d, latest=%d, relations=%d, keys=%d, versions=%d\n",
				stats.Tenants, stats.Attributes, stats.LatestValues, stats.Relations, stats.Keys, stats.TrackedVersions)

			entityTypes := make([]edqs.EntityType, 0, len(stats.Entities))
			for t := range stats.Entities {
				entityTypes = append(entityTypes, t)
			}
			sort.Slice(entityTypes, func(i, j int) bool { return entityTypes[i] < entityTypes[j] })
			for _, t := range entityTypes {
				fmt.Printf("  %-16s %s\n", t, humanize.Comma(int64(stats.Entities[t])))
			}

			fmt.Println()
			if err := printJSON(os.Stdout, node.Store.GetDBInfo()); err != nil {
				return err
			}
			fmt.Println()
			node.Repo.WriteMetrics(os.Stdout)
			return nil
		},
	}
)

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func queryContext() (query.QueryContext, error) {
	var ctx query.QueryContext
	tenant, err := uuid.Parse(viper.GetString("tenant"))
	if err != nil {
		return ctx, fmt.Errorf("tenant must be a uuid: %w", err)
	}
	ctx.TenantID = tenant
	if customer := viper.GetString("customer"); customer != "" {
		if ctx.CustomerID, err = uuid.Parse(customer); err != nil {
			return ctx, fmt.Errorf("customer must be a uuid: %w", err)
		}
	}
	return ctx, nil
}

func readQuery(q any) error {
	in, err := util.OpenInput(viper.GetString("query"))
	if err != nil {
		return err
	}
	defer in.Close()

	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, q); err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
