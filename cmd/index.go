package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/annalist/internal/index"
)

var indexDB string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and query SQLite entity indexes",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build [coll]",
	Short: "Build an entity index for a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		site, err := rt.site()
		if err != nil {
			return err
		}
		c, err := site.Collection(args[0])
		if err != nil {
			return err
		}
		output := indexDB
		if output == "" {
			output = rt.cfg.IndexPath
		}
		if output == "" {
			output = c.ID() + ".db"
		}

		start := time.Now()
		fmt.Fprintf(cmd.OutOrStdout(), "Building %s from %s...\n", output, c.ID())
		n, err := index.Build(cmd.Context(), c, output, rt.log)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d entities in %v.\n", n, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

var indexRefsCmd = &cobra.Command{
	Use:   "refs [index.db] [type_id/entity_id]",
	Short: "List the indexed entities that refer to an entity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err != nil {
			return err
		}
		r, err := index.Open(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()
		recs, err := r.Referrers(args[1])
		if err != nil {
			return err
		}
		for _, rec := range recs {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", rec.Ref(), rec.Label)
		}
		return nil
	},
}

func init() {
	indexBuildCmd.Flags().StringVarP(&indexDB, "output", "o", "", "Index database path (default from config, else <coll>.db)")
	indexCmd.AddCommand(indexBuildCmd, indexRefsCmd)
	rootCmd.AddCommand(indexCmd)
}
