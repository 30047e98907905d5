package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-research/annalist/internal/colldata"
	"github.com/agentic-research/annalist/internal/identifiers"
	"github.com/agentic-research/annalist/internal/model"
)

var collLabel string

var collCmd = &cobra.Command{
	Use:   "coll",
	Short: "Manage collections",
}

var collListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		site, err := rt.site()
		if err != nil {
			return err
		}
		colls, err := site.Collections()
		if err != nil {
			return err
		}
		for _, c := range colls {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.ID(), c.Label())
		}
		return nil
	},
}

var collCreateCmd = &cobra.Command{
	Use:   "create [coll]",
	Short: "Create an empty collection",
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
		vals := model.Values{}
		if collLabel != "" {
			vals[identifiers.Label] = collLabel
		}
		c, err := site.AddCollection(args[0], vals)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created collection %s\n", c.URL())
		return nil
	},
}

var collRemoveCmd = &cobra.Command{
	Use:   "remove [coll]",
	Short: "Remove a collection and all its data",
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
		if err := site.RemoveCollection(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed collection %s\n", args[0])
		return nil
	},
}

// openOrCreate opens collection id, creating it when it does not exist.
func openOrCreate(site *model.Site, id string) (*model.Collection, error) {
	c, err := site.Collection(id)
	if errors.Is(err, model.ErrNotFound) {
		return site.AddCollection(id, model.Values{})
	}
	return c, err
}

var collCopyCmd = &cobra.Command{
	Use:   "copy [src] [tgt]",
	Short: "Copy every entity of one collection into another",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		site, err := rt.site()
		if err != nil {
			return err
		}
		src, err := site.Collection(args[0])
		if err != nil {
			return err
		}
		tgt, err := openOrCreate(site, args[1])
		if err != nil {
			return err
		}
		msgs, err := colldata.Copy(src, tgt)
		if err != nil {
			return err
		}
		if err := printMessages(cmd.OutOrStdout(), msgs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Copied %s to %s\n", src.ID(), tgt.ID())
		return nil
	},
}

var collMigrateCmd = &cobra.Command{
	Use:   "migrate [coll]",
	Short: "Bring a collection up to the current layout and value formats",
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
		msgs, err := colldata.Migrate(c)
		if err != nil {
			return err
		}
		if err := printMessages(cmd.OutOrStdout(), msgs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Migrated collection %s\n", c.ID())
		return nil
	},
}

var collInitCmd = &cobra.Command{
	Use:   "init [coll] [src-dir]",
	Short: "Load definitions and data from a directory into a collection",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		if fi, err := os.Stat(args[1]); err != nil {
			return err
		} else if !fi.IsDir() {
			return fmt.Errorf("%s is not a directory", args[1])
		}
		site, err := rt.site()
		if err != nil {
			return err
		}
		c, err := openOrCreate(site, args[0])
		if err != nil {
			return err
		}
		msgs, err := colldata.Initialize(os.DirFS(args[1]), c)
		if err != nil {
			return err
		}
		if err := printMessages(cmd.OutOrStdout(), msgs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Initialized collection %s from %s\n", c.ID(), args[1])
		return nil
	},
}

func init() {
	collCreateCmd.Flags().StringVar(&collLabel, "label", "", "Collection label")
	collCmd.AddCommand(collListCmd, collCreateCmd, collRemoveCmd, collCopyCmd, collMigrateCmd, collInitCmd)
	rootCmd.AddCommand(collCmd)
}
