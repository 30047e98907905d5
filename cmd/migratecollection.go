package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/annalist/internal/config"
	"github.com/agentic-research/annalist/internal/model"
	"github.com/agentic-research/annalist/internal/report"
)

// Exit codes of migratecollection.
const (
	exitNoSettings       = 2
	exitUnexpectedArgs   = 3
	exitCollectionAbsent = 4
)

var migrateCollectionCmd = &cobra.Command{
	Use:   "migratecollection [old_coll] [new_coll]",
	Short: "Report the changes needed to move data from one collection to another",
	Long: `Compares the type and field definitions of two collections and prints
the type and property URI renames that data moving from the old collection
must follow, with the definitions and entities that refer to them.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 {
			return &exitError{exitUnexpectedArgs, fmt.Errorf("expected old and new collection ids, got %d argument(s)", len(args))}
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			if errors.Is(err, config.ErrNotFound) {
				return &exitError{exitNoSettings, err}
			}
			return err
		}
		site, err := rt.site()
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return &exitError{exitNoSettings, err}
			}
			return err
		}
		var colls [2]*model.Collection
		for i, id := range args {
			c, err := site.Collection(id)
			if err != nil {
				if errors.Is(err, model.ErrNotFound) {
					return &exitError{exitCollectionAbsent, err}
				}
				return err
			}
			colls[i] = c
		}
		return report.Migration(cmd.OutOrStdout(), colls[0], colls[1])
	},
}

func init() {
	rootCmd.AddCommand(migrateCollectionCmd)
}
