package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/annalist/internal/model"
	"github.com/agentic-research/annalist/internal/sitedata"
)

var (
	siteLabel       string
	siteDescription string
)

var siteCmd = &cobra.Command{
	Use:   "site",
	Short: "Manage the site",
}

var siteInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the site data collection with the built-in definitions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		store, err := rt.store()
		if err != nil {
			return err
		}
		existing := model.NewSite(store, rt.cfg.SiteBaseURI())
		if _, err := existing.SiteData(); err == nil {
			return fmt.Errorf("site %s: %w", rt.layout().SitePath, model.ErrExists)
		} else if !errors.Is(err, model.ErrNotFound) {
			return err
		}
		if _, err := model.InitializeSite(store, rt.cfg.SiteBaseURI(), sitedata.FS(),
			siteLabel, siteDescription, model.WithLogger(rt.log)); err != nil {
			return err
		}
		l := rt.layout()
		rt.log.Info().Str("context", l.SitedataContextDir).Msg("site data initialized")
		fmt.Fprintf(cmd.OutOrStdout(), "Initialized site %s at %s\n", rt.cfg.SiteBaseURI(), l.SitePath)
		return nil
	},
}

func init() {
	siteInitCmd.Flags().StringVar(&siteLabel, "label", "", "Site label")
	siteInitCmd.Flags().StringVar(&siteDescription, "description", "", "Site description")
	siteCmd.AddCommand(siteInitCmd)
	rootCmd.AddCommand(siteCmd)
}
