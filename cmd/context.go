package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/annalist/internal/jsonld"
)

var contextPrint bool

var contextCmd = &cobra.Command{
	Use:   "context [coll]",
	Short: "Regenerate the JSON-LD context of a collection",
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
		if err := c.GenerateContext(); err != nil {
			return err
		}
		if contextPrint {
			ctx, err := c.Context()
			if err != nil {
				return err
			}
			data, err := jsonld.Encode(ctx)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		for _, p := range c.ContextPaths() {
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", p)
		}
		return nil
	},
}

func init() {
	contextCmd.Flags().BoolVarP(&contextPrint, "print", "p", false, "Write the context document to stdout")
	rootCmd.AddCommand(contextCmd)
}
