package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentic-research/annalist/internal/mcpserver"
	"github.com/agentic-research/annalist/internal/server"
	"github.com/agentic-research/annalist/internal/watch"
)

var (
	serveListen   string
	serveReadOnly bool
	serveWatch    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the site over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("listen") {
			rt.cfg.Listen = serveListen
		}
		if flags.Changed("read-only") {
			rt.cfg.ReadOnly = serveReadOnly
		}
		if flags.Changed("watch") {
			rt.cfg.Watch = serveWatch
		}
		site, err := rt.site()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if rt.cfg.Watch {
			colls, err := site.Collections()
			if err != nil {
				return err
			}
			for _, c := range colls {
				cw, err := watch.New(c, watch.DefaultDelay, rt.log)
				if err != nil {
					return err
				}
				go func() {
					if err := cw.Run(ctx); err != nil {
						rt.log.Error().Err(err).Str("coll", c.ID()).Msg("context watcher stopped")
					}
				}()
			}
		}

		srv := server.New(site, server.Options{ReadOnly: rt.cfg.ReadOnly, Logger: rt.log})
		go func() {
			<-ctx.Done()
			if err := srv.Shutdown(); err != nil {
				rt.log.Warn().Err(err).Msg("shutdown")
			}
		}()
		rt.log.Info().Str("host", rt.cfg.Host).Str("base_uri", rt.cfg.SiteBaseURI()).Msg("serving site")
		return srv.Listen(rt.cfg.Listen)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve read-only site tools over MCP stdio",
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
		return mcpserver.ServeStdio(site, mcpserver.Options{IndexPath: rt.cfg.IndexPath, Logger: rt.log})
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "Listen address (default from config, else :8000)")
	serveCmd.Flags().BoolVar(&serveReadOnly, "read-only", false, "Reject requests that modify the site")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Regenerate collection contexts when definitions change on disk")
	rootCmd.AddCommand(serveCmd, mcpCmd)
}
