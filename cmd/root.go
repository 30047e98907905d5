package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentic-research/annalist/internal/config"
	"github.com/agentic-research/annalist/internal/layout"
	"github.com/agentic-research/annalist/internal/logging"
	"github.com/agentic-research/annalist/internal/model"
)

var (
	configPath string
	envFile    string
	baseDir    string
	baseURI    string
	logLevel   string
	logFormat  string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Path to site config file (default "+config.DefaultFile+" if present)")
	pf.StringVar(&envFile, "env-file", "", "Path to env file (default "+config.DefaultEnvFile+" if present)")
	pf.StringVarP(&baseDir, "base-dir", "d", "", "Base data directory; the site is kept in its annalist_site subdirectory")
	pf.StringVar(&baseURI, "base-uri", "", "Base URI of the site")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "", "Log format (json, console)")
}

var rootCmd = &cobra.Command{
	Use:           "annalist",
	Short:         "Annalist: a linked data notebook store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// runtime is the configuration and logger shared by every command.
type runtime struct {
	cfg *config.Config
	log zerolog.Logger
}

// setup loads the configuration and applies the persistent flags over it.
func setup(cmd *cobra.Command) (*runtime, error) {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	for name, dst := range map[string]*string{
		"base-dir":   &cfg.BaseDir,
		"base-uri":   &cfg.BaseURI,
		"log-level":  &cfg.LogLevel,
		"log-format": &cfg.LogFormat,
	} {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	log, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, log: log}, nil
}

func (r *runtime) layout() layout.Layout { return layout.New(r.cfg.BaseDir) }

func (r *runtime) store() (*model.Store, error) {
	return model.OpenStore(r.layout().SitePath)
}

// site opens an initialized site.
func (r *runtime) site() (*model.Site, error) {
	store, err := r.store()
	if err != nil {
		return nil, err
	}
	s := model.NewSite(store, r.cfg.SiteBaseURI(), model.WithLogger(r.log))
	if _, err := s.SiteData(); err != nil {
		return nil, fmt.Errorf("site %s not initialized (run annalist site init): %w", r.layout().SitePath, err)
	}
	return s, nil
}

func printMessages(w io.Writer, msgs []string) error {
	for _, m := range msgs {
		fmt.Fprintln(w, m)
	}
	if len(msgs) > 0 {
		return fmt.Errorf("%d problem(s) reported", len(msgs))
	}
	return nil
}
