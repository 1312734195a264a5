// Package cmd implements the riak-search command tree.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/riak"
	"github.com/kailas-cloud/riak/internal/config"
	"github.com/kailas-cloud/riak/internal/logger"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	url        string
	username   string
	password   string
	timeout    time.Duration
	logLevel   string
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:          "riak-search",
		Short:        "Manage Riak search buckets and query their indexes",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "YAML config file (node section is used)")
	pf.StringVar(&g.url, "url", "", "node base URL (overrides config)")
	pf.StringVar(&g.username, "user", "", "basic auth username")
	pf.StringVar(&g.password, "password", "", "basic auth password")
	pf.DurationVar(&g.timeout, "timeout", 0, "per-request timeout (overrides config)")
	pf.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newPingCmd(g),
		newEnableCmd(g),
		newDisableCmd(g),
		newStatusCmd(g),
		newAddCmd(g),
		newDeleteCmd(g),
		newSearchCmd(g),
		newPutCmd(g),
		newGetCmd(g),
		newRemoveCmd(g),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads --config when given and applies flag overrides.
func (g *globalFlags) loadConfig() (config.Config, error) {
	cfg := config.Default()
	if g.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(g.configPath); err != nil {
			return config.Config{}, err
		}
	}
	if g.url != "" {
		cfg.Node.URL = g.url
	}
	if g.username != "" {
		cfg.Node.Username = g.username
		cfg.Node.Password = g.password
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// client builds a riak.Client from config and flags.
func (g *globalFlags) client() (*riak.Client, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.NewCLI(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Node.Timeout()
	if g.timeout > 0 {
		timeout = g.timeout
	}

	opts := []riak.Option{
		riak.WithURL(cfg.Node.URL),
		riak.WithPrefix(cfg.Node.Prefix),
		riak.WithSolrPrefix(cfg.Node.SolrPrefix),
		riak.WithTimeout(timeout),
		riak.WithLogger(log),
	}
	if cfg.Node.Username != "" {
		opts = append(opts, riak.WithBasicAuth(cfg.Node.Username, cfg.Node.Password))
	}
	if cfg.Node.ClientID != "" {
		opts = append(opts, riak.WithClientID(cfg.Node.ClientID))
	}

	c, err := riak.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	log.Debug("client ready", zap.String("url", cfg.Node.URL), zap.String("client_id", c.ClientID()))
	return c, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// printJSON writes v as indented JSON followed by a newline.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
