package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/skekre98/modhost/actuator"
	"github.com/skekre98/modhost/admin"
	"github.com/skekre98/modhost/config"
	"github.com/skekre98/modhost/config/source"
	"github.com/skekre98/modhost/core"
	"github.com/skekre98/modhost/host"
	"github.com/skekre98/modhost/logging"
	"github.com/skekre98/modhost/web"
)

type serveOptions struct {
	configDir string
	profile   string
	watch     bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the module host",
		Long: `Run the module host. Configuration comes from built-in defaults,
application.yaml in --config-dir, MODHOST_* environment variables and
dotted flags such as --server.addr=:9090, in increasing precedence.`,
		// dotted configuration flags are read by the config cli source
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		Args:               cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.configDir, "config-dir", "configs", "directory holding application.yaml")
	cmd.Flags().StringVar(&opts.profile, "profile", "", "overlay application.<profile>.yaml")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "reload configuration when the files change")
	return cmd
}

func serve(cmd *cobra.Command, opts serveOptions) error {
	var cfg config.Root
	mgr, err := config.NewManager(&cfg, config.Options{AutoReload: opts.watch},
		source.Map("defaults", config.Defaults()),
		&source.FileSource{BasePath: opts.configDir, Profile: opts.profile, Optional: true},
		&source.EnvSource{},
		&source.CLISource{},
	)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	defer mgr.Close()

	logger := logging.New(cfg.Logging, os.Stdout).With(
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
	)
	events := make(chan config.Event, 4)
	mgr.Subscribe(events)
	go logging.Follow(events, logger)

	var webOpts []web.Option
	if origins := cfg.Server.CORS.AllowOrigins; len(origins) > 0 {
		webOpts = append(webOpts, web.WithMiddlewares(web.CORS(origins)))
	}

	app := core.NewApp(logger,
		web.Module(webOpts...),
		actuator.Module(),
		host.Module(),
		admin.Module(),
	)
	app.ShutdownTimeout = cfg.Server.ShutdownTimeout
	core.Put(app.Container, cfg)
	core.Put(app.Container, logger)
	core.Put(app.Container, demoCatalog(logger))

	if err := app.Run(cmd.Context()); err != nil {
		logger.Error("app error", "error", err)
		return err
	}
	return nil
}
