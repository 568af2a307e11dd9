package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/heraldai/herald/chime"
	"github.com/heraldai/herald/config"
	"github.com/heraldai/herald/errors"
	"github.com/heraldai/herald/logger"
	"github.com/heraldai/herald/notify"
	"github.com/heraldai/herald/server"
	"github.com/heraldai/herald/sym"
)

// ServeCmd starts the Herald server with the chime dispatcher
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   sym.Chime + " Start the Herald server (REST API, event stream, chime dispatcher)",
	Long: sym.Chime + ` Start the Herald server.

Runs the full stack in one process:
- REST API for jobs, notifications, and tasks under /api
- WebSocket event stream on /ws
- Chime dispatcher polling for due scheduled jobs
- Prometheus metrics on /metrics

Config files are watched while the server runs; edits and
'herald config set' apply chime tunables (poll interval, claim batch,
concurrency) and the log theme without a restart.

Examples:
  herald serve                 # Start on the configured port (default 8787)
  herald serve --port 9000     # Start on an explicit port`,
	RunE: runServe,
}

var (
	servePort   int
	serveDBPath string
)

func init() {
	ServeCmd.Flags().IntVar(&servePort, "port", 0, "Server port (overrides config)")
	ServeCmd.Flags().StringVar(&serveDBPath, "db-path", "", "Custom database path (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	logger.ApplyConfigTheme(cfg.GetServerLogTheme())

	// Port priority: --port flag > env/config > default
	port := servePort
	if port == 0 {
		port = config.GetServerPort()
	}

	// Open and migrate database
	database, err := openDatabase(serveDBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	dbPath := serveDBPath
	if dbPath == "" {
		dbPath = cfg.GetDatabasePath()
	}

	st := newStores(database)

	// Dispatcher metrics live in a private registry so /metrics serves
	// only Herald series.
	promReg := prometheus.NewRegistry()

	srv, err := server.NewHeraldServer(cfg, server.Deps{
		DB:         database,
		JobStore:   st.jobs,
		RunStore:   st.runs,
		NotifStore: st.notifs,
		TaskStore:  st.tasks,
		Metrics:    promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}),
	}, logger.Logger)
	if err != nil {
		return errors.Wrap(err, "failed to create server")
	}

	// The server is the event sink for everything downstream: service
	// mutations, dispatcher lifecycle, and in-app notification inserts
	// all surface on /ws.
	inapp := srv.AnnouncedInbox(notify.NewInAppSender(st.notifs))
	dispatcher := buildDispatcher(cfg, st, inapp, srv, promReg)
	service := chime.NewService(st.jobs, st.runs, st.tasks, srv, logger.Logger)
	srv.SetService(service)
	srv.SetDispatcher(dispatcher)
	if verbosity, err := cmd.Root().PersistentFlags().GetCount("verbose"); err == nil {
		srv.SetVerbosity(verbosity)
	}

	printStartupBanner(port, dbPath, cfg.GetOwnerID())

	// Watch the config files so edits and `herald config set` hot-apply
	// dispatcher tunables and the log theme
	watcher, werr := config.NewConfigWatcher(config.WatchTargets()...)
	if werr != nil {
		logger.Warnw("Config watcher unavailable, restart to apply config changes", "error", werr)
	} else {
		watcher.OnReload(func(newCfg *config.Config) error {
			dispatcher.ApplyConfig(newCfg.GetChimeConfig())
			logger.ApplyConfigTheme(newCfg.GetServerLogTheme())
			return nil
		})
		watcher.Start()
		config.SetGlobalWatcher(watcher)
		defer watcher.Stop()
	}

	// Start server in background
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(port)
	}()

	// Wait for shutdown signal (Ctrl+C)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		// Server failed to start or stopped unexpectedly
		return errors.Wrap(err, "server failed to start")
	case <-sigChan:
		// First Ctrl+C - graceful shutdown
		pterm.Info.Println("\nShutting down gracefully (press Ctrl+C again to force)...")

		// Start graceful shutdown in background
		shutdownDone := make(chan error, 1)
		go func() {
			shutdownDone <- srv.Stop()
		}()

		// Wait for either shutdown completion or second Ctrl+C
		select {
		case err := <-shutdownDone:
			if err != nil {
				return fmt.Errorf("shutdown error: %w", err)
			}
			pterm.Success.Println("Server stopped cleanly")
			return nil
		case <-sigChan:
			// Second Ctrl+C - force immediate exit
			pterm.Warning.Println("\nForce shutdown - exiting immediately")
			os.Exit(1)
			return nil // unreachable
		}
	}
}
