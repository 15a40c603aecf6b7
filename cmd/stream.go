package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"

	"github.com/smazurov/rtspcam/internal/config"
	"github.com/smazurov/rtspcam/internal/events"
	"github.com/smazurov/rtspcam/internal/launcher"
	"github.com/smazurov/rtspcam/internal/logging"
	"github.com/smazurov/rtspcam/internal/stream"
	"github.com/smazurov/rtspcam/internal/supervisor"
)

// settingsDebounce absorbs the write we make ourselves after every start.
const settingsDebounce = time.Second

// CreateStreamCmd creates the stream command.
func CreateStreamCmd() *cobra.Command {
	var flags selectionFlags

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Run a stream in the foreground",
		Long: `Starts the media server and transcoder for the saved selection (flags override it) and ` +
			`keeps them running until SIGINT or SIGTERM. Editing the settings file restarts the stream ` +
			`with the new selection. Exits non-zero if the stream fails.`,
		Args: cobra.NoArgs,
		Run: humacli.WithOptions(func(cmd *cobra.Command, _ []string, opts *Options) {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			code := runStream(ctx, cmd, opts, &flags)
			stop()
			os.Exit(code)
		}),
	}

	flags.register(cmd.Flags())

	return cmd
}

func runStream(ctx context.Context, cmd *cobra.Command, opts *Options, flags *selectionFlags) int {
	logger := logging.GetLogger("launcher")

	supCfg, err := opts.SupervisorConfig()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		return 1
	}
	store, err := opts.SettingsStore()
	if err != nil {
		logger.Error("Settings unavailable", "error", err)
		return 1
	}
	sel, err := flags.apply(cmd.Flags(), savedSelection(store))
	if err != nil {
		logger.Error("Invalid selection", "error", err)
		return 1
	}

	bus := events.New()
	sup := supervisor.New(supCfg, bus)
	defer func() {
		if err := sup.Shutdown(); err != nil {
			logger.Error("Failed to stop all processes", "error", err)
		}
	}()
	l := launcher.New(sup, opts.Enumerator(bus),
		launcher.WithSettings(store),
		launcher.WithSelection(sel),
		launcher.WithEventBus(bus),
	)

	res, err := l.Submit(ctx, sel)
	if err != nil {
		logger.Error("Failed to start stream", "error", err, "kind", stream.KindOf(err))
		return 1
	}
	printResult(cmd.OutOrStdout(), res)

	reloads := make(chan stream.Config, 1)
	watcher := config.NewConfigWatcher(store.Path(), config.LoadSettings, logger,
		config.WithDebounce[config.Settings](settingsDebounce))
	watcher.OnReload(func(s config.Settings) {
		next, err := flags.apply(cmd.Flags(), s.Selection)
		if err != nil {
			logger.Warn("Ignoring invalid settings", "error", err)
			return
		}
		// Keep only the newest selection.
		select {
		case <-reloads:
		default:
		}
		reloads <- next
	})
	if err := watcher.Start(ctx); err != nil {
		logger.Warn("Failed to watch settings, hot-reload disabled", "error", err)
	} else {
		defer func() { _ = watcher.Stop() }()
	}

	for {
		session := l.Session()
		var done <-chan struct{}
		if session != nil {
			done = session.Done()
		}

		select {
		case <-ctx.Done():
			logger.Info("Stopping stream")
			if err := l.Stop(context.Background()); err != nil {
				logger.Error("Failed to stop stream", "error", err)
				return 1
			}
			return 0

		case <-done:
			err := session.Err()
			logger.Error("Stream stopped unexpectedly", "error", err, "kind", stream.KindOf(err))
			return 1

		case next := <-reloads:
			if next.WithDefaults() == l.Status().Selection {
				logger.Debug("Settings reloaded, selection unchanged")
				continue
			}
			res, err := restart(ctx, l, next, logger)
			if err != nil {
				logger.Error("Failed to restart stream", "error", err, "kind", stream.KindOf(err))
				return 1
			}
			printResult(cmd.OutOrStdout(), res)
		}
	}
}

func restart(ctx context.Context, l *launcher.Launcher, sel stream.Config, logger *slog.Logger) (*launcher.Result, error) {
	logger.Info("Selection changed, restarting stream", "device", sel.DeviceID)
	if err := l.Stop(ctx); err != nil {
		return nil, fmt.Errorf("stop: %w", err)
	}
	return l.Submit(ctx, sel)
}
