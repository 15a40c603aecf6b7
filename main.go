package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/rtspcam/cmd"
	"github.com/smazurov/rtspcam/internal/api"
	"github.com/smazurov/rtspcam/internal/events"
	"github.com/smazurov/rtspcam/internal/launcher"
	"github.com/smazurov/rtspcam/internal/logging"
	"github.com/smazurov/rtspcam/internal/supervisor"
	"github.com/smazurov/rtspcam/internal/systemd"
)

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *cmd.Options) {
		// Runs for every command; subcommands only need config and logging.
		if loadErr := opts.Setup(cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logger := logging.GetLogger("main")

		// Construction is cheap and starts nothing; OnStart does the work.
		supCfg, supErr := opts.SupervisorConfig()
		eventBus := events.New()
		sup := supervisor.New(supCfg, eventBus)
		enum := opts.Enumerator(eventBus)

		launcherOpts := []launcher.Option{launcher.WithEventBus(eventBus)}
		if store, storeErr := opts.SettingsStore(); storeErr != nil {
			logger.Debug("Settings unavailable", "error", storeErr)
		} else {
			launcherOpts = append(launcherOpts, launcher.WithSettings(store))
			if settings, loadErr := store.Load(); loadErr == nil {
				launcherOpts = append(launcherOpts, launcher.WithSelection(settings.Selection))
			}
		}
		l := launcher.New(sup, enum, launcherOpts...)

		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Launcher:          l,
			EventBus:          eventBus,
			PrometheusHandler: promhttp.Handler(),
			SubmitRate:        float64(opts.SubmitRate),
			SubmitBurst:       opts.SubmitBurst,
			TrustedProxies:    opts.ProxyList(),
			CORSOrigins:       opts.OriginList(),
		})

		ctx, cancel := context.WithCancel(context.Background())

		notifier := systemd.NewNotifier()
		eventBus.Subscribe(func(e events.SessionStateChangedEvent) {
			if e.URL != "" {
				notifier.Status(e.State + " " + e.URL)
				return
			}
			notifier.Status(e.State)
		})

		hooks.OnStart(func() {
			if supErr != nil {
				logger.Error("Invalid supervisor configuration", "error", supErr)
				os.Exit(1)
			}

			if runtime.GOOS == "linux" && opts.DeviceWatchDir != "" {
				go func() {
					if watchErr := enum.Watch(ctx, opts.DeviceWatchDir); watchErr != nil {
						logger.Warn("Device hotplug detection disabled", "error", watchErr)
					}
				}()
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			ln, listenErr := net.Listen("tcp", opts.Port)
			if listenErr != nil {
				logger.Error("Failed to start HTTP server", "error", listenErr)
				os.Exit(1)
			}
			notifier.Ready()
			go notifier.RunWatchdog(ctx)
			if serveErr := server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				logger.Error("HTTP server failed", "error", serveErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			notifier.Stopping()
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			cancel()

			// Children go after the HTTP server stops accepting new sessions
			if stopErr := l.Stop(context.Background()); stopErr != nil {
				logger.Error("Error stopping stream", "error", stopErr)
			}
			if stopErr := sup.Shutdown(); stopErr != nil {
				logger.Error("Error stopping processes", "error", stopErr)
			}
		})
	})

	cli.Root().Use = "rtspcam"
	cli.Root().Short = "Launch a camera as a local RTSP stream"

	cli.Root().AddCommand(cmd.CreateDevicesCmd())
	cli.Root().AddCommand(cmd.CreateRenderCmd())
	cli.Root().AddCommand(cmd.CreateStreamCmd())
	cli.Root().AddCommand(cmd.CreateValidateCmd())

	cli.Run()
}
