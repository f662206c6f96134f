package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/usenocturne/headunitd/api"
	"github.com/usenocturne/headunitd/bluetooth"
	"github.com/usenocturne/headunitd/config"
	"github.com/usenocturne/headunitd/logger"
	"github.com/usenocturne/headunitd/utils"
	"github.com/usenocturne/headunitd/ws"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := ws.NewWebSocketHub(logger.WithComponent(log, "ws"))

	var bus bluetooth.DeviceBus
	sysBus, err := bluetooth.NewSystemBus()
	if err != nil {
		log.Warn().Err(err).Msg("System bus unavailable, profile activation and link monitoring disabled")
	} else {
		defer sysBus.Close()
		bus = sysBus
	}

	manager := bluetooth.NewBluetoothManager(cfg.Bluetooth.Options(), bus, hub, logger.WithComponent(log, "bluetooth"))

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewHandler(manager, hub, cfg.VersionFile, logger.WithComponent(log, "api")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if sysBus != nil {
		monitor := bluetooth.NewLinkMonitor(sysBus, logger.WithComponent(log, "monitor"))
		g.Go(func() error {
			runMonitor(ctx, monitor, log)
			return nil
		})
		g.Go(func() error {
			forwardLinkEvents(monitor.Events(), hub)
			return nil
		})
	}

	if cfg.Bluetooth.AutoConnectOnStart {
		g.Go(func() error {
			autoConnect(ctx, manager, log)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Shutting down")
		return err
	}
	log.Info().Msg("Stopped")
	return nil
}

func autoConnect(ctx context.Context, manager *bluetooth.BluetoothManager, log zerolog.Logger) {
	ok, err := manager.AutoConnect(ctx)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("Startup auto-connect failed")
	case ok:
		log.Info().Msg("Startup auto-connect succeeded")
	}
}

type linkMonitor interface {
	Run(ctx context.Context) error
}

// runMonitor keeps link monitoring optional: a failure is logged and the
// daemon keeps serving.
func runMonitor(ctx context.Context, monitor linkMonitor, log zerolog.Logger) {
	if err := monitor.Run(ctx); err != nil {
		log.Warn().Err(err).Msg("Link monitor stopped, disconnect events disabled")
	}
}

// forwardLinkEvents relays link-lost events to the UI until events closes.
func forwardLinkEvents(events <-chan bluetooth.LinkEvent, sink bluetooth.EventSink) {
	for ev := range events {
		switch ev.Kind {
		case bluetooth.LinkDeviceDisconnected:
			sink.Broadcast(utils.WebSocketEvent{
				Type:    utils.EventDisconnect,
				Payload: utils.DeviceDisconnectedPayload{Address: ev.Address},
			})
		case bluetooth.LinkNetworkDown:
			sink.Broadcast(utils.WebSocketEvent{
				Type:    utils.EventNetworkDisconnect,
				Payload: utils.NetworkDisconnectedPayload{Interface: ev.Interface},
			})
		}
	}
}
