package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nadzzz/signalbox/internal/config"
	"github.com/nadzzz/signalbox/internal/health"
	"github.com/nadzzz/signalbox/internal/transport"
	grpctransport "github.com/nadzzz/signalbox/internal/transport/grpc"
	httptransport "github.com/nadzzz/signalbox/internal/transport/http"
	mqtttransport "github.com/nadzzz/signalbox/internal/transport/mqtt"
	"github.com/nadzzz/signalbox/internal/utterance"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the interpretation daemon",
	Long: `Start the signalbox daemon: the interpretation engine behind the enabled
transports (HTTP, gRPC, MQTT) plus a health check server. The daemon runs
until it receives SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	config.SetupLogging(cfg.Logging)
	slog.Info("signalbox starting", "version", Version)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	engine, cleanup, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// Initialize enabled transports.
	var transports []transport.Transport
	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port))
	}
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port, engine.Registry()))
	}
	if cfg.Transports.MQTT.Enabled {
		transports = append(transports, mqtttransport.New(cfg.Transports.MQTT.Broker, cfg.Transports.MQTT.Topic))
	}
	if len(transports) == 0 {
		return fmt.Errorf("no transports enabled, enable at least one in config")
	}

	healthServer := health.New(cfg.Server.HealthPort)

	handler := func(ctx context.Context, req utterance.Request) *utterance.Result {
		result := engine.Process(ctx, req)
		healthServer.RecordInvocation(result.Success)
		return result
	}

	// Run the health server and every transport; the first failure brings
	// the daemon down.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return healthServer.ListenAndServe(gctx)
	})
	for _, t := range transports {
		t := t
		g.Go(func() error {
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(gctx, handler); err != nil {
				return fmt.Errorf("%s transport: %w", t.Name(), err)
			}
			return nil
		})
	}

	healthServer.SetReady(true)
	slog.Info("signalbox ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	err = g.Wait()

	// Close all transports gracefully.
	for _, t := range transports {
		if closeErr := t.Close(); closeErr != nil {
			slog.Error("transport close error", "name", t.Name(), "error", closeErr)
		}
	}

	if err != nil && ctx.Err() == nil {
		return err
	}
	slog.Info("signalbox stopped")
	return nil
}
