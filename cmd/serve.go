package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	prometheusmetrics "github.com/deathowl/go-metrics-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"

	"github.com/telemetrydev/propdefs/events/provider"
	"github.com/telemetrydev/propdefs/filter"
	"github.com/telemetrydev/propdefs/health"
	"github.com/telemetrydev/propdefs/issue"
	"github.com/telemetrydev/propdefs/pipeline"
	"github.com/telemetrydev/propdefs/restapi"
	st "github.com/telemetrydev/propdefs/settings"
	"github.com/telemetrydev/propdefs/types"
)

// how stale the coordinator's liveness stamp may get before the orchestrator
// should restart us; generous against slow permit waits, tight against hangs
const coordinatorLivenessDeadline = 30 * time.Second

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Launch the ingestion pipeline",
	Long:  `Starts the ingestion workers, the batch coordinator and the health/metrics HTTP server.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancelFunc := context.WithCancel(context.Background())
		defer cancelFunc()

		// Disable or enable extended Kafka metrics
		if st.Kafka.ExtendedMetrics {
			prometheusClient := prometheusmetrics.NewPrometheusProvider(
				metrics.DefaultRegistry, "propdefs", "sarama", prometheus.DefaultRegisterer, 1*time.Second)
			go prometheusClient.UpdatePrometheusMetrics()
		} else {
			metrics.UseNilMetrics = true
		}

		seen, err := filter.New(st.Cache)
		if err != nil {
			st.Logger.Fatal().Err(err).Msg("could not build filter cache")
		}

		qprov, err := provider.NewSaramaProvider(ctx, st.Kafka.Endpoint, st.Kafka.EventTopic, st.Kafka.ConsumerGroup, st.Kafka.Offset)
		if err != nil {
			st.Logger.Fatal().Err(err).Msg("could not create kafka provider")
		}

		issuer, err := issue.NewPostgresIssuer(ctx, st.Database)
		if err != nil {
			st.Logger.Fatal().Err(err).Msg("could not connect to definitions store")
		}

		registry := health.NewRegistry()
		liveness := registry.Register("coordinator", coordinatorLivenessDeadline)

		// sized so workers can burst ahead of the coordinator without
		// unbounded growth
		handoff := make(chan types.Update, st.Pipeline.BatchSize*st.Pipeline.SlotsPerWorker)

		for i := 0; i < st.Pipeline.WorkerCount; i++ {
			consumer, err := qprov.CreateConsumer(fmt.Sprintf("ingest-%d", i))
			if err != nil {
				st.Logger.Fatal().Err(err).Msg("could not create consumer")
			}
			worker := pipeline.NewWorker(consumer, handoff, seen, st.Pipeline)
			go func(index int) {
				// a worker death means a broken consumer connection; not
				// locally recoverable, restart the whole process
				if err := worker.Run(ctx); err != nil {
					st.Logger.Fatal().Err(err).Int("worker", index).Msg("ingestion worker died")
				}
			}(i)
		}

		server := restapi.NewServer(registry)
		go func() {
			if err := http.ListenAndServe(st.Settings.ListenAddr, server.Router); err != nil {
				st.Logger.Fatal().Err(err).Msg("restapi server failed")
			}
		}()

		st.Logger.Info().Str("topic", st.Kafka.EventTopic).Int("workers", st.Pipeline.WorkerCount).Msg("pipeline started")

		coordinator := pipeline.NewCoordinator(handoff, issuer, seen, liveness, st.Pipeline)
		if err := coordinator.Run(ctx); err != nil {
			st.Logger.Fatal().Err(err).Msg("coordinator died")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
