package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"go-bwfilter/pkg/config"
	"go-bwfilter/pkg/imagestore"
	"go-bwfilter/pkg/logging"
	"go-bwfilter/pkg/queue"
	"go-bwfilter/pkg/stats"
	"go-bwfilter/pkg/topology"
)

const unsupportedSkeleton = `This skeleton is not supported; Use keywords "pf" or "sf"`

func main() {
	var (
		configPath  = flag.String("config", "input.config", "Configuration file (line pairs, .yaml or .toml)")
		dataDir     = flag.String("data", "data", "Directory holding the input images")
		outputDir   = flag.String("out", "data", "Directory the filtered image is written to")
		capacity    = flag.Int("capacity", queue.DefaultCapacity, "Capacity of every queue in the graph")
		itemRate    = flag.Float64("rate", 0, "Items per second emitted by the generator, 0 = unlimited")
		logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		logDev      = flag.Bool("log-dev", false, "Human readable console logs")
		metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address during the run")
		reportJSON  = flag.String("report-json", "", "Write the run report as JSON to this path")
		resultsDir  = flag.String("results-dir", "logs", "Directory for the results file, empty disables it")
		redisAddr   = flag.String("redis", "", "Publish the run report to this Redis server")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			"Usage: %s [flags] [streamLength [nWorkersFarm [nWorkersHistogram [nWorkersFilter]]]]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logCfg := logging.DefaultConfig()
	logCfg.Level = *logLevel
	logCfg.Development = *logDev
	logger, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath, flag.Args())
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	shape := topology.Shape(cfg.Skeleton)
	if shape != topology.FarmOfSequential && shape != topology.FarmOfPipelines {
		fmt.Println(unsupportedSkeleton)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))
	metrics := stats.NewCollector()

	if *metricsAddr != "" {
		srv := serveMetrics(*metricsAddr, metrics, logger)
		defer srv.Close()
	}

	desc := topology.Descriptor{
		Shape:            shape,
		FarmWorkers:      cfg.FarmWorkers,
		HistogramWorkers: cfg.HistogramWorkers,
		FilterWorkers:    cfg.FilterWorkers,
		QueueCapacity:    *capacity,
		StreamLength:     cfg.StreamLength,
		Sigma:            cfg.Sigma,
		InputPath:        filepath.Join(*dataDir, cfg.Filename()),
		Rate:             *itemRate,
	}

	store := imagestore.NewFileStore()
	graph, err := topology.Build(desc, store, metrics, logger)
	if err != nil {
		logger.Fatal("Failed to build topology", zap.Error(err))
	}

	started := time.Now()
	result, err := graph.Run(ctx)
	if err != nil {
		logger.Fatal("Run failed", zap.Error(err))
	}

	if result.First != nil {
		if err := os.MkdirAll(*outputDir, 0755); err != nil {
			logger.Fatal("Failed to create output directory", zap.Error(err))
		}
		outPath := filepath.Join(*outputDir, "bw_"+cfg.Filename())
		if err := store.Save(outPath, result.First.Image); err != nil {
			logger.Fatal("Failed to save result", zap.String("path", outPath), zap.Error(err))
		}
		logger.Debug("Saved result", zap.String("path", outPath))
	}

	report := stats.NewReport(metrics, stats.Run{
		RunID:        runID,
		Skeleton:     string(shape),
		Workers:      desc.TotalWorkers(),
		StreamLength: desc.StreamLength,
		Results:      result.Results,
		Setup:        result.Setup,
		Parallel:     result.Parallel,
		Timestamp:    started,
	})
	fmt.Println(report.String())

	publishReport(ctx, report, *resultsDir, *reportJSON, *redisAddr, logger)
}

func serveMetrics(addr string, metrics *stats.Collector, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Metrics server stopped", zap.Error(err))
		}
	}()
	return srv
}

// publishReport writes the optional report sinks. Failures here do not
// invalidate the run, so they are logged and skipped.
func publishReport(ctx context.Context, report stats.Report, resultsDir, jsonPath, redisAddr string, logger *zap.Logger) {
	if resultsDir != "" {
		path, err := stats.WriteResults(resultsDir, []stats.Report{report})
		if err != nil {
			logger.Warn("Failed to write results file", zap.Error(err))
		} else {
			logger.Debug("Results written", zap.String("path", path))
		}
	}

	if jsonPath != "" {
		if err := stats.WriteJSON(jsonPath, report); err != nil {
			logger.Warn("Failed to write JSON report", zap.Error(err))
		}
	}

	if redisAddr != "" {
		reporter, err := queue.NewRedisReporter(ctx, redisAddr)
		if err != nil {
			logger.Warn("Failed to connect to Redis", zap.String("addr", redisAddr), zap.Error(err))
			return
		}
		defer reporter.Close()

		id, err := reporter.PublishReport(ctx, report)
		if err != nil {
			logger.Warn("Failed to publish report", zap.Error(err))
			return
		}
		logger.Info("Report published", zap.String("stream", queue.ReportStream), zap.String("id", id))
	}
}
