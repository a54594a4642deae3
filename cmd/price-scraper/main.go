package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/coingecko-range-scraper/internal/config"
	"github.com/Sternrassler/coingecko-range-scraper/internal/scraper"
	"github.com/Sternrassler/coingecko-range-scraper/pkg/client"
	"github.com/Sternrassler/coingecko-range-scraper/pkg/logging"
	"github.com/Sternrassler/coingecko-range-scraper/pkg/pagination"
	"github.com/Sternrassler/coingecko-range-scraper/pkg/sink"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("Price scraper failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		// Logging is not configured yet
		logging.Setup(logging.DefaultConfig())
		return fmt.Errorf("load config: %w", err)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(cfg.Log.Level)
	logCfg.Pretty = cfg.Log.Pretty
	logCfg.FilePath = cfg.Log.File
	_, logCloser := logging.Setup(logCfg)
	defer logCloser.Close()

	logger := logging.NewLogger("main")

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: newMux()}
		go func() {
			logger.Info().Str("addr", cfg.Metrics.Addr).Msg("Serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn().Err(err).Msg("Metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}

	cgClient, err := client.New(clientConfig(cfg, redisClient))
	if err != nil {
		return fmt.Errorf("create coingecko client: %w", err)
	}
	defer cgClient.Close()

	out, err := newSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer out.Close()

	opts, err := planOptions(cfg)
	if err != nil {
		return err
	}

	r, err := cfg.TimeRange()
	if err != nil {
		return err
	}

	s, err := scraper.New(cgClient, out, opts)
	if err != nil {
		return err
	}

	res, err := s.Run(ctx, scraper.Job{
		Asset:    cfg.Scraper.Asset,
		Currency: cfg.Scraper.Currency,
		Range:    r,
	})
	if err != nil {
		return err
	}

	logger.Info().
		Str("run_id", res.RunID).
		Str("location", res.Location).
		Int("points", len(res.Series)).
		Msg("Done")

	return nil
}

func clientConfig(cfg *config.Config, redisClient *redis.Client) client.Config {
	cc := client.DefaultConfig(cfg.CoinGecko.UserAgent)
	cc.BaseURL = cfg.CoinGecko.BaseURL
	cc.Timeout = cfg.CoinGecko.Timeout
	cc.Retry.MaxRetries = cfg.CoinGecko.MaxRetries
	cc.Retry.InitialBackoff = cfg.CoinGecko.InitialBackoff
	cc.Retry.MaxBackoff = cfg.CoinGecko.MaxBackoff
	cc.RequestsPerMinute = cfg.CoinGecko.RequestsPerMinute
	cc.Redis = redisClient
	cc.CacheTTL = cfg.Redis.CacheTTL
	return cc
}

func planOptions(cfg *config.Config) (pagination.PlanOptions, error) {
	loc, err := cfg.Location()
	if err != nil {
		return pagination.PlanOptions{}, err
	}
	policy, err := cfg.RemainderPolicy()
	if err != nil {
		return pagination.PlanOptions{}, err
	}
	return pagination.PlanOptions{
		BaseURL:   cfg.CoinGecko.BaseURL,
		Location:  loc,
		Remainder: policy,
	}, nil
}

func newSink(ctx context.Context, cfg *config.Config) (sink.Sink, error) {
	switch cfg.SinkKind() {
	case sink.KindPostgres:
		s, err := sink.NewPostgresSink(ctx, cfg.Sink.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres sink: %w", err)
		}
		return s, nil
	default:
		return sink.NewCSVSink(cfg.Sink.DataDir), nil
	}
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}
