// Command vortexfeed streams classified swap events for a set of token mints.
// It prefers push delivery over websocket log subscriptions and falls back to
// signature polling per token, printing every classified swap and exposing
// Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-vortex/internal/config"
	"solana-vortex/internal/decode"
	"solana-vortex/internal/domain"
	"solana-vortex/internal/feed"
	"solana-vortex/internal/logging"
	"solana-vortex/internal/observability"
	"solana-vortex/internal/pricing"
	"solana-vortex/internal/relay"
	"solana-vortex/internal/sink"
	"solana-vortex/internal/solana"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	tokens := flag.String("tokens", "", "Comma-separated token mints to track (overrides config)")
	chart := flag.Bool("chart", false, "Also stream one price tick per second for each token")
	rpcURL := flag.String("rpc-url", "", "Primary RPC HTTP endpoint (overrides config)")
	wsURL := flag.String("ws-url", "", "Websocket endpoint (overrides config, empty disables push)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *rpcURL != "" {
		cfg.RPC.PrimaryURL = *rpcURL
	}
	if *wsURL != "" {
		cfg.RPC.WebsocketURL = *wsURL
	}
	if *metricsAddr != "" {
		cfg.Metrics.ListenAddr = *metricsAddr
	}
	if *tokens != "" {
		cfg.Tokens = nil
		for _, t := range strings.Split(*tokens, ",") {
			if trimmed := strings.TrimSpace(t); trimmed != "" {
				cfg.Tokens = append(cfg.Tokens, trimmed)
			}
		}
	}
	if len(cfg.Tokens) == 0 {
		fmt.Fprintln(os.Stderr, "no tokens to track: set --tokens or the tokens list in the config file")
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	log := logger.WithField("component", "vortexfeed")

	if err := run(cfg, logger, log, *chart); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("feed terminated")
	}
	log.Info("shutdown complete")
}

func run(cfg config.Config, logger *logrus.Logger, log *logrus.Entry, chart bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics("")

	relayOpts := []relay.Option{relay.WithMetrics(metrics)}
	if cfg.RPC.AttemptTimeout > 0 {
		relayOpts = append(relayOpts, relay.WithAttemptTimeout(cfg.RPC.AttemptTimeout))
	}
	rel := relay.New(cfg.Endpoints(), logger, relayOpts...)

	oracleOpts := []pricing.Option{pricing.WithMetrics(metrics)}
	if cfg.Pricing.QuoteURL != "" {
		oracleOpts = append(oracleOpts, pricing.WithQuoteURL(cfg.Pricing.QuoteURL))
	}
	if cfg.Pricing.TTL > 0 {
		oracleOpts = append(oracleOpts, pricing.WithTTL(cfg.Pricing.TTL))
	}
	if cfg.Pricing.DefaultPrice > 0 {
		oracleOpts = append(oracleOpts, pricing.WithDefaultPrice(cfg.Pricing.DefaultPrice))
	}
	oracle := pricing.NewOracle(logger, oracleOpts...)

	decoder := decode.NewDecoder(rel, oracle, logger, metrics)

	feedOpts := []feed.Option{
		feed.WithConfig(feed.Config{
			PollLimit:       cfg.Feed.PollLimit,
			PollFloor:       cfg.Feed.PollFloor,
			PollCeiling:     cfg.Feed.PollCeiling,
			WindowCapacity:  cfg.Feed.WindowCapacity,
			CacheCapacity:   cfg.Feed.CacheCapacity,
			TickInterval:    time.Second,
			TickFailureCeil: 30 * time.Second,
		}),
		feed.WithMetrics(metrics),
		feed.WithQuoter(pricing.NewTokenQuoter()),
	}

	if cfg.RPC.WebsocketURL != "" {
		ws, err := solana.NewWSClient(ctx, cfg.RPC.WebsocketURL, nil, logger)
		if err != nil {
			log.WithError(err).Warn("websocket connect failed, running poll-only")
		} else {
			defer ws.Close()
			feedOpts = append(feedOpts, feed.WithPusher(ws))
		}
	}

	coordinator := feed.NewCoordinator(decoder, &feed.RelayLister{Relay: rel}, logger, feedOpts...)
	events := sink.NewChannelSink(cfg.Feed.SinkBuffer, logger)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, log, cfg.Metrics.ListenAddr)
		})
	}

	subs := make([]*feed.Subscription, 0, len(cfg.Tokens))
	chartSubs := make([]*feed.ChartSubscription, 0, len(cfg.Tokens))
	for _, mint := range cfg.Tokens {
		sub, err := coordinator.Subscribe(gctx, mint, events.Publish)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", mint, err)
		}
		log.WithField("mint", domain.ShortWallet(mint)).Info("tracking token")
		subs = append(subs, sub)

		if chart {
			short := domain.ShortWallet(mint)
			tickSub, err := coordinator.SubscribeChart(gctx, mint, func(tick domain.ChartTick) {
				log.WithFields(logrus.Fields{
					"mint":  short,
					"time":  tick.Time,
					"price": tick.Close,
				}).Info("tick")
			})
			if err != nil {
				return fmt.Errorf("chart subscribe %s: %w", mint, err)
			}
			chartSubs = append(chartSubs, tickSub)
		}
	}

	g.Go(func() error {
		defer func() {
			for _, sub := range chartSubs {
				sub.Stop()
			}
			for _, sub := range subs {
				sub.Stop()
			}
			events.Close()
		}()
		consume(gctx, log, events)
		return gctx.Err()
	})

	return g.Wait()
}

func consume(ctx context.Context, log *logrus.Entry, events *sink.ChannelSink) {
	for {
		select {
		case <-ctx.Done():
			return
		case swap, ok := <-events.Events():
			if !ok {
				return
			}
			entry := log.WithFields(logrus.Fields{
				"signature": swap.Signature,
				"direction": swap.Direction,
				"sol":       swap.NativeAmount,
				"usd":       swap.USDAmount,
				"tokens":    swap.TokenAmount,
				"signer":    domain.ShortWallet(swap.PrimarySigner),
			})
			if len(swap.Labels) > 0 {
				entry = entry.WithField("labels", strings.Join(swap.Labels, ","))
			}
			entry.Info("swap")
		}
	}
}

func serveMetrics(ctx context.Context, log *logrus.Entry, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", addr).Info("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
