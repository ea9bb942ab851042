package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lzjever/escn/internal/api"
	"github.com/lzjever/escn/internal/core"
	"github.com/lzjever/escn/internal/generatorclient"
	"github.com/lzjever/escn/internal/observability"
	"github.com/lzjever/escn/internal/registry"
	"github.com/lzjever/escn/internal/store"
)

// remoteMinter lets the registry client mint through escn-generator.
type remoteMinter struct {
	c *generatorclient.Client
}

func (m remoteMinter) Generate(prefix, pic string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.c.Generate(ctx, prefix, pic)
}

func main() {
	var cfg api.Config
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	var regCfg registry.Config
	if err := envconfig.Process("", &regCfg); err != nil {
		fmt.Fprintf(os.Stderr, "registry config: %v\n", err)
		os.Exit(1)
	}
	if err := regCfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "registry config: %v\n", err)
		os.Exit(1)
	}

	log, _ := observability.NewLogger(cfg.LogLevel)
	defer log.Sync()

	// Replace global logger
	zap.ReplaceGlobals(log)

	reg := prometheus.DefaultRegisterer
	observability.RegisterAll(reg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := store.NewPool(ctx, cfg.DBDSN, cfg.DBMaxConns)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	defer pool.Close()

	if err := store.Migrate(ctx, pool); err != nil {
		log.Fatal("db migrate failed", zap.Error(err))
	}

	// ESCNs come from escn-generator when configured, else from this process.
	var gen api.Generator
	var minter registry.Generator
	if cfg.GeneratorAddr != "" {
		client, err := generatorclient.New(cfg.GeneratorAddr)
		if err != nil {
			log.Fatal("generator connect failed", zap.Error(err))
		}
		defer client.Close()
		gen, minter = client, remoteMinter{c: client}
		log.Info("using remote generator", zap.String("addr", cfg.GeneratorAddr))
	} else {
		local := core.NewGenerator()
		observability.RegisterGenerator(reg, local)
		gen, minter = api.Local(local), local
	}

	apiHandler := api.NewAPI(cfg, api.Deps{
		Generator: gen,
		Registry:  registry.New(regCfg, minter, log),
		Ledger:    store.New(pool),
		Locks:     store.NewIssueLocks(pool),
		DB:        pool,
		Issuer: api.Issuer{
			Prefix:   regCfg.Prefix,
			PIC:      regCfg.PIC,
			CardType: regCfg.CardType,
		},
	}, log)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      apiHandler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Metrics server
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: mux,
	}

	go func() {
		log.Info("metrics server starting", zap.String("addr", cfg.MetricsAddr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		log.Info("API server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("API server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down API server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)

	log.Info("API server stopped")
}
