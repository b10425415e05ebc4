package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rushteam/modelduel/adapter"
	"github.com/rushteam/modelduel/compare"
	"github.com/rushteam/modelduel/config"
	_ "github.com/rushteam/modelduel/config/builders"
	"github.com/rushteam/modelduel/core"
	"github.com/rushteam/modelduel/feature"
	"github.com/rushteam/modelduel/telemetry"
)

var (
	// Global flags.
	flagConfig   string
	flagLogLevel string
	flagAdapters []string
)

var rootCmd = &cobra.Command{
	Use:   "modelduel",
	Short: "Compare predictions from independently trained models side by side",
	Long: `modelduel sends one input (a feature vector, a table row or a review text)
to every selected model adapter and reports each prediction together with
whether the models agree.

Adapters are declared in the config file (modelduel.yaml by default).`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", os.Getenv("MODELDUEL_CONFIG"), "config file (default: ./modelduel.yaml or ~/.config/modelduel/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringSliceVarP(&flagAdapters, "adapters", "a", nil, "adapters to compare (default: every available adapter)")
}

// app 是一次命令执行所需的全部组件。
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	tel      *telemetry.Telemetry
	cache    core.Store
	registry *adapter.Registry
	engine   *compare.Engine
}

// setup 加载配置并按配置组装注册表与对比引擎。
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if len(cfg.Adapters) == 0 {
		return nil, fmt.Errorf("no adapters configured (config file: %q)", cfg.ConfigFile)
	}

	a := &app{cfg: cfg, logger: config.NewLogger(cfg.Log, os.Stderr)}
	a.tel, err = telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return nil, err
	}
	a.cache, err = config.NewStore(ctx, cfg.Cache)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	a.registry, err = cfg.BuildRegistry(a.cache, a.logger)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	a.engine = compare.New(a.registry,
		compare.WithNormalizer(feature.NewNormalizer(cfg.Engine.Schema)),
		compare.WithConcurrency(cfg.Engine.Concurrent),
		compare.WithBatchWorkers(cfg.Engine.BatchWorkers),
		compare.WithLogger(a.logger),
		compare.WithTelemetry(a.tel),
	)
	a.logger.Debug("configured", "config", cfg.ConfigFile, "adapters", a.registry.Names(), "cache", cfg.Cache.Type)
	return a, nil
}

func (a *app) close(ctx context.Context) {
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.tel != nil {
		errs = append(errs, a.tel.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown", "error", err)
	}
}
