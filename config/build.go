package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rushteam/modelduel/adapter"
	"github.com/rushteam/modelduel/core"
	"github.com/rushteam/modelduel/store"
)

// NewLogger 按日志配置创建 slog.Logger，输出到 w（nil 时为 stderr）。
func NewLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewStore 按缓存配置创建预测缓存；未配置缓存时返回 nil。
func NewStore(ctx context.Context, cfg CacheConfig) (core.Store, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		var opts []store.MemoryOption
		if cfg.MaxEntries > 0 {
			opts = append(opts, store.WithMaxEntries(cfg.MaxEntries))
		}
		return store.NewMemoryStore(opts...), nil
	case "redis":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		r, err := store.NewRedisStore(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("cache: unknown type %q", cfg.Type)
	}
}

// BuildRegistry 按配置顺序注册适配器（注册顺序即结果顺序）。
// 适配器只登记加载函数，真正构建发生在首次使用或 LoadAll 时；
// cache 非空时预测结果经由它缓存。
func (c *Config) BuildRegistry(cache core.Store, logger *slog.Logger) (*adapter.Registry, error) {
	reg := adapter.NewRegistry(adapter.WithLogger(logger))
	for _, ac := range c.Adapters {
		ac := ac
		build, ok := Builder(ac.Type)
		if !ok {
			return nil, fmt.Errorf("adapter %q: unsupported type %q (supported: %v)", ac.Name, ac.Type, SupportedTypes())
		}
		ttl := c.Cache.TTL
		loader := func(ctx context.Context) (core.PointPredictor, error) {
			p, err := build(ctx, ac)
			if err != nil {
				return nil, err
			}
			if cache != nil && !ac.NoCache {
				p = adapter.WithCache(p, cache, ttl)
			}
			return p, nil
		}
		if err := reg.Register(ac.Name, loader); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
