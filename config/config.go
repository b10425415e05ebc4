// Package config 从文件与环境变量加载 modelduel 配置，并按配置构建适配器注册表。
//
// 优先级（从高到低）：
//  1. 环境变量（MODELDUEL_*，OTEL_EXPORTER_OTLP_*）
//  2. 配置文件
//  3. 内置默认值
//
// 配置文件查找顺序（未显式指定路径时）：
//  1. 当前目录下的 modelduel.yaml
//  2. ~/.config/modelduel/config.yaml
//
// 使用配置驱动构建适配器时，需在入口处 import _ "github.com/rushteam/modelduel/config/builders"
// 以触发内置适配器类型（softmax、dnn、tf_serving 等）的 init 注册。
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/modelduel/feature"
	"github.com/rushteam/modelduel/service"
	"github.com/rushteam/modelduel/store"
	"github.com/rushteam/modelduel/telemetry"
)

// Config 是 modelduel 的完整配置。
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Log       LogConfig        `yaml:"log"`
	Engine    EngineConfig     `yaml:"engine"`
	Cache     CacheConfig      `yaml:"cache"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Adapters  []AdapterConfig  `yaml:"adapters"`

	// ConfigFile 实际加载的配置文件路径（没有则为空）
	ConfigFile string `yaml:"-"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// MaxUploadMB 批量上传 CSV 的大小上限
	MaxUploadMB int `yaml:"max_upload_mb"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug / info / warn / error
	Format string `yaml:"format"` // text / json
}

// EngineConfig 对比引擎配置。
type EngineConfig struct {
	Concurrent   bool           `yaml:"concurrent"`
	BatchWorkers int            `yaml:"batch_workers"`
	Preload      bool           `yaml:"preload"` // 启动时加载全部适配器；false 时首次使用再加载
	Schema       feature.Schema `yaml:"schema"`
}

// CacheConfig 预测缓存配置。Type 为空表示不缓存。
type CacheConfig struct {
	Type       string             `yaml:"type"` // "" / memory / redis
	TTL        int                `yaml:"ttl"`  // 秒，0 表示不过期
	MaxEntries int                `yaml:"max_entries"`
	Redis      store.RedisOptions `yaml:"redis"`
}

// AdapterConfig 单个适配器的配置。
//
//	- name: A
//	  type: softmax
//	  path: models/review_a.json
//	  preprocess: models/tokenizer.json
//	  labels: {scheme: rating, min: 1, max: 5}
type AdapterConfig struct {
	Name       string      `yaml:"name"`
	Type       string      `yaml:"type"`
	Path       string      `yaml:"path"`       // 本地模型产物（JSON）
	Preprocess string      `yaml:"preprocess"` // 预处理产物：本地路径或 http(s) URL
	Labels     LabelConfig `yaml:"labels"`

	// Service 远程模型服务（tf_serving / kserve），Type 由适配器类型决定
	Service service.ServiceConfig `yaml:"service"`

	// Params 类型相关的额外参数，如 classes、softmax、output
	Params map[string]any `yaml:"params"`

	// NoCache 为 true 时该适配器不走预测缓存
	NoCache bool `yaml:"no_cache"`
}

// LabelConfig 标签方案：rating / categories / score / expr。为空时按模型能力取默认方案。
type LabelConfig struct {
	Scheme string   `yaml:"scheme"`
	Min    int      `yaml:"min"`
	Max    int      `yaml:"max"`
	Names  []string `yaml:"names"`
	Expr   string   `yaml:"expr"`
	// Output expr 方案的输出类型：number（默认）/ rating / category
	Output string `yaml:"output"`
}

// Defaults 返回默认配置。
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080", MaxUploadMB: 32},
		Log:    LogConfig{Level: "info", Format: "text"},
		Engine: EngineConfig{Concurrent: true, BatchWorkers: 4, Preload: true},
		Cache:  CacheConfig{TTL: 600, MaxEntries: 10000},
	}
}

var errNoConfigFile = errors.New("no config file found")

// Load 加载配置。path 为空时按默认位置查找，找不到配置文件不是错误。
func Load(path string) (*Config, error) {
	cfg := Defaults()

	var (
		data []byte
		err  error
	)
	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		path, data, err = findConfigFile()
		if err != nil && !errors.Is(err, errNoConfigFile) {
			return nil, err
		}
	}
	if data != nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		cfg.resolvePaths(filepath.Dir(path))
	}

	if err := mergeEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse 从 YAML 字节解析配置（不读取环境变量），相对路径按 baseDir 解析。
func Parse(data []byte, baseDir string) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if baseDir != "" {
		cfg.resolvePaths(baseDir)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() (string, []byte, error) {
	if data, err := os.ReadFile("modelduel.yaml"); err == nil {
		return "modelduel.yaml", data, nil
	}
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "modelduel", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}
	return "", nil, errNoConfigFile
}

// resolvePaths 把适配器产物的相对路径改为相对配置文件所在目录。
func (c *Config) resolvePaths(dir string) {
	for i := range c.Adapters {
		a := &c.Adapters[i]
		a.Path = resolve(dir, a.Path)
		a.Preprocess = resolve(dir, a.Preprocess)
	}
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) || strings.Contains(p, "://") {
		return p
	}
	return filepath.Join(dir, p)
}

// mergeEnv 用环境变量覆盖配置。
func mergeEnv(cfg *Config) error {
	if v := os.Getenv("MODELDUEL_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("MODELDUEL_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("MODELDUEL_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("MODELDUEL_CACHE"); v != "" {
		cfg.Cache.Type = v
	}
	if v := os.Getenv("MODELDUEL_REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
	}
	if v := os.Getenv("MODELDUEL_REDIS_PASSWORD"); v != "" {
		cfg.Cache.Redis.Password = v
	}
	if v := os.Getenv("MODELDUEL_BATCH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MODELDUEL_BATCH_WORKERS %q: %w", v, err)
		}
		cfg.Engine.BatchWorkers = n
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.Endpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.Telemetry.Headers = v
	}
	return nil
}

// Validate 校验配置：适配器名称唯一、类型已注册、缓存类型合法。
func (c *Config) Validate() error {
	switch c.Cache.Type {
	case "", "none", "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache: redis addr is required")
		}
	default:
		return fmt.Errorf("cache: unknown type %q", c.Cache.Type)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log: unknown format %q", c.Log.Format)
	}

	seen := make(map[string]bool, len(c.Adapters))
	for i, a := range c.Adapters {
		if a.Name == "" {
			return fmt.Errorf("adapters[%d]: name is required", i)
		}
		if seen[a.Name] {
			return fmt.Errorf("adapters[%d]: duplicate name %q", i, a.Name)
		}
		seen[a.Name] = true
	}
	return ValidateAdapters(c.Adapters)
}
