// Package server 是对比引擎的 HTTP 接口。
//
//	GET  /health          存活检查
//	GET  /adapters        适配器状态（不触发加载）
//	POST /compare         单个输入对比，JSON 请求体
//	POST /compare/batch   CSV 批量对比，返回追加了预测列的 predictions.csv
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/rushteam/modelduel/compare"
)

// compareRequestSchema 校验 /compare 请求体：features、values、text、row 恰好出现一个。
const compareRequestSchema = `{
	"type": "object",
	"properties": {
		"adapters": {"type": "array", "items": {"type": "string", "minLength": 1}, "uniqueItems": true},
		"features": {"type": "object", "additionalProperties": {"type": "number"}},
		"values":   {"type": "array", "items": {"type": "number"}},
		"text":     {"type": "string"},
		"row":      {"type": "object", "additionalProperties": {"type": "string"}}
	},
	"oneOf": [
		{"required": ["features"]},
		{"required": ["values"]},
		{"required": ["text"]},
		{"required": ["row"]}
	],
	"additionalProperties": false
}`

// Server 提供 HTTP API。
type Server struct {
	engine    *compare.Engine
	logger    *slog.Logger
	schema    *jsonschema.Schema
	maxUpload int64
	version   string
}

// Option 服务配置选项
type Option func(*Server)

// WithLogger 设置日志
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxUpload 设置批量上传的大小上限（字节）
func WithMaxUpload(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithVersion 设置 /health 返回的版本号
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

func New(engine *compare.Engine, opts ...Option) (*Server, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("compare.json", strings.NewReader(compareRequestSchema)); err != nil {
		return nil, err
	}
	schema, err := compiler.Compile("compare.json")
	if err != nil {
		return nil, err
	}
	s := &Server{
		engine:    engine,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		schema:    schema,
		maxUpload: 32 << 20,
		version:   "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RegisterRoutes 注册全部路由
func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/adapters", s.handleAdapters).Methods(http.MethodGet)
	r.HandleFunc("/compare", s.handleCompare).Methods(http.MethodPost)
	r.HandleFunc("/compare/batch", s.handleBatch).Methods(http.MethodPost)
}

// Handler 返回带中间件的完整 handler。
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.RegisterRoutes(r)
	return Chain(r,
		RequestIDMiddleware,
		LoggingMiddleware(s.logger),
		RecoveryMiddleware(s.logger),
	)
}

// ListenAndServe 监听 addr，ctx 取消后优雅退出。
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
