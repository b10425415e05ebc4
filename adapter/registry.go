package adapter

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rushteam/modelduel/core"
)

// Status 是适配器在注册表中的加载状态。
type Status int32

const (
	StatusNotLoaded   Status = iota // 尚未加载（懒加载时首次使用前）
	StatusReady                     // 加载成功，可用
	StatusUnavailable               // 加载失败，进程生命周期内不再重试
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "not_loaded"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Loader 构造一个适配器。由配置层（config/builders）提供，注册表只负责调用一次。
type Loader func(ctx context.Context) (core.PointPredictor, error)

// Info 是注册表中一个适配器的只读快照。
type Info struct {
	Name       string     `json:"name"`
	Status     Status     `json:"status"`
	Capability string     `json:"capability,omitempty"`
	Shape      core.Shape `json:"shape,omitempty"`
	Scale      core.Scale `json:"scale,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type entry struct {
	name   string
	load   Loader
	once   sync.Once
	status atomic.Int32

	// 以下字段只在 once 内写入，之后只读
	predictor  core.PointPredictor
	capability string
	err        error
}

// get 加载结果对整个进程有效，所以加载不受首个调用方的取消或超时影响。
func (e *entry) get(ctx context.Context, logger *slog.Logger) (core.PointPredictor, error) {
	e.once.Do(func() {
		p, err := e.load(context.WithoutCancel(ctx))
		if err == nil && p == nil {
			err = core.ErrModelUnavailable.Wrapf("loader returned no adapter")
		}
		if err != nil {
			e.err = err
			e.status.Store(int32(StatusUnavailable))
			logger.Warn("adapter unavailable", "adapter", e.name, "error", err)
			return
		}
		e.predictor = p
		e.capability = Capability(p)
		e.status.Store(int32(StatusReady))
		logger.Info("adapter loaded", "adapter", e.name, "capability", e.capability, "shape", p.Shape())
	})
	if e.err != nil {
		if core.IsUnavailable(e.err) {
			return nil, e.err
		}
		return nil, core.ErrModelUnavailable.Wrap(e.err)
	}
	return e.predictor, nil
}

// Registry 按名称保存适配器，保持注册顺序（A 在 B 之前）。
//
// 每个适配器最多构造一次：并发的首次访问会等待同一次加载完成，
// 加载失败的适配器被标记为不可用，之后不再重试，也不会出现在 Available 中。
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*entry
	logger  *slog.Logger
}

// RegistryOption 注册表配置选项
type RegistryOption func(*Registry)

// WithLogger 设置日志
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry 创建空的适配器注册表。
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register 注册一个懒加载的适配器；名称重复时返回错误。
func (r *Registry) Register(name string, load Loader) error {
	if name == "" || load == nil {
		return core.ErrInvalidConfig.Wrapf("adapter name and loader are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; ok {
		return core.ErrInvalidConfig.Wrapf("adapter %q already registered", name)
	}
	r.entries[name] = &entry{name: name, load: load}
	r.order = append(r.order, name)
	return nil
}

// Add 注册一个已构造好的适配器。
func (r *Registry) Add(p core.PointPredictor) error {
	if p == nil {
		return core.ErrInvalidConfig.Wrapf("adapter is nil")
	}
	return r.Register(p.Name(), func(context.Context) (core.PointPredictor, error) { return p, nil })
}

// Names 返回全部已注册的名称（注册顺序）。
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Has 判断名称是否已注册。
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

func (r *Registry) entry(name string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Get 返回适配器，首次访问时触发加载。
// 未注册返回 ErrUnknownAdapter，加载失败返回 ErrModelUnavailable。
func (r *Registry) Get(ctx context.Context, name string) (core.PointPredictor, error) {
	e, ok := r.entry(name)
	if !ok {
		return nil, core.ErrUnknownAdapter.Wrapf("%q", name)
	}
	return e.get(ctx, r.logger)
}

// LoadAll 立即加载全部适配器（进程启动时调用）。返回可用的名称。
func (r *Registry) LoadAll(ctx context.Context) []string {
	return r.Available(ctx)
}

// Available 返回加载成功的适配器名称（注册顺序）；尚未加载的会先加载。
func (r *Registry) Available(ctx context.Context) []string {
	var out []string
	for _, name := range r.Names() {
		if _, err := r.Get(ctx, name); err == nil {
			out = append(out, name)
		}
	}
	return out
}

// Status 返回适配器的当前状态，不触发加载。
func (r *Registry) Status(name string) (Status, bool) {
	e, ok := r.entry(name)
	if !ok {
		return StatusNotLoaded, false
	}
	return Status(e.status.Load()), true
}

// List 返回全部适配器的快照，不触发加载。
func (r *Registry) List() []Info {
	names := r.Names()
	out := make([]Info, 0, len(names))
	for _, name := range names {
		e, _ := r.entry(name)
		info := Info{Name: name, Status: Status(e.status.Load())}
		switch info.Status {
		case StatusReady:
			info.Capability = e.capability
			info.Shape = e.predictor.Shape()
			info.Scale = e.predictor.Scale()
		case StatusUnavailable:
			info.Error = e.err.Error()
		}
		out = append(out, info)
	}
	return out
}
