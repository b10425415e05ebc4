package adapter

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/rushteam/modelduel/core"
)

// CacheKeyPrefix 缓存 key 前缀
const CacheKeyPrefix = "modelduel:pred:"

// WithCache 用 core.Store 缓存预测结果，能力与被包装的适配器一致。
// ttl 单位为秒，0 表示不过期。缓存读写失败不影响预测，只会退化为直接调用模型。
func WithCache(p core.PointPredictor, store core.Store, ttl int) core.PointPredictor {
	if store == nil {
		return p
	}
	c := cached{PointPredictor: p, store: store, ttl: ttl}
	if cp, ok := p.(core.ConfidencePredictor); ok {
		return &cachedConfidence{cached: c, inner: cp}
	}
	return &cachedPoint{cached: c}
}

type cached struct {
	core.PointPredictor
	store core.Store
	ttl   int
}

// CacheKey 计算 adapter + 输入的缓存 key。
func CacheKey(adapter string, in core.Input) string {
	h := xxhash.New()
	_, _ = h.WriteString(string(in.Shape))
	_, _ = h.Write([]byte{0})
	switch in.Shape {
	case core.ShapeVector:
		var buf [8]byte
		for _, v := range in.Vector {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			_, _ = h.Write(buf[:])
		}
	case core.ShapeText:
		_, _ = h.WriteString(in.Text)
	case core.ShapeRow:
		keys := make([]string, 0, len(in.Row))
		for k := range in.Row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			_, _ = h.WriteString(k)
			_, _ = h.Write([]byte{0})
			_, _ = h.WriteString(in.Row[k])
			_, _ = h.Write([]byte{0})
		}
	}
	return CacheKeyPrefix + adapter + ":" + strconv.FormatUint(h.Sum64(), 16)
}

func (c *cached) lookup(ctx context.Context, in core.Input) (*core.Result, bool) {
	data, err := c.store.Get(ctx, CacheKey(c.Name(), in))
	if err != nil {
		return nil, false
	}
	var r core.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, false
	}
	return &r, true
}

func (c *cached) save(ctx context.Context, in core.Input, r *core.Result) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	_ = c.store.Set(ctx, CacheKey(c.Name(), in), data, c.ttl)
}

type cachedPoint struct {
	cached
}

func (c *cachedPoint) Predict(ctx context.Context, in core.Input) (core.Label, error) {
	if r, ok := c.lookup(ctx, in); ok {
		return r.Label, nil
	}
	l, err := c.PointPredictor.Predict(ctx, in)
	if err != nil {
		return core.Label{}, err
	}
	c.save(ctx, in, core.NewResult(l))
	return l, nil
}

type cachedConfidence struct {
	cached
	inner core.ConfidencePredictor
}

func (c *cachedConfidence) Predict(ctx context.Context, in core.Input) (core.Label, error) {
	l, _, err := c.PredictWithConfidence(ctx, in)
	return l, err
}

func (c *cachedConfidence) PredictWithConfidence(ctx context.Context, in core.Input) (core.Label, float64, error) {
	if r, ok := c.lookup(ctx, in); ok && r.Confidence != nil {
		return r.Label, *r.Confidence, nil
	}
	l, conf, err := c.inner.PredictWithConfidence(ctx, in)
	if err != nil {
		return core.Label{}, 0, err
	}
	c.save(ctx, in, core.NewConfidentResult(l, conf))
	return l, conf, nil
}

var (
	_ core.PointPredictor      = (*cachedPoint)(nil)
	_ core.ConfidencePredictor = (*cachedConfidence)(nil)
)
