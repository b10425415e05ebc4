package config

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/modelduel/core"
)

// 使用配置驱动时，需在 main 或入口处 import _ "github.com/rushteam/modelduel/config/builders"
// 以触发内置适配器类型的 init 注册。

// AdapterBuilder 根据配置构建一个适配器。
// 各类型在 init 中调用 Register(typeName, builder) 即可被配置驱动。
// 构建失败的适配器由注册表标记为不可用。
type AdapterBuilder func(ctx context.Context, cfg AdapterConfig) (core.PointPredictor, error)

var (
	defaultBuilders   = make(map[string]AdapterBuilder)
	defaultBuildersMu sync.RWMutex
)

// Register 注册一种适配器的构建逻辑。
// 建议在 init 中调用，例如：func init() { config.Register("softmax", buildLocal) }
func Register(typeName string, builder AdapterBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// Builder 返回已注册的构建逻辑。
func Builder(typeName string) (AdapterBuilder, bool) {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	b, ok := defaultBuilders[typeName]
	return b, ok
}

// SupportedTypes 返回当前已注册的适配器类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	types := make([]string, 0, len(defaultBuilders))
	for t := range defaultBuilders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ValidateAdapters 校验所有适配器类型均已注册；若有未支持类型则返回包含已支持列表的错误。
func ValidateAdapters(adapters []AdapterConfig) error {
	for _, a := range adapters {
		if _, ok := Builder(a.Type); !ok {
			return fmt.Errorf("adapter %q: unsupported type %q (supported: %v)", a.Name, a.Type, SupportedTypes())
		}
	}
	return nil
}
