// Package store 提供 core.Store 的实现，用于缓存适配器的预测结果。
//
// 示例：
//
//	var s core.Store = store.NewMemoryStore()
//	r, err := store.NewRedisStore(ctx, store.RedisOptions{Addr: "127.0.0.1:6379"})
package store

import "github.com/rushteam/modelduel/core"

// ErrNotFound 是 core.ErrStoreNotFound 的别名，便于在 store 包内使用。
var ErrNotFound = core.ErrStoreNotFound
