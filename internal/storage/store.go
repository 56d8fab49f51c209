package storage

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotFound 键不存在
var ErrNotFound = errors.New("key not found")

// KeyValueStore 持久化协作者：只需要整值读取/整值替换语义
type KeyValueStore interface {
	// Get 读取整个值，不存在时返回 ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Put 整值替换
	Put(ctx context.Context, key string, value []byte) error

	// Delete 删除键，不存在时不报错
	Delete(ctx context.Context, key string) error

	// Ping 检查后端可用性
	Ping(ctx context.Context) error

	// Close 关闭连接
	Close() error
}
