package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ============================================================================
// 分布式锁
// ============================================================================
//
// 购买场景：同一用户网络抖动重复提交两笔购买请求。
// 余额不会被扣负（条件更新兜底），但会产生两张小票、扣两次钱。
// 按用户加一把 Redis 锁，让同一用户的购买请求串行化；
// 不同用户各自一把锁，互不影响并发度
//
// 加锁：SET key value NX EX timeout
//   - NX 保证互斥，EX 防止持有者崩溃后死锁
//   - value 记录持有者，释放时校验，避免误删别人的锁
// 释放：Lua 脚本保证"校验 + 删除"原子执行

var (
	ErrLockFailed = errors.New("获取分布式锁失败")
)

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string
	expiration time.Duration
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
			// 继续重试
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁
// Lua 脚本先校验 value 再删除：锁过期后被别人拿走时，
// 迟到的 Unlock 不会删掉别人的锁
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// NewPurchaseLock 创建购买锁（按用户维度）
// 锁的 value 用随机令牌，持有者校验依赖它
func NewPurchaseLock(client *redis.Client, userID int64) *DistributedLock {
	key := fmt.Sprintf("shop:lock:user:%d", userID)
	return NewDistributedLock(client, key, uuid.NewString(), 30*time.Second)
}
