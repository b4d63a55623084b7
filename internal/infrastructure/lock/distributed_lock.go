package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// Redis 分布式锁
// ============================================================================
//
// 用于充值审核：两个管理员同时审核同一笔充值时，只有一个能进入审核流程。
// 即使锁失效，充值单的条件更新（WHERE status = 'pending'）仍能挡住重复入账，
// 锁的作用是让第二个请求尽早失败而不是去争抢数据库事务。
//
// 加锁：SET key value NX EX timeout
// 解锁：Lua 脚本校验 value 后再 DEL，避免删掉别人的锁
//
// ============================================================================

var ErrLockFailed = errors.New("获取分布式锁失败")

var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string // 持有者标识
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 非阻塞加锁
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Lock 带重试的加锁
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		ok, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock 只释放自己持有的锁
func (l *DistributedLock) Unlock(ctx context.Context) error {
	return unlockScript.Run(ctx, l.client, []string{l.key}, l.value).Err()
}

// NewPaymentReviewLock 充值审核锁，按充值单维度
func NewPaymentReviewLock(client *redis.Client, paymentID int64, owner string) *DistributedLock {
	key := fmt.Sprintf("payment:review:lock:%d", paymentID)
	return NewDistributedLock(client, key, owner, 30*time.Second)
}
