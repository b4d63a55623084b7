package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrOTPNotFound = errors.New("验证码不存在或已过期")

// PendingSignup 待验证的注册信息，密码只保存 bcrypt 哈希
type PendingSignup struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"password_hash"`
	Code         string `json:"code"`
}

// OTPStore 注册验证码，每个邮箱只保留最新一条，过期由 Redis TTL 处理
type OTPStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewOTPStore(client *redis.Client, ttl time.Duration) *OTPStore {
	return &OTPStore{client: client, ttl: ttl}
}

func otpKey(email string) string {
	return fmt.Sprintf("signup:otp:%s", email)
}

// Save 覆盖该邮箱之前的验证码
func (s *OTPStore) Save(ctx context.Context, p *PendingSignup) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, otpKey(p.Email), data, s.ttl).Err()
}

func (s *OTPStore) Get(ctx context.Context, email string) (*PendingSignup, error) {
	data, err := s.client.Get(ctx, otpKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrOTPNotFound
		}
		return nil, err
	}
	var p PendingSignup
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Consume 删除验证码，返回是否由本次调用删除
//
// 【关键点】DEL 的返回值保证同一验证码并发提交时只有一个请求能创建账户
func (s *OTPStore) Consume(ctx context.Context, email string) (bool, error) {
	n, err := s.client.Del(ctx, otpKey(email)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
