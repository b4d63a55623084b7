package idgen

import (
	"fmt"
	"sync"
	"time"
)

// ============================================================================
// 雪花算法 ID 生成器
// ============================================================================
//
// 业务单号要求：
//   1. 全局唯一 - 预扣单号、流水号都带唯一索引
//   2. 趋势递增 - 便于数据库索引
//   3. 多实例部署时不冲突 - 每个实例配置不同的 worker_id
//
// 【雪花算法结构】64位
//
//   0 - 41位时间戳 - 10位机器ID - 12位序列号
//
// ============================================================================

const (
	epoch          = int64(1704067200000) // 起始时间戳（2024-01-01 00:00:00 UTC）
	workerIDBits   = 10
	sequenceBits   = 12
	maxWorkerID    = -1 ^ (-1 << workerIDBits)
	maxSequence    = -1 ^ (-1 << sequenceBits)
	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits
)

// 单号前缀
const (
	PrefixReservation = "RSV"
	PrefixTransaction = "TXN"
	PrefixGrant       = "GNT"
)

// Snowflake 雪花算法ID生成器，在 main 中创建后注入
type Snowflake struct {
	mu        sync.Mutex
	timestamp int64
	workerID  int64
	sequence  int64
}

// New 创建ID生成器
func New(workerID int64) (*Snowflake, error) {
	if workerID < 0 || workerID > maxWorkerID {
		return nil, fmt.Errorf("workerID 必须在 0-%d 之间", maxWorkerID)
	}
	return &Snowflake{workerID: workerID}, nil
}

// Generate 生成ID
func (s *Snowflake) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	// 时钟回拨时沿用上次时间戳，靠序列号保证不重复
	if now < s.timestamp {
		now = s.timestamp
	}

	if now == s.timestamp {
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			// 序列号用完，等待下一毫秒
			for now <= s.timestamp {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}

	s.timestamp = now

	return ((now - epoch) << timestampShift) |
		(s.workerID << workerIDShift) |
		s.sequence
}

// NextNo 生成带前缀的业务单号
// 格式：前缀 + 年月日时分秒 + 雪花ID，例如 RSV20240115143052_7151234567890123
//
// 【关键点】保留完整雪花ID，截断会让同一秒内的单号在高并发下碰撞
func (s *Snowflake) NextNo(prefix string) string {
	id := s.Generate()
	return fmt.Sprintf("%s%s_%d", prefix, time.Now().Format("20060102150405"), id)
}

// ReservationNo 生成预扣单号
func (s *Snowflake) ReservationNo() string {
	return s.NextNo(PrefixReservation)
}

// TransactionNo 生成流水号
func (s *Snowflake) TransactionNo() string {
	return s.NextNo(PrefixTransaction)
}
