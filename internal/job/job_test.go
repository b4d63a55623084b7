package job

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"voicestudio/internal/infrastructure/mq"
	"voicestudio/internal/infrastructure/storage"
	"voicestudio/internal/ledger"
	"voicestudio/internal/ledger/ledgertest"
	"voicestudio/internal/model"
	"voicestudio/internal/repository"
	"voicestudio/pkg/idgen"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ============================================================
// OutboxSender
// ============================================================

type memOutbox struct {
	mu       sync.Mutex
	messages []*model.OutboxMessage
}

func (m *memOutbox) ListByStatus(_ context.Context, status string, limit int) ([]*model.OutboxMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.OutboxMessage
	for _, msg := range m.messages {
		if msg.Status == status && len(out) < limit {
			cp := *msg
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memOutbox) find(id int64) *model.OutboxMessage {
	for _, msg := range m.messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

func (m *memOutbox) MarkAsSent(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.find(id).Status = model.OutboxStatusSent
	return nil
}

func (m *memOutbox) MarkRetry(_ context.Context, id int64, retryCount, maxRetry int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := m.find(id)
	msg.RetryCount++
	if retryCount+1 >= maxRetry {
		msg.Status = model.OutboxStatusFailed
	}
	return nil
}

func TestOutboxSenderMarksSent(t *testing.T) {
	outbox := &memOutbox{messages: []*model.OutboxMessage{
		{ID: 1, Topic: "speech.generated", MessageKey: "RSV1", Payload: `{"speech_id":1}`, Status: model.OutboxStatusPending},
		{ID: 2, Topic: "credit.changed", MessageKey: "PAY2", Payload: `{"user_id":2}`, Status: model.OutboxStatusPending},
	}}
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndSucceed()
	producer.ExpectSendMessageAndSucceed()

	s := NewOutboxSender(outbox, mq.NewProducerWith(producer), 3, zap.NewNop())
	s.processPendingMessages(context.Background())

	assert.Equal(t, model.OutboxStatusSent, outbox.find(1).Status)
	assert.Equal(t, model.OutboxStatusSent, outbox.find(2).Status)
	require.NoError(t, producer.Close())
}

func TestOutboxSenderFailsAfterMaxRetry(t *testing.T) {
	outbox := &memOutbox{messages: []*model.OutboxMessage{
		{ID: 1, Topic: "speech.generated", MessageKey: "RSV1", Payload: "{}", Status: model.OutboxStatusPending},
	}}
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	s := NewOutboxSender(outbox, mq.NewProducerWith(producer), 2, zap.NewNop())

	s.processPendingMessages(context.Background())
	assert.Equal(t, model.OutboxStatusPending, outbox.find(1).Status)
	assert.Equal(t, 1, outbox.find(1).RetryCount)

	s.processPendingMessages(context.Background())
	assert.Equal(t, model.OutboxStatusFailed, outbox.find(1).Status)

	// 已失败的消息不再投递
	s.processPendingMessages(context.Background())
	require.NoError(t, producer.Close())
}

func TestOutboxSenderStopsOnCancel(t *testing.T) {
	s := NewOutboxSender(&memOutbox{}, mq.NewProducerWith(mocks.NewSyncProducer(t, nil)), 3, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("任务没有退出")
	}
}

// ============================================================
// ReservationReconcileJob
// ============================================================

type staleList struct {
	reservations []*model.CreditReservation
	before       time.Time
}

func (s *staleList) ListStale(_ context.Context, before time.Time, limit int) ([]*model.CreditReservation, error) {
	s.before = before
	return s.reservations, nil
}

func TestReconcileReleasesStaleReservationsOnce(t *testing.T) {
	store := ledgertest.NewMemoryStore()
	store.SetBalance(1, 20)
	ids, err := idgen.New(1)
	require.NoError(t, err)
	l := ledger.New(store, ids, nil, zap.NewNop())
	ctx := context.Background()

	stuck, err := l.Reserve(ctx, 1, 5, "生成语音")
	require.NoError(t, err)
	committed, err := l.Reserve(ctx, 1, 5, "生成语音")
	require.NoError(t, err)
	require.NoError(t, committed.Commit(ctx, nil))

	lister := &staleList{reservations: []*model.CreditReservation{
		{ReservationNo: stuck.No(), UserID: 1, Amount: 5},
		{ReservationNo: committed.No(), UserID: 1, Amount: 5},
	}}
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	j := NewReservationReconcileJob(lister, l, 10*time.Minute, zap.NewNop())
	j.now = func() time.Time { return now }

	assert.Equal(t, 1, j.releaseStale(ctx))
	assert.Equal(t, now.Add(-10*time.Minute), lister.before)
	assert.Equal(t, model.ReservationStatusReleased, store.ReservationStatus(stuck.No()))
	assert.Equal(t, model.ReservationStatusCommitted, store.ReservationStatus(committed.No()))

	balance, err := l.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(15), balance)

	// 再跑一次不会重复退还，请求链路的 Release 也是空操作
	assert.Equal(t, 0, j.releaseStale(ctx))
	require.NoError(t, stuck.Release(ctx))
	balance, err = l.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(15), balance)
	assert.Len(t, store.Entries(model.CreditTypeRefund), 1)
}

type failingReleaser struct{ calls int }

func (f *failingReleaser) ReleaseByNo(context.Context, string) (bool, error) {
	f.calls++
	return false, errors.New("db down")
}

func TestReconcileContinuesAfterError(t *testing.T) {
	lister := &staleList{reservations: []*model.CreditReservation{
		{ReservationNo: "RSV1"}, {ReservationNo: "RSV2"},
	}}
	releaser := &failingReleaser{}
	j := NewReservationReconcileJob(lister, releaser, time.Minute, zap.NewNop())

	assert.Equal(t, 0, j.releaseStale(context.Background()))
	assert.Equal(t, 2, releaser.calls)
}

// ============================================================
// CloneProcessJob
// ============================================================

type memCloneQueue struct {
	clones map[int64]*model.VoiceClone
}

func (m *memCloneQueue) ListByStatus(_ context.Context, status string, limit int) ([]*model.VoiceClone, error) {
	var out []*model.VoiceClone
	for _, c := range m.clones {
		if c.Status == status {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memCloneQueue) UpdateStatus(_ context.Context, id int64, from, to string, isActive *bool) error {
	c, ok := m.clones[id]
	if !ok || c.Status != from || !model.CanCloneTransitionTo(from, to) {
		return repository.ErrCloneStatusInvalid
	}
	c.Status = to
	if isActive != nil {
		c.IsActive = *isActive
	}
	return nil
}

func TestCloneProcessJob(t *testing.T) {
	files, err := storage.NewLocalStore(t.TempDir(), "/media/")
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, files.Put(ctx, "voice_samples/a.wav", bytes.NewReader([]byte("RIFF")), "audio/wav"))

	queue := &memCloneQueue{clones: map[int64]*model.VoiceClone{
		1: {ID: 1, UserID: 1, AudioSample: "voice_samples/a.wav", Status: model.CloneStatusPending, IsActive: true},
		2: {ID: 2, UserID: 1, AudioSample: "voice_samples/missing.wav", Status: model.CloneStatusPending, IsActive: true},
		3: {ID: 3, UserID: 2, AudioSample: "voice_samples/a.wav", Status: model.CloneStatusReady, IsActive: true},
	}}

	j := NewCloneProcessJob(queue, files, zap.NewNop())
	j.processPending(ctx)

	assert.Equal(t, model.CloneStatusReady, queue.clones[1].Status)
	assert.Equal(t, model.CloneStatusFailed, queue.clones[2].Status)
	assert.Equal(t, model.CloneStatusReady, queue.clones[3].Status)
}
