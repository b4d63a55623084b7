package repository

import (
	"context"
	"testing"
	"time"

	"voicestudio/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestOutboxMarkRetry(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOutboxRepository(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE `outbox_message` SET `retry_count`=retry_count \\+ 1,`updated_at`=\\? WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkRetry(ctx, 7, 0, 3))

	// 最后一次重试同时标记为失败
	mock.ExpectExec("UPDATE `outbox_message` SET `retry_count`=retry_count \\+ 1,`status`=\\?").
		WithArgs(model.OutboxStatusFailed, sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkRetry(ctx, 7, 2, 3))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentUpdateStatusOnlyFromPending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	mock.ExpectExec("UPDATE `payment_transaction` SET `status`=\\?,`updated_at`=\\? WHERE id = \\? AND status = \\?").
		WithArgs(model.PaymentStatusApproved, sqlmock.AnyArg(), int64(3), model.PaymentStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), nil, 3, model.PaymentStatusApproved)
	assert.ErrorIs(t, err, ErrPaymentStatusInvalid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationTransitionReportsLoser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReservationRepository(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE `credit_reservation` SET `status`=\\?").
		WithArgs(model.ReservationStatusReleased, sqlmock.AnyArg(), "RSV1", model.ReservationStatusReserved).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `credit_reservation` SET `status`=\\?").
		WithArgs(model.ReservationStatusReleased, sqlmock.AnyArg(), "RSV1", model.ReservationStatusReserved).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.Transition(ctx, nil, "RSV1", model.ReservationStatusReserved, model.ReservationStatusReleased)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Transition(ctx, nil, "RSV1", model.ReservationStatusReserved, model.ReservationStatusReleased)
	require.NoError(t, err)
	assert.False(t, changed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationListStale(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReservationRepository(db)
	before := time.Date(2026, 10, 17, 11, 50, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT \\* FROM `credit_reservation` WHERE status = \\? AND created_at < \\? ORDER BY created_at ASC").
		WillReturnRows(sqlmock.NewRows([]string{"id", "reservation_no", "user_id", "amount", "status"}).
			AddRow(1, "RSV1", 9, 5, model.ReservationStatusReserved))

	list, err := repo.ListStale(context.Background(), before, 50)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "RSV1", list[0].ReservationNo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloneUpdateStatusRejectsInvalidTransition(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVoiceCloneRepository(db)

	// 非法流转不访问数据库
	err := repo.UpdateStatus(context.Background(), 1, model.CloneStatusReady, model.CloneStatusProcessing, nil)
	assert.ErrorIs(t, err, ErrCloneStatusInvalid)

	mock.ExpectExec("UPDATE `voice_clone` SET `is_active`=\\?,`status`=\\?").
		WithArgs(false, model.CloneStatusFailed, sqlmock.AnyArg(), int64(1), model.CloneStatusReady).
		WillReturnResult(sqlmock.NewResult(0, 0))
	inactive := false
	err = repo.UpdateStatus(context.Background(), 1, model.CloneStatusReady, model.CloneStatusFailed, &inactive)
	assert.ErrorIs(t, err, ErrCloneStatusInvalid)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpeechGetByOwnerNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSpeechRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `generated_speech` WHERE id = \\? AND user_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByOwner(context.Background(), 5, 1)
	assert.ErrorIs(t, err, ErrSpeechNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
