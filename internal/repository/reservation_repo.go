package repository

import (
	"context"
	"errors"
	"time"

	"voicestudio/internal/model"

	"gorm.io/gorm"
)

var ErrReservationNotFound = errors.New("预扣单不存在")

type ReservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) Create(ctx context.Context, tx *gorm.DB, reservation *model.CreditReservation) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(reservation).Error
}

func (r *ReservationRepository) GetByNo(ctx context.Context, tx *gorm.DB, reservationNo string) (*model.CreditReservation, error) {
	if tx == nil {
		tx = r.db
	}
	var reservation model.CreditReservation
	err := tx.WithContext(ctx).Where("reservation_no = ?", reservationNo).First(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &reservation, nil
}

// Transition 条件流转状态，返回是否真的发生了流转
//
// 【关键点】WHERE status = from 保证同一笔预扣只会被一个调用方从 RESERVED 推走，
// 请求链路和补偿任务同时释放时，只有一方能拿到 RowsAffected = 1
func (r *ReservationRepository) Transition(ctx context.Context, tx *gorm.DB, reservationNo, from, to string) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.CreditReservation{}).
		Where("reservation_no = ? AND status = ?", reservationNo, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListStale 查询长时间停留在 RESERVED 的预扣单
func (r *ReservationRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]*model.CreditReservation, error) {
	var reservations []*model.CreditReservation
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.ReservationStatusReserved, before).
		Order("created_at ASC").
		Limit(limit).
		Find(&reservations).Error
	return reservations, err
}
