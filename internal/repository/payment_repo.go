package repository

import (
	"context"
	"errors"

	"voicestudio/internal/model"

	"gorm.io/gorm"
)

var (
	ErrPaymentNotFound      = errors.New("充值记录不存在")
	ErrPaymentStatusInvalid = errors.New("充值记录已处理")
	ErrDuplicateReference   = errors.New("交易参考号已提交")
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *model.PaymentTransaction) error {
	err := r.db.WithContext(ctx).Create(payment).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateReference
	}
	return err
}

func (r *PaymentRepository) ExistsByReference(ctx context.Context, transactionID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.PaymentTransaction{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).Error
	return count > 0, err
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*model.PaymentTransaction, error) {
	var payment model.PaymentTransaction
	err := r.db.WithContext(ctx).Preload("Account").Where("id = ?", id).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) ListByUserID(ctx context.Context, userID int64) ([]*model.PaymentTransaction, error) {
	var payments []*model.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

func (r *PaymentRepository) List(ctx context.Context, status string, page, pageSize int) ([]*model.PaymentTransaction, int64, error) {
	var payments []*model.PaymentTransaction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.PaymentTransaction{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.
		Preload("Account").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&payments).Error
	return payments, total, err
}

// UpdateStatus 审核流转 pending -> approved | rejected
//
// 【关键点】条件更新，已处理的记录不会被二次审核
func (r *PaymentRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, toStatus string) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.PaymentTransaction{}).
		Where("id = ? AND status = ?", id, model.PaymentStatusPending).
		Update("status", toStatus)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPaymentStatusInvalid
	}
	return nil
}
