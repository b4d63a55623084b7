package repository

import (
	"context"
	"errors"

	"voicestudio/internal/model"

	"gorm.io/gorm"
)

var (
	ErrAccountNotFound  = errors.New("账户不存在")
	ErrBalanceNotEnough = errors.New("积分不足")
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db
	}
	return tx
}

func (r *AccountRepository) Create(ctx context.Context, tx *gorm.DB, account *model.Account) error {
	return r.conn(tx).WithContext(ctx).Create(account).Error
}

func (r *AccountRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.Account, error) {
	var account model.Account
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Account{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// Deduct 条件扣减余额
//
// 【关键点】扣减和余额校验在同一条 UPDATE 中完成：
//
//	UPDATE account SET balance = balance - ? WHERE id = ? AND balance >= ?
//
// 数据库行锁保证并发的两次扣减不会同时基于旧余额成功，先查后改会有竞态
func (r *AccountRepository) Deduct(ctx context.Context, tx *gorm.DB, id int64, amount int64) error {
	result := r.conn(tx).WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ? AND balance >= ?", id, amount).
		Update("balance", gorm.Expr("balance - ?", amount))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		// 区分账户不存在和余额不足
		if _, err := r.GetByID(ctx, tx, id); err != nil {
			return err
		}
		return ErrBalanceNotEnough
	}

	return nil
}

// Increase 增加余额，只在 ledger 的事务里调用
func (r *AccountRepository) Increase(ctx context.Context, tx *gorm.DB, id int64, amount int64) error {
	result := r.conn(tx).WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", amount))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// UpdateFields 更新资料类字段，调用方负责过滤掉 balance
func (r *AccountRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	delete(fields, "balance")
	if len(fields) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&model.Account{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

type AccountFilter struct {
	Search   string
	IsActive *bool
	IsAdmin  *bool
}

func (r *AccountRepository) List(ctx context.Context, filter AccountFilter, page, pageSize int) ([]*model.Account, int64, error) {
	var accounts []*model.Account
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Account{})
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("email LIKE ? OR name LIKE ?", like, like)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.IsAdmin != nil {
		query = query.Where("is_admin = ?", *filter.IsAdmin)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&accounts).Error

	return accounts, total, err
}

type AccountStats struct {
	Total  int64 `json:"total_users"`
	Active int64 `json:"active_users"`
	Admins int64 `json:"admin_users"`
}

func (r *AccountRepository) Stats(ctx context.Context) (*AccountStats, error) {
	stats := &AccountStats{}
	db := r.db.WithContext(ctx).Model(&model.Account{})
	if err := db.Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&model.Account{}).Where("is_active = ?", true).Count(&stats.Active).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&model.Account{}).Where("is_admin = ?", true).Count(&stats.Admins).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
