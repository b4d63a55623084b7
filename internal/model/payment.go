package model

import (
	"time"
)

const (
	PaymentStatusPending  = "pending"
	PaymentStatusApproved = "approved"
	PaymentStatusRejected = "rejected"
)

// PaymentTransaction 充值申请
// 用户提交转账凭证后由管理员审核，pending 只能流转到 approved 或 rejected
type PaymentTransaction struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64     `gorm:"index;not null" json:"-"`
	AmountCents   int64     `gorm:"not null" json:"-"`
	Credits       int64     `gorm:"not null" json:"credits"`
	TransactionID string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"transaction_id"` // UPI 参考号 / UTR
	Screenshot    string    `gorm:"type:varchar(255)" json:"screenshot"`
	Status        string    `gorm:"type:varchar(20);index;not null;default:pending" json:"status"`
	PaymentMethod string    `gorm:"type:varchar(50);not null;default:UPI" json:"payment_method"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Account *Account `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (PaymentTransaction) TableName() string {
	return "payment_transaction"
}
