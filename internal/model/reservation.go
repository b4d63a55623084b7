package model

import (
	"time"
)

const (
	ReservationStatusReserved  = "RESERVED"
	ReservationStatusCommitted = "COMMITTED"
	ReservationStatusReleased  = "RELEASED"
)

// CreditReservation 积分预扣单
//
// RESERVED 只能流转到 COMMITTED（生成记录已落库）或 RELEASED（已退还），两者都是终态。
// 状态流转用条件更新完成，保证同一笔预扣最多退还一次。
type CreditReservation struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ReservationNo string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"reservation_no"`
	UserID        int64     `gorm:"index;not null" json:"user_id"`
	Amount        int64     `gorm:"not null" json:"amount"`
	Status        string    `gorm:"type:varchar(20);index;not null" json:"status"`
	Remark        string    `gorm:"type:varchar(256)" json:"remark"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CreditReservation) TableName() string {
	return "credit_reservation"
}
