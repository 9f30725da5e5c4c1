package model

import "time"

// InviteCode 注册邀请码，used 只会从 false 变为 true 一次
type InviteCode struct {
	Code      string     `json:"code" gorm:"primaryKey;size:64"`
	Used      bool       `json:"used" gorm:"not null;index"`
	UsedBy    *uint      `json:"used_by" gorm:"index"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	User *User `json:"-" gorm:"foreignKey:UsedBy;constraint:OnDelete:SET NULL"`
}

// TableName 邀请码表名
func (InviteCode) TableName() string {
	return "auth_invite_codes"
}
