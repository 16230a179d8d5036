package model

import "time"

// 認証は外部IDプロバイダ。ここではFK先と通知先メールだけ持つ。
type User struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
