package model

import "time"

// ContactMessage 对应 'contact_messages' 表，记录联系表单的提交。
type ContactMessage struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Email     string    `gorm:"type:varchar(120);not null" json:"email"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
}

func (ContactMessage) TableName() string {
	return "contact_messages"
}
