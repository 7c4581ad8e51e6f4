package model

import "time"

// Photo 对应 'photos' 表。文件本身保存在对象存储中，ObjectKey 为其对象名。
type Photo struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Filename    string    `gorm:"type:varchar(200);not null" json:"filename"`
	ObjectKey   string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"objectKey"`
	Description string    `gorm:"type:varchar(500)" json:"description"`
	UploadedAt  time.Time `gorm:"autoCreateTime;index" json:"uploadedAt"`
}

func (Photo) TableName() string {
	return "photos"
}

// PhotoView 是相册列表的输出，附带临时访问链接。
type PhotoView struct {
	Photo
	URL string `json:"url"`
}
