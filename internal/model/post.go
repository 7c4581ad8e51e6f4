package model

import "time"

// Post 对应 'posts' 表。Content 保存 markdown 原文。
type Post struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     string    `gorm:"type:varchar(200);not null" json:"title"`
	Slug      string    `gorm:"type:varchar(200);not null;uniqueIndex" json:"slug"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (Post) TableName() string {
	return "posts"
}

// PostDetail 是单篇文章的输出，附带渲染后的 HTML。
type PostDetail struct {
	Post
	HTML string `json:"html"`
}

// EsPost 代表存储在 Elasticsearch 中的文章文档。
type EsPost struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
