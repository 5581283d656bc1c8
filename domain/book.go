package domain

import "time"

// Book is the catalog view this core consumes. The catalog itself lives in
// another service; we only keep what ranking and indexing need.
type Book struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"column:title;not null" json:"title"`
	Author    string    `gorm:"column:author" json:"author"`
	IndexText string    `gorm:"column:index_text;type:text" json:"index_text"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}
