package model

import "time"

// Category is a flat namespace grouping documents. Name is unique; adding an
// existing name resolves to the existing row. Documents reference categories
// by name without a foreign key.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:128;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"size:512" json:"description"`
	Icon        string    `gorm:"size:64" json:"icon"`
	CreatedAt   time.Time `json:"created_at"`
}
