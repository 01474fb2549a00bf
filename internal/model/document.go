package model

import "time"

// Document is an indexed source file. Content is the full extracted text;
// it is never updated in place after creation.
type Document struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Category   string    `gorm:"size:128;not null;index" json:"category"`
	Filename   string    `gorm:"size:256;not null" json:"filename"`
	Content    string    `gorm:"type:longtext;not null" json:"-"`
	SourcePath string    `gorm:"size:512" json:"source_path"`
	FileSize   int64     `json:"file_size"`
	FileType   string    `gorm:"size:16" json:"file_type"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DocumentSummary is the metadata view returned by list endpoints.
type DocumentSummary struct {
	ID         uint      `json:"id"`
	Category   string    `json:"category"`
	Filename   string    `json:"filename"`
	FileSize   int64     `json:"file_size"`
	FileType   string    `json:"file_type"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}
