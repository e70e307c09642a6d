package models

import (
	"time"
)

// ErrorLog records a stage failure for the dashboard; writes are best-effort
type ErrorLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Level     string    `gorm:"size:20;not null;index" json:"level"` // ERROR, WARN, INFO
	Source    string    `gorm:"size:100;not null;index" json:"source"`
	JobID     *string   `gorm:"size:36;index" json:"job_id"`
	Title     string    `gorm:"size:500;not null" json:"title"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Context   string    `gorm:"type:jsonb" json:"context"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CostRecord tracks per-job vendor spend; one row per billable stage
type CostRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	JobID     string    `gorm:"size:36;not null;index" json:"job_id"`
	Stage     string    `gorm:"size:50;not null" json:"stage"`  // narration, render
	Vendor    string    `gorm:"size:50;not null" json:"vendor"` // edge, elevenlabs, shotstack
	Amount    float64   `gorm:"not null" json:"amount"`
	Currency  string    `gorm:"size:10;default:'USD'" json:"currency"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
