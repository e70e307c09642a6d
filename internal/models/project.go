package models

import (
	"gorm.io/gorm"
	"time"
)

type Project struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Name            string         `gorm:"not null;size:255" json:"name"`
	Enabled         bool           `gorm:"default:true" json:"enabled"`
	AutoPublish     bool           `gorm:"default:false" json:"auto_publish"`
	DefaultCategory string         `gorm:"size:100;default:'general'" json:"default_category"`
	DefaultPrivacy  string         `gorm:"size:50;default:'private'" json:"default_privacy"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at"`

	// YouTube channel connection, established out of band
	YouTubeChannelID    string `gorm:"size:100" json:"youtube_channel_id"`
	YouTubeRefreshToken string `gorm:"size:500" json:"-"`
}

// PublishReady reports whether automatic publishing applies to this project
func (p *Project) PublishReady() bool {
	return p.AutoPublish && p.YouTubeChannelID != ""
}
