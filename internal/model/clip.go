package model

import "time"

// Clip is one uploaded video asset. Records are immutable after creation;
// deletion cascades are handled by the store.
type Clip struct {
	ID         string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID     string    `gorm:"type:varchar(64);index" json:"user_id"`
	FileName   string    `gorm:"type:varchar(255)" json:"file_name"`
	StorageRef string    `gorm:"type:varchar(512)" json:"storage_ref"`
	SizeBytes  int64     `json:"size_bytes"`
	Duration   float64   `json:"duration"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	FrameRate  float64   `json:"frame_rate"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Clip) TableName() string {
	return "clips"
}
