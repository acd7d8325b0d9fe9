package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// StringList is stored as a JSON column in MySQL.
type StringList []string

// Value implements driver.Valuer: Go slice -> JSON string.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner: JSON string -> Go slice.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("failed to unmarshal JSON value:", value))
	}
	return json.Unmarshal(bytes, l)
}

// Job is one grading request covering a fixed set of clips and a mood.
// It is the unit of work the orchestrator dequeues and mutates; clip_ids
// is fixed at creation and never changes during processing.
type Job struct {
	ID           string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID       string     `gorm:"type:varchar(64);index" json:"user_id"`
	Mood         Mood       `gorm:"type:varchar(32)" json:"mood"`
	ClipIDs      StringList `gorm:"type:json" json:"clip_ids"`
	Status       JobStatus  `gorm:"type:varchar(16)" json:"status"`
	OutputPaths  StringList `gorm:"type:json" json:"output_paths"`
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}
