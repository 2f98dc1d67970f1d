package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SpeakerType identifies who produced a transcript chunk.
type SpeakerType string

const (
	SpeakerTypeAI   SpeakerType = "AI"
	SpeakerTypeUser SpeakerType = "User"
)

// StringArray is a JSON-encoded string slice column (used for key points).
type StringArray []string

// Value implements the driver.Valuer interface for StringArray
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface for StringArray
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into StringArray", value)
	}

	return json.Unmarshal(bytes, a)
}

// CallLog is the durable record of one answered call.
// At most one row exists per provider call SID: either the upstream intent
// classifier creates it mid-call, or the completion pipeline creates it when
// the call reaches a final status.
type CallLog struct {
	ID              string    `json:"id" db:"id" gorm:"column:id;primaryKey"`
	CallSid         string    `json:"call_sid" db:"call_sid" gorm:"column:call_sid;unique"`
	UserID          string    `json:"user_id" db:"user_id" gorm:"column:user_id;index"`
	ServiceBookedID *string   `json:"service_booked_id,omitempty" db:"service_booked_id" gorm:"column:service_booked_id"`
	CallerNumber    string    `json:"caller_number" db:"caller_number" gorm:"column:caller_number"`
	CallerName      string    `json:"caller_name" db:"caller_name" gorm:"column:caller_name"`
	Intent          string    `json:"intent,omitempty" db:"intent" gorm:"column:intent"`
	StartAt         time.Time `json:"start_at" db:"start_at" gorm:"column:start_at"`
	CreatedAt       time.Time `json:"created_at" db:"created_at" gorm:"column:created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at" gorm:"column:updated_at"`
}

func (CallLog) TableName() string {
	return "call_logs"
}

// Transcript holds the AI-generated summary of one call.
type Transcript struct {
	ID        string      `json:"id" db:"id" gorm:"column:id;primaryKey"`
	CallSid   string      `json:"call_sid" db:"call_sid" gorm:"column:call_sid;unique"`
	Summary   string      `json:"summary" db:"summary" gorm:"column:summary"`
	KeyPoints StringArray `json:"key_points" db:"key_points" gorm:"column:key_points;type:jsonb"`
	CreatedAt time.Time   `json:"created_at" db:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at" gorm:"column:updated_at"`
}

func (Transcript) TableName() string {
	return "transcripts"
}

// TranscriptChunk is one conversation turn inside a transcript. StartAt is
// the turn's unix timestamp in seconds plus its index in the history, which
// keeps chunk ordering strict even when two turns share a wall-clock second.
type TranscriptChunk struct {
	ID           string      `json:"id" db:"id" gorm:"column:id;primaryKey"`
	TranscriptID string      `json:"transcript_id" db:"transcript_id" gorm:"column:transcript_id;index"`
	SpeakerType  SpeakerType `json:"speaker_type" db:"speaker_type" gorm:"column:speaker_type"`
	Text         string      `json:"text" db:"text" gorm:"column:text"`
	StartAt      int64       `json:"start_at" db:"start_at" gorm:"column:start_at"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at" gorm:"column:updated_at"`
}

func (TranscriptChunk) TableName() string {
	return "transcript_chunks"
}
