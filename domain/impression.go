package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Action types accepted by the recorder.
const (
	ActionClick  = "click"
	ActionSave   = "save"
	ActionUnsave = "unsave"
	ActionRate   = "rate"
)

// Impression is one recommendation shown to an identity. Created once at
// render time; only the Reward field mutates afterwards, and only through
// the attribution engine.
type Impression struct {
	ID        string            `gorm:"primaryKey;column:id" json:"id"`
	UserID    string            `gorm:"column:user_id;index:idx_impressions_identity" json:"user_id,omitempty"`
	SessionID string            `gorm:"column:session_id;index:idx_impressions_identity" json:"session_id,omitempty"`
	BookID    uint64            `gorm:"column:book_id;not null;index" json:"book_id"`
	ArmID     string            `gorm:"column:arm_id;not null" json:"arm_id"`
	Rank      int               `gorm:"column:rank;not null" json:"rank"`
	Score     float64           `gorm:"column:score" json:"score"`
	Context   datatypes.JSONMap `gorm:"column:context;type:jsonb" json:"context"`
	Reward    *float64          `gorm:"column:reward" json:"reward,omitempty"`
	CreatedAt time.Time         `gorm:"column:created_at;index" json:"created_at"`
}

func (Impression) TableName() string {
	return "impressions"
}

func (imp Impression) Identity() Identity {
	return Identity{UserID: imp.UserID, SessionID: imp.SessionID}
}

// Action is a write-once record of user behavior. AttributedImpressionID is
// the idempotency marker: set exactly once when the attribution engine links
// the action to an impression.
type Action struct {
	ID                     string     `gorm:"primaryKey;column:id" json:"id"`
	UserID                 string     `gorm:"column:user_id;index:idx_actions_identity" json:"user_id,omitempty"`
	SessionID              string     `gorm:"column:session_id;index:idx_actions_identity" json:"session_id,omitempty"`
	BookID                 uint64     `gorm:"column:book_id;not null;index" json:"book_id"`
	ActionType             string     `gorm:"column:action_type;not null" json:"action_type"`
	ActionValue            float64    `gorm:"column:action_value" json:"action_value,omitempty"`
	AttributedImpressionID *string    `gorm:"column:attributed_impression_id" json:"attributed_impression_id,omitempty"`
	AttributedAt           *time.Time `gorm:"column:attributed_at" json:"attributed_at,omitempty"`
	CreatedAt              time.Time  `gorm:"column:created_at;index" json:"created_at"`
}

func (Action) TableName() string {
	return "actions"
}

func (a Action) Identity() Identity {
	return Identity{UserID: a.UserID, SessionID: a.SessionID}
}
