package activities

import (
	"encoding/json"
	"time"
)

// Activity is an audit log entry for a change to a table
type Activity struct {
	Id        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`

	// Entity being acted upon: the table tag and the record key, if any
	EntityType string `json:"entity_type" gorm:"size:64;index"`
	EntityId   string `json:"entity_id" gorm:"size:64;index"`

	// Action performed (create, update, delete, replace, import, sync)
	Action string `json:"action" gorm:"size:32;index"`

	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata" gorm:"type:json"`
}

func (m *Activity) TableName() string {
	return "activities"
}

func (m *Activity) GetId() uint {
	return m.Id
}

func (m *Activity) GetModelName() string {
	return "activity"
}

// Subject is implemented by event payloads that name the entity they touch
type Subject interface {
	ActivityEntity() (entityType, entityId string)
}

// ListActivitiesRequest are the filters of the activity list
type ListActivitiesRequest struct {
	EntityType string `query:"entity_type"`
	EntityId   string `query:"entity_id"`
	Action     string `query:"action"`
	Page       int    `query:"page" binding:"omitempty,min=1"`
	Limit      int    `query:"limit" binding:"omitempty,min=1,max=200"`
}
