package models

import "time"

// ConfigUpdateEvent announces a runtime configuration change on the config
// update topic. Consumers reload the named setting without a restart.
type ConfigUpdateEvent struct {
	EventType  string                 `json:"event_type"`
	Action     string                 `json:"action"`
	Categories []string               `json:"categories,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	ChangedBy  string                 `json:"changed_by,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

const (
	EventTypeCategoriesUpdated = "eligible_categories_updated"
)

const (
	ActionUpdate = "update"
	ActionReload = "reload"
)
