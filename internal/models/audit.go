package models

import "time"

// AuditEntry is one line of the append-only audit trail. Every state-changing
// engine operation emits exactly one.
type AuditEntry struct {
	ID         string                 `bson:"_id,omitempty" json:"id"`
	Action     string                 `bson:"action" json:"action"`
	EntityType string                 `bson:"entity_type" json:"entity_type"`
	EntityID   string                 `bson:"entity_id" json:"entity_id"`
	Actor      string                 `bson:"actor" json:"actor"`
	Timestamp  time.Time              `bson:"timestamp" json:"timestamp"`
	Details    string                 `bson:"details,omitempty" json:"details,omitempty"`
	Changes    map[string]interface{} `bson:"changes,omitempty" json:"changes,omitempty"`
}
