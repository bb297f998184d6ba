package audit

import (
	"context"
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-costing/internal/db"
	"github.com/ukydev/fleet-costing/internal/models"
)

// Recorder receives one entry per state-changing engine operation.
type Recorder interface {
	Record(ctx context.Context, entry models.AuditEntry)
}

// Publisher pushes serialized audit entries to downstream consumers.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// MQTTPublisher adapts a paho client to the Publisher interface.
type MQTTPublisher struct {
	Client mqtt.Client
}

// Publish sends the payload at QoS 1 and waits for the broker ack.
func (p *MQTTPublisher) Publish(topic string, payload []byte) error {
	token := p.Client.Publish(topic, 1, false, payload)
	token.Wait()
	return token.Error()
}

// Trail is the default Recorder: it logs every entry through logrus, appends
// it to the audit store, and optionally publishes it to an MQTT topic.
// Sink failures are logged and never fail the originating operation.
type Trail struct {
	store     db.AuditStore
	publisher Publisher
	topic     string
}

// NewTrail creates an audit trail. publisher may be nil.
func NewTrail(store db.AuditStore, publisher Publisher, topic string) *Trail {
	return &Trail{store: store, publisher: publisher, topic: topic}
}

// Record stamps id and timestamp, then fans the entry out to all sinks.
func (t *Trail) Record(ctx context.Context, entry models.AuditEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	log.WithFields(log.Fields{
		"action":      entry.Action,
		"entity_type": entry.EntityType,
		"entity_id":   entry.EntityID,
		"actor":       entry.Actor,
	}).Info(entry.Details)

	if t.store != nil {
		if err := t.store.AppendAudit(ctx, entry); err != nil {
			log.WithError(err).WithField("entity_id", entry.EntityID).Error("failed to persist audit entry")
		}
	}

	if t.publisher != nil {
		payload, err := json.Marshal(entry)
		if err != nil {
			log.WithError(err).Error("failed to marshal audit entry")
			return
		}
		if err := t.publisher.Publish(t.topic, payload); err != nil {
			log.WithError(err).WithField("topic", t.topic).Warn("failed to publish audit entry")
		}
	}
}
