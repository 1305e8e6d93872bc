// Package event provides the transactional outbox publisher used by the
// negotiation core. Events commit atomically with the lifecycle
// transitions that emit them.
package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	eventdomain "github.com/kraalhq/kraal/internal/event/domain"
	"github.com/kraalhq/kraal/pkg/db"
	"gorm.io/gorm"
)

type Publisher interface {
	// WithTx binds the publisher to an open transaction so the outbox row
	// commits with the caller's state change.
	WithTx(tx *gorm.DB) Publisher
	Publish(ctx context.Context, topic string, payload any) error
	PublishDedupe(ctx context.Context, topic, dedupeKey string, payload any) error
}

type outboxPublisher struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewOutboxPublisher(conn *gorm.DB, genID *snowflake.Node) Publisher {
	return &outboxPublisher{
		db:    conn,
		genID: genID,
	}
}

func (p *outboxPublisher) WithTx(tx *gorm.DB) Publisher {
	return &outboxPublisher{db: tx, genID: p.genID}
}

func (p *outboxPublisher) Publish(ctx context.Context, topic string, payload any) error {
	return p.insert(ctx, topic, nil, payload)
}

// PublishDedupe drops the event silently when an event with the same
// dedupe key was already written, keeping retried transitions from
// double-announcing.
func (p *outboxPublisher) PublishDedupe(ctx context.Context, topic, dedupeKey string, payload any) error {
	err := p.insert(ctx, topic, &dedupeKey, payload)
	if db.IsDuplicateKeyErr(err) {
		return nil
	}
	return err
}

func (p *outboxPublisher) insert(ctx context.Context, topic string, dedupeKey *string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.db.WithContext(ctx).Create(&eventdomain.MarketEvent{
		ID:        p.genID.Generate(),
		Topic:     topic,
		Payload:   body,
		DedupeKey: dedupeKey,
		Published: false,
		CreatedAt: time.Now().UTC(),
	}).Error
}
