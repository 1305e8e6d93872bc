package event

import (
	"context"
	"errors"

	eventdomain "github.com/kraalhq/kraal/internal/event/domain"
	"gorm.io/gorm"
)

// Reader looks outbox rows back up by dedupe key. The settlement
// statement uses it to render the figures that were actually emitted at
// acceptance rather than recomputing under the live schedule.
type Reader interface {
	FindByDedupeKey(ctx context.Context, dedupeKey string) (*eventdomain.MarketEvent, error)
}

type outboxReader struct {
	db *gorm.DB
}

func NewOutboxReader(conn *gorm.DB) Reader {
	return &outboxReader{db: conn}
}

func (r *outboxReader) FindByDedupeKey(ctx context.Context, dedupeKey string) (*eventdomain.MarketEvent, error) {
	var row eventdomain.MarketEvent
	err := r.db.WithContext(ctx).First(&row, "dedupe_key = ?", dedupeKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
