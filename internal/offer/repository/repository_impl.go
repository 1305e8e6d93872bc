package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	offerdomain "github.com/kraalhq/kraal/internal/offer/domain"
	"github.com/kraalhq/kraal/pkg/db/option"
	"github.com/kraalhq/kraal/pkg/repository"
	"gorm.io/gorm"
)

type Repository struct {
	db    *gorm.DB
	store repository.Repository[offerdomain.Offer]
}

func New(db *gorm.DB) offerdomain.Repository {
	return &Repository{
		db:    db,
		store: repository.ProvideStore[offerdomain.Offer](db),
	}
}

func (r *Repository) Create(ctx context.Context, offer *offerdomain.Offer) error {
	return r.store.Create(ctx, offer)
}

func (r *Repository) FindByID(ctx context.Context, id snowflake.ID) (*offerdomain.Offer, error) {
	return r.store.FindOne(ctx, &offerdomain.Offer{ID: id})
}

func (r *Repository) FindForRequest(ctx context.Context, requestID snowflake.ID) ([]*offerdomain.Offer, error) {
	return r.store.Find(ctx,
		&offerdomain.Offer{RequestID: requestID},
		option.WithOrder("created_at ASC, id ASC"),
	)
}

func (r *Repository) AcceptIfLive(ctx context.Context, tx *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	res := r.conn(tx).WithContext(ctx).
		Model(&offerdomain.Offer{}).
		Where("id = ? AND status = ? AND expires_at > ?", id, offerdomain.OfferStatusActive, now).
		Update("status", offerdomain.OfferStatusAccepted)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) WithdrawIfActive(ctx context.Context, tx *gorm.DB, id snowflake.ID, reason string) (bool, error) {
	res := r.conn(tx).WithContext(ctx).
		Model(&offerdomain.Offer{}).
		Where("id = ? AND status = ?", id, offerdomain.OfferStatusActive).
		Updates(map[string]any{
			"status":          offerdomain.OfferStatusWithdrawn,
			"withdraw_reason": reason,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) WithdrawSiblings(ctx context.Context, tx *gorm.DB, requestID, acceptedID snowflake.ID) ([]snowflake.ID, error) {
	conn := r.conn(tx).WithContext(ctx)

	var ids []snowflake.ID
	err := conn.Model(&offerdomain.Offer{}).
		Where("request_id = ? AND id <> ? AND status = ?", requestID, acceptedID, offerdomain.OfferStatusActive).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	err = conn.Model(&offerdomain.Offer{}).
		Where("id IN ? AND status = ?", ids, offerdomain.OfferStatusActive).
		Updates(map[string]any{
			"status":          offerdomain.OfferStatusWithdrawn,
			"withdraw_reason": offerdomain.WithdrawReasonSiblingAccepted,
		}).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Repository) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]*offerdomain.Offer, error) {
	return r.store.Find(ctx,
		&offerdomain.Offer{Status: offerdomain.OfferStatusActive},
		option.WithWhere("expires_at <= ?", now),
		option.WithOrder("expires_at ASC"),
		option.WithLimit(limit),
	)
}

func (r *Repository) ExpireIfActive(ctx context.Context, tx *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	res := r.conn(tx).WithContext(ctx).
		Model(&offerdomain.Offer{}).
		Where("id = ? AND status = ? AND expires_at <= ?", id, offerdomain.OfferStatusActive, now).
		Update("status", offerdomain.OfferStatusExpired)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}
