package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	requestdomain "github.com/kraalhq/kraal/internal/request/domain"
	"github.com/kraalhq/kraal/pkg/db/option"
	"github.com/kraalhq/kraal/pkg/repository"
	"gorm.io/gorm"
)

type Repository struct {
	db    *gorm.DB
	store repository.Repository[requestdomain.BuyRequest]
}

func New(db *gorm.DB) requestdomain.Repository {
	return &Repository{
		db:    db,
		store: repository.ProvideStore[requestdomain.BuyRequest](db),
	}
}

func (r *Repository) Create(ctx context.Context, request *requestdomain.BuyRequest) error {
	return r.store.Create(ctx, request)
}

func (r *Repository) FindByID(ctx context.Context, id snowflake.ID) (*requestdomain.BuyRequest, error) {
	return r.store.FindOne(ctx, &requestdomain.BuyRequest{ID: id})
}

func (r *Repository) ListOpen(ctx context.Context, afterID snowflake.ID, limit int) ([]*requestdomain.BuyRequest, error) {
	opts := []option.QueryOption{
		option.WithOrder("id DESC"),
		option.WithLimit(limit),
	}
	if afterID != 0 {
		opts = append(opts, option.WithWhere("id < ?", afterID))
	}
	return r.store.Find(ctx, &requestdomain.BuyRequest{Status: requestdomain.RequestStatusOpen}, opts...)
}

func (r *Repository) CloseIfOpen(ctx context.Context, tx *gorm.DB, id snowflake.ID) (bool, error) {
	return r.transitionIfOpen(ctx, tx, id, requestdomain.RequestStatusClosed)
}

func (r *Repository) CancelIfOpen(ctx context.Context, tx *gorm.DB, id snowflake.ID) (bool, error) {
	return r.transitionIfOpen(ctx, tx, id, requestdomain.RequestStatusCancelled)
}

func (r *Repository) transitionIfOpen(
	ctx context.Context,
	tx *gorm.DB,
	id snowflake.ID,
	to requestdomain.RequestStatus,
) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	res := tx.WithContext(ctx).
		Model(&requestdomain.BuyRequest{}).
		Where("id = ? AND status = ?", id, requestdomain.RequestStatusOpen).
		Updates(map[string]any{
			"status":     to,
			"archived":   true,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
