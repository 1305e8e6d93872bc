package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/kraalhq/kraal/internal/clock"
	"github.com/kraalhq/kraal/internal/event"
	eventdomain "github.com/kraalhq/kraal/internal/event/domain"
	obsmetrics "github.com/kraalhq/kraal/internal/observability/metrics"
	requestdomain "github.com/kraalhq/kraal/internal/request/domain"
	"github.com/kraalhq/kraal/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	repo      requestdomain.Repository
	publisher event.Publisher
	metrics   *obsmetrics.Metrics
}

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      requestdomain.Repository
	Publisher event.Publisher
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

func NewService(p ServiceParam) requestdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("request.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		publisher: p.Publisher,
		metrics:   p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req requestdomain.CreateRequest) (*requestdomain.BuyRequest, error) {
	buyerID, err := parseID(req.BuyerID)
	if err != nil {
		return nil, requestdomain.ErrInvalidBuyer
	}
	if req.Quantity <= 0 {
		return nil, requestdomain.ErrInvalidQuantity
	}
	if req.MaxPricePerUnit <= 0 {
		return nil, requestdomain.ErrInvalidPriceCeiling
	}
	species := strings.TrimSpace(req.Species)
	if species == "" {
		return nil, requestdomain.ErrInvalidSpecies
	}
	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		unit = "head"
	}

	now := s.clock.Now()
	request := &requestdomain.BuyRequest{
		ID:              s.genID.Generate(),
		BuyerID:         buyerID,
		Species:         species,
		Quantity:        req.Quantity,
		Unit:            unit,
		MaxPricePerUnit: req.MaxPricePerUnit,
		Province:        strings.TrimSpace(req.Province),
		Status:          requestdomain.RequestStatusOpen,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, request); err != nil {
		return nil, err
	}

	s.log.Info("buy request created",
		zap.String("request_id", request.ID.String()),
		zap.String("species", species),
		zap.Int64("quantity", req.Quantity),
	)
	return request, nil
}

func (s *Service) Get(ctx context.Context, requestID string) (*requestdomain.BuyRequest, error) {
	id, err := parseID(requestID)
	if err != nil {
		return nil, requestdomain.ErrRequestNotFound
	}
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, requestdomain.ErrRequestNotFound
	}
	return request, nil
}

func (s *Service) ListOpen(ctx context.Context, page pagination.Pagination) ([]*requestdomain.BuyRequest, *pagination.PageInfo, error) {
	limit := page.PageSize
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	var afterID snowflake.ID
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, nil, err
		}
		parsed, err := parseID(cursor.ID)
		if err != nil {
			return nil, nil, err
		}
		afterID = parsed
	}

	rows, err := s.repo.ListOpen(ctx, afterID, limit+1)
	if err != nil {
		return nil, nil, err
	}

	rows, info := pagination.BuildCursorPageInfo(rows, limit, func(r *requestdomain.BuyRequest) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: r.ID.String()})
		return token
	})
	return rows, info, nil
}

func (s *Service) Cancel(ctx context.Context, requestID, buyerID string) (*requestdomain.BuyRequest, error) {
	request, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	caller, err := parseID(buyerID)
	if err != nil || caller != request.BuyerID {
		return nil, requestdomain.ErrNotRequestOwner
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		won, err := s.repo.CancelIfOpen(ctx, tx, request.ID)
		if err != nil {
			return err
		}
		if !won {
			return requestdomain.ErrRequestNotOpen
		}

		return s.publisher.WithTx(tx).Publish(ctx, eventdomain.TopicRequestCancelled, map[string]any{
			"request_id":   request.ID.String(),
			"buyer_id":     request.BuyerID.String(),
			"cancelled_at": s.clock.Now().Format(time.RFC3339),
		})
	})
	if err != nil {
		return nil, err
	}

	request.Status = requestdomain.RequestStatusCancelled
	request.Archived = true
	s.metrics.IncRequestCancelled()
	s.log.Info("buy request cancelled", zap.String("request_id", request.ID.String()))
	return request, nil
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
