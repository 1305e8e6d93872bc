package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/kraalhq/kraal/internal/clock"
	"github.com/kraalhq/kraal/internal/config"
	"github.com/kraalhq/kraal/internal/event"
	eventdomain "github.com/kraalhq/kraal/internal/event/domain"
	"github.com/kraalhq/kraal/internal/matchscore"
	"github.com/kraalhq/kraal/internal/money"
	obsmetrics "github.com/kraalhq/kraal/internal/observability/metrics"
	offerdomain "github.com/kraalhq/kraal/internal/offer/domain"
	requestdomain "github.com/kraalhq/kraal/internal/request/domain"
	settlementdomain "github.com/kraalhq/kraal/internal/settlement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	repo        offerdomain.Repository
	requestRepo requestdomain.Repository
	settlement  settlementdomain.Service
	schedule    *config.FeeScheduleHolder
	publisher   event.Publisher
	scores      matchscore.Provider
	metrics     *obsmetrics.Metrics
}

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        offerdomain.Repository
	RequestRepo requestdomain.Repository
	Settlement  settlementdomain.Service
	Schedule    *config.FeeScheduleHolder
	Publisher   event.Publisher
	Scores      matchscore.Provider
	Metrics     *obsmetrics.Metrics `optional:"true"`
}

func NewService(p ServiceParam) offerdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("offer.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		requestRepo: p.RequestRepo,
		settlement:  p.Settlement,
		schedule:    p.Schedule,
		publisher:   p.Publisher,
		scores:      p.Scores,
		metrics:     p.Metrics,
	}
}

// Submit validates an offer against its buy request's bounds and stores
// it ACTIVE with a computed validity deadline. Concurrent submissions on
// the same request need no coordination.
func (s *Service) Submit(ctx context.Context, req offerdomain.SubmitRequest) (*offerdomain.View, error) {
	request, err := s.loadRequest(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}
	if !request.IsOpen() {
		return nil, requestdomain.ErrRequestNotOpen
	}

	sellerID, err := parseID(req.SellerID)
	if err != nil {
		return nil, offerdomain.ErrInvalidSeller
	}
	if req.Quantity <= 0 || req.Quantity > request.Quantity {
		return nil, offerdomain.ErrQuantityExceeded
	}
	if req.UnitPrice <= 0 || req.UnitPrice > request.MaxPricePerUnit {
		return nil, offerdomain.ErrPriceExceedsCeiling
	}
	if !req.DeliveryMode.Valid() {
		return nil, offerdomain.ErrInvalidDeliveryMode
	}
	if !offerdomain.ValidityDaysAllowed[req.ValidityDays] {
		return nil, offerdomain.ErrInvalidValidityDays
	}
	if req.AbattoirFeePerUnit < 0 {
		return nil, offerdomain.ErrInvalidAbattoirFee
	}
	if req.AbattoirFeePerUnit > 0 && req.DeliveryMode != offerdomain.DeliveryRequestForQuote {
		return nil, offerdomain.ErrInvalidAbattoirFee
	}
	if req.DistanceKm != nil && *req.DistanceKm < 0 {
		return nil, offerdomain.ErrInvalidDistance
	}

	now := s.clock.Now()
	offer := &offerdomain.Offer{
		ID:                 s.genID.Generate(),
		RequestID:          request.ID,
		SellerID:           sellerID,
		Quantity:           req.Quantity,
		UnitPrice:          req.UnitPrice,
		DeliveryMode:       req.DeliveryMode,
		AbattoirFeePerUnit: req.AbattoirFeePerUnit,
		DistanceKm:         req.DistanceKm,
		ValidityDays:       req.ValidityDays,
		Notes:              strings.TrimSpace(req.Notes),
		Status:             offerdomain.OfferStatusActive,
		CreatedAt:          now,
		ExpiresAt:          now.AddDate(0, 0, req.ValidityDays),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(offer).Error; err != nil {
			return err
		}
		return s.publisher.WithTx(tx).Publish(ctx, eventdomain.TopicOfferCreated, map[string]any{
			"request_id": request.ID.String(),
			"offer_id":   offer.ID.String(),
			"seller_id":  sellerID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOfferSubmitted()
	s.log.Info("offer submitted",
		zap.String("request_id", request.ID.String()),
		zap.String("offer_id", offer.ID.String()),
		zap.Int64("quantity", offer.Quantity),
		zap.Time("expires_at", offer.ExpiresAt),
	)

	view := s.annotate(ctx, offer, now)
	return &view, nil
}

// List returns every offer on the request, annotated with derived
// pricing, time remaining, and the oracle's match score when known.
// Offers past expiry report EXPIRED at read time even before the sweep
// persists that transition.
func (s *Service) List(ctx context.Context, requestID string) ([]offerdomain.View, error) {
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	offers, err := s.repo.FindForRequest(ctx, request.ID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	views := make([]offerdomain.View, 0, len(offers))
	for _, offer := range offers {
		views = append(views, s.annotate(ctx, offer, now))
	}
	return views, nil
}

// Accept runs the six-step acceptance as one transaction: accept the
// chosen offer, withdraw its ACTIVE siblings, close the request, compute
// the offer total, settle fees, and write the order.created outbox row.
// The OPEN->CLOSED conditional update is the serialization point; a
// losing concurrent caller gets ErrRequestAlreadyClosed.
func (s *Service) Accept(ctx context.Context, requestID, offerID, buyerID string) (*offerdomain.AcceptResult, error) {
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	buyer, err := parseID(buyerID)
	if err != nil || buyer != request.BuyerID {
		return nil, requestdomain.ErrNotRequestOwner
	}
	if !request.IsOpen() {
		return nil, requestdomain.ErrRequestAlreadyClosed
	}

	oid, err := parseID(offerID)
	if err != nil {
		return nil, offerdomain.ErrOfferNotFound
	}
	offer, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if offer == nil || offer.RequestID != request.ID {
		return nil, offerdomain.ErrOfferNotFound
	}

	now := s.clock.Now()
	if offer.ExpiredAt(now) {
		return nil, offerdomain.ErrOfferExpired
	}

	var result offerdomain.AcceptResult
	var withdrawn []snowflake.ID

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		won, err := s.repo.AcceptIfLive(ctx, tx, offer.ID, now)
		if err != nil {
			return err
		}
		if !won {
			return s.classifyAcceptLoss(ctx, tx, offer.ID, now)
		}

		withdrawn, err = s.repo.WithdrawSiblings(ctx, tx, request.ID, offer.ID)
		if err != nil {
			return err
		}

		closed, err := s.requestRepo.CloseIfOpen(ctx, tx, request.ID)
		if err != nil {
			return err
		}
		if !closed {
			return requestdomain.ErrRequestAlreadyClosed
		}

		fees := s.schedule.Get()
		pricing := offer.ComputePricing(
			money.Amount(fees.Surcharge.MinFlatFee),
			money.Amount(fees.Surcharge.PerKmPerUnit),
		)

		breakdown, err := s.settlement.Settle(pricing.OfferTotal)
		if err != nil {
			// Includes the invariant guard: a breakdown that fails its sum
			// identities must never reach the payment collaborator.
			return err
		}

		publisher := s.publisher.WithTx(tx)
		for _, id := range withdrawn {
			err := publisher.Publish(ctx, eventdomain.TopicOfferWithdrawn, map[string]any{
				"offer_id": id.String(),
				"reason":   offerdomain.WithdrawReasonSiblingAccepted,
			})
			if err != nil {
				return err
			}
		}

		err = publisher.PublishDedupe(ctx, eventdomain.TopicOrderCreated, eventdomain.OrderDedupeKey(request.ID.String()), map[string]any{
			"request_id": request.ID.String(),
			"offer_id":   offer.ID.String(),
			"buyer_id":   request.BuyerID.String(),
			"seller_id":  offer.SellerID.String(),
			"pricing":    pricing,
			"breakdown":  breakdown,
		})
		if err != nil {
			return err
		}

		accepted := *offer
		accepted.Status = offerdomain.OfferStatusAccepted
		result = offerdomain.AcceptResult{
			Offer:     &accepted,
			Pricing:   pricing,
			Breakdown: breakdown,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOfferAccepted()
	s.metrics.AddOffersWithdrawn(offerdomain.WithdrawReasonSiblingAccepted, len(withdrawn))
	s.log.Info("offer accepted",
		zap.String("request_id", request.ID.String()),
		zap.String("offer_id", offer.ID.String()),
		zap.Int64("grand_total", int64(result.Breakdown.GrandTotal)),
		zap.Int("siblings_withdrawn", len(withdrawn)),
	)
	return &result, nil
}

// classifyAcceptLoss explains a failed conditional accept: the offer
// either lapsed (or was swept) or lost to a concurrent acceptance.
func (s *Service) classifyAcceptLoss(ctx context.Context, tx *gorm.DB, id snowflake.ID, now time.Time) error {
	var current offerdomain.Offer
	if err := tx.WithContext(ctx).First(&current, "id = ?", id).Error; err != nil {
		return offerdomain.ErrOfferNotFound
	}
	switch current.Status {
	case offerdomain.OfferStatusExpired:
		return offerdomain.ErrOfferExpired
	case offerdomain.OfferStatusWithdrawn:
		return offerdomain.ErrOfferNotActive
	case offerdomain.OfferStatusActive:
		if current.ExpiredAt(now) {
			return offerdomain.ErrOfferExpired
		}
		return requestdomain.ErrRequestAlreadyClosed
	default:
		return requestdomain.ErrRequestAlreadyClosed
	}
}

// Withdraw lets the offer's seller retract an ACTIVE offer.
func (s *Service) Withdraw(ctx context.Context, requestID, offerID, sellerID string) (*offerdomain.Offer, error) {
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	oid, err := parseID(offerID)
	if err != nil {
		return nil, offerdomain.ErrOfferNotFound
	}
	offer, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if offer == nil || offer.RequestID != request.ID {
		return nil, offerdomain.ErrOfferNotFound
	}

	seller, err := parseID(sellerID)
	if err != nil || seller != offer.SellerID {
		return nil, offerdomain.ErrNotOfferOwner
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		won, err := s.repo.WithdrawIfActive(ctx, tx, offer.ID, offerdomain.WithdrawReasonSellerWithdrawn)
		if err != nil {
			return err
		}
		if !won {
			if offer.ExpiredAt(s.clock.Now()) {
				return offerdomain.ErrOfferExpired
			}
			return offerdomain.ErrOfferNotActive
		}
		return s.publisher.WithTx(tx).Publish(ctx, eventdomain.TopicOfferWithdrawn, map[string]any{
			"offer_id": offer.ID.String(),
			"reason":   offerdomain.WithdrawReasonSellerWithdrawn,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AddOffersWithdrawn(offerdomain.WithdrawReasonSellerWithdrawn, 1)
	reason := offerdomain.WithdrawReasonSellerWithdrawn
	offer.Status = offerdomain.OfferStatusWithdrawn
	offer.WithdrawReason = &reason
	return offer, nil
}

// SweepExpired transitions lapsed ACTIVE offers to EXPIRED. Each offer is
// a separate conditional update, so a concurrently accepted offer is
// never expired: whichever transition commits first wins.
func (s *Service) SweepExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 200
	}

	candidates, err := s.repo.ListExpiredActive(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, offer := range candidates {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			won, err := s.repo.ExpireIfActive(ctx, tx, offer.ID, now)
			if err != nil {
				return err
			}
			if !won {
				// Accepted or withdrawn since we listed it; nothing to do.
				return nil
			}
			expired++
			return s.publisher.WithTx(tx).PublishDedupe(ctx,
				eventdomain.TopicOfferExpired,
				"expired:"+offer.ID.String(),
				map[string]any{"offer_id": offer.ID.String()},
			)
		})
		if err != nil {
			return expired, err
		}
	}

	s.metrics.AddOffersExpired(expired)
	if expired > 0 {
		s.log.Info("expired offers swept", zap.Int("count", expired))
	}
	return expired, nil
}

func (s *Service) annotate(ctx context.Context, offer *offerdomain.Offer, now time.Time) offerdomain.View {
	fees := s.schedule.Get()
	view := offerdomain.View{
		Offer: *offer,
		Pricing: offer.ComputePricing(
			money.Amount(fees.Surcharge.MinFlatFee),
			money.Amount(fees.Surcharge.PerKmPerUnit),
		),
		EffectiveStatusField: offer.EffectiveStatus(now),
		TimeRemainingSecs:    int64(offer.TimeRemaining(now) / time.Second),
	}
	if score, ok := s.scores.Score(ctx, offer.RequestID.String(), offer.ID.String()); ok {
		view.MatchScore = &score
	}
	return view
}

func (s *Service) loadRequest(ctx context.Context, requestID string) (*requestdomain.BuyRequest, error) {
	id, err := parseID(requestID)
	if err != nil {
		return nil, requestdomain.ErrRequestNotFound
	}
	request, err := s.requestRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, requestdomain.ErrRequestNotFound
	}
	return request, nil
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
