package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/kraalhq/kraal/internal/clock"
	"github.com/kraalhq/kraal/internal/config"
	"github.com/kraalhq/kraal/internal/event"
	eventdomain "github.com/kraalhq/kraal/internal/event/domain"
	"github.com/kraalhq/kraal/internal/matchscore"
	offerdomain "github.com/kraalhq/kraal/internal/offer/domain"
	offerrepo "github.com/kraalhq/kraal/internal/offer/repository"
	offerservice "github.com/kraalhq/kraal/internal/offer/service"
	requestdomain "github.com/kraalhq/kraal/internal/request/domain"
	requestrepo "github.com/kraalhq/kraal/internal/request/repository"
	settlementservice "github.com/kraalhq/kraal/internal/settlement/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestRunOnce_ExpiresLapsedOffers(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:sweeper_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&requestdomain.BuyRequest{},
		&offerdomain.Offer{},
		&eventdomain.MarketEvent{},
	))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	holder := config.NewStaticFeeScheduleHolder(config.DefaultFeeSchedule())

	offerSvc := offerservice.NewService(offerservice.ServiceParam{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       fake,
		Repo:        offerrepo.New(db),
		RequestRepo: requestrepo.New(db),
		Settlement: settlementservice.NewService(settlementservice.ServiceParam{
			Log:      zap.NewNop(),
			Schedule: holder,
		}),
		Schedule:  holder,
		Publisher: event.NewOutboxPublisher(db, node),
		Scores:    matchscore.NewNoopProvider(),
	})

	request := &requestdomain.BuyRequest{
		ID:              node.Generate(),
		BuyerID:         node.Generate(),
		Species:         "dorper",
		Quantity:        20,
		Unit:            "head",
		MaxPricePerUnit: 30000,
		Status:          requestdomain.RequestStatusOpen,
		CreatedAt:       fake.Now(),
		UpdatedAt:       fake.Now(),
	}
	require.NoError(t, db.Create(request).Error)

	_, err = offerSvc.Submit(context.Background(), offerdomain.SubmitRequest{
		RequestID:    request.ID.String(),
		SellerID:     node.Generate().String(),
		Quantity:     20,
		UnitPrice:    25000,
		DeliveryMode: offerdomain.DeliveryBuyerCollects,
		ValidityDays: 1,
	})
	require.NoError(t, err)

	s, err := New(Params{
		Log:      zap.NewNop(),
		Clock:    fake,
		OfferSvc: offerSvc,
	})
	require.NoError(t, err)

	// Inside the validity window nothing happens.
	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	fake.Advance(26 * time.Hour)

	n, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Idempotent across repeated cycles.
	n, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
