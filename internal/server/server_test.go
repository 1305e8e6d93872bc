package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/kraalhq/kraal/internal/clock"
	"github.com/kraalhq/kraal/internal/config"
	"github.com/kraalhq/kraal/internal/event"
	eventdomain "github.com/kraalhq/kraal/internal/event/domain"
	"github.com/kraalhq/kraal/internal/matchscore"
	"github.com/kraalhq/kraal/internal/money"
	offerdomain "github.com/kraalhq/kraal/internal/offer/domain"
	offerrepo "github.com/kraalhq/kraal/internal/offer/repository"
	offerservice "github.com/kraalhq/kraal/internal/offer/service"
	"github.com/kraalhq/kraal/internal/providers/pdf"
	requestdomain "github.com/kraalhq/kraal/internal/request/domain"
	requestrepo "github.com/kraalhq/kraal/internal/request/repository"
	requestservice "github.com/kraalhq/kraal/internal/request/service"
	settlementdomain "github.com/kraalhq/kraal/internal/settlement/domain"
	settlementservice "github.com/kraalhq/kraal/internal/settlement/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type apiEnv struct {
	srv   *Server
	clock *clock.FakeClock
	node  *snowflake.Node
	fees  *config.FeeScheduleHolder
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&requestdomain.BuyRequest{},
		&offerdomain.Offer{},
		&eventdomain.MarketEvent{},
	)
	require.NoError(t, err)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	log := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	holder := config.NewStaticFeeScheduleHolder(config.DefaultFeeSchedule())
	publisher := event.NewOutboxPublisher(db, node)

	settlementSvc := settlementservice.NewService(settlementservice.ServiceParam{
		Log:      log,
		Schedule: holder,
	})

	requestSvc := requestservice.NewService(requestservice.ServiceParam{
		DB:        db,
		Log:       log,
		GenID:     node,
		Clock:     fake,
		Repo:      requestrepo.New(db),
		Publisher: publisher,
	})

	offerSvc := offerservice.NewService(offerservice.ServiceParam{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       fake,
		Repo:        offerrepo.New(db),
		RequestRepo: requestrepo.New(db),
		Settlement:  settlementSvc,
		Schedule:    holder,
		Publisher:   publisher,
		Scores:      matchscore.NewNoopProvider(),
	})

	engine := NewEngine(log, nil)
	srv := NewServer(ServerParams{
		Gin:           engine,
		Cfg:           config.Config{SweepBatchSize: 200},
		Log:           log,
		GenID:         node,
		Clock:         fake,
		RequestSvc:    requestSvc,
		OfferSvc:      offerSvc,
		SettlementSvc: settlementSvc,
		Events:        event.NewOutboxReader(db),
		Statements:    pdf.New(),
	})

	return &apiEnv{srv: srv, clock: fake, node: node, fees: holder}
}

func (e *apiEnv) do(t *testing.T, method, path, actor string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(HeaderActor, actor)
	}

	w := httptest.NewRecorder()
	e.srv.Engine().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (e *apiEnv) createRequest(t *testing.T, buyer string) string {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/requests", buyer, gin.H{
		"species":            "nguni",
		"quantity":           10,
		"max_price_per_unit": 50000,
		"province":           "KwaZulu-Natal",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	created := decode[map[string]any](t, w)
	return created["id"].(string)
}

func (e *apiEnv) submitOffer(t *testing.T, requestID, seller string) string {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/requests/"+requestID+"/offers", seller, gin.H{
		"quantity":      10,
		"unit_price":    45000,
		"delivery_mode": "BUYER_COLLECTS",
		"validity_days": 7,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	created := decode[map[string]any](t, w)
	return created["id"].(string)
}

func TestAPI_RequestLifecycle(t *testing.T) {
	env := newAPIEnv(t)
	buyer := env.node.Generate().String()

	id := env.createRequest(t, buyer)

	w := env.do(t, http.MethodGet, "/api/requests/"+id, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[map[string]any](t, w)
	assert.Equal(t, "OPEN", got["status"])

	w = env.do(t, http.MethodGet, "/api/requests", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/requests/"+id+"/cancel", buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Cancelling twice conflicts.
	w = env.do(t, http.MethodPost, "/api/requests/"+id+"/cancel", buyer, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAPI_CreateRequestRequiresActor(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(t, http.MethodPost, "/api/requests", "", gin.H{
		"species":            "nguni",
		"quantity":           10,
		"max_price_per_unit": 50000,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_CancelByNonOwnerForbidden(t *testing.T) {
	env := newAPIEnv(t)
	buyer := env.node.Generate().String()
	id := env.createRequest(t, buyer)

	w := env.do(t, http.MethodPost, "/api/requests/"+id+"/cancel", env.node.Generate().String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAPI_OfferValidationError(t *testing.T) {
	env := newAPIEnv(t)
	buyer := env.node.Generate().String()
	id := env.createRequest(t, buyer)

	w := env.do(t, http.MethodPost, "/api/requests/"+id+"/offers", env.node.Generate().String(), gin.H{
		"quantity":      11,
		"unit_price":    45000,
		"delivery_mode": "BUYER_COLLECTS",
		"validity_days": 7,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decode[errorResponse](t, w)
	assert.Equal(t, "validation_error", resp.Error.Type)
	require.Len(t, resp.Error.Errors, 1)
	assert.Equal(t, "quantity_exceeded", resp.Error.Errors[0].Code)
}

func TestAPI_AcceptFlow(t *testing.T) {
	env := newAPIEnv(t)
	buyer := env.node.Generate().String()
	seller := env.node.Generate().String()

	id := env.createRequest(t, buyer)
	offerID := env.submitOffer(t, id, seller)
	otherID := env.submitOffer(t, id, env.node.Generate().String())

	w := env.do(t, http.MethodPost, "/api/requests/"+id+"/offers/"+offerID+"/accept", buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)

	result := decode[map[string]any](t, w)
	breakdown := result["breakdown"].(map[string]any)
	assert.Equal(t, float64(450000), breakdown["base_amount"])

	// The losing sibling shows as withdrawn in the listing.
	w = env.do(t, http.MethodGet, "/api/requests/"+id+"/offers", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	listing := decode[map[string]any](t, w)
	for _, raw := range listing["data"].([]any) {
		item := raw.(map[string]any)
		if item["id"].(string) == otherID {
			assert.Equal(t, "WITHDRAWN", item["status"])
		}
	}

	// Double-accept conflicts.
	w = env.do(t, http.MethodPost, "/api/requests/"+id+"/offers/"+otherID+"/accept", buyer, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAPI_ExpiredOfferAcceptConflicts(t *testing.T) {
	env := newAPIEnv(t)
	buyer := env.node.Generate().String()
	id := env.createRequest(t, buyer)
	offerID := env.submitOffer(t, id, env.node.Generate().String())

	env.clock.Advance(8 * 24 * time.Hour)

	w := env.do(t, http.MethodPost, "/api/requests/"+id+"/offers/"+offerID+"/accept", buyer, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAPI_SweepEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	buyer := env.node.Generate().String()
	id := env.createRequest(t, buyer)
	env.submitOffer(t, id, env.node.Generate().String())

	env.clock.Advance(8 * 24 * time.Hour)

	w := env.do(t, http.MethodPost, "/internal/sweep", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[map[string]any](t, w)
	assert.Equal(t, float64(1), resp["expired"])
}

func TestAPI_FeePreview(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(t, http.MethodGet, "/api/fees/preview?amount=100000&commission_model=buyer_pays_commission", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	b := decode[map[string]any](t, w)
	assert.Equal(t, float64(114000), b["grand_total"])
	assert.Equal(t, float64(98000), b["net_to_seller"])

	w = env.do(t, http.MethodGet, "/api/fees/preview?amount=-5", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_StatementRequiresParty(t *testing.T) {
	env := newAPIEnv(t)
	buyer := env.node.Generate().String()
	seller := env.node.Generate().String()

	id := env.createRequest(t, buyer)
	offerID := env.submitOffer(t, id, seller)

	w := env.do(t, http.MethodPost, "/api/requests/"+id+"/offers/"+offerID+"/accept", buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/requests/"+id+"/offers/"+offerID+"/statement", env.node.Generate().String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/api/requests/"+id+"/offers/"+offerID+"/statement", seller, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}

func TestAPI_StatementUsesAcceptTimeRates(t *testing.T) {
	env := newAPIEnv(t)
	buyer := env.node.Generate().String()
	seller := env.node.Generate().String()

	id := env.createRequest(t, buyer)
	offerID := env.submitOffer(t, id, seller)

	w := env.do(t, http.MethodPost, "/api/requests/"+id+"/offers/"+offerID+"/accept", buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[map[string]any](t, w)
	acceptedTotal := result["breakdown"].(map[string]any)["grand_total"].(float64)

	// An operator rate change lands after acceptance.
	reload := config.DefaultFeeSchedule()
	reload.CommissionRateBps = 2000
	reload.CommissionModel = config.CommissionModelBuyerPays
	require.NoError(t, env.fees.Store(reload))

	settled, err := env.srv.settledOrder(context.Background(), id, offerID)
	require.NoError(t, err)
	assert.Equal(t, money.Amount(acceptedTotal), settled.Breakdown.GrandTotal)
	assert.Equal(t, settlementdomain.CommissionModelSellerPays, settled.Breakdown.CommissionModel)

	// The live schedule now disagrees with the settled figures.
	recomputed, err := env.srv.settlementSvc.Settle(settled.Pricing.OfferTotal)
	require.NoError(t, err)
	assert.NotEqual(t, recomputed.GrandTotal, settled.Breakdown.GrandTotal)

	// The statement still renders from the settled figures.
	w = env.do(t, http.MethodGet, "/api/requests/"+id+"/offers/"+offerID+"/statement", buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}
