package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	eventdomain "github.com/kraalhq/kraal/internal/event/domain"
	"github.com/kraalhq/kraal/internal/money"
	offerdomain "github.com/kraalhq/kraal/internal/offer/domain"
	"github.com/kraalhq/kraal/internal/providers/pdf"
	settlementdomain "github.com/kraalhq/kraal/internal/settlement/domain"
)

type submitOfferBody struct {
	Quantity           int64  `json:"quantity" binding:"required"`
	UnitPrice          int64  `json:"unit_price" binding:"required"`
	DeliveryMode       string `json:"delivery_mode" binding:"required"`
	ValidityDays       int    `json:"validity_days" binding:"required"`
	AbattoirFeePerUnit int64  `json:"abattoir_fee_per_unit"`
	DistanceKm         *int64 `json:"distance_km"`
	Notes              string `json:"notes"`
}

func (s *Server) SubmitOffer(c *gin.Context) {
	var body submitOfferBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, newValidationError("offer", "invalid_request", "invalid request body"))
		return
	}

	view, err := s.offerSvc.Submit(c.Request.Context(), offerdomain.SubmitRequest{
		RequestID:          c.Param("id"),
		SellerID:           actorID(c),
		Quantity:           body.Quantity,
		UnitPrice:          money.Amount(body.UnitPrice),
		DeliveryMode:       offerdomain.DeliveryMode(body.DeliveryMode),
		ValidityDays:       body.ValidityDays,
		AbattoirFeePerUnit: money.Amount(body.AbattoirFeePerUnit),
		DistanceKm:         body.DistanceKm,
		Notes:              body.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

func (s *Server) ListOffers(c *gin.Context) {
	views, err := s.offerSvc.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (s *Server) AcceptOffer(c *gin.Context) {
	result, err := s.offerSvc.Accept(c.Request.Context(), c.Param("id"), c.Param("offer_id"), actorID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) WithdrawOffer(c *gin.Context) {
	withdrawn, err := s.offerSvc.Withdraw(c.Request.Context(), c.Param("id"), c.Param("offer_id"), actorID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, withdrawn)
}

// GetStatement renders the settlement statement PDF for an accepted
// offer. Only the buyer or the seller may fetch it.
func (s *Server) GetStatement(c *gin.Context) {
	request, err := s.requestSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	actor := actorID(c)
	views, err := s.offerSvc.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var accepted *offerdomain.View
	for i := range views {
		if views[i].ID.String() == c.Param("offer_id") {
			accepted = &views[i]
			break
		}
	}
	if accepted == nil {
		AbortWithError(c, offerdomain.ErrOfferNotFound)
		return
	}
	if accepted.Status != offerdomain.OfferStatusAccepted {
		AbortWithError(c, offerdomain.ErrOfferNotActive)
		return
	}
	if actor != request.BuyerID.String() && actor != accepted.SellerID.String() {
		AbortWithError(c, ErrForbidden)
		return
	}

	settled, err := s.settledOrder(c.Request.Context(), request.ID.String(), accepted.ID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data := statementData(request.Species, request.Unit, request.Province, accepted, settled.Pricing, settled.Breakdown, s.clock.Now().Format("2006-01-02"))
	data.BuyerRef = request.BuyerID.String()

	reader, err := s.statements.GenerateStatement(c.Request.Context(), data)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=statement-"+accepted.ID.String()+".pdf")
	c.DataFromReader(http.StatusOK, -1, "application/pdf", reader, nil)
}

// settledOrder carries the figures persisted in the order.created outbox
// row at acceptance. The statement renders these, never a recomputation
// under the live schedule, so the document always matches what the
// payment collaborator received.
type settledOrder struct {
	OfferID   string                        `json:"offer_id"`
	Pricing   offerdomain.Pricing           `json:"pricing"`
	Breakdown settlementdomain.FeeBreakdown `json:"breakdown"`
}

var errOrderRecordMissing = errors.New("order_record_missing")

func (s *Server) settledOrder(ctx context.Context, requestID, offerID string) (*settledOrder, error) {
	row, err := s.events.FindByDedupeKey(ctx, eventdomain.OrderDedupeKey(requestID))
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, errOrderRecordMissing
	}

	var order settledOrder
	if err := json.Unmarshal(row.Payload, &order); err != nil {
		return nil, err
	}
	if order.OfferID != offerID {
		return nil, errOrderRecordMissing
	}
	return &order, nil
}

func statementData(species, unit, province string, view *offerdomain.View, pricing offerdomain.Pricing, b settlementdomain.FeeBreakdown, issued string) pdf.StatementData {
	lines := []pdf.StatementLine{
		{Description: "Livestock subtotal", Party: "buyer", Amount: money.FormatRand(pricing.Subtotal)},
	}
	if pricing.DeliverySurcharge > 0 {
		lines = append(lines, pdf.StatementLine{Description: "Delivery surcharge", Party: "buyer", Amount: money.FormatRand(pricing.DeliverySurcharge)})
	}
	if pricing.AbattoirTotal > 0 {
		lines = append(lines, pdf.StatementLine{Description: "Abattoir fees", Party: "buyer", Amount: money.FormatRand(pricing.AbattoirTotal)})
	}

	commissionParty := "seller"
	if b.CommissionModel == settlementdomain.CommissionModelBuyerPays {
		commissionParty = "buyer"
	}
	lines = append(lines,
		pdf.StatementLine{Description: "Payment processing fee", Party: "buyer", Amount: money.FormatRand(b.ProcessingFee)},
		pdf.StatementLine{Description: "Escrow fee", Party: "buyer", Amount: money.FormatRand(b.EscrowFee)},
		pdf.StatementLine{Description: "Marketplace commission", Party: commissionParty, Amount: money.FormatRand(b.Commission)},
		pdf.StatementLine{Description: "Payout fee", Party: "seller", Amount: money.FormatRand(b.PayoutFee)},
	)

	return pdf.StatementData{
		OrderRef:        view.RequestID.String(),
		IssueDate:       issued,
		SellerRef:       view.SellerID.String(),
		Species:         species,
		Quantity:        view.Quantity,
		Unit:            unit,
		Province:        province,
		Lines:           lines,
		CommissionModel: string(b.CommissionModel),
		GrandTotal:      money.FormatRand(b.GrandTotal),
		NetToSeller:     money.FormatRand(b.NetToSeller),
	}
}

// PreviewFees computes a fee breakdown for an arbitrary amount under the
// current schedule without touching any offer.
func (s *Server) PreviewFees(c *gin.Context) {
	amount, err := strconv.ParseInt(c.Query("amount"), 10, 64)
	if err != nil {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "amount must be an integer in cents"))
		return
	}

	rates, model := s.settlementSvc.CurrentRates()
	if override := c.Query("commission_model"); override != "" {
		model = settlementdomain.CommissionModel(override)
	}

	breakdown, err := s.settlementSvc.ComputeBreakdown(money.Amount(amount), model, rates)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, breakdown)
}

// SweepNow triggers one expiry sweep cycle. Exposed on the internal
// surface for operators; the background sweeper calls the same path.
func (s *Server) SweepNow(c *gin.Context) {
	limit := s.cfg.SweepBatchSize
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	expired, err := s.offerSvc.SweepExpired(c.Request.Context(), s.clock.Now(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expired": expired})
}
