package seller_payout_controller

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/marketplace/logger"
	"github.com/joy095/marketplace/models/order_models"
	"github.com/joy095/marketplace/models/payout_models"
	"github.com/joy095/marketplace/services/payout_events"
	"github.com/joy095/marketplace/utils"
	"github.com/shopspring/decimal"
)

const (
	defaultListLimit = 200
	maxListLimit     = 1000
	heartbeatEvery   = 25 * time.Second
)

type PayoutService interface {
	List(ctx context.Context, filter payout_models.PayoutFilter) ([]payout_models.PayoutRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*payout_models.PayoutRequest, error)
	RequestPayout(ctx context.Context, sellerID uuid.UUID, amount decimal.Decimal, note, actor string) (*payout_models.PayoutRequest, error)
	Transition(ctx context.Context, id uuid.UUID, action payout_models.Action, tc payout_models.TransitionContext, expected payout_models.Status) (*payout_models.PayoutRequest, error)
	AddNote(ctx context.Context, id uuid.UUID, text, actor string) (*payout_models.PayoutRequest, error)
	Disburse(ctx context.Context, id uuid.UUID, actor string) (*payout_models.PayoutRequest, error)
	Delete(ctx context.Context, id uuid.UUID, actor string) error
}

type SellerPayoutController struct {
	payouts PayoutService
	changes payout_events.Subscriber
}

func NewSellerPayoutController(payouts PayoutService, changes payout_events.Subscriber) (*SellerPayoutController, error) {
	if payouts == nil {
		return nil, errors.New("payout service cannot be nil")
	}
	return &SellerPayoutController{payouts: payouts, changes: changes}, nil
}

// PayoutView is a payout as the API returns it.
type PayoutView struct {
	payout_models.PayoutRequest
	AllowedActions []payout_models.Action `json:"allowed_actions"`
}

func view(p payout_models.PayoutRequest) PayoutView {
	actions := payout_models.AllowedActions(p.Status)
	if actions == nil {
		actions = []payout_models.Action{}
	}
	return PayoutView{PayoutRequest: p, AllowedActions: actions}
}

// sellerView has the admin shape, but sellers drive no workflow actions.
func sellerView(p payout_models.PayoutRequest) PayoutView {
	return PayoutView{PayoutRequest: p, AllowedActions: []payout_models.Action{}}
}

func views(ps []payout_models.PayoutRequest, as func(payout_models.PayoutRequest) PayoutView) []PayoutView {
	out := make([]PayoutView, 0, len(ps))
	for _, p := range ps {
		out = append(out, as(p))
	}
	return out
}

// bindOptionalJSON accepts an empty body as the zero request.
func bindOptionalJSON(c *gin.Context, req any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		return utils.NewValidationError("", "", "invalid request: "+err.Error())
	}
	return nil
}

func payoutID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, utils.NewValidationError("id", "", "invalid payout id")
	}
	return id, nil
}

func parseFilter(c *gin.Context) (payout_models.PayoutFilter, error) {
	filter := payout_models.PayoutFilter{Limit: defaultListLimit}

	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st := payout_models.Status(strings.TrimSpace(part))
			if !st.Valid() {
				return filter, utils.NewValidationError("status", string(st), "unknown payout status")
			}
			filter.Statuses = append(filter.Statuses, st)
		}
	}

	if raw := c.Query("seller_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, utils.NewValidationError("seller_id", "", "invalid seller id")
		}
		filter.SellerID = &id
	}

	dr, err := order_models.ParseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		return filter, utils.NewValidationError("from", "", err.Error())
	}
	filter.From, filter.To = dr.From, dr.To

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return filter, utils.NewValidationError("limit", "", "limit must be a positive integer")
		}
		filter.Limit = min(n, maxListLimit)
	}
	return filter, nil
}

// ListPayouts is the back-office payout list.
func (pc *SellerPayoutController) ListPayouts(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	payouts, err := pc.payouts.List(c.Request.Context(), filter)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payouts": views(payouts, view)})
}

func (pc *SellerPayoutController) GetPayout(c *gin.Context) {
	id, err := payoutID(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	p, err := pc.payouts.Get(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payout": view(*p)})
}

type advanceRequest struct {
	ExpectedStatus   payout_models.Status `json:"expected_status"`
	Additions        decimal.Decimal      `json:"additions"`
	Reductions       decimal.Decimal      `json:"reductions"`
	AdjustmentReason string               `json:"adjustment_reason"`
	TransactionID    string               `json:"transaction_id"`
	Note             string               `json:"note"`
}

type cancelRequest struct {
	ExpectedStatus payout_models.Status `json:"expected_status"`
	Reason         string               `json:"reason"`
	Note           string               `json:"note"`
}

type moveBackRequest struct {
	ExpectedStatus payout_models.Status `json:"expected_status"`
	Confirmed      bool                 `json:"confirmed"`
	Note           string               `json:"note"`
}

type noteRequest struct {
	Text string `json:"text" binding:"required"`
}

func (pc *SellerPayoutController) transition(c *gin.Context, action payout_models.Action, expected payout_models.Status, tc payout_models.TransitionContext) {
	id, err := payoutID(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	tc.Actor = utils.GetCurrentUser(c).Actor()
	p, err := pc.payouts.Transition(c.Request.Context(), id, action, tc, expected)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payout updated", "payout": view(*p)})
}

func (pc *SellerPayoutController) Advance(c *gin.Context) {
	var req advanceRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		utils.RespondError(c, err)
		return
	}
	pc.transition(c, payout_models.ActionAdvance, req.ExpectedStatus, payout_models.TransitionContext{
		Additions:        req.Additions,
		Reductions:       req.Reductions,
		AdjustmentReason: req.AdjustmentReason,
		TransactionID:    req.TransactionID,
		NoteText:         req.Note,
	})
}

func (pc *SellerPayoutController) Cancel(c *gin.Context) {
	var req cancelRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		utils.RespondError(c, err)
		return
	}
	pc.transition(c, payout_models.ActionCancel, req.ExpectedStatus, payout_models.TransitionContext{
		CancellationReason: req.Reason,
		NoteText:           req.Note,
	})
}

func (pc *SellerPayoutController) MoveBack(c *gin.Context) {
	var req moveBackRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		utils.RespondError(c, err)
		return
	}
	pc.transition(c, payout_models.ActionMoveBack, req.ExpectedStatus, payout_models.TransitionContext{
		Confirmed: req.Confirmed,
		NoteText:  req.Note,
	})
}

func (pc *SellerPayoutController) AddNote(c *gin.Context) {
	id, err := payoutID(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, utils.NewValidationError("text", "", "note text is required"))
		return
	}

	p, err := pc.payouts.AddNote(c.Request.Context(), id, req.Text, utils.GetCurrentUser(c).Actor())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Note added", "payout": view(*p)})
}

func (pc *SellerPayoutController) Disburse(c *gin.Context) {
	id, err := payoutID(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	p, err := pc.payouts.Disburse(c.Request.Context(), id, utils.GetCurrentUser(c).Actor())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payout disbursed", "payout": view(*p)})
}

func (pc *SellerPayoutController) DeletePayout(c *gin.Context) {
	id, err := payoutID(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := pc.payouts.Delete(c.Request.Context(), id, utils.GetCurrentUser(c).Actor()); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payout deleted"})
}

// Events streams payout change notifications as server-sent events. Clients
// treat every event as a signal to reload.
func (pc *SellerPayoutController) Events(c *gin.Context) {
	if pc.changes == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "change notifications are not available"})
		return
	}

	changes, err := pc.changes.Subscribe(c.Request.Context())
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to subscribe to payout changes: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "change notifications are not available"})
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case change, ok := <-changes:
			if !ok {
				return false
			}
			c.SSEvent("payout", change)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}

// SellerPayouts lists the current seller's own payouts.
func (pc *SellerPayoutController) SellerPayouts(c *gin.Context) {
	sellerID, err := utils.GetSellerIDFromContext(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	filter, err := parseFilter(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	filter.SellerID = &sellerID

	payouts, err := pc.payouts.List(c.Request.Context(), filter)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payouts": views(payouts, sellerView)})
}

type requestPayoutRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

// RequestPayout lets a seller ask for a payout of their available balance.
func (pc *SellerPayoutController) RequestPayout(c *gin.Context) {
	sellerID, err := utils.GetSellerIDFromContext(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	var req requestPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, utils.NewValidationError("amount", "", "amount is required"))
		return
	}

	p, err := pc.payouts.RequestPayout(c.Request.Context(), sellerID, req.Amount, req.Note, utils.GetCurrentUser(c).Actor())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Payout requested", "payout": sellerView(*p)})
}
