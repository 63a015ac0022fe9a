package seller_payout_controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/marketplace/logger"
	"github.com/joy095/marketplace/models/payout_models"
	"github.com/joy095/marketplace/services/payout_events"
	"github.com/joy095/marketplace/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transitionCall struct {
	id       uuid.UUID
	action   payout_models.Action
	tc       payout_models.TransitionContext
	expected payout_models.Status
}

type fakeService struct {
	payouts     []payout_models.PayoutRequest
	filter      payout_models.PayoutFilter
	transitions []transitionCall
	requested   decimal.Decimal
	err         error
}

func (f *fakeService) List(_ context.Context, filter payout_models.PayoutFilter) ([]payout_models.PayoutRequest, error) {
	f.filter = filter
	return f.payouts, f.err
}

func (f *fakeService) Get(_ context.Context, id uuid.UUID) (*payout_models.PayoutRequest, error) {
	for _, p := range f.payouts {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, utils.ErrPayoutNotFound
}

func (f *fakeService) RequestPayout(_ context.Context, seller uuid.UUID, amount decimal.Decimal, note, actor string) (*payout_models.PayoutRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.requested = amount
	return payout_models.NewPayoutRequest(seller, amount, actor, note, time.Now())
}

func (f *fakeService) Transition(_ context.Context, id uuid.UUID, action payout_models.Action, tc payout_models.TransitionContext, expected payout_models.Status) (*payout_models.PayoutRequest, error) {
	f.transitions = append(f.transitions, transitionCall{id, action, tc, expected})
	if f.err != nil {
		return nil, f.err
	}
	p := payout_models.PayoutRequest{ID: id, Status: payout_models.StatusProcessing}
	return &p, nil
}

func (f *fakeService) AddNote(_ context.Context, id uuid.UUID, text, actor string) (*payout_models.PayoutRequest, error) {
	p, err := payout_models.AddNote(payout_models.PayoutRequest{ID: id, Status: payout_models.StatusPaid}, text, actor, time.Now())
	return &p, err
}

func (f *fakeService) Disburse(_ context.Context, id uuid.UUID, _ string) (*payout_models.PayoutRequest, error) {
	return &payout_models.PayoutRequest{ID: id, Status: payout_models.StatusPaid, TransactionID: "trf_1"}, f.err
}

func (f *fakeService) Delete(context.Context, uuid.UUID, string) error { return f.err }

var (
	adminEmail = "ops@example.com"
	sellerID   = uuid.MustParse("0190b2a4-7c1e-7a00-8000-0000000000a1")
)

func asUser(role string, seller uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(utils.ContextUserID, "user-1")
		c.Set(utils.ContextEmail, adminEmail)
		c.Set(utils.ContextRole, role)
		if seller != uuid.Nil {
			c.Set(utils.ContextSellerID, seller.String())
		}
		c.Next()
	}
}

func newRouter(t *testing.T, svc *fakeService, sub payout_events.Subscriber) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.Silence()

	pc, err := NewSellerPayoutController(svc, sub)
	require.NoError(t, err)

	r := gin.New()
	admin := r.Group("/admin", asUser(utils.RoleAdmin, uuid.Nil))
	admin.GET("/payouts", pc.ListPayouts)
	admin.GET("/payouts/events", pc.Events)
	admin.GET("/payouts/:id", pc.GetPayout)
	admin.POST("/payouts/:id/advance", pc.Advance)
	admin.POST("/payouts/:id/cancel", pc.Cancel)
	admin.POST("/payouts/:id/move-back", pc.MoveBack)
	admin.POST("/payouts/:id/notes", pc.AddNote)
	admin.POST("/payouts/:id/disburse", pc.Disburse)
	admin.DELETE("/payouts/:id", pc.DeletePayout)

	seller := r.Group("/seller", asUser(utils.RoleSeller, sellerID))
	seller.GET("/payouts", pc.SellerPayouts)
	seller.POST("/payouts", pc.RequestPayout)
	return r
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListPayouts(t *testing.T) {
	svc := &fakeService{payouts: []payout_models.PayoutRequest{{ID: uuid.New(), Status: payout_models.StatusPaid}}}
	r := newRouter(t, svc, nil)

	w := serve(r, http.MethodGet, "/admin/payouts?status=paid,cancelled&from=2026-01-01&to=2026-01-31&limit=5000", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, []payout_models.Status{payout_models.StatusPaid, payout_models.StatusCancelled}, svc.filter.Statuses)
	assert.Equal(t, maxListLimit, svc.filter.Limit)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), svc.filter.To)

	var body struct {
		Payouts []struct {
			Status         string   `json:"status"`
			AllowedActions []string `json:"allowed_actions"`
		} `json:"payouts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Payouts, 1)
	assert.Equal(t, []string{"moveBack"}, body.Payouts[0].AllowedActions)
}

func TestListPayoutsRejectsBadFilter(t *testing.T) {
	r := newRouter(t, &fakeService{}, nil)

	for _, q := range []string{"status=approved", "seller_id=abc", "from=yesterday", "limit=-1"} {
		w := serve(r, http.MethodGet, "/admin/payouts?"+q, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestAdvancePassesFields(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(t, svc, nil)
	id := uuid.New()

	w := serve(r, http.MethodPost, "/admin/payouts/"+id.String()+"/advance",
		`{"expected_status":"processing","additions":"200","reductions":100,"adjustment_reason":"shipping","note":"ok"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Len(t, svc.transitions, 1)
	call := svc.transitions[0]
	assert.Equal(t, id, call.id)
	assert.Equal(t, payout_models.ActionAdvance, call.action)
	assert.Equal(t, payout_models.StatusProcessing, call.expected)
	assert.True(t, call.tc.Additions.Equal(decimal.NewFromInt(200)))
	assert.True(t, call.tc.Reductions.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "shipping", call.tc.AdjustmentReason)
	assert.Equal(t, adminEmail, call.tc.Actor)
}

func TestAdvanceWithEmptyBody(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(t, svc, nil)

	w := serve(r, http.MethodPost, "/admin/payouts/"+uuid.NewString()+"/advance", "")
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.transitions, 1)
	assert.Equal(t, payout_models.Status(""), svc.transitions[0].expected)
}

func TestCancelAndMoveBack(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(t, svc, nil)
	id := uuid.NewString()

	serve(r, http.MethodPost, "/admin/payouts/"+id+"/cancel", `{"reason":"duplicate"}`)
	serve(r, http.MethodPost, "/admin/payouts/"+id+"/move-back", `{"confirmed":true}`)

	require.Len(t, svc.transitions, 2)
	assert.Equal(t, payout_models.ActionCancel, svc.transitions[0].action)
	assert.Equal(t, "duplicate", svc.transitions[0].tc.CancellationReason)
	assert.Equal(t, payout_models.ActionMoveBack, svc.transitions[1].action)
	assert.True(t, svc.transitions[1].tc.Confirmed)
}

func TestTransitionErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err   error
		code  int
		field string
	}{
		{utils.NewValidationError("transactionId", "approval_pending", "required"), http.StatusBadRequest, "transactionId"},
		{&utils.ConcurrencyConflictError{PayoutID: "p", CurrentStatus: "cancelled"}, http.StatusConflict, ""},
		{utils.ErrPayoutNotFound, http.StatusNotFound, ""},
		{utils.NewPersistenceError("update payout", assert.AnError), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		r := newRouter(t, &fakeService{err: tc.err}, nil)
		w := serve(r, http.MethodPost, "/admin/payouts/"+uuid.NewString()+"/advance", `{}`)
		assert.Equal(t, tc.code, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.NotEmpty(t, body["error"])
		assert.Equal(t, tc.field, body["field"])
	}
}

func TestInvalidPayoutID(t *testing.T) {
	r := newRouter(t, &fakeService{}, nil)
	w := serve(r, http.MethodPost, "/admin/payouts/not-a-uuid/advance", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddNoteRequiresText(t *testing.T) {
	r := newRouter(t, &fakeService{}, nil)
	id := uuid.NewString()

	w := serve(r, http.MethodPost, "/admin/payouts/"+id+"/notes", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodPost, "/admin/payouts/"+id+"/notes", `{"text":"called seller"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), adminEmail)
}

func TestDisburseAndDelete(t *testing.T) {
	r := newRouter(t, &fakeService{}, nil)
	id := uuid.NewString()

	w := serve(r, http.MethodPost, "/admin/payouts/"+id+"/disburse", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "trf_1")

	w = serve(r, http.MethodDelete, "/admin/payouts/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSellerEndpointsScopeToToken(t *testing.T) {
	svc := &fakeService{payouts: []payout_models.PayoutRequest{{ID: uuid.New(), SellerID: sellerID, Status: payout_models.StatusRequested}}}
	r := newRouter(t, svc, nil)

	w := serve(r, http.MethodGet, "/seller/payouts?seller_id="+uuid.NewString(), "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.filter.SellerID)
	assert.Equal(t, sellerID, *svc.filter.SellerID)

	var list struct {
		Payouts []map[string]any `json:"payouts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Payouts, 1)
	assert.Equal(t, []any{}, list.Payouts[0]["allowed_actions"])

	w = serve(r, http.MethodPost, "/seller/payouts", `{"amount":"2500.50","note":"March"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, svc.requested.Equal(decimal.RequireFromString("2500.50")))

	var created struct {
		Payout map[string]any `json:"payout"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "requested", created.Payout["status"])
	assert.Equal(t, []any{}, created.Payout["allowed_actions"])
}

type closedSubscriber struct{ changes []payout_events.PayoutChange }

func (s closedSubscriber) Subscribe(context.Context) (<-chan payout_events.PayoutChange, error) {
	ch := make(chan payout_events.PayoutChange, len(s.changes))
	for _, c := range s.changes {
		ch <- c
	}
	close(ch)
	return ch, nil
}

// closeNotifyRecorder satisfies http.CloseNotifier, which gin's Stream needs.
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyRecorder) CloseNotify() <-chan bool { return r.closed }

func TestEventsStreamsChanges(t *testing.T) {
	id := uuid.New()
	sub := closedSubscriber{changes: []payout_events.PayoutChange{{PayoutID: id, Status: payout_models.StatusPaid}}}
	r := newRouter(t, &fakeService{}, sub)

	w := &closeNotifyRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/payouts/events", nil))

	body := w.Body.String()
	assert.Contains(t, body, "event:payout")
	assert.Contains(t, body, id.String())
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
}

func TestEventsUnavailableWithoutSubscriber(t *testing.T) {
	r := newRouter(t, &fakeService{}, nil)
	w := serve(r, http.MethodGet, "/admin/payouts/events", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
