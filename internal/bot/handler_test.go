package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type mockService struct {
	takeoverPeer string
	takeoverDur  time.Duration
	released     string
	sent         []string
}

func (m *mockService) HandleEnvelope(_ context.Context, _ string, _ Envelope) error { return nil }

func (m *mockService) Takeover(_ context.Context, _ string, peer string, d time.Duration) (time.Time, error) {
	m.takeoverPeer = peer
	m.takeoverDur = d
	return time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC), nil
}

func (m *mockService) Release(_ context.Context, _ string, peer string) error {
	m.released = peer
	return nil
}

func (m *mockService) AdminSend(_ context.Context, _ string, peer string, text string) error {
	m.sent = append(m.sent, peer+": "+text)
	return nil
}

func newTestRouter(svc Service, repo Repo) http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(svc, repo))
	return r
}

func TestHandlerTakeover(t *testing.T) {
	svc := &mockService{}
	router := newTestRouter(svc, &mockRepo{})

	req := httptest.NewRequest(http.MethodPost,
		"/api/clients/lattafa/conversations/212612345678/takeover",
		strings.NewReader(`{"timeout": 15}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "212612345678", svc.takeoverPeer)
	require.Equal(t, 15*time.Minute, svc.takeoverDur)
	require.Contains(t, rec.Body.String(), "blocked_until")
}

func TestHandlerRelease(t *testing.T) {
	svc := &mockService{}
	router := newTestRouter(svc, &mockRepo{})

	req := httptest.NewRequest(http.MethodPost,
		"/api/clients/lattafa/conversations/212612345678/release", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "212612345678", svc.released)
}

func TestHandlerSendValidation(t *testing.T) {
	svc := &mockService{}
	router := newTestRouter(svc, &mockRepo{})

	req := httptest.NewRequest(http.MethodPost, "/api/clients/lattafa/send",
		strings.NewReader(`{"phone": ""}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, svc.sent)
}

func TestHandlerUpdateOrderRejectsUnknownStatus(t *testing.T) {
	router := newTestRouter(&mockService{}, &mockRepo{})

	req := httptest.NewRequest(http.MethodPut, "/api/clients/lattafa/leads/ord-1",
		strings.NewReader(`{"status": "teleported"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerGetOrderNotFound(t *testing.T) {
	router := newTestRouter(&mockService{}, &mockRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/clients/lattafa/leads/ord-404", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerListOrders(t *testing.T) {
	repo := &mockRepo{orders: []Order{{ID: "ord-1", Status: OrderStatusNew}}}
	router := newTestRouter(&mockService{}, repo)

	req := httptest.NewRequest(http.MethodGet, "/api/clients/lattafa/leads", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ord-1")

	req = httptest.NewRequest(http.MethodGet, "/api/clients/lattafa/leads?status=teleported", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
