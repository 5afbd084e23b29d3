package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinylhub/eventsync/internal/domain/common/errorz"
	"github.com/vinylhub/eventsync/internal/domain/dto"
)

type fakeScheduler struct {
	status     dto.NotificationStatus
	pending    []dto.PendingNotification
	pendingErr error
	testTitle  string
}

func (f *fakeScheduler) Status() dto.NotificationStatus { return f.status }

func (f *fakeScheduler) Pending(context.Context) ([]dto.PendingNotification, error) {
	return f.pending, f.pendingErr
}

func (f *fakeScheduler) SendTestNotification(_ context.Context, title, _ string, _ time.Time) {
	f.testTitle = title
}

type fakeCoordinator struct {
	report dto.ReconcileReport
	err    error
	ics    []byte
	events []dto.EventView
}

func (f *fakeCoordinator) Reconcile(context.Context, time.Time) (dto.ReconcileReport, error) {
	return f.report, f.err
}

func (f *fakeCoordinator) ExportCalendar(context.Context, time.Time) ([]byte, error) {
	return f.ics, f.err
}

func (f *fakeCoordinator) ListUpcoming(context.Context, time.Time) ([]dto.EventView, error) {
	return f.events, f.err
}

func serve(h *Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := NewHandler(&fakeScheduler{}, &fakeCoordinator{}, nil)
	rec := serve(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStatusAndPending(t *testing.T) {
	s := &fakeScheduler{
		status:  dto.NotificationStatus{Scheduled: 2, Failures: 1, LastError: "notification backend: schedule 9: denied"},
		pending: []dto.PendingNotification{{Key: "5", Title: "Listening party"}},
	}
	h := NewHandler(s, &fakeCoordinator{}, nil)

	rec := serve(h, http.MethodGet, "/notifications/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status dto.NotificationStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, int64(1), status.Failures)
	assert.Contains(t, status.LastError, "denied")

	rec = serve(h, http.MethodGet, "/notifications/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var pending []dto.PendingNotification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, "5", pending[0].Key)

	s.pendingErr = fmt.Errorf("list: %w", errorz.ErrNotFound)
	rec = serve(h, http.MethodGet, "/notifications/pending", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReconcile(t *testing.T) {
	c := &fakeCoordinator{report: dto.ReconcileReport{RunID: "run-1", Scheduled: 2, TargetKeys: []string{"5", "9"}}}
	h := NewHandler(&fakeScheduler{}, c, nil)

	rec := serve(h, http.MethodPost, "/notifications/reconcile", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var report dto.ReconcileReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, []string{"5", "9"}, report.TargetKeys)

	c.err = fmt.Errorf("%w: 1 backend calls failed", errorz.ErrReconcileFailed)
	rec = serve(h, http.MethodPost, "/notifications/reconcile", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), `"run_id":"run-1"`)
	assert.Contains(t, rec.Body.String(), "backend calls failed")

	c.err = errorz.ErrUnauthenticated
	rec = serve(h, http.MethodPost, "/notifications/reconcile", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSendTest(t *testing.T) {
	s := &fakeScheduler{}
	h := NewHandler(s, &fakeCoordinator{}, nil)

	rec := serve(h, http.MethodPost, "/notifications/test", `{"title":"ping"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "ping", s.testTitle)

	rec = serve(h, http.MethodPost, "/notifications/test", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalendar(t *testing.T) {
	h := NewHandler(&fakeScheduler{}, &fakeCoordinator{ics: []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n")}, nil)

	rec := serve(h, http.MethodGet, "/calendar.ics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")
}

func TestUpcoming(t *testing.T) {
	c := &fakeCoordinator{events: []dto.EventView{{IsSubscribed: true}}}
	c.events[0].ID = 5
	c.events[0].Title = "Listening party"
	h := NewHandler(&fakeScheduler{}, c, nil)

	rec := serve(h, http.MethodGet, "/events/upcoming", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []dto.EventView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "Listening party", events[0].Title)
	assert.True(t, events[0].IsSubscribed)
}
