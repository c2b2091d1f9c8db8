package handler

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcheckin/internal/attendance"
	"eventcheckin/internal/auth"
	"eventcheckin/internal/importer"
)

var now = time.Date(2024, 3, 1, 10, 0, 10, 0, time.UTC)

type api struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := attendance.NewInMemory()
	svc := attendance.NewService(store, attendance.WithClock(func() time.Time { return now }))
	signer := auth.NewSigner("eventcheckin", "test-key", time.Hour)
	h := New(Deps{
		Service:  svc,
		Accounts: auth.NewAccounts(auth.NewInMemory(), signer),
		Signer:   signer,
		Importer: importer.New(store, nil),
		Checks:   map[string]HealthCheck{"db": store.Ping},
	})
	r := gin.New()
	h.Routes(r)

	a := &api{t: t, router: r}
	a.token = a.signup("ada@example.com")
	return a
}

func (a *api) signup(email string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/v1/auth/register", map[string]string{"name": "Ada", "email": email, "password": "correct horse"}, "")
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Token
}

func (a *api) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *api) authed(method, path string, body any) *httptest.ResponseRecorder {
	return a.do(method, path, body, a.token)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (a *api) createEvent() attendance.Event {
	a.t.Helper()
	w := a.authed(http.MethodPost, "/v1/events", map[string]any{
		"name": "Hack Days", "start_date": "2024-03-01", "end_date": "2024-03-02",
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[attendance.Event](a.t, w)
}

func (a *api) register(eventID, email, phone string) attendance.Participant {
	a.t.Helper()
	w := a.authed(http.MethodPost, "/v1/events/"+eventID+"/participants", map[string]string{
		"name": "Alice", "email": email, "phone": phone, "college": "MIT",
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[attendance.Participant](a.t, w)
}

func (a *api) color(eventID string) string {
	a.t.Helper()
	w := a.authed(http.MethodGet, "/v1/events/"+eventID+"/color", nil)
	require.Equal(a.t, http.StatusOK, w.Code)
	return decode[struct {
		Color string `json:"color"`
	}](a.t, w).Color
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func TestAuthRequired(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodGet, "/v1/events", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = a.do(http.MethodGet, "/v1/events", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignupAndLogin(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodPost, "/v1/auth/register", map[string]string{"name": "Ada", "email": "ada@example.com", "password": "correct horse"}, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(http.MethodPost, "/v1/auth/register", map[string]string{"name": "Bo", "email": "bo@example.com", "password": "short"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": "ada@example.com", "password": "correct horse"}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": "ada@example.com", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEventsAreScopedToOrganizer(t *testing.T) {
	a := newAPI(t)
	evt := a.createEvent()
	assert.Equal(t, attendance.Palette{"red", "green", "blue"}, evt.Palette)

	w := a.authed(http.MethodGet, "/v1/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[struct {
		Events []attendance.Event `json:"events"`
	}](t, w).Events, 1)

	other := a.signup("eve@example.com")
	w = a.do(http.MethodGet, "/v1/events/"+evt.ID, nil, other)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = a.do(http.MethodPost, "/v1/events/"+evt.ID+"/confirm", map[string]string{"participant_id": "x", "kind": "checkin"}, other)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.authed(http.MethodPost, "/v1/events", map[string]any{"name": "Bad", "start_date": "2024-03-02", "end_date": "2024-03-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = a.authed(http.MethodPost, "/v1/events", map[string]any{"name": "Bad", "start_date": "March 1st"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScanConfirmFlow(t *testing.T) {
	a := newAPI(t)
	evt := a.createEvent()
	p := a.register(evt.ID, "alice@example.com", "9876543210")
	base := "/v1/events/" + evt.ID
	color := a.color(evt.ID)

	// Lunch before check-in.
	w := a.authed(http.MethodPost, base+"/scan", map[string]string{"secret": p.Secret, "color": color, "kind": "lunch"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(attendance.ReasonPrecondition), decode[errorBody](t, w).Error)

	// Wrong color.
	w = a.authed(http.MethodPost, base+"/scan", map[string]string{"secret": p.Secret, "color": "purple", "kind": "checkin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(attendance.ReasonColorMismatch), decode[errorBody](t, w).Error)

	// Unknown secret.
	w = a.authed(http.MethodPost, base+"/scan", map[string]string{"secret": "nope", "color": color, "kind": "checkin"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Outside the event.
	w = a.authed(http.MethodPost, base+"/scan", map[string]string{"secret": p.Secret, "color": color, "kind": "checkin", "day": "2024-03-05"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(attendance.ReasonEventNotActive), decode[errorBody](t, w).Error)

	w = a.authed(http.MethodPost, base+"/scan", map[string]string{"secret": p.Secret, "color": color, "kind": "checkin"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	v := decode[attendance.Verification](t, w)
	assert.Equal(t, p.ID, v.Participant.ID)

	confirm := map[string]string{"participant_id": p.ID, "kind": "checkin", "color": color}
	w = a.authed(http.MethodPost, base+"/confirm", confirm)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.authed(http.MethodPost, base+"/confirm", confirm)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(attendance.ReasonAlreadyDone), decode[errorBody](t, w).Error)

	w = a.authed(http.MethodPost, base+"/confirm", map[string]string{"participant_id": p.ID, "kind": "lunch", "day": "2024-03-01", "color": "purple"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(attendance.ReasonColorMismatch), decode[errorBody](t, w).Error)

	w = a.authed(http.MethodPost, base+"/confirm", map[string]string{"participant_id": p.ID, "kind": "lunch", "day": "2024-03-01", "color": color})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.authed(http.MethodGet, base+"/participants/"+p.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[attendance.Participant](t, w)
	require.Len(t, got.Activities, 1)
	assert.True(t, got.Activities[0].GotLunch)

	w = a.authed(http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[attendance.EventDetail](t, w)
	assert.Equal(t, attendance.EventStats{TotalParticipants: 1, CheckedInParticipants: 1}, detail.Stats)

	w = a.authed(http.MethodGet, base+"/stats/daily", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[struct {
		Stats []attendance.DayStats `json:"stats"`
	}](t, w).Stats
	require.Len(t, stats, 2)
	assert.Equal(t, 1, stats[0].LunchCollected)
}

func TestDuplicateRegistration(t *testing.T) {
	a := newAPI(t)
	evt := a.createEvent()
	a.register(evt.ID, "alice@example.com", "9876543210")

	w := a.authed(http.MethodPost, "/v1/events/"+evt.ID+"/participants", map[string]string{
		"name": "Alice", "email": "ALICE@example.com", "phone": "1", "college": "MIT",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.authed(http.MethodPost, "/v1/events/"+evt.ID+"/participants", map[string]string{"name": "NoCollege", "email": "n@example.com", "phone": "2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportAndExport(t *testing.T) {
	a := newAPI(t)
	evt := a.createEvent()
	base := "/v1/events/" + evt.ID

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "people.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("Name,Email,Phone,College\n" +
		"Alice,alice@example.com,111,MIT\n" +
		"Alice2,ALICE@example.com,222,MIT\n" +
		"Bob,bob@example.com,333,\n" +
		"Carol,carol@example.com,444,UCLA\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, base+"/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+a.token)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rep := decode[importer.Report](t, w)
	assert.Equal(t, 4, rep.Processed)
	assert.Equal(t, 2, rep.Inserted)
	assert.Len(t, rep.Duplicates, 1)
	assert.Len(t, rep.Invalid, 1)

	w = a.authed(http.MethodPost, base+"/import", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.authed(http.MethodGet, base+"/export?checked_in=true", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.authed(http.MethodGet, base+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Hack_Days-participants-2024-03-01.csv")
	recs, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, recs, 3)
	assert.Equal(t, "Check-in Status", recs[0][6])
}

func TestHealthz(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	gin.SetMode(gin.TestMode)
	h := New(Deps{Checks: map[string]HealthCheck{"redis": func(context.Context) error { return errors.New("down") }}})
	r := gin.New()
	r.GET("/healthz", h.Healthz)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
