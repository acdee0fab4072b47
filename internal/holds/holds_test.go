package holds

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"seatchart/internal/shared/constants"
)

type fakeLocker struct {
	holds   map[string]*Hold
	reject  string
	lastReq LockRequest
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{holds: map[string]*Hold{}}
}

func (f *fakeLocker) Lock(_ context.Context, req LockRequest) (*Hold, error) {
	f.lastReq = req
	if f.reject != "" {
		return nil, &LockRejectedError{Reason: f.reject}
	}
	h := &Hold{ID: "h1", EventID: req.EventID, UserID: req.UserID, SeatIDs: req.SeatIDs}
	f.holds[h.ID] = h
	return h, nil
}

func (f *fakeLocker) Get(_ context.Context, holdID string) (*Hold, error) {
	h, ok := f.holds[holdID]
	if !ok {
		return nil, ErrHoldNotFound
	}
	return h, nil
}

func (f *fakeLocker) Release(_ context.Context, holdID string) (int, error) {
	h, ok := f.holds[holdID]
	if !ok {
		return 0, ErrHoldNotFound
	}
	delete(f.holds, holdID)
	return len(h.SeatIDs), nil
}

func (f *fakeLocker) Extend(_ context.Context, holdID string, by time.Duration) (*Hold, error) {
	h, ok := f.holds[holdID]
	if !ok {
		return nil, ErrHoldNotFound
	}
	h.ExpiresAt = h.ExpiresAt.Add(by)
	return h, nil
}

func (f *fakeLocker) Held(_ context.Context, eventID string, seatIDs []string) (map[string]string, error) {
	held := map[string]string{}
	for _, h := range f.holds {
		if h.EventID != eventID {
			continue
		}
		for _, id := range h.SeatIDs {
			held[id] = h.UserID
		}
	}
	return held, nil
}

func newTestRouter(locker Locker, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	registerRoutes(r.Group("/api/v1"), NewController(locker))
	return r
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestController_CreateHold(t *testing.T) {
	locker := newFakeLocker()
	r := newTestRouter(locker, "u1")

	w := doJSON(r, http.MethodPost, "/api/v1/holds", map[string]interface{}{
		"event_id": "e1",
		"seat_ids": []string{"A1", "A2"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	if got := locker.lastReq.UserID; got != "u1" {
		t.Errorf("got user %q, want the authenticated user u1", got)
	}
}

func TestController_CreateHoldRejected(t *testing.T) {
	locker := newFakeLocker()
	locker.reject = "seat A1 is already held"
	r := newTestRouter(locker, "u1")

	w := doJSON(r, http.MethodPost, "/api/v1/holds", map[string]interface{}{
		"event_id": "e1",
		"seat_ids": []string{"A1"},
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusConflict)
	}
	var body struct {
		Errors string `json:"errors"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Errors != "seat A1 is already held" {
		t.Errorf("got errors %q, want the rejection verbatim", body.Errors)
	}
}

func TestController_CreateHoldInvalid(t *testing.T) {
	r := newTestRouter(newFakeLocker(), "u1")
	w := doJSON(r, http.MethodPost, "/api/v1/holds", map[string]interface{}{"event_id": "e1"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestController_GetAndRelease(t *testing.T) {
	locker := newFakeLocker()
	locker.holds["h9"] = &Hold{ID: "h9", EventID: "e1", UserID: "u1", SeatIDs: []string{"B1"}}
	r := newTestRouter(locker, "u1")

	if w := doJSON(r, http.MethodGet, "/api/v1/holds/h9", nil); w.Code != http.StatusOK {
		t.Errorf("get: got status %d, want %d", w.Code, http.StatusOK)
	}
	if w := doJSON(r, http.MethodDelete, "/api/v1/holds/h9", nil); w.Code != http.StatusOK {
		t.Errorf("delete: got status %d, want %d", w.Code, http.StatusOK)
	}
	if w := doJSON(r, http.MethodGet, "/api/v1/holds/h9", nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete: got status %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestController_ReleaseOtherUsersHold(t *testing.T) {
	locker := newFakeLocker()
	locker.holds["h9"] = &Hold{ID: "h9", EventID: "e1", UserID: "u2", SeatIDs: []string{"B1"}}
	r := newTestRouter(locker, "u1")

	if w := doJSON(r, http.MethodDelete, "/api/v1/holds/h9", nil); w.Code != http.StatusForbidden {
		t.Errorf("got status %d, want %d", w.Code, http.StatusForbidden)
	}
	if _, ok := locker.holds["h9"]; !ok {
		t.Error("hold should survive a release by another user")
	}
}

func TestParseScriptResult(t *testing.T) {
	tests := []struct {
		name    string
		in      interface{}
		wantOK  bool
		wantErr bool
	}{
		{"success", []interface{}{int64(1), "1700000000"}, true, false},
		{"rejected", []interface{}{int64(0), "seat A1 is already held"}, false, false},
		{"short", []interface{}{int64(1)}, false, true},
		{"bad flag", []interface{}{"1", "x"}, false, true},
		{"not array", "OK", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, _, err := parseScriptResult(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("got err %v, wantErr %v", err, tt.wantErr)
			}
			if ok != tt.wantOK {
				t.Errorf("got ok %v, want %v", ok, tt.wantOK)
			}
		})
	}
}

func TestHoldKeys(t *testing.T) {
	keys := holdKeys("h1", "e1", "u1", []string{"A1", "A2"})
	want := []string{
		constants.BuildHoldMetaKey("h1"),
		constants.BuildHoldSeatsKey("h1"),
		constants.BuildUserHoldsKey("u1"),
		constants.BuildSeatHoldKey("e1", "A1"),
		constants.BuildSeatHoldKey("e1", "A2"),
	}
	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want %d", len(keys), len(want))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key %d: got %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestParseSeatHold(t *testing.T) {
	tests := []struct {
		in       string
		wantUser string
		wantHold string
		wantOK   bool
	}{
		{seatHoldValue("u1", "h1"), "u1", "h1", true},
		{"auth0|abc:def:h2", "auth0|abc:def", "h2", true},
		{"h3", "", "", false},
		{"u1:", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		user, hold, ok := parseSeatHold(tt.in)
		if ok != tt.wantOK || user != tt.wantUser || hold != tt.wantHold {
			t.Errorf("parseSeatHold(%q): got %q, %q, %v, want %q, %q, %v", tt.in, user, hold, ok, tt.wantUser, tt.wantHold, tt.wantOK)
		}
	}
}

func TestDedupe(t *testing.T) {
	got := dedupe([]string{"A1", "", "A2", "A1"})
	if len(got) != 2 || got[0] != "A1" || got[1] != "A2" {
		t.Errorf("got %v, want [A1 A2]", got)
	}
}

func TestRedisLocker_NoClient(t *testing.T) {
	l := NewRedisLocker(nil, nil, 0)
	if _, err := l.Lock(context.Background(), LockRequest{EventID: "e1", UserID: "u1", SeatIDs: []string{"A1"}}); !errors.Is(err, ErrRedisUnavailable) {
		t.Errorf("got %v, want ErrRedisUnavailable", err)
	}
	if _, err := l.Held(context.Background(), "e1", []string{"A1"}); !errors.Is(err, ErrRedisUnavailable) {
		t.Errorf("got %v, want ErrRedisUnavailable", err)
	}
	if l.ttl != constants.TTL_SEAT_HOLD {
		t.Errorf("got ttl %v, want %v", l.ttl, constants.TTL_SEAT_HOLD)
	}
}

func TestHold_Remaining(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h := &Hold{ExpiresAt: now.Add(90 * time.Second)}
	if got := h.Remaining(now); got != 90*time.Second {
		t.Errorf("got %v, want 90s", got)
	}
	if got := h.Remaining(now.Add(time.Hour)); got != 0 {
		t.Errorf("got %v, want 0", got)
	}
}
