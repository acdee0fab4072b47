package layout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"seatchart/internal/geometry"
	"seatchart/pkg/cache"
)

const samplePayload = `{
  "id": "l1",
  "event_id": "e1",
  "stage": {"x": "0", "y": 0, "width": "400", "height": 40, "shape": "CURVED"},
  "ticket_categories": [{"id": "gold", "name": "Gold", "price": "500.50", "limit": "4"}],
  "sections": [{
    "id": "s1", "name": "Stalls", "x": "0", "y": "60",
    "rows": [
      {"id": "r1", "title": "A", "seats": [
        {"id": "A1", "number": "1", "ticket_id": "gold"},
        {"id": "A2", "number": 2, "x": "50", "y": "10", "radius": "0", "status": "SOLD",
         "ticket": {"id": "silver", "name": "Silver", "price": 250}}
      ]},
      {"title": "B", "seats": [{"id": "B1", "number": "1", "status": "space"}]}
    ]
  }]
}`

func TestDecode(t *testing.T) {
	l, err := Decode(strings.NewReader(samplePayload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if l.Stage.Shape != StageCurved || l.Stage.Width != 400 {
		t.Errorf("got stage %+v, want curved 400 wide", l.Stage)
	}

	_, row, a1, ok := l.Seat("A1")
	if !ok {
		t.Fatal("seat A1 not indexed")
	}
	if a1.X != 10 || a1.Y != 10 || a1.Radius != DefaultSeatRadius {
		t.Errorf("got A1 at (%v,%v) r=%v, want (10,10) r=10", a1.X, a1.Y, a1.Radius)
	}
	if a1.Category == nil || a1.Category.Price != 500.5 || a1.Category.Limit != 4 {
		t.Errorf("got A1 category %+v, want gold 500.5 limit 4", a1.Category)
	}
	if got := row.Label(a1); got != "A1" {
		t.Errorf("got label %q, want A1", got)
	}

	_, _, a2, _ := l.Seat("A2")
	if a2.Status != StatusBooked || a2.Radius != DefaultSeatRadius || a2.X != 50 {
		t.Errorf("got A2 %+v, want booked at x=50 with default radius", a2)
	}
	if a2.Category == nil || a2.Category.ID != "silver" || a2.Category.Price != 250 {
		t.Errorf("got A2 category %+v, want inline silver", a2.Category)
	}

	sec, rowB, b1, _ := l.Seat("B1")
	if !b1.IsBlank() || b1.Y != 40 {
		t.Errorf("got B1 %+v, want blank at y=40", b1)
	}
	if rowB.ID != "s1-1" {
		t.Errorf("got generated row id %q, want s1-1", rowB.ID)
	}
	if sec.Width != 60 || sec.Height != 50 {
		t.Errorf("got section %vx%v, want 60x50 derived from seats", sec.Width, sec.Height)
	}

	if got := l.SeatCount(); got != 2 {
		t.Errorf("got %d seats, want 2", got)
	}
	want := geometry.Rect{X: 0, Y: 0, Width: 400, Height: 110}
	if got := l.Bounds(); got != want {
		t.Errorf("got bounds %+v, want %+v", got, want)
	}
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := Decode(strings.NewReader(`{"sections": [`)); err == nil {
		t.Error("expected an error for truncated JSON")
	}
}

func TestLayout_CloneIsIndependent(t *testing.T) {
	l, _ := Decode(strings.NewReader(samplePayload))
	c := l.Clone()
	_, _, seat, _ := c.Seat("A1")
	seat.Status = StatusHold

	_, _, orig, _ := l.Seat("A1")
	if orig.Status != StatusAvailable {
		t.Errorf("got original status %q, want available", orig.Status)
	}
	if c.Signature() != l.Signature() {
		t.Error("clone should share the content signature")
	}
}

func TestLayout_Focus(t *testing.T) {
	l, _ := Decode(strings.NewReader(samplePayload))
	p, ok := l.Focus("s1", "A")
	if !ok {
		t.Fatal("section s1 not found")
	}
	// Centroid of A1 (10,70) and A2 (50,70).
	if p.X != 30 || p.Y != 70 {
		t.Errorf("got %+v, want (30,70)", p)
	}
	if _, ok := l.Focus("missing", ""); ok {
		t.Error("unknown section should not resolve")
	}
}

func TestLayoutRecord_ToLayout(t *testing.T) {
	catID := uuid.New()
	seat := SeatRecord{
		ID:               uuid.New(),
		Number:           "1",
		X:                10,
		Y:                10,
		Status:           "hold",
		HeldBy:           "s9",
		TicketCategoryID: &catID,
	}
	row := RowRecord{ID: uuid.New(), Title: "A", Seats: []SeatRecord{seat}}
	section := SectionRecord{ID: uuid.New(), Name: "Main", Width: 100, Height: 50, Rows: []RowRecord{row}}
	rec := &LayoutRecord{
		ID:          uuid.New(),
		EventID:     uuid.New(),
		Name:        "Hall",
		StageWidth:  300,
		StageHeight: 30,
		Categories:  []TicketCategoryRecord{{ID: catID, Name: "Gold", Price: 99.99, SelectionLimit: 2}},
		Sections:    []SectionRecord{section},
	}

	l := rec.toLayout()
	_, _, got, ok := l.Seat(seat.ID.String())
	if !ok {
		t.Fatal("seat not indexed")
	}
	if got.Status != StatusHold || got.HeldBy != "s9" || got.Radius != DefaultSeatRadius {
		t.Errorf("got seat %+v, want held by s9 with default radius", got)
	}
	if got.Category == nil || got.Category.Limit != 2 {
		t.Errorf("got category %+v, want limit 2", got.Category)
	}
}

func TestClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/layouts/l1":
			if got := r.URL.Query().Get("event_id"); got != "e1" {
				t.Errorf("got event_id %q, want e1", got)
			}
			_, _ = w.Write([]byte(samplePayload))
		case "/layouts/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)

	l, err := c.Fetch(context.Background(), "l1", "e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := l.SeatCount(); got != 2 {
		t.Errorf("got %d seats, want 2", got)
	}

	if _, err := c.Fetch(context.Background(), "missing", "e1"); !errors.Is(err, ErrLayoutNotFound) {
		t.Errorf("got %v, want ErrLayoutNotFound", err)
	}

	var netErr *NetworkError
	if _, err := c.Fetch(context.Background(), "boom", ""); !errors.As(err, &netErr) || netErr.Status != http.StatusInternalServerError {
		t.Errorf("got %v, want a NetworkError with status 500", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Fetch(ctx, "l1", "e1"); !IsCancelled(err) {
		t.Errorf("got %v, want ErrCancelled", err)
	}
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache { return &memoryCache{items: map[string][]byte{}} }

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.items[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items[key] = b
	m.mu.Unlock()
	return nil
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

func (m *memoryCache) DeletePattern(_ context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			delete(m.items, k)
		}
	}
	return nil
}

type countingSource struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	block   bool
}

func (s *countingSource) Fetch(ctx context.Context, layoutID, eventID string) (*Layout, error) {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()

	if s.block && first {
		close(s.started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return Decode(strings.NewReader(samplePayload))
}

// liveSource also reports seat statuses, which makes its layouts cacheable.
type liveSource struct {
	countingSource
	statusCalls int
	states      map[string]SeatState
}

func (s *liveSource) SeatStatuses(_ context.Context, _, _ string) (map[string]SeatState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusCalls++
	out := make(map[string]SeatState, len(s.states))
	for id, st := range s.states {
		out[id] = st
	}
	return out, nil
}

func (s *liveSource) set(seatID string, st SeatState) {
	s.mu.Lock()
	if s.states == nil {
		s.states = map[string]SeatState{}
	}
	s.states[seatID] = st
	s.mu.Unlock()
}

func TestLoader_CachesLayouts(t *testing.T) {
	src := &liveSource{}
	mc := newMemoryCache()
	loader := NewLoader(src, mc, time.Hour)

	for i := 0; i < 2; i++ {
		l, err := loader.Load(context.Background(), Request{LayoutID: "l1", EventID: "e1"})
		if err != nil {
			t.Fatalf("load %d: unexpected error: %v", i, err)
		}
		if _, _, seat, ok := l.Seat("A1"); !ok || seat.Category == nil {
			t.Fatalf("load %d: seat A1 missing its category", i)
		}
	}
	if src.calls != 1 {
		t.Errorf("got %d source calls, want 1", src.calls)
	}

	if err := loader.Invalidate(context.Background(), "l1", "e1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _ = loader.Load(context.Background(), Request{LayoutID: "l1", EventID: "e1"})
	if src.calls != 2 {
		t.Errorf("got %d source calls after invalidate, want 2", src.calls)
	}

	_, _ = loader.Load(context.Background(), Request{LayoutID: "l1", EventID: "e2"})
	if err := loader.Invalidate(context.Background(), "l1", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(mc.items); n != 0 {
		t.Errorf("got %d cached layouts after invalidating every event, want 0", n)
	}
}

func TestLoader_RefreshesCachedStatuses(t *testing.T) {
	src := &liveSource{}
	loader := NewLoader(src, newMemoryCache(), time.Hour)
	req := Request{LayoutID: "l1", EventID: "e1"}

	first, err := loader.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, seat, _ := first.Seat("A1"); seat.Status != StatusAvailable {
		t.Fatalf("got %s, want available on first load", seat.Status)
	}

	src.set("A1", SeatState{Status: StatusBooked})
	src.set("A2", SeatState{Status: StatusHold, HeldBy: "sess-9"})
	src.set("B1", SeatState{Status: StatusAvailable})

	second, err := loader.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.calls != 1 {
		t.Errorf("got %d tree fetches, want 1", src.calls)
	}
	if src.statusCalls != 1 {
		t.Errorf("got %d status reads, want 1", src.statusCalls)
	}

	tests := []struct {
		seat   string
		status SeatStatus
		heldBy string
	}{
		{"A1", StatusBooked, ""},
		{"A2", StatusHold, "sess-9"},
		{"B1", StatusBlank, ""},
	}
	for _, tt := range tests {
		_, _, seat, ok := second.Seat(tt.seat)
		if !ok {
			t.Fatalf("seat %s missing", tt.seat)
		}
		if seat.Status != tt.status || seat.HeldBy != tt.heldBy {
			t.Errorf("%s: got %s/%q, want %s/%q", tt.seat, seat.Status, seat.HeldBy, tt.status, tt.heldBy)
		}
	}
}

func TestLoader_PlainSourceIsNotCached(t *testing.T) {
	src := &countingSource{}
	mc := newMemoryCache()
	loader := NewLoader(src, mc, time.Hour)

	for i := 0; i < 2; i++ {
		if _, err := loader.Load(context.Background(), Request{LayoutID: "l1", EventID: "e1"}); err != nil {
			t.Fatalf("load %d: unexpected error: %v", i, err)
		}
	}
	if src.calls != 2 {
		t.Errorf("got %d source calls, want 2", src.calls)
	}
	if n := len(mc.items); n != 0 {
		t.Errorf("got %d cached layouts, want 0", n)
	}
}

func TestLayout_GeometryHash(t *testing.T) {
	base, _ := Decode(strings.NewReader(samplePayload))

	restatused := base.Clone()
	restatused.ApplyStatuses(map[string]SeatState{"A1": {Status: StatusBooked}})
	if base.GeometryHash() != restatused.GeometryHash() {
		t.Error("a status change altered the geometry hash")
	}

	moved := base.Clone()
	_, _, seat, _ := moved.Seat("A1")
	seat.X = 300
	if base.Signature() != moved.Signature() {
		t.Fatalf("moving a seat inside its section changed the signature")
	}
	if base.GeometryHash() == moved.GeometryHash() {
		t.Error("moving a seat left the geometry hash unchanged")
	}

	resized := base.Clone()
	_, _, seat, _ = resized.Seat("A2")
	seat.Radius = 20
	if base.GeometryHash() == resized.GeometryHash() {
		t.Error("resizing a seat left the geometry hash unchanged")
	}
}

func TestLayout_SeatIDs(t *testing.T) {
	l, _ := Decode(strings.NewReader(samplePayload))
	got := l.SeatIDs()
	if len(got) != 2 || got[0] != "A1" || got[1] != "A2" {
		t.Errorf("got %v, want [A1 A2]", got)
	}
}

func TestLoader_SupersedesSameOwner(t *testing.T) {
	src := &countingSource{block: true, started: make(chan struct{})}
	loader := NewLoader(src, nil, time.Hour)

	firstErr := make(chan error, 1)
	go func() {
		_, err := loader.Load(context.Background(), Request{LayoutID: "l1", EventID: "e1", Owner: "tab-1"})
		firstErr <- err
	}()
	<-src.started

	l, err := loader.Load(context.Background(), Request{LayoutID: "l1", EventID: "e1", Owner: "tab-1"})
	if err != nil {
		t.Fatalf("second load: unexpected error: %v", err)
	}
	if l == nil {
		t.Fatal("second load returned no layout")
	}

	select {
	case err := <-firstErr:
		if !IsCancelled(err) {
			t.Errorf("got %v, want ErrCancelled for the superseded load", err)
		}
	case <-time.After(time.Second):
		t.Fatal("superseded load never returned")
	}
}
