package layout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Source fetches a layout tree for a layout and event.
type Source interface {
	Fetch(ctx context.Context, layoutID, eventID string) (*Layout, error)
}

// StatusSource is a Source that can report seat states without the rest of the tree. The Loader
// caches layouts only for sources that implement it, and refreshes statuses on every cache hit.
type StatusSource interface {
	Source
	SeatStatuses(ctx context.Context, layoutID, eventID string) (map[string]SeatState, error)
}

// Client fetches layouts from the remote layout API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a layout API client. A zero timeout leaves cancellation to the caller's context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Fetch performs GET {base}/layouts/{layoutID}?event_id={eventID}.
func (c *Client) Fetch(ctx context.Context, layoutID, eventID string) (*Layout, error) {
	endpoint := fmt.Sprintf("%s/layouts/%s", c.baseURL, url.PathEscape(layoutID))
	if eventID != "" {
		endpoint += "?event_id=" + url.QueryEscape(eventID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build layout request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			return nil, ErrCancelled
		}
		return nil, &NetworkError{Op: "fetch layout", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrLayoutNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &NetworkError{Op: "fetch layout", Status: resp.StatusCode}
	}

	l, err := Decode(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ErrCancelled
		}
		return nil, &NetworkError{Op: "decode layout", Err: err}
	}
	if l.ID == "" {
		l.ID = layoutID
	}
	if l.EventID == "" {
		l.EventID = eventID
	}
	return l, nil
}
