package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNoMatch is returned by a Resolver when the query has no result.
var ErrNoMatch = errors.New("geocoder: no match")

// Match is the best single hit of an external lookup.
type Match struct {
	Lat         float64
	Lon         float64
	DisplayName string
	// Importance is nil when the service did not report one.
	Importance *float64
}

// Resolver performs the external lookup. Implementations are not rate limited;
// the Geocoder gates every call.
type Resolver interface {
	Resolve(ctx context.Context, query string) (*Match, error)
}

// ThrottledError reports that the service asked us to slow down.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("nominatim: rate limited, retry after %s", e.RetryAfter)
}

// Nominatim talks to an OpenStreetMap Nominatim instance.
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

type nominatimHit struct {
	Lat         string   `json:"lat"`
	Lon         string   `json:"lon"`
	DisplayName string   `json:"display_name"`
	Importance  *float64 `json:"importance"`
}

// NewNominatim builds a client; an empty baseURL selects the public instance.
func NewNominatim(baseURL, userAgent string, timeout time.Duration) *Nominatim {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 60 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &Nominatim{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout, Transport: tr},
	}
}

// Resolve queries /search and returns the top hit.
func (n *Nominatim) Resolve(ctx context.Context, query string) (*Match, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retry := DefaultBackoff
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			retry = time.Duration(secs) * time.Second
		}
		return nil, &ThrottledError{RetryAfter: retry}
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("nominatim: http %d", resp.StatusCode)
	}

	var hits []nominatimHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return nil, fmt.Errorf("decode nominatim response: %w", err)
	}
	if len(hits) == 0 {
		return nil, ErrNoMatch
	}

	top := hits[0]
	lat, err := strconv.ParseFloat(top.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse lat %q: %w", top.Lat, err)
	}
	lon, err := strconv.ParseFloat(top.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse lon %q: %w", top.Lon, err)
	}

	display := top.DisplayName
	if display == "" {
		display = query
	}
	return &Match{Lat: lat, Lon: lon, DisplayName: display, Importance: top.Importance}, nil
}
