// Package ner extracts place names from message text.
package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/DeafMist/conflict-radar/backend/internal/processing"
)

// Extractor returns deduplicated place names in order of first appearance.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]string, error)
}

// HTTPExtractor calls an external NER service.
//
// Request:  POST {baseURL}/extract {"text": "..."}
// Response: {"locations": ["Beirut", ...]}
type HTTPExtractor struct {
	baseURL string
	client  *http.Client
}

// NewHTTPExtractor builds a client for the NER service at baseURL.
func NewHTTPExtractor(baseURL string, timeout time.Duration) *HTTPExtractor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &HTTPExtractor{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout, Transport: tr},
	}
}

type extractRequest struct {
	Text string `json:"text"`
}

type extractResponse struct {
	Locations []string `json:"locations"`
}

// Extract implements Extractor.
func (e *HTTPExtractor) Extract(ctx context.Context, text string) ([]string, error) {
	body, err := json.Marshal(extractRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal ner request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ner request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ner request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("ner: http %d", resp.StatusCode)
	}

	var parsed extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode ner response: %w", err)
	}

	trimmed := make([]string, 0, len(parsed.Locations))
	for _, loc := range parsed.Locations {
		trimmed = append(trimmed, strings.TrimSpace(loc))
	}
	return processing.Dedupe(trimmed), nil
}
