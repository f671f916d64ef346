package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"checkout-engine/internal/model"
)

// statusClient queries the public check-status endpoint of a running server.
type statusClient struct {
	baseURL string
	http    *http.Client
}

func newStatusClient(baseURL string, httpClient *http.Client) *statusClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &statusClient{baseURL: strings.TrimSuffix(baseURL, "/"), http: httpClient}
}

// CheckStatus fetches the payment status for orderKey. A 410 maps to
// model.ErrInvalidOrderKey so pollers stop.
func (c *statusClient) CheckStatus(ctx context.Context, orderKey string) (model.OrderStatus, error) {
	endpoint := c.baseURL + "/orders/check-status?orderKey=" + url.QueryEscape(orderKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.OrderStatus{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.OrderStatus{}, fmt.Errorf("failed to call check-status: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusGone:
		return model.OrderStatus{}, model.ErrInvalidOrderKey
	default:
		var errResp model.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return model.OrderStatus{}, fmt.Errorf("check-status returned %d: %s", resp.StatusCode, errResp.Error)
	}

	var status model.OrderStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return model.OrderStatus{}, fmt.Errorf("failed to decode status: %w", err)
	}
	return status, nil
}
