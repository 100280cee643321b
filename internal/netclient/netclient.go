package netclient

import (
	"context"
	"time"
)

// ProviderStatusPayload is one provider's entry in the upstream gateway's
// bulk status response.
type ProviderStatusPayload struct {
	Configured          bool       `json:"configured"`
	IsActive            bool       `json:"isActive"`
	Status              string     `json:"status"`
	AverageResponseTime int64      `json:"averageResponseTime"`
	SuccessRate         float64    `json:"successRate"`
	LastActive          *time.Time `json:"lastActive,omitempty"`
	TotalRequests       int64      `json:"totalRequests"`
}

// BulkStatus maps provider id to its reported status payload.
type BulkStatus map[string]ProviderStatusPayload

// TestOutcome is the result of a single-provider verification call.
type TestOutcome struct {
	Success        bool   `json:"success"`
	ResponseTimeMs int64  `json:"responseTime"`
	Error          string `json:"error,omitempty"`
}

// Client reaches the upstream AI gateway. Both calls are plain
// request/response; retry and backoff live behind this interface, never in
// the coordination layer, which calls each endpoint at most once per
// cycle/test and treats any error as a single failure.
type Client interface {
	FetchBulkStatus(ctx context.Context) (BulkStatus, error)
	TestProvider(ctx context.Context, providerID, prompt string) (TestOutcome, error)
}
