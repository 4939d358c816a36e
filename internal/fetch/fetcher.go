package fetch

import (
	"context"
	"sync"

	"filingsync/internal/periods"
)

// Request names one period to retrieve for one entity.
type Request struct {
	RUT    string
	Name   string
	Period periods.Period
	// Dest is the period directory the artifact must land in.
	Dest string
}

// Result reports what a fetch produced.
type Result struct {
	Files int
}

// Fetcher retrieves a single period.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (Result, error)
}

// Func adapts a function to the Fetcher interface.
type Func func(ctx context.Context, req Request) (Result, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// Plan records requests without touching the filesystem.
type Plan struct {
	mu       sync.Mutex
	requests []Request
}

// NewPlan returns an empty dry-run fetcher.
func NewPlan() *Plan {
	return &Plan{}
}

// Fetch records req and reports no files.
func (p *Plan) Fetch(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	return Result{}, nil
}

// Requests returns the recorded requests in arrival order.
func (p *Plan) Requests() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Request(nil), p.requests...)
}
