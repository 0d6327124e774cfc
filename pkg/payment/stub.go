package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// StubProvider approves every charge without talking to a gateway. Used in
// development when no gateway keys are configured, and in tests.
type StubProvider struct {
	mu      sync.Mutex
	charges map[string]int64
}

func NewStubProvider() *StubProvider {
	return &StubProvider{charges: make(map[string]int64)}
}

func (p *StubProvider) CreateCharge(_ context.Context, in ChargeInput) (*ChargeResult, error) {
	id := "stub_" + uuid.NewString()
	p.mu.Lock()
	p.charges[id] = in.Amount
	p.mu.Unlock()
	return &ChargeResult{IntentID: id, Status: ChargeStatusPaid}, nil
}

func (p *StubProvider) Refund(_ context.Context, intentID string, amount int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.charges[intentID] -= amount
	return nil
}
