package notification

import (
	"context"
	"log/slog"
	"sync"
)

// Delivery records one Deliver call made against the mock.
type Delivery struct {
	Address         string
	VerificationURL string
}

// MockGateway is a Gateway for tests and local development. It records
// deliveries and can be told to fail.
type MockGateway struct {
	mu         sync.Mutex
	deliveries []Delivery
	failWith   error
}

// NewMockGateway creates a new mock messaging gateway
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// FailWith makes subsequent Deliver calls return err. Pass nil to
// restore success.
func (m *MockGateway) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Deliver records the delivery, or fails if configured to
func (m *MockGateway) Deliver(ctx context.Context, address, verificationURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}

	m.deliveries = append(m.deliveries, Delivery{Address: address, VerificationURL: verificationURL})
	slog.Info("Mock delivery recorded", "to", address, "url", verificationURL)
	return nil
}

// Deliveries returns a copy of all recorded deliveries
func (m *MockGateway) Deliveries() []Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Delivery, len(m.deliveries))
	copy(out, m.deliveries)
	return out
}
