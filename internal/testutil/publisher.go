package testutil

import (
    "context"

    "github.com/stretchr/testify/mock"

    "github.com/iliyamo/condo-water-billing/internal/queue"
)

// MockPublisher records published audit events.
type MockPublisher struct {
    mock.Mock
}

func (m *MockPublisher) Publish(_ context.Context, ev queue.BillingEvent) error {
    args := m.Called(ev)
    return args.Error(0)
}

// EventOfType matches an audit event by its type.
func EventOfType(typ string) any {
    return mock.MatchedBy(func(ev queue.BillingEvent) bool { return ev.Type == typ })
}
