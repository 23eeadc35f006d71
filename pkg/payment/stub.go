package payment

import (
	"context"
	"fmt"
	"sync/atomic"
)

// StubGateway is a no-op gateway for development; orders and payouts always succeed.
type StubGateway struct {
	seq atomic.Int64
}

func (s *StubGateway) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	return &OrderResponse{OrderID: fmt.Sprintf("stub_order_%d", s.seq.Add(1)), Status: "created"}, nil
}

func (s *StubGateway) CreatePayout(ctx context.Context, req PayoutRequest) (*PayoutResponse, error) {
	return &PayoutResponse{PayoutID: fmt.Sprintf("stub_payout_%d", s.seq.Add(1)), Status: "processing"}, nil
}
