package service

import (
	"context"

	"feepay-engine/internal/domain"
)

// BalanceSource reads freshly derived balances; every read is a full
// round trip. Implemented by clients.BalanceClient.
type BalanceSource interface {
	Fetch(ctx context.Context, studentID string) ([]domain.FeeCategoryBalance, error)
}

// Reconciler replaces locally held balance state with server truth after
// a mutating operation. The data just changed as a side effect of our
// own action, so anything previously rendered is stale by construction.
// The result replaces prior state wholesale, never merged or patched
// into it.
type Reconciler struct {
	balances BalanceSource
}

func NewReconciler(balances BalanceSource) *Reconciler {
	return &Reconciler{balances: balances}
}

func (r *Reconciler) Refresh(ctx context.Context, studentID string) ([]domain.FeeCategoryBalance, error) {
	out, err := r.balances.Fetch(ctx, studentID)
	if err != nil {
		return nil, &domain.RefreshError{Err: err}
	}
	return out, nil
}
