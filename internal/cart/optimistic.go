package cart

import (
	"context"

	"github.com/angelmondragon/storefront/pkg/backend"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/types"
)

// optimisticMutation is one snapshot → apply → confirm-or-revert step.
// apply edits the local cart before the backend call and reports whether
// there was anything to change. revert undoes only this mutation and is used
// when another change landed while commit was in flight; otherwise the full
// snapshot is restored.
type optimisticMutation struct {
	op       string
	itemID   types.ID
	itemName string
	fallback string
	apply    func(*Cart) bool
	revert   func(*Cart)
	commit   func(context.Context) error
}

func (s *Store) runOptimistic(ctx context.Context, m optimisticMutation) error {
	s.mu.Lock()
	if s.state.Cart == nil {
		s.mu.Unlock()
		s.noop(ctx, m.op, m.itemID)
		return nil
	}
	snapshot := s.state.Cart.Clone()
	if !m.apply(s.state.Cart) {
		s.mu.Unlock()
		s.noop(ctx, m.op, m.itemID)
		return nil
	}
	s.state.Revision++
	applied := s.state.Revision
	s.mu.Unlock()

	if err := m.commit(ctx); err != nil {
		msg := backend.DisplayMessage(err, m.fallback)

		s.mu.Lock()
		if s.state.Revision == applied {
			s.state.Cart = snapshot
		} else if s.state.Cart != nil {
			m.revert(s.state.Cart)
		}
		s.state.Revision++
		s.state.Error = &msg
		s.mu.Unlock()

		s.metrics.IncMutation(m.op, metrics.OutcomeRolledBack)
		if s.logg != nil {
			s.logg.WarnErr(s.logg.WithFields(ctx, map[string]any{
				"cart_op": m.op,
				"item_id": m.itemID.String(),
			}), "cart.mutation.rolled_back", err)
		}
		return storeError(err, msg, map[string]any{
			"item_id":   m.itemID.String(),
			"item_name": m.itemName,
		})
	}

	s.metrics.IncMutation(m.op, metrics.OutcomeCommitted)
	s.SyncCartSilently(ctx)

	// The resync may have failed; an emptied cart still cannot carry a coupon.
	s.mu.Lock()
	emptied := s.state.Cart.IsEmpty()
	if emptied {
		s.state.AppliedCoupon = nil
	}
	s.mu.Unlock()
	if emptied {
		s.clearSessionCoupon(ctx)
	}
	return nil
}
