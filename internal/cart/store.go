package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/angelmondragon/storefront/pkg/backend"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/types"
)

const (
	opFetch          = "fetch"
	opAddItem        = "add_item"
	opUpdateQuantity = "update_quantity"
	opRemoveItem     = "remove_item"
	opApplyCoupon    = "apply_coupon"
	opClearCoupon    = "clear_coupon"
)

type cartAPI interface {
	GetCart(ctx context.Context, q Query) (Cart, error)
	AddOrUpdate(ctx context.Context, m Mutation) error
	Remove(ctx context.Context, itemID, itemableID types.ID, itemableType enums.ItemableType, couponCode *string) error
}

// State is the store's observable state. Revision increases whenever Cart
// changes and stays put when a resync returns an identical cart.
type State struct {
	Cart            *Cart   `json:"cart"`
	IsLoading       bool    `json:"is_loading"`
	Error           *string `json:"error"`
	AppliedCoupon   *string `json:"applied_coupon"`
	IsCouponLoading bool    `json:"is_coupon_loading"`
	Revision        uint64  `json:"revision"`
}

func (s State) clone() State {
	out := s
	out.Cart = s.Cart.Clone()
	if s.Error != nil {
		v := *s.Error
		out.Error = &v
	}
	if s.AppliedCoupon != nil {
		v := *s.AppliedCoupon
		out.AppliedCoupon = &v
	}
	return out
}

// Store mirrors one session's server cart. The mutex guards state only and
// is never held across a backend call, so concurrent mutations interleave
// at call boundaries and the last resync to land wins.
type Store struct {
	mu       sync.Mutex
	state    State
	delivery Query

	api     cartAPI
	coupons CouponSession
	logg    *logger.Logger
	metrics *metrics.CartMetrics
}

func NewStore(api cartAPI, coupons CouponSession, logg *logger.Logger, m *metrics.CartMetrics) (*Store, error) {
	if api == nil {
		return nil, fmt.Errorf("cart api required")
	}
	if coupons == nil {
		return nil, fmt.Errorf("coupon session required")
	}
	return &Store{api: api, coupons: coupons, logg: logg, metrics: m}, nil
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// SetDeliveryArea picks the city/area every later fetch computes delivery fees for.
func (s *Store) SetDeliveryArea(cityID, areaID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivery.CityID = strings.TrimSpace(cityID)
	s.delivery.AreaID = strings.TrimSpace(areaID)
}

// RestoreCoupon loads the session coupon into state, e.g. after a restart.
func (s *Store) RestoreCoupon(ctx context.Context) error {
	code, ok, err := s.coupons.Get(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to read session coupon")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.state.AppliedCoupon = &code
	} else {
		s.state.AppliedCoupon = nil
	}
	return nil
}

// FetchCart replaces the cart with the server's, flagging IsLoading while the
// call is in flight. On failure the previous cart is kept and Error is set.
func (s *Store) FetchCart(ctx context.Context) error {
	s.mu.Lock()
	s.state.IsLoading = true
	q := s.queryLocked(nil)
	s.mu.Unlock()

	cart, err := s.api.GetCart(ctx, q)

	s.mu.Lock()
	s.state.IsLoading = false
	if err != nil {
		msg := backend.DisplayMessage(err, "failed to load cart")
		s.state.Error = &msg
		s.mu.Unlock()
		s.metrics.IncMutation(opFetch, metrics.OutcomeFailed)
		return storeError(err, msg, nil)
	}
	s.state.Error = nil
	emptied := s.adoptLocked(cart)
	s.mu.Unlock()

	if emptied {
		s.clearSessionCoupon(ctx)
	}
	return nil
}

// SyncCartSilently refetches without touching IsLoading or Error. Failures
// are logged and dropped.
func (s *Store) SyncCartSilently(ctx context.Context) {
	s.mu.Lock()
	q := s.queryLocked(nil)
	s.mu.Unlock()

	cart, err := s.api.GetCart(ctx, q)
	if err != nil {
		s.metrics.IncSyncFailure()
		if s.logg != nil {
			s.logg.WarnErr(ctx, "cart.sync.failed", err)
		}
		return
	}

	s.mu.Lock()
	emptied := s.adoptLocked(cart)
	s.mu.Unlock()
	if emptied {
		s.clearSessionCoupon(ctx)
	}
}

// AddItem adds quantity of a product line. An existing line for the same
// itemable and variant is bumped through UpdateItemQuantity instead.
func (s *Store) AddItem(ctx context.Context, m Mutation) error {
	if m.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if m.ItemableType == "" {
		m.ItemableType = enums.ItemableTypeProduct
	}

	if err := s.ensureCart(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	existing, found := s.state.Cart.FindLine(m.ItemableID, m.ItemableType, m.VariantID)
	s.mu.Unlock()
	if found {
		return s.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+m.Quantity)
	}

	if err := s.api.AddOrUpdate(ctx, m); err != nil {
		msg := backend.DisplayMessage(err, "failed to add item to cart")
		s.setError(msg)
		s.metrics.IncMutation(opAddItem, metrics.OutcomeFailed)
		return storeError(err, msg, map[string]any{"itemable_id": m.ItemableID})
	}
	s.metrics.IncMutation(opAddItem, metrics.OutcomeCommitted)
	s.SyncCartSilently(ctx)
	return nil
}

// UpdateItemQuantity sets a line to an absolute quantity. Unknown ids are a
// no-op and quantities <= 0 remove the line.
func (s *Store) UpdateItemQuantity(ctx context.Context, itemID types.ID, quantity int) error {
	if err := s.ensureCart(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	item, ok := s.state.Cart.FindItem(itemID)
	s.mu.Unlock()
	if !ok {
		s.noop(ctx, opUpdateQuantity, itemID)
		return nil
	}
	if quantity <= 0 {
		return s.RemoveItem(ctx, itemID)
	}

	name := item.DisplayName(locale(ctx))
	previous := item.Quantity
	return s.runOptimistic(ctx, optimisticMutation{
		op:       opUpdateQuantity,
		itemID:   itemID,
		itemName: name,
		fallback: fmt.Sprintf("failed to update quantity for %s", name),
		apply: func(c *Cart) bool {
			idx := c.indexOf(itemID)
			if idx < 0 {
				return false
			}
			c.Items[idx].Quantity = quantity
			return true
		},
		revert: func(c *Cart) {
			if idx := c.indexOf(itemID); idx >= 0 {
				c.Items[idx].Quantity = previous
			}
		},
		commit: func(ctx context.Context) error {
			return s.api.AddOrUpdate(ctx, Mutation{
				ItemableID:   item.ItemableID,
				ItemableType: item.ItemableType,
				Quantity:     quantity,
				VariantID:    item.variantID(),
			})
		},
	})
}

// RemoveItem drops a line. Unknown ids are a no-op.
func (s *Store) RemoveItem(ctx context.Context, itemID types.ID) error {
	if err := s.ensureCart(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	item, ok := s.state.Cart.FindItem(itemID)
	s.mu.Unlock()
	if !ok {
		s.noop(ctx, opRemoveItem, itemID)
		return nil
	}

	name := item.DisplayName(locale(ctx))
	position := -1
	return s.runOptimistic(ctx, optimisticMutation{
		op:       opRemoveItem,
		itemID:   itemID,
		itemName: name,
		fallback: fmt.Sprintf("failed to remove %s", name),
		apply: func(c *Cart) bool {
			idx := c.indexOf(itemID)
			if idx < 0 {
				return false
			}
			position = idx
			kept := make([]Item, 0, len(c.Items)-1)
			kept = append(kept, c.Items[:idx]...)
			c.Items = append(kept, c.Items[idx+1:]...)
			return true
		},
		revert: func(c *Cart) {
			if c.indexOf(itemID) >= 0 {
				return
			}
			at := position
			if at < 0 || at > len(c.Items) {
				at = len(c.Items)
			}
			restored := make([]Item, 0, len(c.Items)+1)
			restored = append(restored, c.Items[:at]...)
			restored = append(restored, item.Clone())
			c.Items = append(restored, c.Items[at:]...)
		},
		commit: func(ctx context.Context) error {
			return s.api.Remove(ctx, itemID, item.ItemableID, item.ItemableType, nil)
		},
	})
}

// ApplyCoupon asks the backend for the cart priced with code and, when it is
// accepted, remembers code for the session.
func (s *Store) ApplyCoupon(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	s.mu.Lock()
	s.state.IsCouponLoading = true
	q := s.queryLocked(&code)
	s.mu.Unlock()

	cart, err := s.api.GetCart(ctx, q)
	if err != nil {
		msg := backend.DisplayMessage(err, fmt.Sprintf("failed to apply coupon %s", code))
		s.finishCoupon(&msg)
		s.metrics.IncMutation(opApplyCoupon, metrics.OutcomeFailed)
		return storeError(err, msg, map[string]any{"coupon_code": code})
	}

	if !cart.IsEmpty() {
		if err := s.coupons.Set(ctx, code); err != nil {
			msg := fmt.Sprintf("failed to apply coupon %s", code)
			s.finishCoupon(&msg)
			s.metrics.IncMutation(opApplyCoupon, metrics.OutcomeFailed)
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
		}
	}

	s.mu.Lock()
	s.state.Error = nil
	emptied := s.adoptLocked(cart)
	if !emptied {
		s.state.AppliedCoupon = &code
	}
	s.state.IsCouponLoading = false
	s.mu.Unlock()

	if emptied {
		s.clearSessionCoupon(ctx)
	}
	s.metrics.IncMutation(opApplyCoupon, metrics.OutcomeCommitted)
	return nil
}

// ClearCoupon forgets the session coupon and refetches the cart priced with
// no coupon at all.
func (s *Store) ClearCoupon(ctx context.Context) error {
	s.mu.Lock()
	s.state.IsCouponLoading = true
	none := ""
	q := s.queryLocked(&none)
	s.mu.Unlock()

	if err := s.coupons.Clear(ctx); err != nil {
		msg := "failed to remove coupon"
		s.finishCoupon(&msg)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
	}
	s.mu.Lock()
	s.state.AppliedCoupon = nil
	s.mu.Unlock()

	cart, err := s.api.GetCart(ctx, q)
	if err != nil {
		msg := backend.DisplayMessage(err, "failed to remove coupon")
		s.finishCoupon(&msg)
		s.metrics.IncMutation(opClearCoupon, metrics.OutcomeFailed)
		return storeError(err, msg, nil)
	}

	s.mu.Lock()
	s.state.Error = nil
	s.adoptLocked(cart)
	s.state.IsCouponLoading = false
	s.mu.Unlock()
	s.metrics.IncMutation(opClearCoupon, metrics.OutcomeCommitted)
	return nil
}

// ClearCart resets cart and coupon state locally; the server cart is untouched.
func (s *Store) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	s.state = State{Revision: s.state.Revision + 1}
	s.mu.Unlock()

	if err := s.coupons.Clear(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to clear session coupon")
	}
	return nil
}

// adoptLocked installs cart unless it equals the current one and reports
// whether the cart is empty, in which case the applied coupon is dropped.
func (s *Store) adoptLocked(cart Cart) bool {
	if !sameCart(s.state.Cart, &cart) {
		s.state.Cart = cart.Clone()
		s.state.Revision++
	}
	if !s.state.Cart.IsEmpty() {
		return false
	}
	s.state.AppliedCoupon = nil
	return true
}

// ensureCart loads the server cart into a store that has never fetched one,
// so item lookups after a restart or eviction see the real lines.
func (s *Store) ensureCart(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.state.Cart != nil
	s.mu.Unlock()
	if loaded {
		return nil
	}
	return s.FetchCart(ctx)
}

func (s *Store) queryLocked(coupon *string) Query {
	q := s.delivery
	q.CouponCode = coupon
	return q
}

func (s *Store) finishCoupon(msg *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsCouponLoading = false
	s.state.Error = msg
}

func (s *Store) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Error = &msg
}

func (s *Store) clearSessionCoupon(ctx context.Context) {
	if err := s.coupons.Clear(ctx); err != nil && s.logg != nil {
		s.logg.WarnErr(ctx, "cart.coupon.clear_failed", err)
	}
}

func (s *Store) noop(ctx context.Context, op string, itemID types.ID) {
	s.metrics.IncMutation(op, metrics.OutcomeNoop)
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"cart_op": op, "item_id": itemID.String()}), "cart.item.not_found")
	}
}

// storeError keeps the upstream classification and replaces the message with
// the one shown to the shopper.
func storeError(err error, msg string, details map[string]any) error {
	code := pkgerrors.CodeOf(err)
	if code == pkgerrors.CodeInternal {
		code = pkgerrors.CodeDependency
	}
	wrapped := pkgerrors.Wrap(code, err, msg)
	if details != nil {
		wrapped = wrapped.WithDetails(details)
	}
	return wrapped
}

func sameCart(current *Cart, next *Cart) bool {
	if current == nil || next == nil {
		return current == next
	}
	a, errA := json.Marshal(current)
	b, errB := json.Marshal(next)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}

func locale(ctx context.Context) string {
	if lang := backend.CredentialsFromContext(ctx).Language; lang != "" {
		return lang
	}
	return types.DefaultLocale
}
