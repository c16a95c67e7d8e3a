package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/pkg/backend"
	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/google/uuid"
)

const checkoutPath = "/orders/checkout"

type requester interface {
	Do(ctx context.Context, req backend.Request) (json.RawMessage, error)
}

type cartStore interface {
	Snapshot() cart.State
	FetchCart(ctx context.Context) error
	ClearCart(ctx context.Context) error
}

// Session is the caller's storefront session during checkout.
type Session struct {
	Key   string
	Buyer Buyer
	Cart  cartStore
}

// Result is a placed order.
type Result struct {
	Order          orders.Order `json:"order"`
	ConfirmationID *uuid.UUID   `json:"confirmation_id,omitempty"`
}

// Service submits orders.
type Service interface {
	Checkout(ctx context.Context, sess Session, in Input) (*Result, error)
}

type service struct {
	client        requester
	confirmations orders.ConfirmationRepository
	cfg           config.CheckoutConfig
	logg          *logger.Logger
}

// NewService builds the checkout service.
func NewService(client requester, confirmations orders.ConfirmationRepository, cfg config.CheckoutConfig, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	if confirmations == nil {
		return nil, fmt.Errorf("confirmation repository required")
	}
	return &service{client: client, confirmations: confirmations, cfg: cfg, logg: logg}, nil
}

func (s *service) Checkout(ctx context.Context, sess Session, in Input) (*Result, error) {
	if sess.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart store missing from session")
	}

	state := sess.Cart.Snapshot()
	if state.Cart == nil {
		if err := sess.Cart.FetchCart(ctx); err != nil {
			return nil, err
		}
		state = sess.Cart.Snapshot()
	}
	if err := ValidateCart(state.Cart); err != nil {
		return nil, err
	}

	if in.CouponCode == "" && state.AppliedCoupon != nil {
		in.CouponCode = *state.AppliedCoupon
	}
	payload, err := BuildPayload(in, sess.Buyer, s.cfg.DefaultCountryID)
	if err != nil {
		return nil, err
	}

	raw, err := s.client.Do(ctx, backend.Request{Method: http.MethodPost, Path: checkoutPath, Body: payload})
	if err != nil {
		return nil, checkoutError(err)
	}

	order, ok, err := decodeOrder(raw)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, rejected(raw)
	}

	if err := sess.Cart.ClearCart(ctx); err != nil && s.logg != nil {
		s.logg.WarnErr(ctx, "checkout.cart.clear_failed", err)
	}

	result := &Result{Order: order}
	if id, err := s.recordConfirmation(ctx, sess.Key, order); err != nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "order_code", order.Code), "checkout.confirmation.record_failed", err)
		}
	} else {
		result.ConfirmationID = &id
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"order_code":     order.Code,
			"payment_method": string(order.PaymentMethod),
			"guest":          sess.Buyer.Guest,
		}), "checkout.order.placed")
	}
	return result, nil
}

func (s *service) recordConfirmation(ctx context.Context, sessionKey string, order orders.Order) (uuid.UUID, error) {
	c, err := orders.NewConfirmation(sessionKey, order)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.confirmations.Record(ctx, c); err != nil {
		return uuid.Nil, err
	}
	return c.ID, nil
}

// decodeOrder reads "order" from the body, enveloped or not.
func decodeOrder(raw json.RawMessage) (orders.Order, bool, error) {
	var body struct {
		Order *orders.Order `json:"order"`
	}
	for _, candidate := range []json.RawMessage{backend.Unwrap(raw), raw} {
		body.Order = nil
		if err := json.Unmarshal(candidate, &body); err != nil {
			continue
		}
		if body.Order != nil {
			return *body.Order, true, nil
		}
	}
	return orders.Order{}, false, nil
}

// checkoutError turns backend field errors into one readable message.
func checkoutError(err error) error {
	apiErr, ok := backend.AsAPIError(err)
	if !ok {
		return err
	}
	msg := apiErr.Flatten()
	if msg == "" {
		msg = backend.DisplayMessage(err, "checkout failed")
	}
	code := pkgerrors.CodeOf(err)
	if code == pkgerrors.CodeInternal {
		code = pkgerrors.CodeForStatus(apiErr.Status)
	}
	wrapped := pkgerrors.Wrap(code, err, msg)
	if fields := apiErr.FieldMap(); fields != nil {
		wrapped = wrapped.WithDetails(map[string]any{"fields": fields})
	}
	return wrapped
}

func rejected(raw json.RawMessage) error {
	var body struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &body)
	msg := body.Message
	if msg == "" {
		msg = "checkout was not accepted"
	}
	return pkgerrors.New(pkgerrors.CodeDependency, msg)
}
