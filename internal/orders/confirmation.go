package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront/internal/repo"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Confirmation is the storefront's record of an order it placed, kept so the
// confirmation page can be served again after a reload.
type Confirmation struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID       string              `gorm:"column:order_id;not null" json:"order_id"`
	Code          string              `gorm:"column:code;not null;uniqueIndex" json:"code"`
	SessionKey    string              `gorm:"column:session_key;not null;index" json:"-"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;not null" json:"payment_method"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null" json:"total"`
	Payload       json.RawMessage     `gorm:"column:payload;type:jsonb" json:"order"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Confirmation) TableName() string { return "order_confirmations" }

// NewConfirmation snapshots order for sessionKey.
func NewConfirmation(sessionKey string, order Order) (*Confirmation, error) {
	payload, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}
	return &Confirmation{
		ID:            uuid.New(),
		OrderID:       order.ID.String(),
		Code:          order.Code,
		SessionKey:    sessionKey,
		PaymentMethod: order.PaymentMethod,
		Total:         order.Total,
		Payload:       payload,
	}, nil
}

// Order decodes the stored snapshot.
func (c *Confirmation) Order() (Order, error) {
	var order Order
	if len(c.Payload) == 0 {
		return order, nil
	}
	if err := json.Unmarshal(c.Payload, &order); err != nil {
		return Order{}, fmt.Errorf("decode order snapshot: %w", err)
	}
	return order, nil
}

// ConfirmationRepository persists confirmations.
type ConfirmationRepository interface {
	Record(ctx context.Context, c *Confirmation) error
	Latest(ctx context.Context, sessionKey string) (*Confirmation, error)
	ByCode(ctx context.Context, sessionKey, code string) (*Confirmation, error)
}

type confirmationRepository struct {
	repo.Base
}

// NewConfirmationRepository builds a repository bound to conn.
func NewConfirmationRepository(conn *gorm.DB) ConfirmationRepository {
	return &confirmationRepository{Base: repo.NewBase(conn)}
}

func (r *confirmationRepository) Record(ctx context.Context, c *Confirmation) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "confirmation is required")
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return repo.MapError(r.DB(ctx).Create(c).Error, "order confirmation")
}

func (r *confirmationRepository) Latest(ctx context.Context, sessionKey string) (*Confirmation, error) {
	var c Confirmation
	err := r.DB(ctx).
		Where("session_key = ?", sessionKey).
		Order("created_at DESC").
		First(&c).Error
	if err != nil {
		return nil, repo.MapError(err, "order confirmation")
	}
	return &c, nil
}

// ByCode only returns confirmations owned by sessionKey.
func (r *confirmationRepository) ByCode(ctx context.Context, sessionKey, code string) (*Confirmation, error) {
	var c Confirmation
	err := r.DB(ctx).
		Where("session_key = ? AND code = ?", sessionKey, strings.TrimSpace(code)).
		First(&c).Error
	if err != nil {
		return nil, repo.MapError(err, "order confirmation")
	}
	return &c, nil
}
