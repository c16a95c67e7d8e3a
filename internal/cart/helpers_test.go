package cart

import (
	"context"
	"sync"

	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/shopspring/decimal"
)

type fakeAPI struct {
	mu        sync.Mutex
	carts     []Cart
	getErr    error
	mutateErr error

	queries   []Query
	mutations []Mutation
	removed   []types.ID

	onGet    func()
	onMutate func()
}

// serve queues responses for GetCart; the last one repeats.
func (f *fakeAPI) serve(carts ...Cart) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts = carts
}

func (f *fakeAPI) GetCart(ctx context.Context, q Query) (Cart, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	hook := f.onGet
	err := f.getErr
	var cart Cart
	if len(f.carts) > 0 {
		cart = *f.carts[0].Clone()
		if len(f.carts) > 1 {
			f.carts = f.carts[1:]
		}
	}
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return Cart{}, err
	}
	return cart, nil
}

func (f *fakeAPI) AddOrUpdate(ctx context.Context, m Mutation) error {
	f.mu.Lock()
	f.mutations = append(f.mutations, m)
	hook := f.onMutate
	err := f.mutateErr
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

func (f *fakeAPI) Remove(ctx context.Context, itemID, itemableID types.ID, itemableType enums.ItemableType, couponCode *string) error {
	f.mu.Lock()
	f.removed = append(f.removed, itemID)
	hook := f.onMutate
	err := f.mutateErr
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

func (f *fakeAPI) lastQuery() Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return Query{}
	}
	return f.queries[len(f.queries)-1]
}

type memCoupons struct {
	mu     sync.Mutex
	code   string
	ok       bool
	getErr   error
	clearErr error
}

func (m *memCoupons) Get(ctx context.Context) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.code, m.ok, m.getErr
}

func (m *memCoupons) Set(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.code, m.ok = code, true
	return nil
}

func (m *memCoupons) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return m.clearErr
	}
	m.code, m.ok = "", false
	return nil
}

func (m *memCoupons) stored() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.code, m.ok
}

func line(id, itemableID string, qty int, price int64) Item {
	return Item{
		ID:           types.ID(id),
		ItemableID:   types.ID(itemableID),
		ItemableType: enums.ItemableTypeProduct,
		Quantity:     qty,
		Name:         types.LocalizedText{"en": "Item " + id},
		Variant: &Variant{
			ID:                 types.ID("v" + id),
			Price:              decimal.NewFromInt(price),
			PriceAfterDiscount: decimal.NewFromInt(price),
			Discount:           decimal.Zero,
		},
	}
}

func cartOf(subtotal int64, items ...Item) Cart {
	c := EmptyCart()
	c.Items = append(c.Items, items...)
	c.Calculations.Subtotal = decimal.NewFromInt(subtotal)
	c.Calculations.Total = decimal.NewFromInt(subtotal)
	return c
}
