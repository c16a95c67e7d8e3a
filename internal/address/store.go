package address

import (
	"context"
	"fmt"
	"sync"

	"github.com/angelmondragon/storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
)

type addressAPI interface {
	List(ctx context.Context) ([]Address, error)
	Create(ctx context.Context, in Input) (Address, error)
	Update(ctx context.Context, id types.ID, in Input) (Address, error)
	Delete(ctx context.Context, id types.ID) error
}

type State struct {
	Addresses  []Address `json:"addresses"`
	SelectedID *types.ID `json:"selected_id"`
	IsLoading  bool      `json:"is_loading"`
	Error      *string   `json:"error"`
}

// Store holds a signed-in user's saved addresses and the one picked for
// checkout. Writes go to the backend first and are followed by a refetch.
type Store struct {
	mu    sync.Mutex
	state State

	api  addressAPI
	logg *logger.Logger
}

func NewStore(api addressAPI, logg *logger.Logger) (*Store, error) {
	if api == nil {
		return nil, fmt.Errorf("address api required")
	}
	return &Store{api: api, logg: logg}, nil
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := State{IsLoading: s.state.IsLoading}
	out.Addresses = make([]Address, len(s.state.Addresses))
	for i, a := range s.state.Addresses {
		out.Addresses[i] = a.clone()
	}
	if s.state.SelectedID != nil {
		id := *s.state.SelectedID
		out.SelectedID = &id
	}
	if s.state.Error != nil {
		msg := *s.state.Error
		out.Error = &msg
	}
	return out
}

// Selected returns the address picked for checkout.
func (s *Store) Selected() (Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.SelectedID == nil {
		return Address{}, false
	}
	idx := indexOf(s.state.Addresses, *s.state.SelectedID)
	if idx < 0 {
		return Address{}, false
	}
	return s.state.Addresses[idx].clone(), true
}

// Fetch loads the address list. A selection that no longer exists is
// dropped; with no selection the default address is picked.
func (s *Store) Fetch(ctx context.Context) error {
	s.mu.Lock()
	s.state.IsLoading = true
	s.mu.Unlock()

	list, err := s.api.List(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsLoading = false
	if err != nil {
		msg := backend.DisplayMessage(err, "failed to load addresses")
		s.state.Error = &msg
		return pkgerrors.Wrap(codeOf(err), err, msg)
	}
	s.state.Error = nil
	s.adoptLocked(list)
	return nil
}

// Select picks an address for checkout. The id must be in the loaded list.
func (s *Store) Select(id types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOf(s.state.Addresses, id) < 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found").
			WithDetails(map[string]any{"address_id": id.String()})
	}
	s.state.SelectedID = &id
	return nil
}

// ClearSelection switches checkout back to an inline address.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SelectedID = nil
}

func (s *Store) Create(ctx context.Context, in Input) (Address, error) {
	created, err := s.api.Create(ctx, in)
	if err != nil {
		return Address{}, s.fail(err, "failed to save address")
	}
	s.refresh(ctx)
	return created, nil
}

func (s *Store) Update(ctx context.Context, id types.ID, in Input) (Address, error) {
	updated, err := s.api.Update(ctx, id, in)
	if err != nil {
		return Address{}, s.fail(err, "failed to update address")
	}
	s.refresh(ctx)
	return updated, nil
}

// Delete removes an address; deleting the selected one clears the selection.
func (s *Store) Delete(ctx context.Context, id types.ID) error {
	if err := s.api.Delete(ctx, id); err != nil {
		return s.fail(err, "failed to delete address")
	}

	s.mu.Lock()
	if s.state.SelectedID != nil && *s.state.SelectedID == id {
		s.state.SelectedID = nil
	}
	if idx := indexOf(s.state.Addresses, id); idx >= 0 {
		kept := make([]Address, 0, len(s.state.Addresses)-1)
		kept = append(kept, s.state.Addresses[:idx]...)
		s.state.Addresses = append(kept, s.state.Addresses[idx+1:]...)
	}
	s.mu.Unlock()

	s.refresh(ctx)
	return nil
}

// Reset forgets everything, e.g. on logout.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{}
}

// refresh refetches without toggling IsLoading; failures are only logged.
func (s *Store) refresh(ctx context.Context) {
	list, err := s.api.List(ctx)
	if err != nil {
		if s.logg != nil {
			s.logg.WarnErr(ctx, "address.refresh.failed", err)
		}
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adoptLocked(list)
}

func (s *Store) adoptLocked(list []Address) {
	s.state.Addresses = list
	if s.state.SelectedID != nil && indexOf(list, *s.state.SelectedID) < 0 {
		s.state.SelectedID = nil
	}
	if s.state.SelectedID == nil {
		for _, a := range list {
			if a.IsDefault {
				id := a.ID
				s.state.SelectedID = &id
				break
			}
		}
	}
}

// fail records the shopper-facing message. Local validation errors are
// returned as they are so their field details survive.
func (s *Store) fail(err error, fallback string) error {
	apiErr, upstream := backend.AsAPIError(err)
	typed := pkgerrors.As(err)
	if !upstream && typed != nil && typed.Code() == pkgerrors.CodeValidation {
		s.setError(typed.Message())
		return err
	}

	msg := backend.DisplayMessage(err, fallback)
	s.setError(msg)
	wrapped := pkgerrors.Wrap(codeOf(err), err, msg)
	if upstream {
		if fields := apiErr.FieldMap(); fields != nil {
			wrapped = wrapped.WithDetails(map[string]any{"fields": fields})
		}
	}
	return wrapped
}

func (s *Store) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Error = &msg
}

func codeOf(err error) pkgerrors.Code {
	if code := pkgerrors.CodeOf(err); code != pkgerrors.CodeInternal {
		return code
	}
	return pkgerrors.CodeDependency
}

func indexOf(list []Address, id types.ID) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
