package reviews

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/angelmondragon/storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

type stubRequester struct {
	response string
	last     backend.Request
	calls    int
}

func (s *stubRequester) Do(ctx context.Context, req backend.Request) (json.RawMessage, error) {
	s.calls++
	s.last = req
	return json.RawMessage(s.response), nil
}

func TestSubmit(t *testing.T) {
	req := &stubRequester{response: `{"message":"Review submitted for moderation","data":{"id":12,"status":"pending"}}`}
	api, _ := NewAPI(req)

	out, err := api.Submit(context.Background(), Review{ProductID: "3", Rating: 5, Comment: "  great mug "})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if req.last.Method != http.MethodPost || req.last.Path != "/review" {
		t.Fatalf("unexpected request %s %s", req.last.Method, req.last.Path)
	}
	if req.last.Body.(Review).Comment != "great mug" {
		t.Fatalf("expected trimmed comment, got %+v", req.last.Body)
	}
	if out.ID != "12" || out.Status != "pending" || out.Message != "Review submitted for moderation" {
		t.Fatalf("unexpected result %+v", out)
	}
}

func TestSubmitValidatesRating(t *testing.T) {
	for _, rating := range []int{0, 6} {
		req := &stubRequester{}
		api, _ := NewAPI(req)
		_, err := api.Submit(context.Background(), Review{ProductID: "3", Rating: rating})
		if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
			t.Fatalf("rating %d: expected validation error, got %v", rating, err)
		}
		if req.calls != 0 {
			t.Fatalf("rating %d: expected no backend call", rating)
		}
	}
}
