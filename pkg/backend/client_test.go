package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

func TestClientInjectsCredentialsAndQuery(t *testing.T) {
	var captured *http.Request
	var capturedBody map[string]any

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		captured = req
		if req.Body != nil {
			raw, _ := io.ReadAll(req.Body)
			_ = json.Unmarshal(raw, &capturedBody)
		}
		return jsonResponse(http.StatusOK, `{"data":{"items":[]}}`), nil
	})

	client := newTestClient(t, rt)
	ctx := WithCredentials(context.Background(), Credentials{BearerToken: "tok", SessionID: "123-abc", Language: "ar"})

	query := url.Values{}
	query.Set("coupon_code", "SAVE10")
	raw, err := client.Post(ctx, "/cart", query, map[string]any{"quantity": 3})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if !strings.Contains(string(raw), `"items"`) {
		t.Fatalf("unexpected body %s", raw)
	}
	if captured.URL.String() != "http://backend.test/api/cart?coupon_code=SAVE10" {
		t.Fatalf("unexpected url %s", captured.URL.String())
	}
	if got := captured.Header.Get("Authorization"); got != "Bearer tok" {
		t.Fatalf("unexpected auth header %q", got)
	}
	if got := captured.Header.Get("X-Session-Id"); got != "123-abc" {
		t.Fatalf("unexpected session header %q", got)
	}
	if got := captured.Header.Get("Accept-Language"); got != "ar" {
		t.Fatalf("unexpected language %q", got)
	}
	if capturedBody["quantity"] != float64(3) {
		t.Fatalf("unexpected payload %+v", capturedBody)
	}
}

func TestClientGuestRequestOmitsAuthorization(t *testing.T) {
	var captured *http.Request
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		captured = req
		return jsonResponse(http.StatusNoContent, ``), nil
	})
	client := newTestClient(t, rt)

	raw, err := client.Delete(context.Background(), "cart/5", nil)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if string(raw) != "null" {
		t.Fatalf("expected null body for empty response, got %s", raw)
	}
	if captured.Header.Get("Authorization") != "" {
		t.Fatalf("guest request should not carry authorization")
	}
	if captured.Header.Get("Accept-Language") != "en" {
		t.Fatalf("expected default language")
	}
}

func TestClientMapsValidationErrors(t *testing.T) {
	body := `{"message":"","errors":{"phone":["The phone is invalid.","The phone is required."],"city_id":"The city is required."}}`
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnprocessableEntity, body), nil
	})
	client := newTestClient(t, rt)

	_, err := client.Post(context.Background(), "/orders/checkout", nil, map[string]any{})
	if err == nil {
		t.Fatalf("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
	if typed.Message() != "The phone is invalid." {
		t.Fatalf("expected first field message, got %q", typed.Message())
	}

	apiErr, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("expected api error in chain")
	}
	if got := apiErr.Flatten(); got != "phone: The phone is invalid., The phone is required.; city_id: The city is required." {
		t.Fatalf("unexpected flattened message %q", got)
	}
	if apiErr.StatusCode() != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status %d", apiErr.StatusCode())
	}
}

func TestClientPrefersMessageOverErrors(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusConflict, `{"message":"Quantity exceeds stock","errors":["ignored"]}`), nil
	})
	client := newTestClient(t, rt)

	_, err := client.Get(context.Background(), "/cart", nil)
	if got := DisplayMessage(err, "fallback"); got != "Quantity exceeds stock" {
		t.Fatalf("unexpected display %q", got)
	}
	if pkgerrors.CodeOf(err) != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict code, got %s", pkgerrors.CodeOf(err))
	}
}

func TestClientTransportFailureIsDependencyError(t *testing.T) {
	reg := prometheus.NewRegistry()
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	client, err := NewClient("http://backend.test/api", WithHTTPClient(&http.Client{Transport: rt}), WithMetrics(metrics.NewUpstreamMetrics(reg)))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Get(context.Background(), "/city", nil)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency code, got %v", err)
	}
	if got := DisplayMessage(err, "failed to load cities"); got != "failed to load cities" {
		t.Fatalf("expected fallback for transport error, got %q", got)
	}
	mfs, _ := reg.Gather()
	if len(mfs) == 0 {
		t.Fatalf("expected transport error to be observed")
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}

func TestEndpointLabel(t *testing.T) {
	tests := map[string]string{
		"/cart":                 "/cart",
		"cart/42":               "/cart/{id}",
		"/orders/code/ORD-99X":  "/orders/code/ORD-99X",
		"/addresses/7/":         "/addresses/{id}",
		"/products/12/variants": "/products/{id}/variants",
	}
	for in, want := range tests {
		if got := endpointLabel(in); got != want {
			t.Fatalf("endpointLabel(%q)=%q want %q", in, got, want)
		}
	}
}

func TestParseFieldErrorsShapes(t *testing.T) {
	if got := parseFieldErrors(json.RawMessage(`"single"`)); len(got) != 1 || got[0].Messages[0] != "single" {
		t.Fatalf("unexpected string parse %+v", got)
	}
	if got := parseFieldErrors(json.RawMessage(`["a","b"]`)); len(got) != 1 || len(got[0].Messages) != 2 {
		t.Fatalf("unexpected list parse %+v", got)
	}
	if got := parseFieldErrors(json.RawMessage(`null`)); got != nil {
		t.Fatalf("expected nil for null, got %+v", got)
	}
	apiErr := parseAPIError(http.StatusBadGateway, []byte("<html>bad gateway</html>"))
	if apiErr.Display() != "" || apiErr.Error() != "backend status 502" {
		t.Fatalf("unexpected non-json error %q", apiErr.Error())
	}
}

func newTestClient(t *testing.T, rt http.RoundTripper) *Client {
	t.Helper()
	client, err := NewClient("http://backend.test/api/", WithHTTPClient(&http.Client{Transport: rt, Timeout: time.Second}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
