package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comfyhome/storefront/internal/auth"
	"github.com/comfyhome/storefront/internal/domain"
	"github.com/comfyhome/storefront/internal/event"
	"github.com/comfyhome/storefront/internal/payment"
	"github.com/comfyhome/storefront/internal/rating"
	"github.com/comfyhome/storefront/internal/service"
	"github.com/comfyhome/storefront/internal/storage/local"
	"github.com/comfyhome/storefront/pkg/health"
	"github.com/comfyhome/storefront/pkg/httputil"
)

const testCookie = "UserToken"

const (
	adminID          = "0b6f1a52-3c1e-4d8a-9f20-5e7c1d4a8b01"
	aliceID          = "4e2d9c71-8a35-4f06-b1d2-7c9e0f3a5b12"
	otherUserID      = "4e2d9c71-8a35-4f06-b1d2-7c9e0f3a5b13"
	productID        = "9c3b5e10-6d2f-4a71-8e4b-2f1a0c9d7e21"
	unknownProductID = "9c3b5e10-6d2f-4a71-8e4b-2f1a0c9d7eff"
	missingProductID = "9c3b5e10-6d2f-4a71-8e4b-00000000dead"
	reviewID         = "d7a1e3f5-2b4c-4e69-a8d0-3c5f7b9e1a31"
	orderID          = "5f8e2a4c-9b1d-4c37-b6e0-1a3d5f7c9e41"
)

var (
	adminIdentity = domain.Identity{UserID: adminID, Name: "Admin", Role: domain.RoleAdmin}
	aliceIdentity = domain.Identity{UserID: aliceID, Name: "Alice", Role: domain.RoleUser}
)

type memDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (d *memDenylist) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.revoked[tokenID] = ttl
	return nil
}

func (d *memDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.revoked[tokenID]
	return ok, nil
}

type testServer struct {
	router   http.Handler
	users    *mockUserRepository
	products *mockProductRepository
	reviews  *mockReviewRepository
	orders   *mockOrderRepository
	tokens   *auth.TokenManager
	denylist *memDenylist
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	producer := event.NewProducer(nil, logger)

	s := &testServer{
		users:    new(mockUserRepository),
		products: new(mockProductRepository),
		reviews:  new(mockReviewRepository),
		orders:   new(mockOrderRepository),
		tokens:   auth.NewTokenManager("test-secret", time.Hour),
		denylist: &memDenylist{revoked: make(map[string]time.Duration)},
	}

	uploadDir := t.TempDir()
	store, err := local.New(uploadDir, "/uploads")
	require.NoError(t, err)

	aggregator := rating.NewAggregator(s.reviews, logger, nil)
	stop := make(chan struct{})
	t.Cleanup(func() { close(stop) })

	s.router = NewRouter(RouterConfig{
		ServiceName:   "storefront",
		Users:         service.NewUserService(s.users, s.tokens, producer, logger),
		Products:      service.NewProductService(s.products, s.reviews, aggregator, store, producer, logger),
		Reviews:       service.NewReviewService(s.reviews, s.products, aggregator, producer, logger),
		Orders:        service.NewOrderService(s.orders, s.products, payment.NewMockProvider("cs_test"), "usd", producer, logger),
		Authenticator: auth.NewAuthenticator(s.tokens, s.denylist),
		Cookie:        CookieConfig{Name: testCookie},
		Health:        health.NewHandler(),
		Stop:          stop,
		UploadDir:     uploadDir,
	}, logger)

	return s
}

func (s *testServer) tokenFor(t *testing.T, id domain.Identity) string {
	t.Helper()
	token, _, err := s.tokens.Issue(id)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) assertExpectations(t *testing.T) {
	t.Helper()
	s.users.AssertExpectations(t)
	s.products.AssertExpectations(t)
	s.reviews.AssertExpectations(t)
	s.orders.AssertExpectations(t)
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) *httputil.ErrorResponse {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func cookieFrom(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
