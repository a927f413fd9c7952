package amazon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/procurement-workflow/internal/application/port"
	domainwf "github.com/garyjia/procurement-workflow/internal/domain/workflow"
)

func TestCartClient_AddToCart(t *testing.T) {
	var got addToCartBody
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cart/items", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	client := NewCartClient(Config{BaseURL: srv.URL + "/", APIKey: "secret"}, zap.NewNop())
	err := client.AddToCart(context.Background(), port.CartRequest{RequestID: 4, ASIN: "B08N5WRWNW", URL: "https://amazon.com/dp/B08N5WRWNW", Quantity: 3})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, int64(4), got.RequestID)
	assert.Equal(t, "B08N5WRWNW", got.ASIN)
	assert.Equal(t, 3, got.Quantity)
}

func TestCartClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"explicit failure", http.StatusOK, `{"success":false,"error":"item unavailable"}`, "item unavailable"},
		{"server error", http.StatusBadGateway, `{"message":"session expired"}`, "session expired"},
		{"empty error body", http.StatusInternalServerError, ``, "500"},
		{"garbage on success", http.StatusOK, `not json`, "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewCartClient(Config{BaseURL: srv.URL}, zap.NewNop())
			err := client.AddToCart(context.Background(), port.CartRequest{RequestID: 1, URL: "https://amazon.com/x", Quantity: 1})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.ErrorIs(t, err, domainwf.ErrDispatch)

			var dispatchErr *DispatchError
			require.True(t, errors.As(err, &dispatchErr))
			assert.Equal(t, tt.status, dispatchErr.StatusCode)
		})
	}
}

func TestCartClient_RespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := NewCartClient(Config{BaseURL: srv.URL}, zap.NewNop())
	err := client.AddToCart(ctx, port.CartRequest{RequestID: 1, URL: "https://amazon.com/x", Quantity: 1})
	assert.ErrorIs(t, err, domainwf.ErrDispatch)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
