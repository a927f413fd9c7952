package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/procurement-workflow/internal/application/workflow"
	"github.com/garyjia/procurement-workflow/internal/domain/entity"
	httpserver "github.com/garyjia/procurement-workflow/internal/interfaces/http"
)

func testConfig(t *testing.T) *Config {
	cfg := DefaultConfig()
	cfg.Database.Path = ":memory:"
	cfg.Auth.JWTSecret = "secret"
	cfg.Metadata.Enabled = false
	cfg.Storage.BaseDir = t.TempDir()
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with secret", func(c *Config) {}, false},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"lark id without secret", func(c *Config) { c.Lark.AppID = "cli_x" }, true},
		{"cart url without key", func(c *Config) { c.Amazon.BaseURL = "http://cart" }, true},
		{"no cart workers", func(c *Config) { c.Worker.CartWorkers = 0 }, true},
		{"bad timezone", func(c *Config) { c.Digest.Timezone = "Mars/Olympus" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestContainer_Lifecycle(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(context.Background()))

	health := c.Health(context.Background())
	assert.Equal(t, "ok", health["database"])
	assert.Equal(t, "ok", health["workers"])
	assert.Equal(t, "disabled", health["lark"])
	assert.Equal(t, "disabled", health["amazon_cart"])

	ctx := context.Background()
	req, err := c.Engine().Submit(ctx, 3, entity.RoleEmployee, workflow.SubmitInput{
		URL:           "https://example.com/chair",
		Quantity:      1,
		Justification: "broken chair",
	})
	require.NoError(t, err)
	assert.Equal(t, "REQ-", req.RequestNumber[:4])

	got, err := c.Services().Requests.Get(ctx, req.ID, 3, entity.RoleEmployee)
	require.NoError(t, err)
	assert.Len(t, got.History, 1)

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close())
}

func TestConvertToZapFields(t *testing.T) {
	fields := convertToZapFields("a", 1, 2, "skipped", "odd")
	require.Len(t, fields, 1)
	assert.Equal(t, "a", fields[0].Key)
}

func TestContainer_HealthWithCartEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Amazon.BaseURL = "http://127.0.0.1:1"
	cfg.Amazon.APIKey = "key"

	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	health := c.Health(context.Background())
	assert.Equal(t, "ok", health["amazon_cart"])
	assert.Equal(t, "ok", health["cart_queue"])

	srv := httpserver.NewServer(httpserver.DefaultServerConfig(), c.Engine(),
		c.Services().Requests, c.Services().Exports, c.Health, c.NamedLogger("http"))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
