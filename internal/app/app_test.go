package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/line"
	"github.com/m3rciful/leadbot/core/server"
)

func testConfig(t *testing.T) *coreconfig.Config {
	t.Helper()
	cfg := &coreconfig.Config{}
	cfg.Line.AccessToken = "token"
	cfg.Line.ChannelSecret = "secret"
	require.NoError(t, coreconfig.Normalize(cfg))
	return cfg
}

func runnerNames(opts server.Options) []string {
	var names []string
	for _, r := range opts.Runners {
		names = append(names, r.Name)
	}
	return names
}

func TestNewWithMemoryStore(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)

	opts, err := a.ServerOptions()
	require.NoError(t, err)
	assert.Same(t, cfg, opts.Config)
	assert.Equal(t, []string{"pending.sweeper"}, runnerNames(opts))
	assert.Nil(t, a.queue)
	require.NoError(t, opts.OnStop(context.Background()))
}

func TestNewWithRedisStoreAndAsyncReplies(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Pending.Backend = coreconfig.PendingRedis
	cfg.Pending.RedisURL = "redis://" + mr.Addr()
	cfg.Sender.Async = true

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, a.memory)
	assert.NotNil(t, a.queue)

	opts, err := a.ServerOptions()
	require.NoError(t, err)
	assert.Empty(t, runnerNames(opts))
	require.NoError(t, opts.OnStop(context.Background()))
}

func TestNewFailsOnUnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.Pending.Backend = coreconfig.PendingRedis
	cfg.Pending.RedisURL = "redis://" + addr

	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pending store")
}

func TestWebhookRouteVerifiesSignature(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	h := server.NewRouter(cfg, a.Routes)

	body := `{"destination":"U0","events":[]}`

	req := httptest.NewRequest(http.MethodPost, cfg.HTTP.WebhookPath, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, cfg.HTTP.WebhookPath, strings.NewReader(body))
	req.Header.Set("X-Line-Signature", line.Sign([]byte(cfg.Line.ChannelSecret), []byte(body)))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRootServesBanner(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	h := server.NewRouter(cfg, a.Routes)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), server.Banner))
}
