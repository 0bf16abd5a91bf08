package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/max36895/umbot/bot"
	"github.com/max36895/umbot/bus"
	"github.com/max36895/umbot/platform"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	app := bot.New(bot.Options{})
	app.SetController(bus.ControllerFunc(func(c *bus.Context, action string, resolved bool) error {
		c.Text = "эхо: " + c.Request.OriginalUtterance
		return nil
	}))

	srv := New(app)
	srv.Register(platform.Alice{})
	srv.Register(platform.Marusia{})
	srv.Register(platform.Telegram{})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	res, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestAliceWebhook(t *testing.T) {
	ts := newTestServer(t)
	payload := `{"request":{"command":"привет","original_utterance":"Привет"},"session":{"user_id":"u1","new":true},"version":"1.0"}`

	res, err := http.Post(ts.URL+"/webhook/alice", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var out struct {
		Response struct {
			Text string `json:"text"`
		} `json:"response"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	assert.Equal(t, "эхо: Привет", out.Response.Text)
}

func TestMalformedWebhookStillAnswers(t *testing.T) {
	ts := newTestServer(t)
	res, err := http.Post(ts.URL+"/webhook/alice", "application/json", strings.NewReader("{broken"))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var out struct {
		Response struct {
			Text string `json:"text"`
		} `json:"response"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	assert.Equal(t, bot.DefaultFallbackText, out.Response.Text)
}

func TestMalformedMarusiaWebhookStillAnswers(t *testing.T) {
	ts := newTestServer(t)
	res, err := http.Post(ts.URL+"/webhook/marusia", "application/json", strings.NewReader("{broken"))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var out struct {
		Response struct {
			Text string `json:"text"`
		} `json:"response"`
		Version string `json:"version"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	assert.Equal(t, bot.DefaultFallbackText, out.Response.Text)
	assert.Equal(t, "1.0", out.Version)
}

func TestMalformedTelegramWebhookStillAnswers(t *testing.T) {
	ts := newTestServer(t)
	res, err := http.Post(ts.URL+"/webhook/telegram", "application/json", strings.NewReader("{broken"))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var out struct {
		Text string `json:"text"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	assert.Equal(t, bot.DefaultFallbackText, out.Text)
}

func TestUnknownPlatformWebhook(t *testing.T) {
	ts := newTestServer(t)
	res, err := http.Post(ts.URL+"/webhook/nope", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
