package platform

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/max36895/umbot/bus"
)

const alicePayload = `{
	"request": {
		"command": "Привет",
		"original_utterance": "Привет!",
		"nlu": {"intents": {"greeting": {}}}
	},
	"session": {
		"message_id": 3,
		"session_id": "sess-1",
		"user_id": "legacy-user",
		"new": false,
		"user": {"user_id": "user-1"}
	},
	"state": {"session": {"counter": 2}},
	"version": "1.0"
}`

func TestAliceParse(t *testing.T) {
	req, err := Alice{}.Parse([]byte(alicePayload))
	require.NoError(t, err)

	assert.Equal(t, PlatformAlice, req.Platform)
	assert.Equal(t, "user-1", req.UserID)
	assert.Equal(t, "привет", req.Command)
	assert.Equal(t, "Привет!", req.OriginalUtterance)
	assert.Equal(t, int64(3), req.MessageSeq)
	assert.False(t, req.IsFirstMessage)
	assert.Equal(t, "greeting", req.NLUIntentHint)
	assert.JSONEq(t, `{"counter": 2}`, string(req.RawStateBlob))
}

func TestAliceParseFirstMessage(t *testing.T) {
	payload := `{"request":{"command":""},"session":{"new":true,"user_id":"u1"},"version":"1.0"}`
	req, err := Alice{}.Parse([]byte(payload))
	require.NoError(t, err)
	assert.True(t, req.IsFirstMessage)
	assert.Empty(t, req.RawStateBlob)
	assert.Equal(t, "u1", req.UserID, "falls back to session-level user id")
}

func TestAliceParseRejectsAnonymous(t *testing.T) {
	_, err := Alice{}.Parse([]byte(`{"request":{"command":"x"},"session":{}}`))
	assert.Error(t, err)
}

func TestAliceRender(t *testing.T) {
	res := &bus.OutgoingResult{
		Text:            "Привет тебе",
		EndConversation: true,
		Fields:          map[string]any{"tts": "прив+ет"},
		StateBlob:       json.RawMessage(`{"counter":3}`),
	}
	out, err := Alice{}.Render(nil, res)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"response": {"text": "Привет тебе", "tts": "прив+ет", "end_session": true},
		"session_state": {"counter": 3},
		"version": "1.0"
	}`, string(out))
}

const telegramPayload = `{
	"update_id": 100,
	"message": {
		"message_id": 55,
		"from": {"id": 7, "first_name": "Test"},
		"chat": {"id": 7, "type": "private"},
		"date": 1700000000,
		"text": "Пока"
	}
}`

func TestTelegramParse(t *testing.T) {
	req, err := Telegram{}.Parse([]byte(telegramPayload))
	require.NoError(t, err)

	assert.Equal(t, PlatformTelegram, req.Platform)
	assert.Equal(t, "7", req.UserID)
	assert.Equal(t, "пока", req.Command)
	assert.Equal(t, "Пока", req.OriginalUtterance)
	assert.Equal(t, int64(55), req.MessageSeq)
	assert.False(t, req.IsFirstMessage)
}

func TestTelegramParseStart(t *testing.T) {
	payload := `{"update_id":1,"message":{"message_id":1,"chat":{"id":9,"type":"private"},"text":"/start"}}`
	req, err := Telegram{}.Parse([]byte(payload))
	require.NoError(t, err)
	assert.True(t, req.IsFirstMessage)
	assert.Equal(t, "start", req.Command)
	assert.Equal(t, "9", req.UserID, "chat id stands in when sender is absent")
}

func TestTelegramParseRejectsNonMessage(t *testing.T) {
	_, err := Telegram{}.Parse([]byte(`{"update_id":1}`))
	assert.Error(t, err)
}

func TestTelegramRenderWebhookReply(t *testing.T) {
	req, err := Telegram{}.Parse([]byte(telegramPayload))
	require.NoError(t, err)

	out, err := Telegram{}.Render(req, &bus.OutgoingResult{Text: "ответ"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"method": "sendMessage", "chat_id": 7, "text": "ответ"}`, string(out))
}

func TestTelegramRenderWithoutRequest(t *testing.T) {
	out, err := Telegram{}.Render(nil, &bus.OutgoingResult{Text: "не понял"})
	require.NoError(t, err, "an unparsable update must still produce a reply body")
	assert.JSONEq(t, `{"text": "не понял"}`, string(out))
}

func TestMarusiaRenderWithoutRequest(t *testing.T) {
	out, err := Marusia{}.Render(nil, &bus.OutgoingResult{Text: "не понял"})
	require.NoError(t, err, "an unparsable payload must still produce a reply body")

	var echo struct {
		Response struct {
			Text string `json:"text"`
		} `json:"response"`
		Version string `json:"version"`
	}
	require.NoError(t, json.Unmarshal(out, &echo))
	assert.Equal(t, "не понял", echo.Response.Text)
	assert.Equal(t, "1.0", echo.Version)
}

func TestMarusiaRoundTrip(t *testing.T) {
	payload := `{
		"request": {"command": "привет", "original_utterance": "Привет"},
		"session": {"session_id": "s1", "message_id": 2, "user_id": "m-user", "new": false},
		"state": {"session": {"step": 1}},
		"version": "1.0"
	}`
	req, err := Marusia{}.Parse([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, PlatformMarusia, req.Platform)
	assert.Equal(t, "m-user", req.UserID)
	assert.JSONEq(t, `{"step": 1}`, string(req.RawStateBlob))

	out, err := Marusia{}.Render(req, &bus.OutgoingResult{
		Text:      "и тебе привет",
		StateBlob: json.RawMessage(`{"step":2}`),
	})
	require.NoError(t, err)

	var echo struct {
		Session struct {
			SessionID string `json:"session_id"`
			UserID    string `json:"user_id"`
		} `json:"session"`
		SessionState map[string]any `json:"session_state"`
	}
	require.NoError(t, json.Unmarshal(out, &echo))
	assert.Equal(t, "s1", echo.Session.SessionID)
	assert.Equal(t, "m-user", echo.Session.UserID)
	assert.Equal(t, float64(2), echo.SessionState["step"])
}
