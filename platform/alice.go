// Package platform implements webhook request/response adapters for the
// supported chat and voice-assistant platforms. Adapters only normalize
// payloads; they never call out to platform APIs.
package platform

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/max36895/umbot/bus"
)

// Platform identifiers.
const (
	PlatformAlice    = "alice"
	PlatformMarusia  = "marusia"
	PlatformTelegram = "telegram"
)

// aliceRequest is the inbound Yandex Dialogs webhook shape, reduced to the
// fields the runtime needs.
type aliceRequest struct {
	Request struct {
		Command           string          `json:"command"`
		OriginalUtterance string          `json:"original_utterance"`
		Payload           json.RawMessage `json:"payload,omitempty"`
		NLU               struct {
			Intents map[string]json.RawMessage `json:"intents,omitempty"`
		} `json:"nlu,omitempty"`
	} `json:"request"`
	Session struct {
		MessageID int64  `json:"message_id"`
		SessionID string `json:"session_id"`
		UserID    string `json:"user_id"`
		New       bool   `json:"new"`
		User      struct {
			UserID string `json:"user_id"`
		} `json:"user,omitempty"`
	} `json:"session"`
	State struct {
		Session json.RawMessage `json:"session,omitempty"`
	} `json:"state,omitempty"`
	Version string `json:"version"`
}

// aliceResponse is the outbound webhook shape. Session state travels back
// inside the response body: Alice is a stateless round-trip platform.
type aliceResponse struct {
	Response struct {
		Text       string `json:"text"`
		TTS        string `json:"tts,omitempty"`
		EndSession bool   `json:"end_session"`
	} `json:"response"`
	SessionState json.RawMessage `json:"session_state,omitempty"`
	Version      string          `json:"version"`
}

// Alice adapts Yandex Dialogs webhooks.
type Alice struct{}

func (Alice) Platform() string { return PlatformAlice }
func (Alice) Stateless() bool  { return true }

func (Alice) Parse(raw []byte) (*bus.IncomingRequest, error) {
	var req aliceRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("alice payload: %w", err)
	}
	userID := req.Session.User.UserID
	if userID == "" {
		userID = req.Session.UserID
	}
	if userID == "" {
		return nil, fmt.Errorf("alice payload: no user id")
	}

	return &bus.IncomingRequest{
		Platform:          PlatformAlice,
		UserID:            userID,
		Command:           strings.ToLower(strings.TrimSpace(req.Request.Command)),
		OriginalUtterance: req.Request.OriginalUtterance,
		MessageSeq:        req.Session.MessageID,
		IsFirstMessage:    req.Session.New,
		Payload:           raw,
		NLUIntentHint:     firstIntent(req.Request.NLU.Intents),
		RawStateBlob:      req.State.Session,
	}, nil
}

func (Alice) Render(req *bus.IncomingRequest, res *bus.OutgoingResult) ([]byte, error) {
	var out aliceResponse
	out.Response.Text = res.Text
	out.Response.EndSession = res.EndConversation
	if tts, ok := res.Fields["tts"].(string); ok {
		out.Response.TTS = tts
	}
	out.SessionState = res.StateBlob
	out.Version = "1.0"
	return json.Marshal(out)
}

// firstIntent picks a deterministic intent name out of the platform NLU
// block: the lexicographically smallest key, so repeated identical requests
// resolve identically.
func firstIntent(intents map[string]json.RawMessage) string {
	if len(intents) == 0 {
		return ""
	}
	names := make([]string, 0, len(intents))
	for name := range intents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names[0]
}
