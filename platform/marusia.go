package platform

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/max36895/umbot/bus"
)

// Marusia adapts VK Marusia webhooks. The wire format tracks the Alice one
// closely (Marusia is API-compatible for the subset the runtime needs),
// including state carried inside the webhook pair.
type Marusia struct{}

func (Marusia) Platform() string { return PlatformMarusia }
func (Marusia) Stateless() bool  { return true }

func (Marusia) Parse(raw []byte) (*bus.IncomingRequest, error) {
	var req aliceRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("marusia payload: %w", err)
	}
	userID := req.Session.User.UserID
	if userID == "" {
		userID = req.Session.UserID
	}
	if userID == "" {
		return nil, fmt.Errorf("marusia payload: no user id")
	}

	return &bus.IncomingRequest{
		Platform:          PlatformMarusia,
		UserID:            userID,
		Command:           strings.ToLower(strings.TrimSpace(req.Request.Command)),
		OriginalUtterance: req.Request.OriginalUtterance,
		MessageSeq:        req.Session.MessageID,
		IsFirstMessage:    req.Session.New,
		Payload:           raw,
		RawStateBlob:      req.State.Session,
	}, nil
}

func (Marusia) Render(req *bus.IncomingRequest, res *bus.OutgoingResult) ([]byte, error) {
	// req is nil when the inbound payload never parsed; the session echo
	// stays empty but the user still gets a well-formed textual reply.
	var in aliceRequest
	if req != nil {
		if err := json.Unmarshal(req.Payload, &in); err != nil {
			return nil, fmt.Errorf("marusia render: %w", err)
		}
	}

	out := struct {
		Response struct {
			Text       string `json:"text"`
			TTS        string `json:"tts,omitempty"`
			EndSession bool   `json:"end_session"`
		} `json:"response"`
		Session struct {
			SessionID string `json:"session_id"`
			MessageID int64  `json:"message_id"`
			UserID    string `json:"user_id"`
		} `json:"session"`
		SessionState json.RawMessage `json:"session_state,omitempty"`
		Version      string          `json:"version"`
	}{}
	out.Response.Text = res.Text
	out.Response.EndSession = res.EndConversation
	if tts, ok := res.Fields["tts"].(string); ok {
		out.Response.TTS = tts
	}
	out.Session.SessionID = in.Session.SessionID
	out.Session.MessageID = in.Session.MessageID
	out.Session.UserID = in.Session.UserID
	out.SessionState = res.StateBlob
	out.Version = in.Version
	if out.Version == "" {
		out.Version = "1.0"
	}
	return json.Marshal(out)
}
