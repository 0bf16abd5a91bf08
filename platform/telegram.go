package platform

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/max36895/umbot/bus"
)

// Telegram adapts Bot API webhook updates using telego's update types.
// Replies go out through the webhook-reply mechanism (a sendMessage method
// embedded in the HTTP response), so no outbound API client is needed.
type Telegram struct{}

func (Telegram) Platform() string { return PlatformTelegram }
func (Telegram) Stateless() bool  { return false }

func (Telegram) Parse(raw []byte) (*bus.IncomingRequest, error) {
	var upd telego.Update
	if err := json.Unmarshal(raw, &upd); err != nil {
		return nil, fmt.Errorf("telegram payload: %w", err)
	}
	msg := upd.Message
	if msg == nil {
		return nil, fmt.Errorf("telegram payload: no message")
	}

	var userID string
	if msg.From != nil {
		userID = strconv.FormatInt(msg.From.ID, 10)
	} else {
		userID = strconv.FormatInt(msg.Chat.ID, 10)
	}

	text := msg.Text
	command := strings.ToLower(strings.TrimSpace(text))
	first := command == "/start"
	command = strings.TrimPrefix(command, "/")

	return &bus.IncomingRequest{
		Platform:          PlatformTelegram,
		UserID:            userID,
		Command:           command,
		OriginalUtterance: text,
		MessageSeq:        int64(msg.MessageID),
		IsFirstMessage:    first,
		Payload:           raw,
	}, nil
}

func (Telegram) Render(req *bus.IncomingRequest, res *bus.OutgoingResult) ([]byte, error) {
	// Without a parsable update there is no chat to address a webhook
	// reply to; answer with a plain text body so the caller still gets a
	// well-formed response instead of a dropped connection.
	if req == nil {
		return json.Marshal(struct {
			Text string `json:"text"`
		}{Text: res.Text})
	}

	var upd telego.Update
	if err := json.Unmarshal(req.Payload, &upd); err != nil {
		return nil, fmt.Errorf("telegram render: %w", err)
	}
	if upd.Message == nil {
		return nil, fmt.Errorf("telegram render: no message in payload")
	}

	out := struct {
		Method string `json:"method"`
		ChatID int64  `json:"chat_id"`
		Text   string `json:"text"`
	}{
		Method: "sendMessage",
		ChatID: upd.Message.Chat.ID,
		Text:   res.Text,
	}
	return json.Marshal(out)
}
