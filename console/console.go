// Package console exposes a local developer chat channel over WebSocket:
// every text frame is dispatched through the bot as a "console" platform
// request and the reply is written back on the same connection. Useful for
// poking at commands and intents without any real platform in front.
package console

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/max36895/umbot/bus"
)

// Platform is the console channel's platform identifier.
const Platform = "console"

// frame is one console turn in either direction.
type frame struct {
	User  string `json:"user,omitempty"`
	Text  string `json:"text"`
	Seq   int64  `json:"seq,omitempty"`
	First bool   `json:"first,omitempty"`
	End   bool   `json:"end,omitempty"`
}

// Adapter normalizes console frames. The console keeps sessions in the
// configured store like any stateful platform.
type Adapter struct{}

func (Adapter) Platform() string { return Platform }
func (Adapter) Stateless() bool  { return false }

func (Adapter) Parse(raw []byte) (*bus.IncomingRequest, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("console frame: %w", err)
	}
	if f.User == "" {
		return nil, fmt.Errorf("console frame: no user")
	}
	return &bus.IncomingRequest{
		Platform:          Platform,
		UserID:            f.User,
		Command:           strings.ToLower(strings.TrimSpace(f.Text)),
		OriginalUtterance: f.Text,
		MessageSeq:        f.Seq,
		IsFirstMessage:    f.First,
		Payload:           raw,
	}, nil
}

func (Adapter) Render(req *bus.IncomingRequest, res *bus.OutgoingResult) ([]byte, error) {
	return json.Marshal(frame{Text: res.Text, End: res.EndConversation})
}
