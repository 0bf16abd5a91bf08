package intent

import (
	"log/slog"

	"github.com/max36895/umbot/bus"
	"github.com/max36895/umbot/command"
	"github.com/max36895/umbot/match"
)

// Default thresholds. Threshold comparisons are inclusive.
const (
	DefaultThreshold      = 75
	DefaultHighConfidence = 90
)

// Source records which resolution layer produced the decision.
type Source int

const (
	SourceNone Source = iota
	SourceNLUHint
	SourceCommand
	SourceSlot
)

func (s Source) String() string {
	switch s {
	case SourceNLUHint:
		return "nlu-hint"
	case SourceCommand:
		return "command"
	case SourceSlot:
		return "slot"
	default:
		return "none"
	}
}

// Resolution is the outcome of Resolve. Resolved == false means no layer
// matched and the controller should produce its fallback behavior.
type Resolution struct {
	Action   string
	Resolved bool
	Source   Source

	// Command is set when Source == SourceCommand. Silent commands are
	// invoked directly by the dispatcher and bypass the controller's
	// generic action handler.
	Command *command.Command

	// Score is the winning slot score when Source == SourceSlot.
	Score int
}

// Resolver combines the command table and the declared-intent set into one
// layered decision. The layer order is a contract: explicit commands must
// be able to override platform NLU and declared intents, and fuzzy slot
// matching is the last resort.
type Resolver struct {
	Commands *command.Table
	Intents  []Intent

	// Threshold is the default slot matching threshold; HighConfidence
	// stops the slot scan early once a near-certain match is seen. Zero
	// values fall back to the package defaults.
	Threshold      int
	HighConfidence int
}

func NewResolver(cmds *command.Table, intents []Intent) *Resolver {
	return &Resolver{
		Commands:       cmds,
		Intents:        intents,
		Threshold:      DefaultThreshold,
		HighConfidence: DefaultHighConfidence,
	}
}

// Resolve decides the single action name for the request in c.
//
// Order (first hit wins): platform NLU hint naming a declared intent,
// then the command table against the normalized command text, then the
// best-scoring declared-intent slot at or above the threshold.
func (r *Resolver) Resolve(c *bus.Context) Resolution {
	if hint := c.Request.NLUIntentHint; hint != "" {
		for _, in := range r.Intents {
			if in.Name == hint {
				return Resolution{Action: in.Name, Resolved: true, Source: SourceNLUHint}
			}
		}
	}

	if r.Commands != nil {
		if cmd := r.Commands.Resolve(c.Request.Command); cmd != nil {
			return Resolution{Action: cmd.Name, Resolved: true, Source: SourceCommand, Command: cmd}
		}
	}

	if res, ok := r.bestSlot(c.Request.Command); ok {
		return res
	}
	return Resolution{}
}

// bestSlot scans declared intents for the single highest-scoring slot at or
// above the threshold. Ties break toward earliest declaration; the scan
// stops as soon as any slot reaches the high-confidence bar.
func (r *Resolver) bestSlot(text string) (Resolution, bool) {
	threshold := r.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	high := r.HighConfidence
	if high <= 0 {
		high = DefaultHighConfidence
	}

	best := Resolution{Source: SourceSlot}
	for _, in := range r.Intents {
		limit := threshold
		if in.Threshold > 0 {
			limit = in.Threshold
		}
		for _, slot := range in.Slots {
			res := match.Similarity(text, slot, limit)
			if !res.Matched {
				continue
			}
			if res.Score > best.Score {
				best = Resolution{Action: in.Name, Resolved: true, Source: SourceSlot, Score: res.Score}
			}
			if res.Score >= high {
				slog.Debug("intent slot short-circuit", "intent", in.Name, "slot", slot, "score", res.Score)
				return best, true
			}
		}
	}
	return best, best.Resolved
}
