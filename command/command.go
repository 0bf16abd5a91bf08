// Package command implements the ordered registry of explicit and dynamic
// commands. Operator-registered commands are the highest-priority resolution
// layer: they override both platform NLU hints and declared intents.
package command

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/max36895/umbot/bus"
	"github.com/max36895/umbot/match"
)

// CatchAll is the pattern that matches any text. A command carrying it is
// always evaluated after every other command, regardless of registration
// order.
const CatchAll = "*"

// maxPatternLen bounds attacker-visible pattern complexity. Go's regexp is
// RE2 (linear-time matching, no catastrophic backtracking), so the only
// registration-time hazards left are invalid syntax and absurdly large
// patterns.
const maxPatternLen = 512

// Handler is the callback attached to a command.
type Handler func(c *bus.Context) error

// PatternError reports a pattern rejected at registration time. Patterns
// are never accepted lazily: a bad pattern must fail Register, not surface
// under live traffic.
type PatternError struct {
	Command string
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("command %q: bad pattern %q: %v", e.Command, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// Command is one registered command. Patterns that look like plain words
// match as whole words; patterns with regexp metacharacters are compiled
// once at registration.
type Command struct {
	Name    string
	Handler Handler

	// Silent commands do not route through the controller's generic
	// action handler once matched; their own handler fully services the
	// request (shortcuts like /start).
	Silent bool

	literals []string
	regexps  []*regexp.Regexp
	catchAll bool
}

// Matches reports whether the command's patterns match text.
func (c *Command) Matches(text string) bool {
	for _, lit := range c.literals {
		if match.ContainsPhrase(text, lit) {
			return true
		}
	}
	norm := match.Normalize(text)
	for _, re := range c.regexps {
		if re.MatchString(norm) || re.MatchString(text) {
			return true
		}
	}
	return false
}

// Table holds commands in registration order and resolves a normalized user
// text to at most one of them.
type Table struct {
	mu   sync.RWMutex
	cmds []*Command
}

func NewTable() *Table {
	return &Table{}
}

// Register inserts a command or replaces the one with the same name. A
// replaced command keeps the iteration position of its first registration.
// Every pattern is validated here; an invalid pattern rejects the whole
// registration and leaves the table untouched.
func (t *Table) Register(name string, patterns []string, handler Handler, silent bool) error {
	if name == "" {
		return fmt.Errorf("command name must not be empty")
	}

	cmd := &Command{Name: name, Handler: handler, Silent: silent}
	for _, p := range patterns {
		if len(p) > maxPatternLen {
			return &PatternError{Command: name, Pattern: p, Err: fmt.Errorf("pattern longer than %d bytes", maxPatternLen)}
		}
		switch {
		case p == CatchAll:
			cmd.catchAll = true
		case match.HasMeta(p):
			re, err := regexp.Compile(p)
			if err != nil {
				return &PatternError{Command: name, Pattern: p, Err: err}
			}
			cmd.regexps = append(cmd.regexps, re)
		case p != "":
			cmd.literals = append(cmd.literals, p)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for i, existing := range t.cmds {
		if existing.Name == name {
			t.cmds[i] = cmd
			return nil
		}
	}
	t.cmds = append(t.cmds, cmd)
	return nil
}

// Unregister removes the named command. Removing an unknown name is a no-op.
func (t *Table) Unregister(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, c := range t.cmds {
		if c.Name == name {
			t.cmds = append(t.cmds[:i], t.cmds[i+1:]...)
			return
		}
	}
}

// Resolve returns the first command whose patterns match text, in
// registration order, or nil. Catch-all commands are only consulted after
// every pattern-bearing command has had its chance.
func (t *Table) Resolve(text string) *Command {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var fallback *Command
	for _, c := range t.cmds {
		if c.catchAll && fallback == nil {
			fallback = c
		}
		if c.Matches(text) {
			return c
		}
	}
	return fallback
}

// Names returns the registered command names in iteration order.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, len(t.cmds))
	for i, c := range t.cmds {
		names[i] = c.Name
	}
	return names
}

// Len reports the number of registered commands.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.cmds)
}
