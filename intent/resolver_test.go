package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/max36895/umbot/bus"
	"github.com/max36895/umbot/command"
)

func ctxFor(text string) *bus.Context {
	return &bus.Context{Request: &bus.IncomingRequest{Command: text, OriginalUtterance: text}}
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	tbl := command.NewTable()
	require.NoError(t, tbl.Register("by", []string{"пока"}, func(c *bus.Context) error { return nil }, false))
	return NewResolver(tbl, []Intent{
		{Name: "greeting", Slots: []string{"привет"}},
	})
}

func TestCommandWinsOverIntent(t *testing.T) {
	r := newTestResolver(t)
	// Text that scores on a slot too would still resolve as the command.
	require.NoError(t, r.Commands.Register("hi", []string{"привет"}, func(c *bus.Context) error { return nil }, false))

	res := r.Resolve(ctxFor("привет"))
	assert.True(t, res.Resolved)
	assert.Equal(t, "hi", res.Action)
	assert.Equal(t, SourceCommand, res.Source)
}

func TestNLUHintWinsOverSlots(t *testing.T) {
	r := newTestResolver(t)
	c := ctxFor("что угодно")
	c.Request.NLUIntentHint = "greeting"

	res := r.Resolve(c)
	assert.True(t, res.Resolved)
	assert.Equal(t, "greeting", res.Action)
	assert.Equal(t, SourceNLUHint, res.Source)
}

func TestNLUHintIgnoredWhenUndeclared(t *testing.T) {
	r := newTestResolver(t)
	c := ctxFor("пока")
	c.Request.NLUIntentHint = "nonexistent"

	res := r.Resolve(c)
	assert.Equal(t, "by", res.Action)
	assert.Equal(t, SourceCommand, res.Source)
}

func TestLayeredScenario(t *testing.T) {
	r := newTestResolver(t)

	res := r.Resolve(ctxFor("пока"))
	require.True(t, res.Resolved)
	assert.Equal(t, "by", res.Action)

	res = r.Resolve(ctxFor("привет, как дела"))
	require.True(t, res.Resolved)
	assert.Equal(t, "greeting", res.Action)
	assert.Equal(t, SourceSlot, res.Source)

	res = r.Resolve(ctxFor("абвгд"))
	assert.False(t, res.Resolved)
	assert.Equal(t, "", res.Action)
}

func TestSlotTieBreaksToEarliestDeclaration(t *testing.T) {
	r := NewResolver(command.NewTable(), []Intent{
		{Name: "one", Slots: []string{"привет"}},
		{Name: "two", Slots: []string{"привет"}},
	})

	res := r.Resolve(ctxFor("привет"))
	require.True(t, res.Resolved)
	assert.Equal(t, "one", res.Action)
}

func TestPerIntentThresholdOverride(t *testing.T) {
	r := NewResolver(command.NewTable(), []Intent{
		{Name: "strict", Slots: []string{"привет"}, Threshold: 100},
	})

	res := r.Resolve(ctxFor("привед"))
	assert.False(t, res.Resolved, "score below per-intent threshold must not match")

	res = r.Resolve(ctxFor("привет"))
	assert.True(t, res.Resolved)
}

func TestParseIntentsYAML(t *testing.T) {
	data := []byte(`
intents:
  - name: greeting
    slots: ["привет", "здравствуй"]
    threshold: 70
  - name: by
    slots: ["пока"]
`)
	intents, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, intents, 2)
	assert.Equal(t, "greeting", intents[0].Name)
	assert.Equal(t, 70, intents[0].Threshold)
	assert.Equal(t, []string{"пока"}, intents[1].Slots)
}

func TestParseRejectsInvalid(t *testing.T) {
	_, err := Parse([]byte("intents:\n  - slots: [\"x\"]\n"))
	assert.Error(t, err, "missing name")

	_, err = Parse([]byte("intents:\n  - name: empty\n"))
	assert.Error(t, err, "missing slots")
}
