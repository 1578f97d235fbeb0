package input

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedAll(a *Assembler, lines ...string) []Outcome {
	out := make([]Outcome, 0, len(lines))
	for _, l := range lines {
		out = append(out, a.Feed(l))
	}
	return out
}

func submitted(outcomes []Outcome) []Unit {
	var units []Unit
	for _, o := range outcomes {
		if o.Kind == Submitted {
			units = append(units, o.Unit)
		}
	}
	return units
}

func TestAssembler_BlankLineSubmits(t *testing.T) {
	a := New()
	outcomes := feedAll(a, "Symbol x;", "Local E = x;", "")

	units := submitted(outcomes)
	require.Len(t, units, 1)
	assert.Equal(t, []string{"Symbol x;", "Local E = x;"}, units[0].Lines())
	assert.Equal(t, Idle, a.State())
	assert.Equal(t, Continue, outcomes[0].Kind)
	assert.Equal(t, Continue, outcomes[1].Kind)
}

func TestAssembler_SentinelSubmits(t *testing.T) {
	a := New()
	outcomes := feedAll(a, "Symbol x;", ".end")

	units := submitted(outcomes)
	require.Len(t, units, 1)
	assert.Equal(t, []string{"Symbol x;"}, units[0].Lines())
	assert.Equal(t, "Symbol x;", units[0].Text())
}

func TestAssembler_CustomSentinel(t *testing.T) {
	a := New(WithSentinel("END"))
	units := submitted(feedAll(a, "x", ".end", "end"))
	require.Len(t, units, 1)
	assert.Equal(t, []string{"x", ".end"}, units[0].Lines())
}

func TestAssembler_IgnoresLeadingBlankAndSentinel(t *testing.T) {
	a := New()
	for _, o := range feedAll(a, "", "   ", ".end") {
		assert.Equal(t, Continue, o.Kind)
	}
	assert.Equal(t, Idle, a.State())
	assert.Empty(t, a.Pending())
}

func TestAssembler_TrimsLines(t *testing.T) {
	a := New()
	feedAll(a, "   Symbol x;  ", "\tPrint;\t")
	assert.Equal(t, []string{"Symbol x;", "Print;"}, a.Pending())
	assert.Equal(t, Collecting, a.State())
}

func TestAssembler_CancelDiscardsBuffer(t *testing.T) {
	a := New()
	feedAll(a, "Symbol a;", "Local F = a;")

	o := a.Cancel()
	assert.Equal(t, Cancelled, o.Kind)
	assert.Equal(t, 2, o.Discarded)
	assert.Equal(t, Idle, a.State())

	units := submitted(feedAll(a, "Symbol x;", "Local E = x;", ""))
	require.Len(t, units, 1)
	assert.Equal(t, []string{"Symbol x;", "Local E = x;"}, units[0].Lines())
}

func TestAssembler_EOF(t *testing.T) {
	t.Run("empty buffer terminates", func(t *testing.T) {
		assert.Equal(t, Terminate, New().EOF().Kind)
	})

	t.Run("pending buffer submits", func(t *testing.T) {
		a := New()
		a.Feed("Symbol x;")
		o := a.EOF()
		require.Equal(t, Submitted, o.Kind)
		assert.Equal(t, []string{"Symbol x;"}, o.Unit.Lines())
		assert.Equal(t, Idle, a.State())
	})
}

func TestAssembler_ClearDirectiveOnlyOnFirstLine(t *testing.T) {
	a := New()
	assert.Equal(t, Cleared, a.Feed(".clear").Kind)
	assert.Equal(t, Idle, a.State())

	a.Feed("Symbol x;")
	assert.Equal(t, Continue, a.Feed(".clear").Kind)
	assert.Equal(t, []string{"Symbol x;", ".clear"}, a.Pending())
}

func TestAssembler_Directive(t *testing.T) {
	isCmd := func(l string) bool { return strings.HasPrefix(l, "%") }
	a := New(WithDirectiveFunc(isCmd))

	o := a.Feed("  %history 3 ")
	assert.Equal(t, Directive, o.Kind)
	assert.Equal(t, "%history 3", o.Line)
	assert.Equal(t, Idle, a.State())

	// Not a directive once collecting.
	a.Feed("Symbol x;")
	assert.Equal(t, Continue, a.Feed("%who").Kind)
	assert.Equal(t, []string{"Symbol x;", "%who"}, a.Pending())
}

func TestAssembler_ValidatorRejectsAndKeepsBuffer(t *testing.T) {
	errNope := errors.New("nope")
	calls := 0
	a := New(WithValidator(func(u Unit) error {
		calls++
		if calls == 1 {
			return errNope
		}
		return nil
	}))

	a.Feed("Local E = (x;")
	o := a.Feed("")
	assert.Equal(t, Rejected, o.Kind)
	assert.ErrorIs(t, o.Err, errNope)
	assert.Equal(t, Collecting, a.State())

	a.Feed("Local F = x;")
	o = a.Feed(".end")
	require.Equal(t, Submitted, o.Kind)
	assert.Equal(t, []string{"Local E = (x;", "Local F = x;"}, o.Unit.Lines())
}

func TestUnit_Immutable(t *testing.T) {
	src := []string{"a", "b"}
	u := NewUnit(src...)
	src[0] = "changed"
	lines := u.Lines()
	lines[1] = "changed"
	assert.Equal(t, []string{"a", "b"}, u.Lines())
	assert.Equal(t, 2, u.Len())
}

func TestOutcomeKindString(t *testing.T) {
	assert.Equal(t, "submitted", Submitted.String())
	assert.Equal(t, "unknown", OutcomeKind(42).String())
	assert.Equal(t, "collecting", Collecting.String())
}
