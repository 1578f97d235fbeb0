package repl

import (
	"context"

	"github.com/leapstack-labs/formrepl/internal/session"
	"github.com/leapstack-labs/formrepl/internal/state"
)

// JournalRecorder writes cycles of one session to the SQLite journal.
type JournalRecorder struct {
	Journal   *state.Journal
	SessionID string
}

// Record stores one finished entry.
func (r JournalRecorder) Record(ctx context.Context, e session.Entry) error {
	return r.Journal.RecordEntry(ctx, state.Entry{
		SessionID:   r.SessionID,
		Seq:         e.Seq,
		Input:       e.Input,
		Output:      e.Output,
		Stderr:      e.Stderr,
		Failure:     e.Failure,
		Duration:    e.Duration,
		SubmittedAt: e.SubmittedAt,
	})
}

// Reset drops the session's journaled entries after a %reset.
func (r JournalRecorder) Reset(ctx context.Context) error {
	return r.Journal.ClearSession(ctx, r.SessionID)
}
