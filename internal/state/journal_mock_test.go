package state

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockJournal(t *testing.T) (*Journal, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	fixed := time.UnixMilli(1_700_000_000_000)
	return &Journal{db: db, path: "mock", now: func() time.Time { return fixed }}, mock
}

func TestJournal_DatabaseErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		call      func(j *Journal) error
		errMsg    string
		scanErr   bool
	}{
		{
			name: "start session",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO sessions").
					WithArgs(sqlmock.AnyArg(), "/usr/bin/form", int64(1_700_000_000_000)).
					WillReturnError(assert.AnError)
			},
			call: func(j *Journal) error {
				_, err := j.StartSession(ctx, "/usr/bin/form")
				return err
			},
			errMsg: "failed to start session",
		},
		{
			name: "end session",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE sessions SET ended_at").WillReturnError(assert.AnError)
			},
			call:   func(j *Journal) error { return j.EndSession(ctx, "abc") },
			errMsg: "failed to end session",
		},
		{
			name: "record entry uses clock when unset",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO entries").
					WithArgs("abc", 3, "Local F = x;", "", "", "", int64(0), int64(1_700_000_000_000)).
					WillReturnError(assert.AnError)
			},
			call: func(j *Journal) error {
				return j.RecordEntry(ctx, Entry{SessionID: "abc", Seq: 3, Input: "Local F = x;"})
			},
			errMsg: "failed to record entry",
		},
		{
			name: "clear session",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("DELETE FROM entries").WithArgs("abc").WillReturnError(assert.AnError)
			},
			call:   func(j *Journal) error { return j.ClearSession(ctx, "abc") },
			errMsg: "failed to clear session",
		},
		{
			name: "list sessions",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT s.id").WithArgs(-1).WillReturnError(assert.AnError)
			},
			call: func(j *Journal) error {
				_, err := j.ListSessions(ctx, 0)
				return err
			},
			errMsg: "failed to list sessions",
		},
		{
			name: "list entries scan",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"session_id", "seq"}).AddRow("abc", 1)
				mock.ExpectQuery("SELECT session_id").WithArgs("abc").WillReturnRows(rows)
			},
			call: func(j *Journal) error {
				_, err := j.ListEntries(ctx, "abc")
				return err
			},
			errMsg:  "failed to scan entry",
			scanErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, mock := newMockJournal(t)
			tt.setupMock(mock)

			err := tt.call(j)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			if !tt.scanErr {
				assert.ErrorIs(t, err, assert.AnError)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestJournal_EndSessionNoRows(t *testing.T) {
	j, mock := newMockJournal(t)
	mock.ExpectExec("UPDATE sessions SET ended_at").WillReturnResult(sqlmock.NewResult(0, 0))

	err := j.EndSession(context.Background(), "missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
