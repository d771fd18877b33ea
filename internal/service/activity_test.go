package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/palmcove/resortd/internal/model"
	"github.com/palmcove/resortd/internal/store"
)

type failingWriter struct{ calls int }

func (f *failingWriter) InsertActivity(context.Context, *model.ActivityEntry) error {
	f.calls++
	return errors.New("database is down")
}

func TestActivityLoggerRecords(t *testing.T) {
	st := newTestStore(t)
	l := NewActivityLogger(st, nil)

	uid := int64(4)
	l.Record(context.Background(), model.ActivityEntry{UserID: &uid, Role: "client", Event: model.EventLogin, Outcome: model.OutcomeSuccess})

	entries, total, err := st.ListActivity(context.Background(), store.ActivityFilter{})
	if err != nil {
		t.Fatalf("ListActivity: %v", err)
	}
	if total != 1 || entries[0].Event != model.EventLogin {
		t.Errorf("entries = %+v", entries)
	}
}

func TestActivityLoggerSwallowsErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	w := &failingWriter{}
	l := NewActivityLogger(w, logger)

	l.Record(context.Background(), model.ActivityEntry{Event: model.EventLogout, Outcome: model.OutcomeSuccess})

	if w.calls != 1 {
		t.Errorf("calls = %d, want 1", w.calls)
	}
	if !strings.Contains(buf.String(), "activity log write failed") {
		t.Errorf("expected failure in server log, got %q", buf.String())
	}
}

func TestActivityLoggerIgnoresCancelledContext(t *testing.T) {
	st := newTestStore(t)
	l := NewActivityLogger(st, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l.Record(ctx, model.ActivityEntry{Event: model.EventLogout, Outcome: model.OutcomeSuccess})

	_, total, err := st.ListActivity(context.Background(), store.ActivityFilter{})
	if err != nil {
		t.Fatalf("ListActivity: %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
}
