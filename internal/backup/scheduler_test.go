package backup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/pharmacy/internal/events"
	"github.com/alfredjeanlab/pharmacy/internal/store/memory"
)

// mockDestination records calls to Write.
type mockDestination struct {
	writes atomic.Int64
	last   atomic.Value // []byte
	err    error
}

func (d *mockDestination) Write(_ context.Context, data []byte) error {
	d.writes.Add(1)
	if d.err != nil {
		return d.err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	d.last.Store(cp)
	return nil
}

type notification struct {
	topic string
	event any
}

type recordingNotifier struct {
	mu   sync.Mutex
	seen []notification
}

func (n *recordingNotifier) Notify(_ context.Context, topic, _, _ string, event any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, notification{topic, event})
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.seen)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerStartStop(t *testing.T) {
	dest := &mockDestination{}
	sched := NewScheduler(seededStore(t), []Destination{dest}, 50*time.Millisecond, nil, quietLogger())
	sched.Start()

	// Wait for at least the initial backup + one tick.
	time.Sleep(120 * time.Millisecond)
	sched.Stop()

	if writes := dest.writes.Load(); writes < 2 {
		t.Fatalf("expected at least 2 writes, got %d", writes)
	}

	data, ok := dest.last.Load().([]byte)
	if !ok || len(data) == 0 {
		t.Fatal("expected non-empty data")
	}
	if lines := nonEmptyLines(string(data)); len(lines) != 11 {
		t.Fatalf("expected 11 lines, got %d", len(lines))
	}
}

func TestSchedulerStop_NoStart(t *testing.T) {
	sched := NewScheduler(memory.New(), nil, time.Minute, nil, quietLogger())
	// Stop without Start should not panic.
	sched.Stop()
}

func TestSchedulerMultipleDestinations(t *testing.T) {
	dest1 := &mockDestination{}
	dest2 := &mockDestination{}

	sched := NewScheduler(memory.New(), []Destination{dest1, dest2}, time.Second, nil, quietLogger())
	sched.Start()

	// Wait for the initial backup.
	time.Sleep(50 * time.Millisecond)
	sched.Stop()

	if dest1.writes.Load() < 1 {
		t.Fatal("dest1 expected at least 1 write")
	}
	if dest2.writes.Load() < 1 {
		t.Fatal("dest2 expected at least 1 write")
	}
}

func TestRunOnce_Notifies(t *testing.T) {
	notifier := &recordingNotifier{}
	sched := NewScheduler(seededStore(t), []Destination{&mockDestination{}}, time.Minute, notifier, quietLogger())

	done, err := sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if done.Destinations != 1 || done.Bytes == 0 || done.Counts["product"] != 2 {
		t.Fatalf("unexpected result: %+v", done)
	}
	if notifier.count() != 1 {
		t.Fatalf("expected 1 notification, got %d", notifier.count())
	}
	if notifier.seen[0].topic != events.TopicBackupCompleted {
		t.Fatalf("unexpected topic %q", notifier.seen[0].topic)
	}
}

func TestRunOnce_PartialFailure(t *testing.T) {
	bad := &mockDestination{err: errors.New("bucket gone")}
	good := &mockDestination{}
	notifier := &recordingNotifier{}
	sched := NewScheduler(memory.New(), []Destination{bad, good}, time.Minute, notifier, quietLogger())

	done, err := sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if done.Destinations != 1 {
		t.Fatalf("expected 1 successful destination, got %d", done.Destinations)
	}
	if good.writes.Load() != 1 {
		t.Fatal("a failing destination should not stop the others")
	}
}

func TestRunOnce_AllFail(t *testing.T) {
	notifier := &recordingNotifier{}
	sched := NewScheduler(memory.New(), []Destination{&mockDestination{err: errors.New("down")}}, time.Minute, notifier, quietLogger())

	if _, err := sched.RunOnce(context.Background()); err == nil {
		t.Fatal("expected an error when every destination fails")
	}
	if notifier.count() != 0 {
		t.Fatal("a failed backup should not be announced")
	}
}
