package backup

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/pharmacy/internal/events"
	"github.com/alfredjeanlab/pharmacy/internal/store"
)

// Destination is a backup target.
type Destination interface {
	// Write stores the JSONL payload, replacing the previous backup.
	Write(ctx context.Context, data []byte) error
}

// Notifier announces completed backups. *server.Server implements it.
type Notifier interface {
	Notify(ctx context.Context, topic, entity, id string, event any)
}

// Scheduler runs periodic backups to one or more destinations.
type Scheduler struct {
	store        store.Store
	destinations []Destination
	interval     time.Duration
	notifier     Notifier // may be nil
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports the store to destinations
// every interval.
func NewScheduler(s store.Store, destinations []Destination, interval time.Duration, notifier Notifier, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:        s,
		destinations: destinations,
		interval:     interval,
		notifier:     notifier,
		logger:       logger,
	}
}

// Start runs one backup immediately, then one per interval until Stop.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for a running backup to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	s.backupOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.backupOnce(ctx)
		}
	}
}

func (s *Scheduler) backupOnce(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("backup failed", "err", err)
	}
}

// RunOnce exports the store and writes it to every destination. A failing
// destination does not stop the others; the backup only counts as completed
// when at least one write succeeded.
func (s *Scheduler) RunOnce(ctx context.Context) (*events.BackupCompleted, error) {
	var buf bytes.Buffer
	counts, err := ExportJSONL(ctx, s.store, &buf)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	data := buf.Bytes()

	written := 0
	for i, dest := range s.destinations {
		if err := dest.Write(ctx, data); err != nil {
			s.logger.Error("backup destination write failed", "destination", describe(i, dest), "err", err)
			continue
		}
		written++
	}
	if written == 0 && len(s.destinations) > 0 {
		return nil, fmt.Errorf("all %d destinations failed", len(s.destinations))
	}

	done := &events.BackupCompleted{Destinations: written, Bytes: len(data), Counts: counts}
	s.logger.Info("backup completed", "destinations", written, "bytes", len(data))
	if s.notifier != nil {
		s.notifier.Notify(ctx, events.TopicBackupCompleted, "Backup", time.Now().UTC().Format(time.RFC3339), done)
	}
	return done, nil
}

func describe(i int, dest Destination) string {
	if s, ok := dest.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%d", i)
}
