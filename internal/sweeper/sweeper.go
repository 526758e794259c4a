// Package sweeper soft-deletes notes whose expiration timestamp has
// passed. It runs on its own timer, independent of request handling.
package sweeper

import (
	"context"
	"log"
	"time"

	"github.com/ardato/secure-notes/internal/repository"
)

// noteStore is the slice of the note repository the sweeper uses.
// *repository.NoteRepo satisfies it; tests substitute a fake.
type noteStore interface {
	FindExpired(ctx context.Context, now time.Time, limit int) ([]repository.ExpiredNote, error)
	Delete(ctx context.Context, userID, noteID uint64) error
}

// Publisher receives a notification per swept note. Publishing is
// best-effort; failures are logged and never block the sweep.
type Publisher interface {
	NoteExpired(ctx context.Context, userID, noteID uint64, expiredAt time.Time) error
}

// Sweeper periodically finds expired, non-deleted notes and soft-deletes
// them in bounded pages.
type Sweeper struct {
	notes     noteStore
	publisher Publisher // may be nil
	interval  time.Duration
	pageSize  int
}

func New(notes noteStore, publisher Publisher, interval time.Duration, pageSize int) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Sweeper{notes: notes, publisher: publisher, interval: interval, pageSize: pageSize}
}

// Run sweeps on a fixed ticker until ctx is cancelled. Intended to be
// started as a goroutine from main.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				log.Printf("sweeper: sweep failed: %v", err)
			}
		}
	}
}

// Sweep performs one full pass. "now" is snapshotted once so a
// continuously growing expired set cannot starve the run: each page only
// sees notes that were already expired when the sweep began, and every
// soft-delete removes the note from the next page's candidate set.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := time.Now().UTC()
	total := 0
	for {
		page, err := s.notes.FindExpired(ctx, now, s.pageSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}
		swept := 0
		for _, e := range page {
			if err := s.notes.Delete(ctx, e.UserID, e.NoteID); err != nil {
				log.Printf("sweeper: delete note %d for user %d: %v", e.NoteID, e.UserID, err)
				continue
			}
			swept++
			if s.publisher != nil {
				if err := s.publisher.NoteExpired(ctx, e.UserID, e.NoteID, now); err != nil {
					log.Printf("sweeper: publish expired note %d: %v", e.NoteID, err)
				}
			}
		}
		total += swept
		if swept == 0 {
			// Every delete in this page failed; trying the same page
			// again would spin.
			break
		}
	}
	if total > 0 {
		log.Printf("sweeper: soft-deleted %d expired notes", total)
	}
	return nil
}
