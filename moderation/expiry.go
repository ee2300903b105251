package moderation

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const expiryCheckInterval = 60 * time.Second

// ExpiryLoop is the background task that converges platform state with the
// ledger: expired mutes get reversed, expired warnings get pruned. Passes
// never overlap; each pass runs to completion before the next sleep starts.
type ExpiryLoop struct {
	manager  *Manager
	store    *Store
	interval time.Duration
	log      *logrus.Entry

	now func() time.Time
}

func NewExpiryLoop(manager *Manager, store *Store, log *logrus.Logger) *ExpiryLoop {
	return &ExpiryLoop{
		manager:  manager,
		store:    store,
		interval: expiryCheckInterval,
		log:      log.WithField("module", "moderation"),
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled. Start it only once the gateway
// connection is ready.
func (l *ExpiryLoop) Run(ctx context.Context) {
	l.log.Infof("started expired actions loop (%s)", l.interval)

	for {
		l.runPass()

		select {
		case <-ctx.Done():
			l.log.Info("stopped expired actions loop")
			return
		case <-time.After(l.interval):
		}
	}
}

// runPass reverses every expired mute, prunes expired warnings, and persists
// the ledger at most once. A failure on one record never aborts the rest of
// the pass.
func (l *ExpiryLoop) runPass() {
	now := l.now().Unix()
	changed := false

	for _, subjectID := range l.store.ExpiredMutes(now) {
		if err := l.reverseExpiredMute(subjectID); err != nil {
			l.log.WithError(err).Errorf("failed to reverse expired mute of %s", subjectID)
			continue
		}
		changed = true
	}

	if pruned := l.store.PruneExpiredWarnings(now); pruned > 0 {
		l.log.Infof("pruned %d expired warnings", pruned)
		changed = true
	}

	if !changed {
		return
	}
	if err := l.store.Save(); err != nil {
		l.log.WithError(err).Error("failed to persist moderation ledger after expiry pass")
	}
}

func (l *ExpiryLoop) reverseExpiredMute(subjectID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Errorf("panic while reversing mute of %s: %v", subjectID, r)
		}
	}()

	err = l.manager.reverseMute(subjectID, "", "Mute duration expired")
	if err == ErrNotMuted {
		// another task reversed it between the scan and this call
		return nil
	}
	return err
}
