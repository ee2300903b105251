package levels

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const watchInterval = 60 * time.Second

// SnapshotProvider is a LevelProvider that can also enumerate every known
// member's level in one read.
type SnapshotProvider interface {
	LevelProvider
	Levels() (map[string]int, error)
}

// Watcher polls the leveling store and reconciles the tier roles of members
// whose level changed since the previous snapshot. It is the push half of
// the reconciler; the updateroles command is the pull half.
type Watcher struct {
	provider   SnapshotProvider
	reconciler *Reconciler
	log        *logrus.Entry

	lastSeen map[string]int
}

func NewWatcher(provider SnapshotProvider, reconciler *Reconciler, log *logrus.Logger) *Watcher {
	return &Watcher{
		provider:   provider,
		reconciler: reconciler,
		log:        log.WithField("module", "levels"),
	}
}

// Run blocks until ctx is cancelled. Passes never overlap.
func (w *Watcher) Run(ctx context.Context) {
	w.log.Infof("started level watcher (%s)", watchInterval)

	for {
		w.runPass()

		select {
		case <-ctx.Done():
			w.log.Info("stopped level watcher")
			return
		case <-time.After(watchInterval):
		}
	}
}

func (w *Watcher) runPass() {
	current, err := w.provider.Levels()
	if err != nil {
		w.log.WithError(err).Error("failed to snapshot member levels")
		return
	}

	// the first pass only seeds the snapshot, otherwise every restart would
	// re-reconcile the whole guild at once
	if w.lastSeen == nil {
		w.lastSeen = current
		return
	}

	for memberID, level := range current {
		if level == w.lastSeen[memberID] {
			continue
		}
		w.log.Infof("level of %s changed %d -> %d, reconciling roles", memberID, w.lastSeen[memberID], level)

		_, err := w.reconciler.Reconcile(memberID, level)
		if _, notEligible := err.(*NotEligibleError); notEligible {
			continue
		}
		if err != nil {
			// one member's failure must not starve the rest of the pass
			w.log.WithError(err).Errorf("failed to reconcile roles of %s", memberID)
		}
	}
	w.lastSeen = current
}
