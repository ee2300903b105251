package moderation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/wardenbot/warden/models"
)

// Store owns the persisted ledger of active moderation actions. The document
// is loaded once, held in memory, and rewritten wholesale on Save. All
// accessors copy; callers never see the internal maps.
type Store struct {
	path string
	log  *logrus.Entry

	mutex  sync.Mutex
	ledger models.ModerationActions
}

// OpenStore reads the ledger at $path. A missing or malformed file yields an
// empty ledger; the first successful Save creates the file.
func OpenStore(path string, log *logrus.Logger) *Store {
	store := &Store{
		path:   path,
		log:    log.WithField("module", "moderation"),
		ledger: models.NewModerationActions(),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			store.log.WithError(err).Warn("failed to read moderation ledger, starting empty")
		}
		return store
	}

	var ledger models.ModerationActions
	if err := json.Unmarshal(data, &ledger); err != nil {
		store.log.WithError(err).Warn("moderation ledger is malformed, starting empty")
		return store
	}
	if ledger.Mutes == nil {
		ledger.Mutes = make(map[string]models.MuteRecord)
	}
	if ledger.Warns == nil {
		ledger.Warns = make(map[string]map[string]models.WarningRecord)
	}
	store.ledger = ledger
	return store
}

// Save rewrites the whole document atomically (write to a temp file, then
// replace). The lock is held across the replace, so concurrent saves cannot
// rename out of order and leave an older snapshot on disk.
func (s *Store) Save() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	data, err := json.MarshalIndent(s.ledger, "", "    ")
	if err != nil {
		return errors.Wrap(err, "encoding moderation ledger")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errors.Wrap(err, "creating ledger directory")
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return errors.Wrap(err, "writing moderation ledger")
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return errors.Wrap(err, "replacing moderation ledger")
	}
	return nil
}

// Mute returns the subject's active mute record, if any.
func (s *Store) Mute(subjectID string) (models.MuteRecord, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	record, ok := s.ledger.Mutes[subjectID]
	return record, ok
}

// SetMuteIfAbsent stores the mute unless the subject already has one. The
// existence check and the write happen under one lock so callers get a
// race-free AlreadyActive answer.
func (s *Store) SetMuteIfAbsent(subjectID string, record models.MuteRecord) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.ledger.Mutes[subjectID]; exists {
		return false
	}
	s.ledger.Mutes[subjectID] = record
	return true
}

// DeleteMute removes and returns the subject's mute record.
func (s *Store) DeleteMute(subjectID string) (models.MuteRecord, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	record, ok := s.ledger.Mutes[subjectID]
	if ok {
		delete(s.ledger.Mutes, subjectID)
	}
	return record, ok
}

// Warnings returns a copy of the subject's active warnings.
func (s *Store) Warnings(subjectID string) map[string]models.WarningRecord {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	warnings := make(map[string]models.WarningRecord, len(s.ledger.Warns[subjectID]))
	for id, record := range s.ledger.Warns[subjectID] {
		warnings[id] = record
	}
	return warnings
}

// AddWarning appends a warning under a fresh id and returns the id along
// with the subject's new warning count. Ids are a per-subject counter, so
// two warnings issued in the same instant still get distinct ids.
func (s *Store) AddWarning(subjectID string, record models.WarningRecord) (string, int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	warnings := s.ledger.Warns[subjectID]
	if warnings == nil {
		warnings = make(map[string]models.WarningRecord)
		s.ledger.Warns[subjectID] = warnings
	}

	var highest int64
	for id := range warnings {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil && n > highest {
			highest = n
		}
	}
	warningID := strconv.FormatInt(highest+1, 10)
	warnings[warningID] = record
	return warningID, len(warnings)
}

// SortedWarningIDs orders a warning collection's ids numerically, oldest
// first, for stable display. Map iteration order must never leak into output.
func SortedWarningIDs(warnings map[string]models.WarningRecord) []string {
	ids := make([]string, 0, len(warnings))
	for id := range warnings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.ParseInt(ids[i], 10, 64)
		b, _ := strconv.ParseInt(ids[j], 10, 64)
		return a < b
	})
	return ids
}

// ClearWarnings drops the subject's whole warning collection and returns how
// many records were removed.
func (s *Store) ClearWarnings(subjectID string) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	count := len(s.ledger.Warns[subjectID])
	delete(s.ledger.Warns, subjectID)
	return count
}

// ExpiredMutes lists subjects whose mute has a finite expiry at or before
// $now.
func (s *Store) ExpiredMutes(now int64) []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var expired []string
	for subjectID, record := range s.ledger.Mutes {
		if record.ExpiresAt != nil && *record.ExpiresAt <= now {
			expired = append(expired, subjectID)
		}
	}
	return expired
}

// PruneExpiredWarnings removes every warning with a finite expiry at or
// before $now, dropping subject keys whose collection becomes empty, and
// returns the number of warnings removed.
func (s *Store) PruneExpiredWarnings(now int64) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	removed := 0
	for subjectID, warnings := range s.ledger.Warns {
		for warningID, record := range warnings {
			if record.ExpiresAt != nil && *record.ExpiresAt <= now {
				delete(warnings, warningID)
				removed++
			}
		}
		if len(warnings) == 0 {
			delete(s.ledger.Warns, subjectID)
		}
	}
	return removed
}
