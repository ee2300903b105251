package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/wardenbot/warden/models"
	"github.com/wardenbot/warden/platform"
)

const banPurgeDays = 1

var (
	// ErrAlreadyMuted guards the one-active-mute-per-subject invariant.
	ErrAlreadyMuted = errors.New("subject is already muted")
	// ErrNotMuted makes reversing a non-existent mute a reported no-op.
	ErrNotMuted = errors.New("subject is not muted")
	// ErrNoWarnings is the distinct no-op outcome of clearing an empty set.
	ErrNoWarnings = errors.New("subject has no active warnings")
)

type MuteResult struct {
	Record   models.MuteRecord
	Duration string
	DMSent   bool
}

type WarnResult struct {
	WarningID string
	Count     int
	Duration  string
	DMSent    bool
}

type BanResult struct {
	Duration  string
	Temporary bool
	DMSent    bool
}

// Manager owns the temporal action ledger and applies or reverses the
// platform effect of each action. Platform failures after a ledger mutation
// never roll the ledger back; it reflects intended state.
type Manager struct {
	store         *Store
	api           platform.API
	guildID       string
	mutedRoleName string
	log           *logrus.Entry

	now func() time.Time
}

func NewManager(store *Store, api platform.API, guildID, mutedRoleName string, log *logrus.Logger) *Manager {
	return &Manager{
		store:         store,
		api:           api,
		guildID:       guildID,
		mutedRoleName: mutedRoleName,
		log:           log.WithField("module", "moderation"),
		now:           time.Now,
	}
}

// ApplyMute grants the restriction role and records the mute. A "permanent"
// duration is coerced to one hour; mutes always expire. Returns
// ErrAlreadyMuted when the subject already holds an active mute.
func (m *Manager) ApplyMute(subjectID, issuerID, reason, durationToken string) (*MuteResult, error) {
	if _, active := m.store.Mute(subjectID); active {
		return nil, ErrAlreadyMuted
	}

	seconds, permanent := ParseDuration(durationToken)
	if permanent {
		seconds = DefaultDurationSeconds
	}
	durationText := FormatDuration(seconds, false)

	roleID, created, err := m.api.EnsureRole(m.mutedRoleName)
	if err != nil {
		return nil, errors.Wrap(err, "resolving muted role")
	}
	if created {
		m.log.Infof("created muted role %s, applying channel overwrites", roleID)
		if err := m.api.ApplyMuteOverwrites(roleID); err != nil {
			return nil, errors.Wrap(err, "configuring muted role")
		}
	}

	dmSent := m.notify(subjectID, fmt.Sprintf(
		"You have been muted.\nReason: %s\nDuration: %s", reason, durationText))

	if err := m.api.GrantRole(subjectID, roleID, fmt.Sprintf("Muted by %s: %s", issuerID, reason)); err != nil {
		return nil, err
	}

	createdAt := m.now().Unix()
	expiresAt := createdAt + seconds
	record := models.MuteRecord{
		GuildID:     m.guildID,
		RoleID:      roleID,
		ModeratorID: issuerID,
		Reason:      reason,
		CreatedAt:   createdAt,
		ExpiresAt:   &expiresAt,
		Duration:    durationText,
	}

	// re-check right before the write, another task may have muted the
	// subject while we were talking to the platform
	if !m.store.SetMuteIfAbsent(subjectID, record) {
		return nil, ErrAlreadyMuted
	}
	if err := m.store.Save(); err != nil {
		m.log.WithError(err).Error("failed to persist moderation ledger after mute")
		return nil, err
	}

	m.modLog(platform.LogEntry{
		Action: "Mute", SubjectID: subjectID, ActorID: issuerID,
		Reason: reason, Duration: durationText,
	})
	return &MuteResult{Record: record, Duration: durationText, DMSent: dmSent}, nil
}

// ReverseMute revokes the restriction role and deletes the record.
// Idempotent: reversing a subject with no active mute returns ErrNotMuted
// without touching anything.
func (m *Manager) ReverseMute(subjectID, actorID, reason string) error {
	if err := m.reverseMute(subjectID, actorID, reason); err != nil {
		return err
	}
	if err := m.store.Save(); err != nil {
		m.log.WithError(err).Error("failed to persist moderation ledger after unmute")
		return err
	}
	return nil
}

// reverseMute is ReverseMute without the persist, so the expiry loop can
// batch one write across a whole pass.
func (m *Manager) reverseMute(subjectID, actorID, reason string) error {
	record, active := m.store.Mute(subjectID)
	if !active {
		return ErrNotMuted
	}

	if err := m.api.RevokeRole(subjectID, record.RoleID, reason); err != nil {
		// the record still goes away, the role may already be gone
		m.log.WithError(err).Warnf("failed to revoke muted role from %s", subjectID)
	}

	m.store.DeleteMute(subjectID)

	m.notify(subjectID, "You have been unmuted.\nReason: "+reason)
	m.modLog(platform.LogEntry{
		Action: "Unmute", SubjectID: subjectID, ActorID: actorID,
		Reason: reason, Reversal: true,
	})
	return nil
}

// AddWarning records a warning and returns the subject's updated count.
// Unlike mutes, warnings may be permanent and stack freely.
func (m *Manager) AddWarning(subjectID, issuerID, reason, durationToken string) (*WarnResult, error) {
	seconds, permanent := ParseDuration(durationToken)
	durationText := FormatDuration(seconds, permanent)

	createdAt := m.now().Unix()
	record := models.WarningRecord{
		GuildID:     m.guildID,
		ModeratorID: issuerID,
		Reason:      reason,
		CreatedAt:   createdAt,
		Duration:    durationText,
	}
	if !permanent {
		expiresAt := createdAt + seconds
		record.ExpiresAt = &expiresAt
	}

	warningID, count := m.store.AddWarning(subjectID, record)
	if err := m.store.Save(); err != nil {
		m.log.WithError(err).Error("failed to persist moderation ledger after warning")
		return nil, err
	}

	dmSent := m.notify(subjectID, fmt.Sprintf(
		"You have been warned.\nReason: %s\nWarning expires: %s", reason, durationText))
	m.modLog(platform.LogEntry{
		Action: "Warning", SubjectID: subjectID, ActorID: issuerID,
		Reason: reason, Duration: durationText, Warning: true,
	})
	return &WarnResult{WarningID: warningID, Count: count, Duration: durationText, DMSent: dmSent}, nil
}

// Warnings lists the subject's active warnings for display.
func (m *Manager) Warnings(subjectID string) map[string]models.WarningRecord {
	return m.store.Warnings(subjectID)
}

// ClearWarnings drops the subject's whole warning collection in one persisted
// mutation and returns how many records were removed.
func (m *Manager) ClearWarnings(subjectID, actorID string) (int, error) {
	count := m.store.ClearWarnings(subjectID)
	if count == 0 {
		return 0, ErrNoWarnings
	}
	if err := m.store.Save(); err != nil {
		m.log.WithError(err).Error("failed to persist moderation ledger after clearing warnings")
		return count, err
	}

	m.modLog(platform.LogEntry{
		Action: "Clear Warnings", SubjectID: subjectID, ActorID: actorID,
		Reason: fmt.Sprintf("Cleared %d warnings", count),
	})
	return count, nil
}

// Ban notifies the subject, bans them with a one day message purge window,
// and for finite durations arms the deferred unban.
func (m *Manager) Ban(ctx context.Context, subjectID, issuerID, reason, durationToken string) (*BanResult, error) {
	seconds, permanent := ParseDuration(durationToken)
	durationText := FormatDuration(seconds, permanent)

	dmSent := m.notify(subjectID, fmt.Sprintf(
		"You have been banned.\nReason: %s\nDuration: %s", reason, durationText))

	if err := m.api.BanMember(subjectID, fmt.Sprintf("Banned by %s: %s", issuerID, reason), banPurgeDays); err != nil {
		return nil, err
	}

	m.modLog(platform.LogEntry{
		Action: "Ban", SubjectID: subjectID, ActorID: issuerID,
		Reason: reason, Duration: durationText,
	})

	if !permanent {
		m.ScheduleBanReversal(ctx, subjectID, seconds, durationText)
	}
	return &BanResult{Duration: durationText, Temporary: !permanent, DMSent: dmSent}, nil
}

// Kick removes the subject from the guild after a best-effort DM.
func (m *Manager) Kick(subjectID, issuerID, reason string) (bool, error) {
	dmSent := m.notify(subjectID, "You have been kicked.\nReason: "+reason)

	if err := m.api.KickMember(subjectID, fmt.Sprintf("Kicked by %s: %s", issuerID, reason)); err != nil {
		return dmSent, err
	}

	m.modLog(platform.LogEntry{
		Action: "Kick", SubjectID: subjectID, ActorID: issuerID, Reason: reason,
	})
	return dmSent, nil
}

// ScheduleBanReversal arms a one-shot unban that fires after $seconds. The
// schedule lives only in memory; it survives neither restarts nor manual
// unbans, so the fired reversal must tolerate an already-unbanned subject.
func (m *Manager) ScheduleBanReversal(ctx context.Context, subjectID string, seconds int64, durationText string) {
	m.scheduleBanReversalAfter(ctx, subjectID, time.Duration(seconds)*time.Second, durationText)
}

func (m *Manager) scheduleBanReversalAfter(ctx context.Context, subjectID string, wait time.Duration, durationText string) {
	go func() {
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		reason := fmt.Sprintf("Temporary ban duration expired (%s)", durationText)
		if err := m.api.UnbanMember(subjectID, reason); err != nil {
			m.log.WithError(err).Warnf("failed to unban %s after temporary ban", subjectID)
			return
		}

		m.log.Infof("unbanned %s, temporary ban expired", subjectID)
		m.modLog(platform.LogEntry{
			Action: "Unban", SubjectID: subjectID, Reason: reason, Reversal: true,
		})
	}()
}

// notify DMs the subject. Failures are swallowed; a closed DM channel never
// blocks a moderation action.
func (m *Manager) notify(subjectID, message string) bool {
	if err := m.api.SendDirectNotice(subjectID, message); err != nil {
		m.log.WithError(err).Debugf("failed to DM %s", subjectID)
		return false
	}
	return true
}

func (m *Manager) modLog(entry platform.LogEntry) {
	if err := m.api.PostModLog(entry); err != nil {
		m.log.WithError(err).Warn("failed to post moderation log entry")
	}
}
