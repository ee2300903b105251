package models

// MuteRecord is the single active mute of a subject. ExpiresAt is nil for a
// mute without expiry (never produced by the mute command, which coerces
// "permanent" to one hour, but tolerated when read back from disk).
type MuteRecord struct {
	GuildID     string `json:"guild_id"`
	RoleID      string `json:"role_id"`
	ModeratorID string `json:"moderator_id"`
	Reason      string `json:"reason"`
	CreatedAt   int64  `json:"created_at"`
	ExpiresAt   *int64 `json:"expiry"`
	Duration    string `json:"duration"`
}

// WarningRecord is one active warning. A subject may hold several, keyed by
// a warning id unique within that subject's set.
type WarningRecord struct {
	GuildID     string `json:"guild_id"`
	ModeratorID string `json:"moderator_id"`
	Reason      string `json:"reason"`
	CreatedAt   int64  `json:"timestamp"`
	ExpiresAt   *int64 `json:"expiry"`
	Duration    string `json:"duration"`
}

// ModerationActions is the persisted ledger document. It is always written
// wholesale, never patched in place.
type ModerationActions struct {
	Mutes map[string]MuteRecord               `json:"mutes"`
	Warns map[string]map[string]WarningRecord `json:"warns"`
}

func NewModerationActions() ModerationActions {
	return ModerationActions{
		Mutes: make(map[string]MuteRecord),
		Warns: make(map[string]map[string]WarningRecord),
	}
}
