package platform

import "github.com/pkg/errors"

// Capability names a guild-level permission the bot may or may not hold.
type Capability string

const (
	CapabilityBanMembers     Capability = "ban_members"
	CapabilityKickMembers    Capability = "kick_members"
	CapabilityManageRoles    Capability = "manage_roles"
	CapabilityManageChannels Capability = "manage_channels"
)

// ErrUnknownRole is returned when a role id does not resolve against the
// guild's current role set.
var ErrUnknownRole = errors.New("platform: unknown role")

// ErrUnknownMember is returned when a member id does not resolve against the
// guild, i.e. the user left or was never a member. Transient lookup failures
// are returned as ordinary errors, never as this sentinel.
var ErrUnknownMember = errors.New("platform: unknown member")

// LogEntry describes one moderation action for the audit log channel.
// ActorID is empty for actions taken by the bot itself (expiry reversals).
type LogEntry struct {
	Action    string
	SubjectID string
	ActorID   string
	Reason    string
	Duration  string
	Reversal  bool
	Warning   bool
}

// API is the guild-scoped surface of the chat platform the core mutates
// through. Implementations must be safe for concurrent use.
type API interface {
	// BotID returns the member id the bot itself acts as.
	BotID() string

	GrantRole(memberID, roleID, reason string) error
	RevokeRole(memberID, roleID, reason string) error

	// SetMemberRoles replaces the member's full role list in one call. This
	// is the batched mutation used by the tier-role reconciler.
	SetMemberRoles(memberID string, roleIDs []string) error

	BanMember(memberID, reason string, purgeDays int) error
	UnbanMember(memberID, reason string) error
	KickMember(memberID, reason string) error

	// MemberRoles returns ErrUnknownMember for an id that is not a guild
	// member.
	MemberRoles(memberID string) ([]string, error)
	RoleRank(roleID string) (int, error)
	RoleName(roleID string) (string, error)

	// EnsureRole finds a role by name, creating it when absent. created
	// reports whether a new role was made.
	EnsureRole(name string) (roleID string, created bool, err error)

	// ApplyMuteOverwrites denies send/speak for the role on every existing
	// text and voice channel. Called once, right after EnsureRole created
	// the role.
	ApplyMuteOverwrites(roleID string) error

	SetChannelSendLock(channelID string, locked bool, reason string) error

	// SendDirectNotice DMs the member. Best effort, callers swallow errors.
	SendDirectNotice(memberID, message string) error

	SendChannelMessage(channelID, message string) error

	// PostModLog writes the entry to the configured moderation log channel.
	// No-op when no log channel is configured.
	PostModLog(entry LogEntry) error

	HasCapability(c Capability) bool
}
