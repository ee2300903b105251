package moderation

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/wardenbot/warden/platform"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}

// fakeAPI records every platform mutation and returns canned answers.
type fakeAPI struct {
	botID        string
	capabilities map[platform.Capability]bool
	memberRoles  map[string][]string
	roleRanks    map[string]int
	roleNames    map[string]string

	ensureRoleID  string
	ensureCreated bool

	grantErr       error
	revokeErr      error
	banErr         error
	noticeErr      error
	memberRolesErr map[string]error
	panicOnRevoke  map[string]bool

	granted    [][2]string
	revoked    [][2]string
	overwrites []string
	banned     []string
	unbanned   []string
	kicked     []string
	notices    []string
	modLogs    []platform.LogEntry
	unbanFired chan string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		botID:        "bot",
		capabilities: make(map[platform.Capability]bool),
		memberRoles:  make(map[string][]string),
		roleRanks:    make(map[string]int),
		roleNames:    make(map[string]string),
		ensureRoleID: "muted-role",
	}
}

func (f *fakeAPI) BotID() string { return f.botID }

func (f *fakeAPI) GrantRole(memberID, roleID, reason string) error {
	if f.grantErr != nil {
		return f.grantErr
	}
	f.granted = append(f.granted, [2]string{memberID, roleID})
	return nil
}

func (f *fakeAPI) RevokeRole(memberID, roleID, reason string) error {
	if f.panicOnRevoke[memberID] {
		panic("revoke exploded")
	}
	if f.revokeErr != nil {
		return f.revokeErr
	}
	f.revoked = append(f.revoked, [2]string{memberID, roleID})
	return nil
}

func (f *fakeAPI) SetMemberRoles(memberID string, roleIDs []string) error {
	f.memberRoles[memberID] = roleIDs
	return nil
}

func (f *fakeAPI) BanMember(memberID, reason string, purgeDays int) error {
	if f.banErr != nil {
		return f.banErr
	}
	f.banned = append(f.banned, memberID)
	return nil
}

func (f *fakeAPI) UnbanMember(memberID, reason string) error {
	f.unbanned = append(f.unbanned, memberID)
	if f.unbanFired != nil {
		f.unbanFired <- memberID
	}
	return nil
}

func (f *fakeAPI) KickMember(memberID, reason string) error {
	f.kicked = append(f.kicked, memberID)
	return nil
}

func (f *fakeAPI) MemberRoles(memberID string) ([]string, error) {
	if err := f.memberRolesErr[memberID]; err != nil {
		return nil, err
	}
	roles, ok := f.memberRoles[memberID]
	if !ok {
		return nil, platform.ErrUnknownMember
	}
	return roles, nil
}

func (f *fakeAPI) RoleRank(roleID string) (int, error) {
	rank, ok := f.roleRanks[roleID]
	if !ok {
		return 0, platform.ErrUnknownRole
	}
	return rank, nil
}

func (f *fakeAPI) RoleName(roleID string) (string, error) {
	name, ok := f.roleNames[roleID]
	if !ok {
		return "", platform.ErrUnknownRole
	}
	return name, nil
}

func (f *fakeAPI) EnsureRole(name string) (string, bool, error) {
	return f.ensureRoleID, f.ensureCreated, nil
}

func (f *fakeAPI) ApplyMuteOverwrites(roleID string) error {
	f.overwrites = append(f.overwrites, roleID)
	return nil
}

func (f *fakeAPI) SetChannelSendLock(channelID string, locked bool, reason string) error {
	return nil
}

func (f *fakeAPI) SendDirectNotice(memberID, message string) error {
	if f.noticeErr != nil {
		return f.noticeErr
	}
	f.notices = append(f.notices, memberID)
	return nil
}

func (f *fakeAPI) SendChannelMessage(channelID, message string) error { return nil }

func (f *fakeAPI) PostModLog(entry platform.LogEntry) error {
	f.modLogs = append(f.modLogs, entry)
	return nil
}

func (f *fakeAPI) HasCapability(c platform.Capability) bool {
	return f.capabilities[c]
}
