package moderation

import (
	"github.com/pkg/errors"
	"github.com/wardenbot/warden/platform"
)

// DenyReason classifies why the hierarchy guard rejected an action, so the
// user-facing message can say which leg failed.
type DenyReason int

const (
	DenyBotCapability DenyReason = iota
	DenyBotHierarchy
	DenyActorHierarchy
)

type HierarchyError struct {
	Reason     DenyReason
	Capability platform.Capability
}

func (e *HierarchyError) Error() string {
	switch e.Reason {
	case DenyBotCapability:
		return "the bot is missing the " + string(e.Capability) + " capability"
	case DenyBotHierarchy:
		return "the target's highest role is above or equal to the bot's"
	default:
		return "the target's highest role is above or equal to yours"
	}
}

// Guard performs the pre-mutation privilege checks: bot capability, then bot
// rank, then actor rank, all against the target. Rank comparisons require a
// strict greater-than; equal top roles are insufficient.
type Guard struct {
	api platform.API
}

func NewGuard(api platform.API) *Guard {
	return &Guard{api: api}
}

// Check returns nil when the action may proceed, or a *HierarchyError naming
// the failed leg.
func (g *Guard) Check(actorID, targetID string, capability platform.Capability) error {
	if !g.api.HasCapability(capability) {
		return &HierarchyError{Reason: DenyBotCapability, Capability: capability}
	}

	targetRank, err := g.topRank(targetID)
	if errors.Cause(err) == platform.ErrUnknownMember {
		// not a guild member, only the capability leg applies (bans can
		// target users who already left)
		return nil
	}
	if err != nil {
		// a failed lookup must never pass the rank legs
		return err
	}

	botRank, err := g.topRank(g.api.BotID())
	if err != nil {
		return err
	}
	if botRank <= targetRank {
		return &HierarchyError{Reason: DenyBotHierarchy, Capability: capability}
	}

	actorRank, err := g.topRank(actorID)
	if err != nil {
		return err
	}
	if actorRank <= targetRank {
		return &HierarchyError{Reason: DenyActorHierarchy, Capability: capability}
	}
	return nil
}

func (g *Guard) topRank(memberID string) (int, error) {
	roleIDs, err := g.api.MemberRoles(memberID)
	if err != nil {
		return 0, errors.Wrapf(err, "resolving roles of %s", memberID)
	}

	highest := -1
	for _, roleID := range roleIDs {
		rank, err := g.api.RoleRank(roleID)
		if err != nil {
			// a stale role on the member must not block the check
			continue
		}
		if rank > highest {
			highest = rank
		}
	}
	return highest, nil
}
