package levels

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/wardenbot/warden/platform"
)

// Tier pairs a level threshold with the role granted once it is reached.
// Tiers are cumulative: a member at level N holds every tier at or below N.
type Tier struct {
	RoleID string
	Level  int
}

// LevelProvider supplies the current progression level of a member. The
// leveling subsystem owns the value; this package only consumes it.
type LevelProvider interface {
	Level(memberID string) (int, error)
}

// NotEligibleError reports a level below the lowest configured threshold.
type NotEligibleError struct {
	Threshold int
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("you need to reach level %d to get your first role", e.Threshold)
}

// Result describes what a reconciliation changed.
type Result struct {
	Added          []string
	Removed        []string
	AlreadyCorrect bool
	HighestLevel   int
	Summary        string
}

// Reconciler converges a member's tier-role set with the set their level
// entitles them to. The table is fixed at construction and never mutated.
type Reconciler struct {
	api   platform.API
	tiers []Tier
	log   *logrus.Entry
}

func NewReconciler(api platform.API, tiers []Tier, log *logrus.Logger) *Reconciler {
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Level < sorted[j].Level
	})

	return &Reconciler{
		api:   api,
		tiers: sorted,
		log:   log.WithField("module", "levels"),
	}
}

// ResolveEligible returns every tier whose threshold is at or below $level,
// in ascending threshold order.
func (r *Reconciler) ResolveEligible(level int) []Tier {
	var eligible []Tier
	for _, tier := range r.tiers {
		if level >= tier.Level {
			eligible = append(eligible, tier)
		}
	}
	return eligible
}

// VerifyTable resolves every configured tier role against the guild and logs
// the ones that no longer exist. Called once on startup.
func (r *Reconciler) VerifyTable() {
	valid := 0
	for _, tier := range r.tiers {
		name, err := r.api.RoleName(tier.RoleID)
		if err != nil {
			r.log.Warnf("tier role %s (level %d) not found in guild", tier.RoleID, tier.Level)
			continue
		}
		r.log.Debugf("verified tier role %s (level %d)", name, tier.Level)
		valid++
	}
	r.log.Infof("verified %d of %d tier roles", valid, len(r.tiers))
}

// Reconcile diffs the member's currently-held tier roles against the set
// their level entitles them to and issues the minimal remove/add operations,
// removal first, each as one batched call. Tier roles that no longer resolve
// in the guild are skipped, never fatal.
func (r *Reconciler) Reconcile(memberID string, level int) (*Result, error) {
	if len(r.tiers) == 0 {
		return nil, errors.New("no tier roles configured")
	}
	if level < r.tiers[0].Level {
		return nil, &NotEligibleError{Threshold: r.tiers[0].Level}
	}

	eligible := r.ResolveEligible(level)
	eligibleSet := make(map[string]bool, len(eligible))
	var resolved []Tier
	for _, tier := range eligible {
		eligibleSet[tier.RoleID] = true
		if _, err := r.api.RoleName(tier.RoleID); err != nil {
			r.log.Warnf("skipping unresolvable tier role %s (level %d)", tier.RoleID, tier.Level)
			continue
		}
		resolved = append(resolved, tier)
	}
	if len(resolved) == 0 {
		return nil, errors.New("none of the eligible tier roles exist in the guild")
	}

	currentRoles, err := r.api.MemberRoles(memberID)
	if err != nil {
		return nil, err
	}

	tableSet := make(map[string]bool, len(r.tiers))
	for _, tier := range r.tiers {
		tableSet[tier.RoleID] = true
	}

	currentTierSet := make(map[string]bool)
	for _, roleID := range currentRoles {
		if tableSet[roleID] {
			currentTierSet[roleID] = true
		}
	}

	var added []string
	for _, tier := range resolved {
		if !currentTierSet[tier.RoleID] {
			added = append(added, tier.RoleID)
		}
	}
	var removed []string
	for _, roleID := range currentRoles {
		if currentTierSet[roleID] && !eligibleSet[roleID] {
			removed = append(removed, roleID)
		}
	}

	highest := resolved[len(resolved)-1].Level
	if len(added) == 0 && len(removed) == 0 {
		return &Result{
			AlreadyCorrect: true,
			HighestLevel:   highest,
			Summary:        "You already have all the appropriate roles for your level",
		}, nil
	}

	afterRemoval := withoutRoles(currentRoles, removed)
	if len(removed) > 0 {
		if err := r.api.SetMemberRoles(memberID, afterRemoval); err != nil {
			// additions still get attempted
			r.log.WithError(err).Warnf("failed to remove outgrown tier roles from %s", memberID)
		} else {
			r.log.Infof("removed %d tier roles from %s", len(removed), memberID)
		}
	}

	if len(added) > 0 {
		if err := r.api.SetMemberRoles(memberID, append(afterRemoval, added...)); err != nil {
			return nil, err
		}
		r.log.Infof("added %d tier roles to %s (level %d)", len(added), memberID, level)
	}

	return &Result{
		Added:        added,
		Removed:      removed,
		HighestLevel: highest,
		Summary:      fmt.Sprintf("Updated your roles to include all level roles up to Level %d", highest),
	}, nil
}

// ResetTierRoles strips every tier role the member currently holds.
func (r *Reconciler) ResetTierRoles(memberID string) ([]string, error) {
	currentRoles, err := r.api.MemberRoles(memberID)
	if err != nil {
		return nil, err
	}

	tableSet := make(map[string]bool, len(r.tiers))
	for _, tier := range r.tiers {
		tableSet[tier.RoleID] = true
	}

	var held []string
	for _, roleID := range currentRoles {
		if tableSet[roleID] {
			held = append(held, roleID)
		}
	}
	if len(held) == 0 {
		return nil, nil
	}

	if err := r.api.SetMemberRoles(memberID, withoutRoles(currentRoles, held)); err != nil {
		return nil, err
	}
	r.log.Infof("reset %d tier roles of %s", len(held), memberID)
	return held, nil
}

func withoutRoles(roles []string, drop []string) []string {
	dropSet := make(map[string]bool, len(drop))
	for _, roleID := range drop {
		dropSet[roleID] = true
	}

	kept := make([]string, 0, len(roles))
	for _, roleID := range roles {
		if !dropSet[roleID] {
			kept = append(kept, roleID)
		}
	}
	return kept
}
