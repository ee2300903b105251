package moderation

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/wardenbot/warden/platform"
)

func newGuardFixture() (*fakeAPI, *Guard) {
	api := newFakeAPI()
	api.capabilities[platform.CapabilityBanMembers] = true
	api.roleRanks["low"] = 1
	api.roleRanks["mid"] = 5
	api.roleRanks["high"] = 9
	api.memberRoles["bot"] = []string{"high"}
	api.memberRoles["actor"] = []string{"mid"}
	api.memberRoles["target"] = []string{"low"}
	return api, NewGuard(api)
}

func denyReason(t *testing.T, err error) DenyReason {
	t.Helper()
	denied, ok := err.(*HierarchyError)
	if !ok {
		t.Fatalf("expected *HierarchyError, got %v", err)
	}
	return denied.Reason
}

func TestGuardAllows(t *testing.T) {
	_, guard := newGuardFixture()
	if err := guard.Check("actor", "target", platform.CapabilityBanMembers); err != nil {
		t.Fatalf("Check() = %v, want nil", err)
	}
}

func TestGuardDeniesMissingCapability(t *testing.T) {
	api, guard := newGuardFixture()
	api.capabilities[platform.CapabilityBanMembers] = false

	err := guard.Check("actor", "target", platform.CapabilityBanMembers)
	if denyReason(t, err) != DenyBotCapability {
		t.Fatalf("want DenyBotCapability, got %v", err)
	}
}

func TestGuardDeniesBotAtOrBelowTarget(t *testing.T) {
	api, guard := newGuardFixture()
	api.memberRoles["target"] = []string{"high"} // equal to the bot's top role

	err := guard.Check("actor", "target", platform.CapabilityBanMembers)
	if denyReason(t, err) != DenyBotHierarchy {
		t.Fatalf("want DenyBotHierarchy, got %v", err)
	}
}

func TestGuardDeniesActorAtEqualRank(t *testing.T) {
	api, guard := newGuardFixture()
	api.memberRoles["target"] = []string{"mid"} // ties with the actor

	err := guard.Check("actor", "target", platform.CapabilityBanMembers)
	if denyReason(t, err) != DenyActorHierarchy {
		t.Fatalf("equal ranks must be insufficient, got %v", err)
	}
}

func TestGuardDenialReasonsAreDistinguishable(t *testing.T) {
	api, guard := newGuardFixture()

	api.capabilities[platform.CapabilityBanMembers] = false
	capabilityErr := guard.Check("actor", "target", platform.CapabilityBanMembers)

	api.capabilities[platform.CapabilityBanMembers] = true
	api.memberRoles["target"] = []string{"mid"}
	hierarchyErr := guard.Check("actor", "target", platform.CapabilityBanMembers)

	if denyReason(t, capabilityErr) == denyReason(t, hierarchyErr) {
		t.Fatal("capability and hierarchy denials must be distinguishable")
	}
	if capabilityErr.Error() == hierarchyErr.Error() {
		t.Fatal("denial messages must differ")
	}
}

func TestGuardSurfacesTargetLookupFailure(t *testing.T) {
	api, guard := newGuardFixture()
	api.memberRoles["target"] = []string{"high"} // outranks the actor
	api.memberRolesErr = map[string]error{
		"target": errors.New("discord: 500 internal server error"),
	}

	err := guard.Check("actor", "target", platform.CapabilityBanMembers)
	if err == nil {
		t.Fatal("a failed target lookup must not allow the action")
	}
	if _, ok := err.(*HierarchyError); ok {
		t.Fatalf("lookup failure must surface as-is, got %v", err)
	}
}

func TestGuardSkipsHierarchyForNonMembers(t *testing.T) {
	_, guard := newGuardFixture()

	// banning a user who already left the guild, only the capability leg
	// can apply
	if err := guard.Check("actor", "stranger", platform.CapabilityBanMembers); err != nil {
		t.Fatalf("Check() = %v, want nil", err)
	}
}
