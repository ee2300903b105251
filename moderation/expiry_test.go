package moderation

import (
	"testing"
	"time"

	"github.com/wardenbot/warden/models"
)

func newLoopFixture(t *testing.T) (*fakeAPI, *Store, *ExpiryLoop) {
	t.Helper()
	api := newFakeAPI()
	store := OpenStore(tempLedgerPath(t), testLogger())
	manager := NewManager(store, api, "guild", "Muted", testLogger())
	manager.now = func() time.Time { return time.Unix(1000, 0) }

	loop := NewExpiryLoop(manager, store, testLogger())
	loop.now = func() time.Time { return time.Unix(1000, 0) }
	return api, store, loop
}

func TestPassReversesExpiredMutes(t *testing.T) {
	api, store, loop := newLoopFixture(t)

	store.SetMuteIfAbsent("expired", models.MuteRecord{RoleID: "muted-role", ExpiresAt: int64ptr(900)})
	store.SetMuteIfAbsent("active", models.MuteRecord{RoleID: "muted-role", ExpiresAt: int64ptr(2000)})

	loop.runPass()

	if _, ok := store.Mute("expired"); ok {
		t.Fatal("expired mute should be removed")
	}
	if _, ok := store.Mute("active"); !ok {
		t.Fatal("active mute must survive the pass")
	}
	if len(api.revoked) != 1 || api.revoked[0] != [2]string{"expired", "muted-role"} {
		t.Fatalf("revoked = %v, want exactly one revoke", api.revoked)
	}

	// an immediate second pass is a no-op
	loop.runPass()
	if len(api.revoked) != 1 {
		t.Fatal("second pass must not revoke again")
	}
}

func TestPassPrunesExpiredWarnings(t *testing.T) {
	_, store, loop := newLoopFixture(t)

	store.AddWarning("mixed", models.WarningRecord{ExpiresAt: int64ptr(900)})
	store.AddWarning("mixed", models.WarningRecord{ExpiresAt: int64ptr(2000)})
	store.AddWarning("gone", models.WarningRecord{ExpiresAt: int64ptr(500)})
	store.AddWarning("forever", models.WarningRecord{})

	loop.runPass()

	if len(store.Warnings("mixed")) != 1 {
		t.Fatal("only the expired warning should be pruned")
	}
	if len(store.Warnings("gone")) != 0 {
		t.Fatal("fully expired subject should be emptied")
	}
	if len(store.Warnings("forever")) != 1 {
		t.Fatal("permanent warnings never expire")
	}
}

func TestPassIsolatesPerRecordFailures(t *testing.T) {
	api, store, loop := newLoopFixture(t)
	api.panicOnRevoke = map[string]bool{"broken": true}

	store.SetMuteIfAbsent("broken", models.MuteRecord{RoleID: "muted-role", ExpiresAt: int64ptr(900)})
	store.SetMuteIfAbsent("fine", models.MuteRecord{RoleID: "muted-role", ExpiresAt: int64ptr(900)})

	loop.runPass()

	if _, ok := store.Mute("fine"); ok {
		t.Fatal("the healthy record must still be processed")
	}
	if len(api.revoked) != 1 || api.revoked[0][0] != "fine" {
		t.Fatalf("revoked = %v, want only the healthy subject", api.revoked)
	}
}

func TestPassPersistsOnceWhenChanged(t *testing.T) {
	_, store, loop := newLoopFixture(t)

	store.SetMuteIfAbsent("expired", models.MuteRecord{RoleID: "muted-role", ExpiresAt: int64ptr(900)})
	loop.runPass()

	// reload from disk, the pass must have persisted the removal
	reloaded := OpenStore(store.path, testLogger())
	if _, ok := reloaded.Mute("expired"); ok {
		t.Fatal("pass did not persist the ledger")
	}
}
