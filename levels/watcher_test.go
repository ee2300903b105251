package levels

import (
	"testing"
)

type fakeSnapshotProvider struct {
	snapshot map[string]int
}

func (f *fakeSnapshotProvider) Level(memberID string) (int, error) {
	return f.snapshot[memberID], nil
}

func (f *fakeSnapshotProvider) Levels() (map[string]int, error) {
	snapshot := make(map[string]int, len(f.snapshot))
	for memberID, level := range f.snapshot {
		snapshot[memberID] = level
	}
	return snapshot, nil
}

func TestWatcherReconcilesOnLevelChange(t *testing.T) {
	api := newFakeAPI()
	tiers := twentyTiers(api)
	reconciler := NewReconciler(api, tiers, testLogger())
	provider := &fakeSnapshotProvider{snapshot: map[string]int{"member": 4}}
	watcher := NewWatcher(provider, reconciler, testLogger())

	// first pass only seeds the snapshot
	watcher.runPass()
	if len(api.setCalls) != 0 {
		t.Fatal("seeding pass must not touch roles")
	}

	// no change, still nothing
	watcher.runPass()
	if len(api.setCalls) != 0 {
		t.Fatal("unchanged levels must not trigger reconciliation")
	}

	provider.snapshot["member"] = 5
	watcher.runPass()
	if len(api.setCalls) != 1 {
		t.Fatalf("level change should reconcile once, got %d calls", len(api.setCalls))
	}
	if api.memberRoles["member"][0] != roleForLevel(5) {
		t.Fatalf("member should now hold the level 5 role, got %v", api.memberRoles["member"])
	}
}

func TestWatcherIgnoresStillIneligibleMembers(t *testing.T) {
	api := newFakeAPI()
	reconciler := NewReconciler(api, twentyTiers(api), testLogger())
	provider := &fakeSnapshotProvider{snapshot: map[string]int{"member": 1}}
	watcher := NewWatcher(provider, reconciler, testLogger())

	watcher.runPass()
	provider.snapshot["member"] = 3 // leveled up, still below the first tier
	watcher.runPass()

	if len(api.setCalls) != 0 {
		t.Fatal("members below the lowest threshold must be skipped quietly")
	}
}
