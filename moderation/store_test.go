package moderation

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/wardenbot/warden/models"
)

func tempLedgerPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "data", "moderation_actions.json")
}

func int64ptr(v int64) *int64 { return &v }

func TestOpenStoreMissingFile(t *testing.T) {
	path := tempLedgerPath(t)

	store := OpenStore(path, testLogger())
	if _, ok := store.Mute("someone"); ok {
		t.Fatal("fresh store should have no mutes")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("opening the store must not create the file")
	}

	// the first mutation creates the file
	store.SetMuteIfAbsent("someone", models.MuteRecord{RoleID: "r"})
	if err := store.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("ledger file not created: %v", err)
	}
}

func TestOpenStoreMalformedFile(t *testing.T) {
	path := tempLedgerPath(t)
	os.MkdirAll(filepath.Dir(path), 0755)
	os.WriteFile(path, []byte("{not json"), 0644)

	store := OpenStore(path, testLogger())
	if _, ok := store.Mute("someone"); ok {
		t.Fatal("malformed ledger should load as empty")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := tempLedgerPath(t)

	store := OpenStore(path, testLogger())
	record := models.MuteRecord{
		GuildID:   "g",
		RoleID:    "muted",
		Reason:    "spam",
		CreatedAt: 100,
		ExpiresAt: int64ptr(200),
		Duration:  "100 seconds",
	}
	if !store.SetMuteIfAbsent("subject", record) {
		t.Fatal("first SetMuteIfAbsent should succeed")
	}
	store.AddWarning("subject", models.WarningRecord{Reason: "rude", CreatedAt: 100})
	if err := store.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	reloaded := OpenStore(path, testLogger())
	got, ok := reloaded.Mute("subject")
	if !ok {
		t.Fatal("mute lost on reload")
	}
	if got.ExpiresAt == nil || *got.ExpiresAt != 200 || got.Reason != "spam" {
		t.Fatalf("mute record corrupted on reload: %+v", got)
	}
	if len(reloaded.Warnings("subject")) != 1 {
		t.Fatal("warning lost on reload")
	}
}

func TestSetMuteIfAbsentGuardsDuplicates(t *testing.T) {
	store := OpenStore(tempLedgerPath(t), testLogger())

	first := models.MuteRecord{Reason: "first"}
	store.SetMuteIfAbsent("subject", first)
	if store.SetMuteIfAbsent("subject", models.MuteRecord{Reason: "second"}) {
		t.Fatal("second SetMuteIfAbsent should fail")
	}

	got, _ := store.Mute("subject")
	if got.Reason != "first" {
		t.Fatal("existing record must stay untouched")
	}
}

func TestAddWarningIDsAreMonotonic(t *testing.T) {
	store := OpenStore(tempLedgerPath(t), testLogger())

	id1, count1 := store.AddWarning("subject", models.WarningRecord{})
	id2, count2 := store.AddWarning("subject", models.WarningRecord{})
	id3, count3 := store.AddWarning("subject", models.WarningRecord{})

	if id1 != "1" || id2 != "2" || id3 != "3" {
		t.Fatalf("warning ids = %s, %s, %s, want 1, 2, 3", id1, id2, id3)
	}
	if count1 != 1 || count2 != 2 || count3 != 3 {
		t.Fatalf("warning counts = %d, %d, %d", count1, count2, count3)
	}
}

func TestSortedWarningIDsAreNumeric(t *testing.T) {
	warnings := map[string]models.WarningRecord{
		"10": {}, "2": {}, "1": {}, "9": {},
	}

	got := SortedWarningIDs(warnings)
	want := []string{"1", "2", "9", "10"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SortedWarningIDs() = %v, want %v", got, want)
		}
	}
}

func TestClearWarnings(t *testing.T) {
	store := OpenStore(tempLedgerPath(t), testLogger())

	for i := 0; i < 3; i++ {
		store.AddWarning("subject", models.WarningRecord{})
	}
	if count := store.ClearWarnings("subject"); count != 3 {
		t.Fatalf("ClearWarnings() = %d, want 3", count)
	}
	if len(store.Warnings("subject")) != 0 {
		t.Fatal("warnings remained after clear")
	}
	if count := store.ClearWarnings("subject"); count != 0 {
		t.Fatal("clearing an empty set should report 0")
	}
}

func TestConcurrentSavesKeepLatestSnapshot(t *testing.T) {
	path := tempLedgerPath(t)
	store := OpenStore(path, testLogger())

	// gateway handlers and the expiry loop save concurrently; the file must
	// always end up holding every mutation
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			store.SetMuteIfAbsent("subject-"+strconv.Itoa(n), models.MuteRecord{Reason: "spam"})
			if err := store.Save(); err != nil {
				t.Errorf("Save() failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	reloaded := OpenStore(path, testLogger())
	for i := 0; i < 10; i++ {
		if _, ok := reloaded.Mute("subject-" + strconv.Itoa(i)); !ok {
			t.Fatalf("subject-%d lost by a concurrent save", i)
		}
	}
}

func TestExpiredScans(t *testing.T) {
	store := OpenStore(tempLedgerPath(t), testLogger())

	store.SetMuteIfAbsent("expired", models.MuteRecord{ExpiresAt: int64ptr(100)})
	store.SetMuteIfAbsent("active", models.MuteRecord{ExpiresAt: int64ptr(900)})
	store.SetMuteIfAbsent("forever", models.MuteRecord{})

	expired := store.ExpiredMutes(500)
	if len(expired) != 1 || expired[0] != "expired" {
		t.Fatalf("ExpiredMutes(500) = %v, want [expired]", expired)
	}

	store.AddWarning("mixed", models.WarningRecord{ExpiresAt: int64ptr(100)})
	store.AddWarning("mixed", models.WarningRecord{ExpiresAt: int64ptr(900)})
	store.AddWarning("gone", models.WarningRecord{ExpiresAt: int64ptr(50)})

	if pruned := store.PruneExpiredWarnings(500); pruned != 2 {
		t.Fatalf("PruneExpiredWarnings(500) = %d, want 2", pruned)
	}
	if len(store.Warnings("mixed")) != 1 {
		t.Fatal("unexpired warning was pruned")
	}
	if len(store.Warnings("gone")) != 0 {
		t.Fatal("fully expired subject should be empty")
	}

	// subject key dropped entirely once its collection is empty
	store.mutex.Lock()
	_, present := store.ledger.Warns["gone"]
	store.mutex.Unlock()
	if present {
		t.Fatal("empty subject key should be dropped from the ledger")
	}
}
