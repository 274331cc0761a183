package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/questlab/engagehub/internal/domain"
	"github.com/questlab/engagehub/internal/kv"
)

// failingKV wraps a Memory KV and fails the next n Set calls with a quota
// error, simulating a full backing store.
type failingKV struct {
	*kv.Memory
	failNextSets int
}

func (f *failingKV) Set(ctx context.Context, key string, value []byte) error {
	if f.failNextSets > 0 {
		f.failNextSets--
		return domain.ErrQuotaExceeded
	}
	return f.Memory.Set(ctx, key, value)
}

type archiveRecorder struct {
	kinds []string
	sizes []int
}

func (a *archiveRecorder) Archive(_ context.Context, kind string, records any) error {
	a.kinds = append(a.kinds, kind)
	switch r := records.(type) {
	case []domain.Notification:
		a.sizes = append(a.sizes, len(r))
	case []domain.UserCase:
		a.sizes = append(a.sizes, len(r))
	default:
		a.sizes = append(a.sizes, -1)
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeFeed(n int) []domain.Notification {
	feed := make([]domain.Notification, n)
	base := time.Now()
	for i := 0; i < n; i++ {
		// Newest first, like the store's List.
		feed[i] = domain.Notification{
			ID:        fmt.Sprintf("n%03d", i),
			Title:     fmt.Sprintf("notification %d", i),
			Timestamp: base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return feed
}

func persistedNotifications(t *testing.T, store domain.KV) []domain.Notification {
	t.Helper()
	data, err := store.Get(context.Background(), KeyNotifications)
	if err != nil {
		t.Fatalf("read persisted notifications: %v", err)
	}
	var feed []domain.Notification
	if err := json.Unmarshal(data, &feed); err != nil {
		t.Fatalf("unmarshal persisted notifications: %v", err)
	}
	return feed
}

func TestSaveNotificationsCapsAtHundred(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory(0)
	a := New(store, nil, testLogger())

	a.SaveNotifications(ctx, makeFeed(150))

	got := persistedNotifications(t, store)
	if len(got) != 100 {
		t.Fatalf("persisted %d entries, want 100", len(got))
	}
	if got[0].ID != "n000" || got[99].ID != "n099" {
		t.Errorf("expected the 100 most recent entries, got [%s .. %s]", got[0].ID, got[99].ID)
	}
}

func TestSaveNotificationsQuotaFallbackToFifty(t *testing.T) {
	ctx := context.Background()
	store := &failingKV{Memory: kv.NewMemory(0), failNextSets: 1}
	a := New(store, nil, testLogger())

	a.SaveNotifications(ctx, makeFeed(150))

	got := persistedNotifications(t, store)
	if len(got) != 50 {
		t.Fatalf("persisted %d entries, want 50 after quota fallback", len(got))
	}
	if got[0].ID != "n000" {
		t.Errorf("fallback must keep the newest entries, got first id %s", got[0].ID)
	}
}

func TestSaveNotificationsDropsKeyOnRepeatedFailure(t *testing.T) {
	ctx := context.Background()
	store := &failingKV{Memory: kv.NewMemory(0)}
	a := New(store, nil, testLogger())

	// Seed a previous revision so the drop is observable.
	a.SaveNotifications(ctx, makeFeed(3))
	store.failNextSets = 2

	a.SaveNotifications(ctx, makeFeed(150))

	if _, err := store.Get(ctx, KeyNotifications); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected key dropped, got %v", err)
	}
	if feed := a.LoadNotifications(ctx); len(feed) != 0 {
		t.Errorf("next load should be empty, got %d entries", len(feed))
	}
}

func TestSaveCasesStripsImages(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory(0)
	a := New(store, nil, testLogger())

	img := "data:image/png;base64,AAAA"
	a.SaveCases(ctx, []domain.CaseType{{ID: "c1", Name: "Gold", Price: 500, Image: &img}})

	got := a.LoadCases(ctx)
	if len(got) != 1 {
		t.Fatalf("expected 1 case, got %d", len(got))
	}
	if got[0].Image != nil {
		t.Error("persisted case must not carry the inline image payload")
	}
}

func TestLoadCasesFallsBackToDefaultCatalog(t *testing.T) {
	ctx := context.Background()
	store := &failingKV{Memory: kv.NewMemory(0), failNextSets: 1}
	a := New(store, nil, testLogger())

	a.SaveCases(ctx, []domain.CaseType{{ID: "c1", Name: "Gold"}})

	got := a.LoadCases(ctx)
	want := domain.DefaultCaseCatalog()
	if len(got) != len(want) {
		t.Fatalf("expected the default catalog (%d cases), got %d", len(want), len(got))
	}
}

func TestSaveUserCasesTruncatesOversizedDocument(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory(0)
	rec := &archiveRecorder{}
	a := New(store, rec, testLogger())

	// Pad each case so 120 of them exceed the 2 MB threshold.
	pad := make([]byte, 20_000)
	for i := range pad {
		pad[i] = 'x'
	}
	cases := make([]domain.UserCase, 120)
	base := time.Now()
	for i := range cases {
		opened := base.Add(-time.Duration(i) * time.Hour)
		cases[i] = domain.UserCase{
			ID:       fmt.Sprintf("uc%03d", i),
			CaseName: string(pad),
			OpenedAt: &opened,
		}
	}

	a.SaveUserCases(ctx, cases)

	got := a.LoadUserCases(ctx)
	if len(got) != userCasesTrim {
		t.Fatalf("persisted %d user cases, want %d", len(got), userCasesTrim)
	}
	if got[0].ID != "uc000" {
		t.Errorf("truncation must keep the most recent cases, got first id %s", got[0].ID)
	}
	if len(rec.kinds) == 0 || rec.kinds[0] != "userCases" {
		t.Error("trimmed user cases should be archived before discard")
	}
}

func TestSaveUserCasesQuotaFallbackLadder(t *testing.T) {
	ctx := context.Background()
	store := &failingKV{Memory: kv.NewMemory(0), failNextSets: 1}
	a := New(store, nil, testLogger())

	cases := make([]domain.UserCase, 40)
	for i := range cases {
		opened := time.Now().Add(-time.Duration(i) * time.Hour)
		cases[i] = domain.UserCase{ID: fmt.Sprintf("uc%02d", i), OpenedAt: &opened}
	}

	a.SaveUserCases(ctx, cases)

	got := a.LoadUserCases(ctx)
	if len(got) != userCasesTrimHard {
		t.Fatalf("persisted %d user cases, want %d after quota fallback", len(got), userCasesTrimHard)
	}
}

func TestSaveUsersSkipsRevisionOnFailure(t *testing.T) {
	ctx := context.Background()
	store := &failingKV{Memory: kv.NewMemory(0)}
	a := New(store, nil, testLogger())

	a.SaveUsers(ctx, []domain.User{{ID: "u1", Balance: 100}})

	store.failNextSets = 1
	a.SaveUsers(ctx, []domain.User{{ID: "u1", Balance: 999}})

	// The failed revision is skipped: the previous document survives.
	got := a.LoadUsers(ctx)
	if len(got) != 1 || got[0].Balance != 100 {
		t.Fatalf("expected previous revision intact, got %v", got)
	}
}

func TestCorruptDocumentTreatedAsEmpty(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory(0)
	a := New(store, nil, testLogger())

	store.Set(ctx, KeyNotifications, []byte("{not json"))
	if feed := a.LoadNotifications(ctx); len(feed) != 0 {
		t.Errorf("corrupt document should load as empty, got %d entries", len(feed))
	}
}

func TestFlagsRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := New(kv.NewMemory(0), nil, testLogger())

	if _, ok := a.Flag(ctx, FlagWelcomeShown); ok {
		t.Fatal("flag should start unset")
	}
	a.SetFlag(ctx, FlagWelcomeShown, "true")
	if v, ok := a.Flag(ctx, FlagWelcomeShown); !ok || v != "true" {
		t.Errorf("flag = %q/%v, want true/set", v, ok)
	}
}

func TestMonitorSweepsStaleKeysAboveHighWater(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory(0)

	big := make([]byte, 1024)
	store.Set(ctx, "tmp:scratch", big)
	store.Set(ctx, "cache:old", big)
	store.Set(ctx, KeyUsers, []byte(`[]`))

	m := NewMonitor(store, 512, nil, testLogger())
	m.Sweep(ctx)

	if _, err := store.Get(ctx, "tmp:scratch"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("tmp: key should have been swept")
	}
	if _, err := store.Get(ctx, "cache:old"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("cache: key should have been swept")
	}
	if _, err := store.Get(ctx, KeyUsers); err != nil {
		t.Errorf("aggregate keys must survive the sweep: %v", err)
	}
}

func TestMonitorBelowHighWaterIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory(0)
	store.Set(ctx, "tmp:scratch", []byte("small"))

	m := NewMonitor(store, DefaultHighWaterBytes, nil, testLogger())
	m.Sweep(ctx)

	if _, err := store.Get(ctx, "tmp:scratch"); err != nil {
		t.Errorf("below high water nothing is swept: %v", err)
	}
}

func TestMemoryKVQuota(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory(10)

	if err := store.Set(ctx, "a", []byte("12345")); err != nil {
		t.Fatalf("first set: %v", err)
	}
	if err := store.Set(ctx, "b", []byte("123456")); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	// Overwriting a key replaces its contribution instead of adding to it.
	if err := store.Set(ctx, "a", []byte("1234567890")); err != nil {
		t.Fatalf("overwrite within quota: %v", err)
	}
}
