package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-query-cache/apperr"
)

type change struct {
	Token string
	OK    bool
}

type changeRecorder struct {
	mu      sync.Mutex
	changes []change
}

func (r *changeRecorder) listen(token string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change{token, ok})
}

func (r *changeRecorder) get() []change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]change(nil), r.changes...)
}

type failingStorage struct {
	err error
}

func (f failingStorage) Load(ctx context.Context) (string, bool, error) { return "", false, f.err }
func (f failingStorage) Save(ctx context.Context, token string) error   { return f.err }
func (f failingStorage) Delete(ctx context.Context) error               { return f.err }

func TestStore_SetThenGet(t *testing.T) {
	store := NewStore(NewMemoryStorage())

	if _, ok := store.Get(); ok {
		t.Fatal("new store should be empty")
	}

	if err := store.Set(context.Background(), "abc.def.ghi"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	token, ok := store.Get()
	if !ok || token != "abc.def.ghi" {
		t.Errorf("Get() = %q, %v; want token", token, ok)
	}
	if !store.Authenticated() {
		t.Error("expected Authenticated() after Set")
	}

	if err := store.Clear(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Get(); ok {
		t.Error("expected no token after Clear")
	}
}

func TestStore_ListenersNotifiedOncePerCall(t *testing.T) {
	store := NewStore(nil)
	rec := &changeRecorder{}
	store.OnChange(rec.listen)

	ctx := context.Background()
	store.Set(ctx, "t1")
	store.Set(ctx, "t2")
	store.Clear(ctx)

	want := []change{{"t1", true}, {"t2", true}, {"", false}}
	if diff := cmp.Diff(want, rec.get()); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_ListenersSeeNewValue(t *testing.T) {
	store := NewStore(nil)
	var seen string
	store.OnChange(func(token string, ok bool) {
		seen, _ = store.Get()
	})

	store.Set(context.Background(), "fresh")
	if seen != "fresh" {
		t.Errorf("listener read %q from Get, want fresh", seen)
	}
}

func TestStore_ListenerOrderAndUnsubscribe(t *testing.T) {
	store := NewStore(nil)
	var order []string
	store.OnChange(func(string, bool) { order = append(order, "a") })
	unsubB := store.OnChange(func(string, bool) { order = append(order, "b") })
	store.OnChange(func(string, bool) { order = append(order, "c") })

	store.Set(context.Background(), "x")
	unsubB()
	unsubB()
	store.Set(context.Background(), "y")

	want := []string{"a", "b", "c", "a", "c"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("listener order mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_SetEmptyToken(t *testing.T) {
	store := NewStore(nil)
	rec := &changeRecorder{}
	store.OnChange(rec.listen)

	err := store.Set(context.Background(), "")
	if !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if len(rec.get()) != 0 {
		t.Error("listeners must not be notified for a rejected token")
	}
}

func TestStore_PersistenceFailureKeepsMemory(t *testing.T) {
	boom := errors.New("disk full")
	store := NewStore(failingStorage{err: boom})
	rec := &changeRecorder{}
	store.OnChange(rec.listen)

	err := store.Set(context.Background(), "tok")
	if !errors.Is(err, boom) {
		t.Errorf("expected persistence error, got %v", err)
	}
	if token, ok := store.Get(); !ok || token != "tok" {
		t.Errorf("memory should hold token despite persistence failure, got %q %v", token, ok)
	}
	if len(rec.get()) != 1 {
		t.Errorf("expected one notification, got %d", len(rec.get()))
	}
}

func TestStore_Persistence(t *testing.T) {
	storage := NewMemoryStorage()
	ctx := context.Background()

	first := NewStore(storage)
	first.Set(ctx, "persisted")

	second := NewStore(storage)
	rec := &changeRecorder{}
	second.OnChange(rec.listen)

	if err := second.Restore(ctx); err != nil {
		t.Fatal(err)
	}
	if token, ok := second.Get(); !ok || token != "persisted" {
		t.Errorf("Restore() did not load token, got %q %v", token, ok)
	}
	if diff := cmp.Diff([]change{{"persisted", true}}, rec.get()); diff != "" {
		t.Errorf("restore notifications (-want +got):\n%s", diff)
	}

	second.Clear(ctx)
	if _, ok, _ := storage.Load(ctx); ok {
		t.Error("Clear should delete the persisted token")
	}
}

func TestStore_RestoreEmpty(t *testing.T) {
	store := NewStore(NewMemoryStorage())
	rec := &changeRecorder{}
	store.OnChange(rec.listen)

	if err := store.Restore(context.Background()); err != nil {
		t.Fatal(err)
	}
	if store.Authenticated() || len(rec.get()) != 0 {
		t.Error("restoring nothing must not change state")
	}
}

func TestStore_RestoreError(t *testing.T) {
	boom := errors.New("unreachable")
	store := NewStore(failingStorage{err: boom})

	if err := store.Restore(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected load error, got %v", err)
	}
}

func TestStore_TokenSource(t *testing.T) {
	store := NewStore(nil)
	store.Set(context.Background(), "bearer")

	token, ok := store.Token(context.Background())
	if !ok || token != "bearer" {
		t.Errorf("Token() = %q, %v", token, ok)
	}
}
