package disruption

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/serikovn/nexpr-update/internal/storage"
)

func newBackend(t *testing.T) (*storage.FileBackend, string) {
	t.Helper()
	dir := t.TempDir()
	b, err := storage.NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	return b, dir
}

func TestClassifyLink(t *testing.T) {
	cases := map[string]MediaType{
		"https://example.com/a.png":      MediaPhoto,
		"http://example.com/b.JPEG":      MediaPhoto,
		"https://example.com/c.gif":      MediaPhoto,
		"https://example.com/clip.mp4":   MediaVideo,
		"https://example.com/page":       MediaVideo,
		"https://example.com/a.png?w=10": MediaVideo,
	}
	for url, want := range cases {
		got := ClassifyLink(url)
		if got.Type != want || got.File != url {
			t.Fatalf("ClassifyLink(%q) = %+v, want type %s", url, got, want)
		}
	}
	if IsLink("ftp://example.com/a.png") || IsLink("готово") {
		t.Fatal("only http(s) text is a link")
	}
}

func TestProblemStoreFindReturnsFirstDuplicate(t *testing.T) {
	b, _ := newBackend(t)
	store := NewProblemStore(b, "problems.json")
	ctx := context.Background()

	for _, p := range []Problem{
		{Name: "Москва — Казань", Description: "first", ETA: "завтра"},
		{Name: "Москва — Казань", Description: "second", ETA: "послезавтра"},
	} {
		if err := store.Add(ctx, p); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	got, err := store.Find(ctx, "Москва — Казань")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.Description != "first" {
		t.Fatalf("Find returned %q, want first match", got.Description)
	}
	if got.Media == nil {
		t.Fatal("media must be persisted as an empty list")
	}
	if _, err := store.Find(ctx, "Нет такого"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestProblemStoreRemoveCountsAllMatches(t *testing.T) {
	b, _ := newBackend(t)
	store := NewProblemStore(b, "problems.json")
	ctx := context.Background()
	for _, name := range []string{"A", "B", "A"} {
		if err := store.Add(ctx, Problem{Name: name}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	n, err := store.Remove(ctx, "A")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if n != 2 {
		t.Fatalf("removed = %d, want 2", n)
	}
	left, _ := store.List(ctx)
	if len(left) != 1 || left[0].Name != "B" {
		t.Fatalf("left = %+v", left)
	}
}

func TestProblemStoreRemoveMissingLeavesDocumentUntouched(t *testing.T) {
	b, dir := newBackend(t)
	store := NewProblemStore(b, "problems.json")
	ctx := context.Background()
	if err := store.Add(ctx, Problem{Name: "A", Description: "d", ETA: "e"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	path := filepath.Join(dir, "problems.json")
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	n, err := store.Remove(ctx, "Z")
	if err != nil || n != 0 {
		t.Fatalf("Remove = %d, %v", n, err)
	}
	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Fatalf("document changed:\n%s\n%s", before, after)
	}
}

func TestSubscriptionTogglesAreIdempotent(t *testing.T) {
	b, _ := newBackend(t)
	subs := NewSubscriberStore(b, "subscribers.json")
	ctx := context.Background()
	const route, user = "A", int64(7)

	steps := []struct {
		subscribe bool
		changed   bool
		member    bool
	}{
		{true, true, true},
		{true, false, true},
		{false, true, false},
		{false, false, false},
		{true, true, true},
	}
	for i, st := range steps {
		var (
			changed bool
			err     error
		)
		if st.subscribe {
			changed, err = subs.Subscribe(ctx, route, user)
		} else {
			changed, err = subs.Unsubscribe(ctx, route, user)
		}
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if changed != st.changed {
			t.Fatalf("step %d: changed = %v, want %v", i, changed, st.changed)
		}
		member, _ := subs.IsSubscribed(ctx, route, user)
		if member != st.member {
			t.Fatalf("step %d: member = %v, want %v", i, member, st.member)
		}
	}
}

func TestSubscriptionsArePerRoute(t *testing.T) {
	b, _ := newBackend(t)
	subs := NewSubscriberStore(b, "subscribers.json")
	ctx := context.Background()
	_, _ = subs.Subscribe(ctx, "A", 1)
	_, _ = subs.Subscribe(ctx, "B", 1)
	_, _ = subs.Subscribe(ctx, "A", 2)

	if err := subs.Drop(ctx, "A"); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	a, _ := subs.Subscribers(ctx, "A")
	bIDs, _ := subs.Subscribers(ctx, "B")
	if len(a) != 0 {
		t.Fatalf("A subscribers = %v, want none", a)
	}
	if len(bIDs) != 1 || bIDs[0] != 1 {
		t.Fatalf("B subscribers = %v", bIDs)
	}
}

func TestUserRegistryIsAppendOnlySet(t *testing.T) {
	b, _ := newBackend(t)
	users := NewUserRegistry(b, "users.json")
	ctx := context.Background()
	for _, id := range []int64{5, 6, 5} {
		if _, err := users.Register(ctx, id); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	all, err := users.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 2 || all[0] != 5 || all[1] != 6 {
		t.Fatalf("users = %v", all)
	}
}
