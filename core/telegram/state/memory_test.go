package state

import (
	"sync"
	"testing"
)

func TestMemorySetReplacesSession(t *testing.T) {
	m := NewMemory[string]()
	m.Set(1, "name")
	m.Set(1, "eta")
	got, ok := m.Get(1)
	if !ok || got != "eta" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	if m.InProgress(2) {
		t.Fatal("unrelated user has a session")
	}
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory[int]()
	m.Set(1, 10)
	m.Delete(1)
	if m.InProgress(1) {
		t.Fatal("session should be gone")
	}
	if _, ok := m.Get(1); ok {
		t.Fatal("Get after Delete returned a session")
	}
}

func TestMemoryConcurrentUsers(t *testing.T) {
	m := NewMemory[int]()
	var wg sync.WaitGroup
	for i := int64(0); i < 32; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			m.Set(id, int(id))
			_, _ = m.Get(id)
		}(i)
	}
	wg.Wait()
	for i := int64(0); i < 32; i++ {
		if got, ok := m.Get(i); !ok || got != int(i) {
			t.Fatalf("Get(%d) = %d, %v", i, got, ok)
		}
	}
}
