package storage

import "testing"

func TestMemoryStoreSetGetRemove(t *testing.T) {
	s := NewMemoryStore()
	if _, ok := s.Get(KeyAccessToken); ok {
		t.Fatalf("empty store returned a value")
	}
	s.Set(KeyAccessToken, "tok")
	if v, ok := s.Get(KeyAccessToken); !ok || v != "tok" {
		t.Fatalf("get after set: %q %v", v, ok)
	}
	s.Remove(KeyAccessToken)
	if _, ok := s.Get(KeyAccessToken); ok {
		t.Fatalf("value survived remove")
	}
}

func TestMemoryStoreNotifiesSubscribers(t *testing.T) {
	s := NewMemoryStore()
	var keys []string
	cancel := s.Subscribe(func(key string) { keys = append(keys, key) })
	s.Set("a", "1")
	s.Set("b", "2")
	s.Remove("a")
	// Removing a missing key is a no-op and must not notify.
	s.Remove("missing")
	cancel()
	s.Set("c", "3")
	want := []string{"a", "b", "a"}
	if len(keys) != len(want) {
		t.Fatalf("notifications: %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("notification %d: got %q want %q", i, keys[i], want[i])
		}
	}
}
