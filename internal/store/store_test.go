package store

import (
	"errors"
	"testing"
)

func newTestStore(t *testing.T) *Badger {
	t.Helper()
	s, err := Open(Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetPutDelete(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Get([]byte("mem_1")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing: got %v, want ErrNotFound", err)
	}

	if err := s.Put([]byte("mem_1"), []byte("hello")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get([]byte("mem_1"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("Get = %q, want hello", got)
	}

	if err := s.Delete([]byte("mem_1")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get([]byte("mem_1")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete: got %v, want ErrNotFound", err)
	}

	// Deleting an already-absent key is not an error.
	if err := s.Delete([]byte("never-existed")); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}

func TestScanOrder(t *testing.T) {
	s := newTestStore(t)
	keys := []string{"mem_b", "mem_a", "pref:theme", "meta:version", "mem_c"}
	for _, k := range keys {
		if err := s.Put([]byte(k), []byte("v")); err != nil {
			t.Fatalf("Put %s: %v", k, err)
		}
	}

	var got []string
	for e, err := range s.Scan() {
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}
		got = append(got, string(e.Key))
	}

	want := []string{"mem_a", "mem_b", "mem_c", "meta:version", "pref:theme"}
	if len(got) != len(want) {
		t.Fatalf("Scan returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Scan[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
