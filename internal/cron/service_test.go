package cron

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubLockStore struct {
	keys   map[string]string
	denied map[string]bool
}

func newStubLockStore() *stubLockStore {
	return &stubLockStore{keys: make(map[string]string), denied: make(map[string]bool)}
}

func (s *stubLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if s.denied[key] {
		return false, nil
	}
	if _, held := s.keys[key]; held {
		return false, nil
	}
	s.keys[key] = value.(string)
	return true, nil
}

func (s *stubLockStore) Get(_ context.Context, key string) (string, error) {
	return s.keys[key], nil
}

func (s *stubLockStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.keys, key)
	}
	return nil
}

func (s *stubLockStore) LockKey(name string) string { return "dp:lock:" + name }

func newCronService(t *testing.T, store *stubLockStore) *Service {
	t.Helper()
	lock, err := NewRedisLock(store, time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	svc, err := NewService(lock, nil, time.Hour, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestRunOnceExecutesRegisteredJobs(t *testing.T) {
	store := newStubLockStore()
	svc := newCronService(t, store)

	var ran []string
	for _, name := range []string{"first", "second"} {
		name := name
		if err := svc.Register(Job{Name: name, Run: func(context.Context) error {
			ran = append(ran, name)
			return nil
		}}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	svc.RunOnce(context.Background())

	if len(ran) != 2 || ran[0] != "first" || ran[1] != "second" {
		t.Fatalf("jobs ran = %v", ran)
	}
	if len(store.keys) != 0 {
		t.Fatalf("locks should be released, still held: %v", store.keys)
	}
}

func TestRunOnceSkipsHeldLocks(t *testing.T) {
	store := newStubLockStore()
	store.denied["dp:lock:held"] = true
	svc := newCronService(t, store)

	ran := false
	if err := svc.Register(Job{Name: "held", Run: func(context.Context) error {
		ran = true
		return nil
	}}); err != nil {
		t.Fatalf("register: %v", err)
	}

	svc.RunOnce(context.Background())
	if ran {
		t.Fatal("job should not run while the lock is held elsewhere")
	}
}

func TestRunOnceContinuesPastFailures(t *testing.T) {
	store := newStubLockStore()
	svc := newCronService(t, store)

	secondRan := false
	if err := svc.Register(Job{Name: "broken", Run: func(context.Context) error {
		return errors.New("boom")
	}}); err != nil {
		t.Fatalf("register broken: %v", err)
	}
	if err := svc.Register(Job{Name: "healthy", Run: func(context.Context) error {
		secondRan = true
		return nil
	}}); err != nil {
		t.Fatalf("register healthy: %v", err)
	}

	svc.RunOnce(context.Background())
	if !secondRan {
		t.Fatal("failure in one job should not stop the next")
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	store := newStubLockStore()
	svc := newCronService(t, store)

	job := Job{Name: "dup", Run: func(context.Context) error { return nil }}
	if err := svc.Register(job); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := svc.Register(job); err == nil {
		t.Fatal("duplicate registration should fail")
	}
}

func TestLockReleaseOnlyRemovesOwnToken(t *testing.T) {
	store := newStubLockStore()
	lock, err := NewRedisLock(store, time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}

	release, acquired, err := lock.Acquire(context.Background(), "job")
	if err != nil || !acquired {
		t.Fatalf("acquire: %v acquired=%v", err, acquired)
	}

	// another holder replaces the token after this one's TTL lapses
	store.keys["dp:lock:job"] = "someone-else"
	release()
	if store.keys["dp:lock:job"] != "someone-else" {
		t.Fatal("release must not delete another holder's lock")
	}
}
