package leaselock

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeLeaseFile(t *testing.T, path string, lf leaseFile) {
	t.Helper()
	data, err := json.Marshal(lf)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAcquireBusyAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.lock")
	ctx := context.Background()

	first, err := Acquire(ctx, path, Options{TTL: time.Minute})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if _, err := Acquire(ctx, path, Options{TTL: time.Minute}); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Acquire: expected ErrBusy, got %v", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if first.Context.Err() == nil {
		t.Error("lease context should be cancelled after release")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("lock file should be removed, stat err = %v", err)
	}

	second, err := Acquire(ctx, path, Options{TTL: time.Minute})
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	_ = second.Release()
}

func TestAcquireExpiredLease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.lock")
	writeLeaseFile(t, path, leaseFile{Token: "stale", PID: 1, ExpiresAt: time.Now().Add(-time.Minute)})

	lease, err := Acquire(context.Background(), path, Options{TTL: time.Minute})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lease.Release()

	current, err := readLease(path)
	if err != nil || current == nil || current.Token != lease.Token {
		t.Fatalf("lock file not taken over: %+v, %v", current, err)
	}
}

func TestAcquireWait(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.lock")
	ctx := context.Background()

	held, err := Acquire(ctx, path, Options{TTL: time.Minute})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = held.Release()
	}()

	waited, err := Acquire(ctx, path, Options{TTL: time.Minute, Wait: true, WaitInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("waiting Acquire: %v", err)
	}
	_ = waited.Release()

	t.Run("cancelled", func(t *testing.T) {
		held, err := Acquire(ctx, path, Options{TTL: time.Minute})
		if err != nil {
			t.Fatal(err)
		}
		defer held.Release()

		cctx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
		defer cancel()
		_, err = Acquire(cctx, path, Options{TTL: time.Minute, Wait: true, WaitInterval: 10 * time.Millisecond})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}
	})
}

func TestLeaseLost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.lock")

	lease, err := Acquire(context.Background(), path, Options{TTL: time.Second, RenewEvery: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lease.Release()

	writeLeaseFile(t, path, leaseFile{Token: "intruder", PID: 1, ExpiresAt: time.Now().Add(time.Minute)})

	select {
	case <-lease.Context.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("lease context was not cancelled")
	}
	if cause := context.Cause(lease.Context); !errors.Is(cause, ErrLost) {
		t.Errorf("cause = %v, want ErrLost", cause)
	}

	// a lost lease must not delete the new owner's file
	if err := lease.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if current, _ := readLease(path); current == nil || current.Token != "intruder" {
		t.Errorf("lock file changed on release: %+v", current)
	}
}

func TestWithLease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.lock")
	called := false
	err := WithLease(context.Background(), path, Options{}, func(ctx context.Context) error {
		called = true
		if _, err := os.Stat(path); err != nil {
			t.Errorf("lock file missing inside lease: %v", err)
		}
		return nil
	})
	if err != nil || !called {
		t.Fatalf("WithLease: called=%v err=%v", called, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("lock file should be removed, stat err = %v", err)
	}
}
