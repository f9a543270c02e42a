package leaselock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/OFFIS-RIT/threatmap/pkg/store"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrBusy = errors.New("lease lock busy")
	ErrLost = errors.New("lease lock lost")
)

// Options configure a lease. A lease whose file was not renewed within TTL
// may be taken over by another process.
type Options struct {
	TTL        time.Duration
	RenewEvery time.Duration

	Wait         bool
	WaitInterval time.Duration
	WaitJitter   time.Duration

	TokenPrefix string
}

// Lease is a held lock file. Context is cancelled with ErrLost when the lease
// is taken over, and with context.Canceled on Release.
type Lease struct {
	Path  string
	Token string

	Context context.Context

	cancel context.CancelCauseFunc

	stopOnce sync.Once
	stopCh   chan struct{}
}

type leaseFile struct {
	Token     string    `json:"token"`
	PID       int       `json:"pid"`
	ExpiresAt time.Time `json:"expires_at"`
}

// WithLease runs fn while holding the lock file at path.
func WithLease(ctx context.Context, path string, opts Options, fn func(ctx context.Context) error) error {
	lease, err := Acquire(ctx, path, opts)
	if err != nil {
		return err
	}
	defer func() {
		_ = lease.Release()
	}()
	return fn(lease.Context)
}

// Acquire takes the lock file at path. Without opts.Wait a held lease fails
// with ErrBusy.
func Acquire(ctx context.Context, path string, opts Options) (*Lease, error) {
	if path == "" {
		return nil, errors.New("lease lock path is empty")
	}

	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.RenewEvery <= 0 || opts.RenewEvery >= opts.TTL {
		opts.RenewEvery = max(opts.TTL/2, time.Millisecond)
	}
	if opts.WaitInterval <= 0 {
		opts.WaitInterval = 250 * time.Millisecond
	}
	if opts.WaitJitter < 0 {
		opts.WaitJitter = 0
	}

	tok, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	token := opts.TokenPrefix + tok

	for {
		ok, err := tryAcquire(path, token, opts.TTL)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if !opts.Wait {
			return nil, ErrBusy
		}
		if err := sleepWithJitter(ctx, opts.WaitInterval, opts.WaitJitter); err != nil {
			return nil, err
		}
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	l := &Lease{
		Path:    path,
		Token:   token,
		Context: leaseCtx,
		cancel:  cancel,
		stopCh:  make(chan struct{}),
	}

	go l.renewLoop(opts)

	return l, nil
}

func tryAcquire(path, token string, ttl time.Duration) (bool, error) {
	content, err := json.Marshal(leaseFile{Token: token, PID: os.Getpid(), ExpiresAt: time.Now().Add(ttl)})
	if err != nil {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err == nil {
		_, werr := f.Write(content)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		return werr == nil, werr
	}
	if !errors.Is(err, fs.ErrExist) {
		return false, err
	}

	current, err := readLease(path)
	if err != nil {
		return false, err
	}
	if current != nil && current.Token != token && time.Now().Before(current.ExpiresAt) {
		return false, nil
	}
	if current == nil {
		// a lease file being written is not parseable yet
		if info, err := os.Stat(path); err == nil && time.Since(info.ModTime()) < ttl {
			return false, nil
		}
	}

	// expired or unreadable: take over, then confirm no one else did too
	if err := store.WriteFileAtomic(path, content); err != nil {
		return false, err
	}
	current, err = readLease(path)
	if err != nil {
		return false, err
	}
	return current != nil && current.Token == token, nil
}

// readLease returns nil for a missing or unreadable lock file.
func readLease(path string) (*leaseFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var lf leaseFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, nil
	}
	return &lf, nil
}

// Release removes the lock file if this lease still owns it.
func (l *Lease) Release() error {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		l.cancel(context.Canceled)
	})

	current, err := readLease(l.Path)
	if err != nil {
		return err
	}
	if current == nil || current.Token != l.Token {
		return nil
	}
	if err := os.Remove(l.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to release lease: %w", err)
	}
	return nil
}

func (l *Lease) renewLoop(opts Options) {
	t := time.NewTicker(opts.RenewEvery)
	defer t.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-l.Context.Done():
			return
		case <-t.C:
			if err := l.renewOnce(opts.TTL); err != nil {
				l.cancel(err)
				return
			}
		}
	}
}

func (l *Lease) renewOnce(ttl time.Duration) error {
	for attempt := range 3 {
		current, err := readLease(l.Path)
		if err == nil && (current == nil || current.Token != l.Token) {
			return ErrLost
		}
		if err == nil {
			var content []byte
			content, err = json.Marshal(leaseFile{Token: l.Token, PID: os.Getpid(), ExpiresAt: time.Now().Add(ttl)})
			if err == nil {
				err = store.WriteFileAtomic(l.Path, content)
			}
		}
		if err == nil {
			return nil
		}
		if attempt == 2 {
			return err
		}
		if err := sleepWithJitter(l.Context, 200*time.Millisecond, 0); err != nil {
			return err
		}
	}
	return ErrLost
}

func sleepWithJitter(ctx context.Context, base, jitter time.Duration) error {
	d := base
	if jitter > 0 {
		d += time.Duration(rand.Int64N(int64(jitter) + 1))
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
