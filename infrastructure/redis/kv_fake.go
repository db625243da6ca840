package redis

import (
	"context"
	"sync"
	"time"
)

type fakeEntry struct {
	value   string
	expires time.Time
}

// FakeKV is an in-memory KV implementation for exercising the debounce
// coordinator without a running Redis. TTLs are honored lazily: an
// expired entry is treated as absent the next time it's read, not
// proactively swept.
type FakeKV struct {
	mu      sync.Mutex
	entries map[string]fakeEntry
	now     func() time.Time
}

func NewFakeKV() *FakeKV {
	return &FakeKV{
		entries: make(map[string]fakeEntry),
		now:     time.Now,
	}
}

// Advance moves the fake clock forward, for tests asserting TTL expiry
// without sleeping.
func (f *FakeKV) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	base := f.now()
	f.now = func() time.Time { return base.Add(d) }
}

func (f *FakeKV) live(key string) (fakeEntry, bool) {
	e, ok := f.entries[key]
	if !ok {
		return fakeEntry{}, false
	}
	if !e.expires.IsZero() && f.now().After(e.expires) {
		delete(f.entries, key)
		return fakeEntry{}, false
	}
	return e, true
}

func (f *FakeKV) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.live(key); ok {
		return false, nil
	}
	f.entries[key] = fakeEntry{value: value, expires: f.expireAt(ttl)}
	return true, nil
}

func (f *FakeKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = fakeEntry{value: value, expires: f.expireAt(ttl)}
	return nil
}

func (f *FakeKV) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.live(key)
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

func (f *FakeKV) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.live(key)
	var n int64
	if ok {
		n = parseInt(e.value)
	}
	n++
	e.value = formatInt(n)
	if !ok {
		e.expires = time.Time{}
	}
	f.entries[key] = e
	return n, nil
}

func (f *FakeKV) Expire(_ context.Context, key string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.live(key)
	if !ok {
		return nil
	}
	e.expires = f.expireAt(ttl)
	f.entries[key] = e
	return nil
}

func (f *FakeKV) Del(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	return nil
}

func (f *FakeKV) expireAt(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return f.now().Add(ttl)
}

func parseInt(s string) int64 {
	var n int64
	neg := false
	for i, c := range s {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int64(c-'0')
	}
	if neg {
		return -n
	}
	return n
}

func formatInt(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
