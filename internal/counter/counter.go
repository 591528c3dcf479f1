// Package counter defines the persisted counter store consulted by the
// frequency gates, and the storage keys used for each popup.
//
// Two stores are involved: a durable one for "last shown" timestamps that
// survives reloads, and a session-scoped one for "times shown this session".
// Both speak the same string key/value interface.
package counter

import (
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// Storage key layout.
const (
	Prefix             = "launchpop_"
	LastShownPrefix    = Prefix + "lastShown_"
	SessionCountPrefix = Prefix + "sessionCount_"
)

// Store is a string key/value store.
//
// Get returns ok=false when the key is absent. An error means the store could
// not be consulted at all; callers treat that as "no limit applies".
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Incrementer is implemented by stores that can bump an integer counter in
// one step. The engine prefers it over Get followed by Set.
type Incrementer interface {
	Increment(key string) (int64, error)
}

// LastShownKey returns the durable key holding the last-shown timestamp for id.
//
// Ids are NFC-normalized so visually identical ids share one key.
func LastShownKey(id string) string {
	return LastShownPrefix + norm.NFC.String(id)
}

// SessionCountKey returns the session key holding the show count for id.
func SessionCountKey(id string) string {
	return SessionCountPrefix + norm.NFC.String(id)
}

// ParseInt parses a stored integer, returning fallback when the value is
// missing or has no leading digits. Trailing text such as a fractional part
// is ignored, so "1700000000000.0" reads as 1700000000000.
func ParseInt(value string, ok bool, fallback int64) int64 {
	if !ok {
		return fallback
	}
	n, valid := LeadingInt(value)
	if !valid {
		return fallback
	}
	return n
}

// LeadingInt reads an optionally signed run of leading decimal digits,
// ignoring leading whitespace and any trailing text. valid is false when
// there are no digits or the number overflows int64.
func LeadingInt(s string) (n int64, valid bool) {
	s = strings.TrimLeft(s, " \t\n\r\f\v")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Memory is an in-process Store. The zero value is not usable; call NewMemory.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Increment adds one to the integer stored at key and returns the new value.
func (m *Memory) Increment(key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	n := ParseInt(v, ok, 0) + 1
	m.values[key] = strconv.FormatInt(n, 10)
	return n, nil
}
