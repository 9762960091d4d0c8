// ABOUTME: Tests for the byte cache
// ABOUTME: Covers memoization, passthrough, and failure retry
package launcheraudio

import (
	"errors"
	"testing"
)

func TestCacheMemoizes(t *testing.T) {
	calls := 0
	c := NewBytesCache(func(name string) ([]byte, error) {
		calls++
		return []byte(name), nil
	}, false)

	for i := 0; i < 3; i++ {
		data, err := c.Get("beep.wav")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(data) != "beep.wav" {
			t.Errorf("data = %q", data)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestCachePassthrough(t *testing.T) {
	calls := 0
	c := NewBytesCache(func(name string) ([]byte, error) {
		calls++
		return nil, nil
	}, true)

	c.Get("a")
	c.Get("a")
	if calls != 2 {
		t.Errorf("loader called %d times, want 2", calls)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0 in passthrough mode", c.Len())
	}
}

func TestCacheDoesNotCacheFailures(t *testing.T) {
	fail := true
	c := NewBytesCache(func(name string) ([]byte, error) {
		if fail {
			return nil, errors.New("transient")
		}
		return []byte("ok"), nil
	}, false)

	if _, err := c.Get("x"); err == nil {
		t.Fatal("expected error")
	}

	fail = false
	data, err := c.Get("x")
	if err != nil {
		t.Fatalf("Get after recovery: %v", err)
	}
	if string(data) != "ok" {
		t.Errorf("data = %q", data)
	}
}

func TestCacheNilLoader(t *testing.T) {
	c := NewBytesCache(nil, false)
	if _, err := c.Get("x"); err == nil {
		t.Error("nil loader Get succeeded")
	}
}
