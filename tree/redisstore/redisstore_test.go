package redisstore

import (
	"strings"
	"testing"
)

func TestKeyFor(t *testing.T) {
	rs := &redisStore{prefix: "forestry"}
	if k := rs.keyFor("abc"); k != "forestry:abc" {
		t.Errorf("expected key forestry:abc, got %s", k)
	}
	rs.prefix = ""
	if k := rs.keyFor("abc"); k != "abc" {
		t.Errorf("expected key abc, got %s", k)
	}
}

func TestRandString(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := randString(idLength)
		if len(s) != idLength {
			t.Fatalf("expected %d characters, got %q", idLength, s)
		}
		for _, c := range s {
			if !strings.ContainsRune(idChars, c) {
				t.Fatalf("unexpected character %q in %q", c, s)
			}
		}
		if seen[s] {
			t.Errorf("repeated id %q", s)
		}
		seen[s] = true
	}
}
