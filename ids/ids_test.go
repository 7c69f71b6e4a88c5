package ids

import (
	"sort"
	"testing"
	"time"
)

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := New()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = struct{}{}
	}
}

func TestNew_Version7(t *testing.T) {
	id := New()
	if len(id) != 36 {
		t.Fatalf("unexpected id length: %q", id)
	}
	if id[14] != '7' {
		t.Errorf("expected UUIDv7, got version %q in %s", id[14], id)
	}
}

func TestNew_TimeOrdered(t *testing.T) {
	first := New()
	time.Sleep(5 * time.Millisecond)
	second := New()

	got := []string{second, first}
	sort.Strings(got)
	if got[0] != first {
		t.Errorf("expected %s to sort before %s", first, second)
	}
}
