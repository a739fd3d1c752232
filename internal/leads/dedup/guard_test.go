package dedup

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCheckSuppressesWithinWindow(t *testing.T) {
	current := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	g := New(WithClock(func() time.Time { return current }))

	key := Key(uuid.New(), "Jane Doe", "+447700900123", nil)

	if !g.Check(key) {
		t.Fatal("first submission must proceed")
	}
	if g.Check(key) {
		t.Error("identical submission inside window must be suppressed")
	}

	current = current.Add(4 * time.Second)
	if g.Check(key) {
		t.Error("submission at 4s must still be suppressed")
	}

	current = current.Add(2 * time.Second)
	if !g.Check(key) {
		t.Error("submission after window must proceed")
	}
}

func TestKeyDistinguishesFields(t *testing.T) {
	actor := uuid.New()
	booked := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	later := booked.Add(time.Hour)

	base := Key(actor, "Jane Doe", "+447700900123", &booked)
	variants := []string{
		Key(uuid.New(), "Jane Doe", "+447700900123", &booked),
		Key(actor, "John Doe", "+447700900123", &booked),
		Key(actor, "Jane Doe", "+447700900999", &booked),
		Key(actor, "Jane Doe", "+447700900123", &later),
		Key(actor, "Jane Doe", "+447700900123", nil),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collides with base key", i)
		}
	}
}

func TestSweepRemovesStaleKeys(t *testing.T) {
	current := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	g := New(WithClock(func() time.Time { return current }))

	g.Check("stale")
	current = current.Add(30 * time.Second)
	g.Check("fresh")

	current = current.Add(45 * time.Second) // stale is now 75s old, fresh 45s
	g.sweep()

	if g.Len() != 1 {
		t.Errorf("Len() = %d after sweep, want 1", g.Len())
	}
	// The fresh key is outside the 5s window, so it re-records and proceeds.
	if !g.Check("fresh") {
		t.Error("fresh key should proceed after window elapsed")
	}
}

func TestCheckIsSafeUnderConcurrency(t *testing.T) {
	g := New()
	key := Key(uuid.New(), "Jane Doe", "+447700900123", nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Check(key) {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if accepted != 1 {
		t.Errorf("accepted = %d concurrent submissions, want exactly 1", accepted)
	}
}
