package lamport

import (
	"sync"
	"testing"
)

func TestClockZeroValue(t *testing.T) {
	var clk Clock
	if got := clk.Tick(); got != 1 {
		t.Fatalf("Tick on zero clock = %d, want 1", got)
	}
}

func TestClockTickStrictlyIncreases(t *testing.T) {
	clk := NewClock(5)
	prev := clk.Value()
	for i := 0; i < 100; i++ {
		v := clk.Tick()
		if v != prev+1 {
			t.Fatalf("Tick #%d = %d, want %d", i, v, prev+1)
		}
		prev = v
	}
}

func TestClockObserve(t *testing.T) {
	tests := []struct {
		name   string
		start  int64
		remote int64
		want   int64
	}{
		{"remote ahead", 1, 7, 8},
		{"local ahead", 10, 3, 11},
		{"equal", 4, 4, 5},
		{"zero", 0, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := NewClock(tt.start)
			if got := clk.Observe(tt.remote); got != tt.want {
				t.Fatalf("Observe(%d) from %d = %d, want %d", tt.remote, tt.start, got, tt.want)
			}
			if clk.Value() != tt.want {
				t.Fatalf("Value = %d, want %d", clk.Value(), tt.want)
			}
		})
	}
}

func TestClockConcurrentUpdatesAreNeverLost(t *testing.T) {
	const workers = 8
	const perWorker = 1000

	clk := NewClock(0)
	seen := make([][]int64, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if i%2 == 0 {
					seen[w] = append(seen[w], clk.Tick())
				} else {
					// remote is always behind, so Observe acts like Tick
					seen[w] = append(seen[w], clk.Observe(0))
				}
			}
		}(w)
	}
	wg.Wait()

	if got := clk.Value(); got != workers*perWorker {
		t.Fatalf("final clock = %d, want %d", got, workers*perWorker)
	}

	unique := make(map[int64]bool)
	for w := range seen {
		for i, v := range seen[w] {
			if unique[v] {
				t.Fatalf("value %d handed out twice", v)
			}
			unique[v] = true
			if i > 0 && v <= seen[w][i-1] {
				t.Fatalf("worker %d saw %d after %d", w, v, seen[w][i-1])
			}
		}
	}
}
