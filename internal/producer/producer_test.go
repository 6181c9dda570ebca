package producer

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"
)

func TestIntervalMean(t *testing.T) {
	g := &Generator{Lambda: 60, Rand: rand.New(rand.NewSource(1))}

	const n = 20000
	var total time.Duration
	for i := 0; i < n; i++ {
		d := g.Interval()
		if d < 0 {
			t.Fatalf("negative interval %v", d)
		}
		total += d
	}
	mean := total / n
	// 60 words a minute is one a second on average
	if mean < 900*time.Millisecond || mean > 1100*time.Millisecond {
		t.Fatalf("mean interval = %v, want about 1s", mean)
	}
}

func TestRunSubmitsKnownWordsUntilCancelled(t *testing.T) {
	words := []string{"apple", "banana", "cherry"}
	known := map[string]bool{"apple": true, "banana": true, "cherry": true}

	var mu sync.Mutex
	var got []string
	ctx, cancel := context.WithCancel(context.Background())
	g := &Generator{
		Lambda: 60000,
		Words:  words,
		Rand:   rand.New(rand.NewSource(7)),
		Submit: func(_ context.Context, w string) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, w)
			if len(got) == 20 {
				cancel()
			}
			return errors.New("peer down")
		},
	}

	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("Run did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) < 20 {
		t.Fatalf("submitted %d words", len(got))
	}
	for _, w := range got {
		if !known[w] {
			t.Fatalf("submitted unknown word %q", w)
		}
	}
}

func TestRunRejectsBadGenerators(t *testing.T) {
	g := &Generator{Lambda: 1}
	if err := g.Run(context.Background()); !errors.Is(err, ErrNoWords) {
		t.Fatalf("Run = %v, want ErrNoWords", err)
	}
	g = &Generator{Words: []string{"x"}}
	if err := g.Run(context.Background()); !errors.Is(err, ErrNoRate) {
		t.Fatalf("Run = %v, want ErrNoRate", err)
	}
}
