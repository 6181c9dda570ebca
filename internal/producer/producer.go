// Package producer feeds a node with random words at Poisson-distributed
// intervals, the stand-in for a user typing into the chat.
package producer

import (
	"context"
	"errors"
	"io"
	"log"
	"math/rand"
	"time"
)

var (
	ErrNoWords = errors.New("producer: no words")
	ErrNoRate  = errors.New("producer: lambda must be positive")
)

type Generator struct {
	// Lambda is the mean number of words per minute.
	Lambda float64
	Words  []string
	Rand   *rand.Rand
	Submit func(ctx context.Context, word string) error
	Logger *log.Logger
}

// Interval draws the time to the next word.
func (g *Generator) Interval() time.Duration {
	if g.Lambda <= 0 {
		return 0
	}
	minutes := g.Rand.ExpFloat64() / g.Lambda
	return time.Duration(minutes * float64(time.Minute))
}

// Run submits a word, sleeps, and repeats until ctx is done. A failed submit
// is logged and does not stop the generator.
func (g *Generator) Run(ctx context.Context) error {
	if len(g.Words) == 0 {
		return ErrNoWords
	}
	if g.Lambda <= 0 {
		return ErrNoRate
	}
	if g.Rand == nil {
		g.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	logger := g.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		word := g.Words[g.Rand.Intn(len(g.Words))]
		if err := g.Submit(ctx, word); err != nil {
			logger.Printf("[producer] submit %q: %v", word, err)
		}
		timer.Reset(g.Interval())
	}
}
