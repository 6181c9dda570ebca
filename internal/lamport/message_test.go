package lamport

import (
	"math"
	"sort"
	"testing"
)

func TestCompareOrdersByTimestampThenSender(t *testing.T) {
	tests := []struct {
		a, b Message
		want int
	}{
		{NewContent(3, 1, "x"), NewContent(4, 1, "y"), -1},
		{NewContent(4, 1, "x"), NewContent(3, 9, "y"), 1},
		{NewContent(3, 1, "x"), NewContent(3, 2, "y"), -1},
		{NewContent(3, 2, "x"), NewContent(3, 1, "y"), 1},
		{NewContent(3, 2, "x"), NewAck(3, 2), 0},
	}
	for _, tt := range tests {
		if got := Compare(tt.a, tt.b); got != tt.want {
			t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSortIsIndependentOfArrivalOrder(t *testing.T) {
	a := []Message{
		NewAck(9, 1),
		NewContent(3, 2, "second"),
		NewContent(5, 1, "third"),
		NewContent(3, 1, "first"),
	}
	b := []Message{a[2], a[0], a[3], a[1]}

	sort.Slice(a, func(i, j int) bool { return a[i].Less(a[j]) })
	sort.Slice(b, func(i, j int) bool { return b[i].Less(b[j]) })

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("position %d: %v vs %v", i, a[i], b[i])
		}
	}
	if a[0].Payload != "first" || a[1].Payload != "second" {
		t.Fatalf("tie at ts=3 not broken by sender: %v", a)
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		senders, quorum int
		want            bool
	}{
		{0, 3, false},
		{2, 3, false},
		{3, 3, true},
		{4, 3, true},
		{1, 0, false},
	}
	for _, tt := range tests {
		if got := Ready(tt.senders, tt.quorum); got != tt.want {
			t.Errorf("Ready(%d, %d) = %v, want %v", tt.senders, tt.quorum, got, tt.want)
		}
	}
}

func TestInRange(t *testing.T) {
	tests := []struct {
		v    int64
		want bool
	}{
		{0, true},
		{MaxStamp, true},
		{-MaxStamp, true},
		{MaxStamp + 1, false},
		{-MaxStamp - 1, false},
		{math.MaxInt64, false},
		{math.MinInt64, false},
	}
	for _, tt := range tests {
		if got := InRange(tt.v); got != tt.want {
			t.Errorf("InRange(%d) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
