package auth

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestLocalTokenConsumeIsSingleUse(t *testing.T) {
	tokens := NewLocalTokens()
	tokens.Grant(7)

	if !tokens.Consume(7) {
		t.Fatal("expected first consume to succeed")
	}
	if tokens.Consume(7) {
		t.Fatal("expected second consume to fail")
	}
}

func TestLocalTokenConsumeWithoutGrant(t *testing.T) {
	tokens := NewLocalTokens()
	if tokens.Consume(42) {
		t.Fatal("expected consume without grant to fail")
	}
}

func TestLocalTokenGrantOverwrites(t *testing.T) {
	tokens := NewLocalTokens()
	tokens.Grant(7)
	tokens.Grant(7)

	if got := tokens.Len(); got != 1 {
		t.Fatalf("expected a single outstanding grant, got %d", got)
	}
	if !tokens.Consume(7) {
		t.Fatal("expected consume to succeed")
	}
	if tokens.Consume(7) {
		t.Fatal("repeated grants must still collapse to one use")
	}
}

func TestLocalTokenConcurrentConsume(t *testing.T) {
	tokens := NewLocalTokens()
	tokens.Grant(99)

	const workers = 32
	var successes atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if tokens.Consume(99) {
				successes.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := successes.Load(); got != 1 {
		t.Fatalf("expected exactly one successful consume, got %d", got)
	}
	if got := tokens.Len(); got != 0 {
		t.Fatalf("expected no outstanding grants, got %d", got)
	}
}
