package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBlockWaitsForQuiescence(t *testing.T) {
	var processed int64
	p := New("test", 4, func(item interface{}) {
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&processed, 1)
	}, nil)

	for i := 0; i < 20; i++ {
		p.Submit(i)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Block(ctx, false); err != nil {
		t.Fatalf("Block: %v", err)
	}

	if got := atomic.LoadInt64(&processed); got != 20 {
		t.Errorf("processed = %d, want 20", got)
	}
	if p.InFlight() != 0 {
		t.Errorf("InFlight() = %d, want 0", p.InFlight())
	}
}

func TestBlockFalseAllowsResubmit(t *testing.T) {
	var processed int64
	p := New("test", 2, func(item interface{}) {
		atomic.AddInt64(&processed, 1)
	}, nil)

	ctx := context.Background()
	p.Submit(1)
	if err := p.Block(ctx, false); err != nil {
		t.Fatalf("Block: %v", err)
	}

	// Property 3: submit followed by block quiesces again without race.
	p.Submit(2)
	p.Submit(3)
	if err := p.Block(ctx, false); err != nil {
		t.Fatalf("Block: %v", err)
	}

	if got := atomic.LoadInt64(&processed); got != 3 {
		t.Errorf("processed = %d, want 3", got)
	}
}

func TestResubmitDuringExecution(t *testing.T) {
	// A worker function that resubmits once per item, modeling crawl's
	// self-feeding queue or a connector's retry. Quiescence must only be
	// declared once every resubmit has also completed.
	var processed int64
	var mu sync.Mutex
	seen := map[int]bool{}

	var p *Pool
	fn := func(item interface{}) {
		n := item.(int)
		mu.Lock()
		already := seen[n]
		seen[n] = true
		mu.Unlock()
		atomic.AddInt64(&processed, 1)
		if !already && n < 5 {
			p.Submit(n + 1)
		}
	}
	p = New("test", 2, fn, nil)

	p.Submit(0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Block(ctx, false); err != nil {
		t.Fatalf("Block: %v", err)
	}

	if got := atomic.LoadInt64(&processed); got != 6 { // 0..5
		t.Errorf("processed = %d, want 6", got)
	}
}

func TestPanicRecovered(t *testing.T) {
	var ranAfterPanic int64
	p := New("test", 1, func(item interface{}) {
		if item.(int) == 0 {
			panic("boom")
		}
		atomic.AddInt64(&ranAfterPanic, 1)
	}, nil)

	p.Submit(0)
	p.Submit(1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Block(ctx, false); err != nil {
		t.Fatalf("Block: %v", err)
	}

	if atomic.LoadInt64(&ranAfterPanic) != 1 {
		t.Error("worker should continue processing items after a panic")
	}
}

func TestBlockKillStopsWorkers(t *testing.T) {
	p := New("test", 2, func(item interface{}) {}, nil)
	p.Submit(1)

	ctx := context.Background()
	if err := p.Block(ctx, true); err != nil {
		t.Fatalf("Block: %v", err)
	}

	// After kill, submitting again should not panic, but nothing will
	// ever drain it since workers have exited — verified by not hanging
	// this test (no Block call afterward).
	p.Submit(2)
	if p.InFlight() != 1 {
		t.Errorf("InFlight() = %d, want 1 (dropped item never processed)", p.InFlight())
	}
}

func TestBlockContextCancellation(t *testing.T) {
	block := make(chan struct{})
	p := New("test", 1, func(item interface{}) {
		<-block
	}, nil)
	p.Submit(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := p.Block(ctx, false)
	if err == nil {
		t.Fatal("expected context deadline error")
	}
	close(block)
}
