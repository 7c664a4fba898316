package core

import (
	"context"
	"testing"
	"time"

	"gaugecode-go/types"
)

func TestPollerFiresAndReschedules(t *testing.T) {
	out := make(chan PollReq, 16)
	p := NewPoller(out)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.Upsert(types.PollSpec{
		Domain: "power", Kind: types.KindBattery, Name: "main",
		Verb: "read", IntervalMs: 10,
	})

	for i := 0; i < 3; i++ {
		select {
		case req := <-out:
			if req.Verb != "read" || req.Name != "main" {
				t.Fatalf("req = %+v", req)
			}
		case <-time.After(time.Second):
			t.Fatalf("tick %d never fired", i)
		}
	}
}

func TestPollerStopCancelsSchedule(t *testing.T) {
	out := make(chan PollReq, 16)
	p := NewPoller(out)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.Upsert(types.PollSpec{
		Domain: "power", Kind: types.KindBattery, Name: "main",
		Verb: "read", IntervalMs: 5,
	})
	select {
	case <-out:
	case <-time.After(time.Second):
		t.Fatal("schedule never fired")
	}

	p.Stop("power", types.KindBattery, "main", "read")
	// Drain anything already queued, then expect silence.
	deadline := time.After(60 * time.Millisecond)
drain:
	for {
		select {
		case <-out:
		case <-deadline:
			break drain
		}
	}
	select {
	case req := <-out:
		t.Fatalf("fired after stop: %+v", req)
	case <-time.After(40 * time.Millisecond):
	}
}

func TestPollerIgnoresInvalidSpec(t *testing.T) {
	out := make(chan PollReq, 1)
	p := NewPoller(out)

	p.Upsert(types.PollSpec{Domain: "power", Kind: types.KindBattery, Name: "main", Verb: "read"})
	p.Upsert(types.PollSpec{Domain: "power", Kind: types.KindBattery, Name: "main", IntervalMs: 10})

	if len(p.items) != 0 {
		t.Fatalf("items = %d, want 0", len(p.items))
	}
}
