package core

import (
	"container/heap"
	"context"
	"math/rand"
	"sync"
	"time"

	"gaugecode-go/types"
)

// PollReq asks the HAL loop to fire one control verb at a capability.
type PollReq struct {
	Domain string
	Kind   types.Kind
	Name   string
	Verb   string
}

type pollKey struct {
	d    string
	k    types.Kind
	n    string
	verb string
}

type pollItem struct {
	key    pollKey
	due    int64 // UnixNano
	every  time.Duration
	jitter time.Duration
	index  int
}

type pollHeap []*pollItem

func (h pollHeap) Len() int           { return len(h) }
func (h pollHeap) Less(i, j int) bool { return h[i].due < h[j].due }
func (h pollHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *pollHeap) Push(x any)        { it := x.(*pollItem); it.index = len(*h); *h = append(*h, it) }
func (h *pollHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	it.index = -1
	*h = old[:n-1]
	return it
}
func (h pollHeap) Top() *pollItem {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}

// Poller schedules periodic control verbs with optional jitter. Requests
// are delivered on the out channel; a full channel drops the tick rather
// than blocking the scheduler.
type Poller struct {
	mu    sync.Mutex
	wake  chan struct{}
	items map[pollKey]*pollItem
	h     pollHeap
	rand  *rand.Rand
	out   chan<- PollReq
}

func NewPoller(out chan<- PollReq) *Poller {
	return &Poller{
		wake:  make(chan struct{}, 1),
		items: make(map[pollKey]*pollItem),
		rand:  rand.New(rand.NewSource(time.Now().UnixNano())),
		out:   out,
	}
}

// Upsert adds or updates a schedule. The first fire occurs after interval
// plus a random jitter in [0..jitter]; jitter is also applied on each
// re-arm.
func (p *Poller) Upsert(spec types.PollSpec) {
	if spec.IntervalMs == 0 || spec.Verb == "" {
		return
	}
	interval := time.Duration(spec.IntervalMs) * time.Millisecond
	jitter := time.Duration(spec.JitterMs) * time.Millisecond
	key := pollKey{d: spec.Domain, k: spec.Kind, n: spec.Name, verb: spec.Verb}

	p.mu.Lock()
	nextDue := time.Now().Add(p.jittered(interval, jitter)).UnixNano()
	if it := p.items[key]; it == nil {
		it2 := &pollItem{
			key:    key,
			due:    nextDue,
			every:  interval,
			jitter: jitter,
			index:  -1,
		}
		p.items[key] = it2
		heap.Push(&p.h, it2)
	} else {
		it.every = interval
		it.jitter = jitter
		it.due = nextDue
		heap.Fix(&p.h, it.index)
	}
	p.mu.Unlock()
	p.wakeup()
}

func (p *Poller) Stop(domain string, kind types.Kind, name, verb string) {
	key := pollKey{d: domain, k: kind, n: name, verb: verb}
	p.mu.Lock()
	if it := p.items[key]; it != nil {
		heap.Remove(&p.h, it.index)
		delete(p.items, key)
	}
	p.mu.Unlock()
	p.wakeup()
}

// Run owns the schedule until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		p.mu.Lock()
		var wait time.Duration = time.Hour
		if top := p.h.Top(); top != nil {
			wait = time.Until(time.Unix(0, top.due))
			if wait < 0 {
				wait = 0
			}
		}
		p.mu.Unlock()

		timer.Reset(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-p.wake:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			continue
		case <-timer.C:
			p.fireDue()
		}
	}
}

func (p *Poller) fireDue() {
	now := time.Now().UnixNano()
	var due []PollReq

	p.mu.Lock()
	for {
		top := p.h.Top()
		if top == nil || top.due > now {
			break
		}
		due = append(due, PollReq{
			Domain: top.key.d,
			Kind:   top.key.k,
			Name:   top.key.n,
			Verb:   top.key.verb,
		})
		top.due = time.Now().Add(p.jittered(top.every, top.jitter)).UnixNano()
		heap.Fix(&p.h, top.index)
	}
	p.mu.Unlock()

	for _, req := range due {
		select {
		case p.out <- req:
		default:
			// consumer backlogged; skip this tick
		}
	}
}

func (p *Poller) jittered(interval, jitter time.Duration) time.Duration {
	if jitter <= 0 {
		return interval
	}
	return interval + time.Duration(p.rand.Int63n(int64(jitter)+1))
}

func (p *Poller) wakeup() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}
