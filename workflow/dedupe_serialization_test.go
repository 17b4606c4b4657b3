package workflow

import (
	"fmt"
	"sync"
	"testing"
)

// NOTE: These tests are intentionally DB-free. They validate the intended
// delivery semantics:
// - at-least-once delivery is safe via durable idempotency
// - per-member serialization prevents racey interleavings inside handlers
//
// Full DB+PubSub integration tests should be added in an environment that
// can run MySQL + a Pub/Sub emulator.

type fakeProcessor struct {
	muByMember map[int]*sync.Mutex
	mu         sync.Mutex
	seen       map[string]bool
	calls      int
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{
		muByMember: map[int]*sync.Mutex{},
		seen:       map[string]bool{},
	}
}

func (p *fakeProcessor) process(memberID int, handlerName, messageID string, fn func()) {
	// Serialize per member (models utils.MemberLock).
	p.mu.Lock()
	mm := p.muByMember[memberID]
	if mm == nil {
		mm = &sync.Mutex{}
		p.muByMember[memberID] = mm
	}
	p.mu.Unlock()

	mm.Lock()
	defer mm.Unlock()

	// Deduplicate (models IdempotencyKey).
	key := fmt.Sprintf("%d|%s|%s", memberID, handlerName, messageID)
	p.mu.Lock()
	if p.seen[key] {
		p.mu.Unlock()
		return
	}
	p.seen[key] = true
	p.mu.Unlock()

	fn()

	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
}

func TestDuplicateDeliveryIsProcessedOnce(t *testing.T) {
	p := newFakeProcessor()

	const (
		member    = 1042
		handler   = "outbox_processor"
		messageID = "123"
	)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.process(member, handler, messageID, func() {})
		}()
	}
	wg.Wait()

	if p.calls != 1 {
		t.Fatalf("expected exactly 1 processing call, got %d", p.calls)
	}
}

func TestPerMemberSerializationPreservesOrderWithinAMember(t *testing.T) {
	p := newFakeProcessor()

	const member = 1042
	var orderMu sync.Mutex
	var order []string
	inFlight := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		messageID := fmt.Sprintf("m-%d", i)
		go func() {
			defer wg.Done()
			p.process(member, "outbox_processor", messageID, func() {
				orderMu.Lock()
				inFlight++
				if inFlight != 1 {
					t.Errorf("two handlers ran concurrently for one member")
				}
				order = append(order, messageID)
				inFlight--
				orderMu.Unlock()
			})
		}()
	}
	wg.Wait()

	if len(order) != 50 {
		t.Fatalf("expected 50 distinct messages processed, got %d", len(order))
	}
}

func TestDistinctMembersProcessIndependently(t *testing.T) {
	p := newFakeProcessor()

	var wg sync.WaitGroup
	for member := 1; member <= 10; member++ {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			memberID := member
			messageID := fmt.Sprintf("m-%d", i)
			go func() {
				defer wg.Done()
				p.process(memberID, "outbox_processor", messageID, func() {})
			}()
		}
	}
	wg.Wait()

	if p.calls != 100 {
		t.Fatalf("expected 100 processing calls, got %d", p.calls)
	}
}
