package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"bitchat/internal/domain"
	"bitchat/internal/timer"
)

type fakeSink struct {
	mu  sync.Mutex
	got []domain.PublicMessage
}

func (s *fakeSink) DeliverPublicMessage(msg domain.PublicMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, msg)
}

func (s *fakeSink) messages() []domain.PublicMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.PublicMessage(nil), s.got...)
}

func TestPipeline_FlushSortsByTimestampThenMessageID(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sink := &fakeSink{}
	p := New(Config{}, timer.SystemClock{}, sink)

	p.Enqueue(domain.PublicMessage{ID: "b", Timestamp: base, Content: "two"})
	p.Enqueue(domain.PublicMessage{ID: "a", Timestamp: base, Content: "one"})
	p.Enqueue(domain.PublicMessage{ID: "z", Timestamp: base.Add(-time.Second), Content: "zero"})

	p.Flush()

	got := sink.messages()
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	if got[0].Content != "zero" || got[1].Content != "one" || got[2].Content != "two" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

// Scenario 6 from the spec's end-to-end scenarios: two messages with the
// same content land 0.2s apart, well within the dedup window. After flush
// the timeline contains a single entry.
func TestPipeline_OrderingAndDedup_SameFlush(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sink := &fakeSink{}
	p := New(Config{}, timer.SystemClock{}, sink)

	p.Enqueue(domain.PublicMessage{ID: "b", Timestamp: base.Add(10200 * time.Millisecond), Content: "Same"})
	p.Enqueue(domain.PublicMessage{ID: "a", Timestamp: base.Add(10 * time.Second), Content: "Same"})

	p.Flush()

	got := sink.messages()
	if len(got) != 1 {
		t.Fatalf("expected exactly one delivered message, got %d: %+v", len(got), got)
	}
	if got[0].ID != "a" {
		t.Fatalf("expected the earlier message (a) to survive, got %q", got[0].ID)
	}
}

func TestPipeline_Dedup_NormalizesContentBeforeComparing(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sink := &fakeSink{}
	p := New(Config{}, timer.SystemClock{}, sink)

	p.Enqueue(domain.PublicMessage{ID: "a", Timestamp: base, Content: "  Hello   World  "})
	p.Enqueue(domain.PublicMessage{ID: "b", Timestamp: base.Add(time.Second), Content: "hello world"})

	p.Flush()

	if got := sink.messages(); len(got) != 1 {
		t.Fatalf("expected normalized content to dedup, got %d messages: %+v", len(got), got)
	}
}

func TestPipeline_Dedup_OutsideWindowKeepsBoth(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sink := &fakeSink{}
	p := New(Config{DedupWindow: 30 * time.Second}, timer.SystemClock{}, sink)

	p.Enqueue(domain.PublicMessage{ID: "a", Timestamp: base, Content: "Same"})
	p.Flush()

	p.Enqueue(domain.PublicMessage{ID: "b", Timestamp: base.Add(31 * time.Second), Content: "Same"})
	p.Flush()

	if got := sink.messages(); len(got) != 2 {
		t.Fatalf("expected both messages outside the dedup window to survive, got %d", len(got))
	}
}

func TestPipeline_Dedup_AcrossFlushesWithinWindow(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sink := &fakeSink{}
	p := New(Config{DedupWindow: 30 * time.Second}, timer.SystemClock{}, sink)

	p.Enqueue(domain.PublicMessage{ID: "a", Timestamp: base, Content: "Same"})
	p.Flush()

	p.Enqueue(domain.PublicMessage{ID: "b", Timestamp: base.Add(5 * time.Second), Content: "Same"})
	p.Flush()

	if got := sink.messages(); len(got) != 1 {
		t.Fatalf("expected the second flush's duplicate to be dropped, got %d", len(got))
	}
}

func TestPipeline_EmptyFlushDeliversNothing(t *testing.T) {
	sink := &fakeSink{}
	p := New(Config{}, timer.SystemClock{}, sink)
	p.Flush()
	if got := sink.messages(); len(got) != 0 {
		t.Fatalf("expected no deliveries from an empty flush, got %d", len(got))
	}
}

func TestPipeline_RunLoop_FlushesOnTicker(t *testing.T) {
	clock := timer.NewVirtualClock(time.Unix(0, 0))
	sink := &fakeSink{}
	p := New(Config{BatchWindow: 100 * time.Millisecond}, clock, sink)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	defer func() {
		cancel()
		p.Stop()
	}()

	p.Enqueue(domain.PublicMessage{ID: "a", Timestamp: time.Unix(0, 0), Content: "hi"})
	clock.Advance(100 * time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(sink.messages()) == 1 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("ticker-driven flush did not deliver the enqueued message")
}
