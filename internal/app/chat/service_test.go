package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/hempbis/hempbis-agent/internal/adapters/llm"
	"github.com/hempbis/hempbis-agent/internal/adapters/storage/memory"
	"github.com/hempbis/hempbis-agent/internal/domain"
)

func newTestService(t *testing.T, backend domain.ModelBackend) (*Service, *memory.ThreadStore) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	store := memory.NewThreadStore(nil, logger)
	return NewService(backend, store, logger), store
}

// collector is a TurnSink that records every event.
type collector struct {
	mu     sync.Mutex
	events []TurnEvent
}

func (c *collector) sink(ev TurnEvent) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, ev := range c.events {
		out = append(out, ev.Type)
	}
	return out
}

func TestSendMessageCommitsThread(t *testing.T) {
	backend := llm.NewMockBackend(llm.MockReply{
		Chunks: []string{"Hemp is a low-THC ", "cultivar of cannabis."},
	})
	svc, store := newTestService(t, backend)

	var c collector
	err := svc.SendMessage(context.Background(), "What is hemp?", nil, c.sink)
	if err != nil {
		t.Fatal(err)
	}

	threads, err := store.ListThreads()
	if err != nil {
		t.Fatal(err)
	}
	if len(threads) != 1 {
		t.Fatalf("got %d threads, want 1", len(threads))
	}
	th := threads[0]
	if th.Title != "What is hemp?" {
		t.Fatalf("title = %q", th.Title)
	}
	// Greeting, user message, assistant answer.
	if len(th.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(th.Messages))
	}
	last := th.Messages[2]
	if last.Sender != domain.SenderAssistant || last.Typing {
		t.Fatalf("final message not a settled assistant message: %+v", last)
	}
	if last.Text != "Hemp is a low-THC cultivar of cannabis." {
		t.Fatalf("final text = %q", last.Text)
	}
	if svc.ActiveThreadID() != th.ID {
		t.Fatal("service not bound to committed thread")
	}

	types := c.types()
	if types[len(types)-1] != "done" {
		t.Fatalf("last event = %q, want done", types[len(types)-1])
	}
}

func TestSendMessageParsesSuggestions(t *testing.T) {
	backend := llm.NewMockBackend(llm.MockReply{
		Chunks: []string{
			"CBD is non-intoxicating.\n---SUGGESTIONS_START---\n- How is CBD extracted?\n",
			"- Is CBD legal in India?\n---SUGGESTIONS_END---",
		},
	})
	svc, _ := newTestService(t, backend)

	if err := svc.SendMessage(context.Background(), "Tell me about CBD", nil, nil); err != nil {
		t.Fatal(err)
	}
	tl := svc.Timeline()
	final := tl[len(tl)-1]
	if final.Text != "CBD is non-intoxicating." {
		t.Fatalf("text = %q", final.Text)
	}
	want := []string{"How is CBD extracted?", "Is CBD legal in India?"}
	if len(final.Suggestions) != 2 || final.Suggestions[0] != want[0] || final.Suggestions[1] != want[1] {
		t.Fatalf("suggestions = %v, want %v", final.Suggestions, want)
	}
}

func TestSendMessageRejectedWhileStreaming(t *testing.T) {
	backend := newGatedBackend()
	svc, _ := newTestService(t, backend)

	done := make(chan error, 1)
	go func() {
		done <- svc.SendMessage(context.Background(), "first", nil, nil)
	}()
	<-backend.started

	if err := svc.SendMessage(context.Background(), "second", nil, nil); !errors.Is(err, domain.ErrTurnInFlight) {
		t.Fatalf("err = %v, want ErrTurnInFlight", err)
	}

	backend.release("answer")
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	// The slot is free again once the turn settles.
	backend.reset()
	go func() {
		done <- svc.SendMessage(context.Background(), "third", nil, nil)
	}()
	<-backend.started
	backend.release("another answer")
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestStaleStreamDoesNotTouchNewTimeline(t *testing.T) {
	backend := newGatedBackend()
	svc, store := newTestService(t, backend)

	done := make(chan error, 1)
	go func() {
		done <- svc.SendMessage(context.Background(), "old question", nil, nil)
	}()
	<-backend.started

	// Abandon the in-flight turn by starting a fresh thread.
	if _, err := svc.StartNewThread(""); err != nil {
		t.Fatal(err)
	}

	backend.release("stale answer")
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	for _, m := range svc.Timeline() {
		if strings.Contains(m.Text, "stale answer") || strings.Contains(m.Text, "old question") {
			t.Fatalf("stale stream leaked into new timeline: %q", m.Text)
		}
	}
	threads, _ := store.ListThreads()
	if len(threads) != 0 {
		t.Fatalf("stale stream committed a thread: %d", len(threads))
	}
}

func TestAutoForwardSwitchesAndResubmits(t *testing.T) {
	backend := llm.NewMockBackend(
		llm.MockReply{Chunks: []string{"That is really a research question. "}},
		llm.MockReply{Chunks: []string{"As a scientist: terpenes are volatile compounds."}},
	)
	svc, _ := newTestService(t, backend)

	ctx := context.Background()
	if err := svc.SendMessage(ctx, "What are terpenes?", nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := svc.HandleSuggestion(ctx, "Ask the Research Scientist instead?", nil); err != nil {
		t.Fatal(err)
	}

	if got := svc.ActivePersona().ID; got != domain.PersonaResearchScientist {
		t.Fatalf("active persona = %q", got)
	}
	if len(backend.Sessions) != 2 {
		t.Fatalf("got %d sessions, want 2 (one per persona)", len(backend.Sessions))
	}
	sci := backend.Sessions[1]
	if !sci.Params.EnableSearch {
		t.Fatal("research scientist session should have search enabled")
	}
	sent := sci.SentTexts()
	if len(sent) != 1 || sent[0] != "What are terpenes?" {
		t.Fatalf("resubmitted = %v, want exactly the original question once", sent)
	}

	var marker bool
	for _, m := range svc.Timeline() {
		if m.Sender == domain.SenderSystem && strings.Contains(m.Text, "Switched to Research Scientist.") {
			if m.PersonaID != domain.PersonaResearchScientist {
				t.Fatalf("switch announcement attributed to %q", m.PersonaID)
			}
			marker = true
		}
	}
	if !marker {
		t.Fatal("missing persona switch announcement in timeline")
	}
}

func TestPlainSwitchSuggestionOnlySwitches(t *testing.T) {
	backend := llm.NewMockBackend()
	svc, _ := newTestService(t, backend)

	if err := svc.HandleSuggestion(context.Background(), "Switch to Cultivator Expert", nil); err != nil {
		t.Fatal(err)
	}
	if got := svc.ActivePersona().ID; got != domain.PersonaCultivator {
		t.Fatalf("active persona = %q", got)
	}
	if len(backend.Sessions) != 0 {
		t.Fatalf("plain switch should not touch the model, got %d sessions", len(backend.Sessions))
	}
}

func TestAutoForwardWithoutPriorUserMessage(t *testing.T) {
	svc, _ := newTestService(t, llm.NewMockBackend())
	var c collector
	err := svc.HandleSuggestion(context.Background(), "Ask the Policy & Law Expert instead?", c.sink)
	if !errors.Is(err, domain.ErrNoPriorUserMessage) {
		t.Fatalf("err = %v, want ErrNoPriorUserMessage", err)
	}
	// The failure is visible in the timeline, not just the error path.
	tl := svc.Timeline()
	last := tl[len(tl)-1]
	if last.Sender != domain.SenderSystem || !strings.Contains(last.Text, "Could not find a previous question") {
		t.Fatalf("last message = %+v, want a system notice", last)
	}
	if len(c.events) == 0 || c.events[0].Message == nil || c.events[0].Message.Sender != domain.SenderSystem {
		t.Fatal("sink never saw the system notice")
	}
	if got := svc.ActivePersona().ID; got != domain.PersonaHempbisAI {
		t.Fatalf("persona switched to %q despite failed forward", got)
	}
}

func TestFailedTurnSurfacesRedactedError(t *testing.T) {
	backend := llm.NewMockBackend(
		llm.MockReply{Err: errors.New("googleapi: 400 API_KEY_INVALID")},
		llm.MockReply{Chunks: []string{"recovered"}},
	)
	svc, store := newTestService(t, backend)
	svc.redact = llm.RedactError

	var c collector
	if err := svc.SendMessage(context.Background(), "hello", nil, c.sink); err != nil {
		t.Fatal(err)
	}

	tl := svc.Timeline()
	final := tl[len(tl)-1]
	if final.Typing || !strings.Contains(final.Text, "API key is invalid") {
		t.Fatalf("failed turn message = %+v", final)
	}
	var sawError bool
	for _, ty := range c.types() {
		if ty == "error" {
			sawError = true
		}
	}
	if !sawError {
		t.Fatal("sink never saw an error event")
	}
	// A thread with no successful turn is never stored.
	threads, _ := store.ListThreads()
	if len(threads) != 0 {
		t.Fatalf("got %d threads, want none after an error-only turn", len(threads))
	}
	// The next turn proceeds on a fresh session and commits as usual.
	if err := svc.SendMessage(context.Background(), "again", nil, nil); err != nil {
		t.Fatal(err)
	}
	if len(backend.Sessions) != 2 {
		t.Fatalf("got %d sessions, want a fresh one after failure", len(backend.Sessions))
	}
	threads, _ = store.ListThreads()
	if len(threads) != 1 {
		t.Fatalf("got %d threads, want 1 after recovery", len(threads))
	}
}

func TestFailedTurnOnStoredThreadIsPersisted(t *testing.T) {
	backend := llm.NewMockBackend(
		llm.MockReply{Chunks: []string{"first answer"}},
		llm.MockReply{Err: errors.New("rpc error: code = RESOURCE_EXHAUSTED desc = quota exceeded")},
	)
	svc, store := newTestService(t, backend)
	svc.redact = llm.RedactError

	if err := svc.SendMessage(context.Background(), "first", nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := svc.SendMessage(context.Background(), "second", nil, nil); err != nil {
		t.Fatal(err)
	}

	th, err := store.GetThread(svc.ActiveThreadID())
	if err != nil {
		t.Fatal(err)
	}
	last := th.Messages[len(th.Messages)-1]
	if !strings.Contains(last.Text, "quota has been exhausted") {
		t.Fatalf("stored thread missing the failed turn, last = %q", last.Text)
	}
}

func TestSelectThreadAppendsOpenedMarker(t *testing.T) {
	backend := llm.NewMockBackend(llm.MockReply{Chunks: []string{"answer"}})
	svc, _ := newTestService(t, backend)

	if err := svc.SendMessage(context.Background(), "first question", nil, nil); err != nil {
		t.Fatal(err)
	}
	id := svc.ActiveThreadID()
	if _, err := svc.StartNewThread(""); err != nil {
		t.Fatal(err)
	}

	tl, err := svc.SelectThread(id)
	if err != nil {
		t.Fatal(err)
	}
	last := tl[len(tl)-1]
	if last.Sender != domain.SenderHistory || !strings.Contains(last.Text, `Opened: "first question"`) {
		t.Fatalf("last message = %+v, want opened marker", last)
	}
}

func TestRenameAndDeleteThread(t *testing.T) {
	backend := llm.NewMockBackend(llm.MockReply{Chunks: []string{"answer"}})
	svc, store := newTestService(t, backend)

	if err := svc.SendMessage(context.Background(), "question", nil, nil); err != nil {
		t.Fatal(err)
	}
	id := svc.ActiveThreadID()

	if err := svc.RenameThread(id, "Soil prep notes"); err != nil {
		t.Fatal(err)
	}
	th, _ := store.GetThread(id)
	if th.Title != "Soil prep notes" {
		t.Fatalf("title = %q", th.Title)
	}

	if err := svc.DeleteThread(id); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetThread(id); !errors.Is(err, domain.ErrThreadNotFound) {
		t.Fatalf("err = %v, want ErrThreadNotFound", err)
	}
	if svc.ActiveThreadID() != "" {
		t.Fatal("deleting the active thread should reset to an unsaved one")
	}
}

func TestDeriveTitleTruncation(t *testing.T) {
	long := strings.Repeat("a", 60)
	msgs := []*domain.Message{{Sender: domain.SenderUser, Text: long}}
	got := deriveTitle(msgs)
	if got != strings.Repeat("a", 40)+"..." {
		t.Fatalf("title = %q", got)
	}
	if deriveTitle(nil) != defaultTitle {
		t.Fatal("empty timeline should use the default title")
	}
}

// gatedBackend hands out sessions whose streams block until released,
// so tests can hold a turn open.
type gatedBackend struct {
	mu       sync.Mutex
	started  chan struct{}
	gate     chan string
	Sessions int
}

func newGatedBackend() *gatedBackend {
	return &gatedBackend{
		started: make(chan struct{}, 4),
		gate:    make(chan string, 4),
	}
}

func (b *gatedBackend) reset() {}

func (b *gatedBackend) release(text string) { b.gate <- text }

func (b *gatedBackend) CreateSession(_ context.Context, _ domain.SessionParams) (domain.ModelSession, error) {
	b.mu.Lock()
	b.Sessions++
	b.mu.Unlock()
	return &gatedSession{backend: b}, nil
}

type gatedSession struct {
	backend *gatedBackend
}

func (s *gatedSession) SendStream(ctx context.Context, _ string, _ *domain.FileData) (<-chan domain.StreamChunk, error) {
	out := make(chan domain.StreamChunk)
	s.backend.started <- struct{}{}
	go func() {
		defer close(out)
		select {
		case text := <-s.backend.gate:
			select {
			case out <- domain.StreamChunk{Text: text}:
			case <-ctx.Done():
				return
			}
			select {
			case out <- domain.StreamChunk{Final: true}:
			case <-ctx.Done():
			}
		case <-ctx.Done():
		}
	}()
	return out, nil
}
