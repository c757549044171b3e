package pipeline

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/askbro/internal/models"
)

type stubEnv struct{}

func (stubEnv) SelfID() int64                  { return 1 }
func (stubEnv) Reply(int64, int, string) error { return nil }

type stubHandler struct {
	name    string
	deps    []string
	match   bool
	cont    bool
	err     error
	invoked *[]string
}

func (h *stubHandler) Name() string { return h.name }

func (h *stubHandler) Dependencies() []string { return h.deps }

func (h *stubHandler) ContinueAfterHandle() bool { return h.cont }

func (h *stubHandler) CanHandle(tgbotapi.Update, Env, *models.ChatConfiguration) bool {
	return h.match
}

func (h *stubHandler) Handle(context.Context, tgbotapi.Update, Env, *models.ChatConfiguration) error {
	*h.invoked = append(*h.invoked, h.name)
	return h.err
}

func buildPipeline(t *testing.T, handlers ...Handler) *Pipeline {
	t.Helper()
	registry := NewRegistry()
	for _, h := range handlers {
		if err := registry.Register(h); err != nil {
			t.Fatalf("register %s: %v", h.Name(), err)
		}
	}
	pipe, err := NewPipeline(registry, zap.NewNop())
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}
	return pipe
}

func TestDispatchFirstMatchWins(t *testing.T) {
	var invoked []string
	h1 := &stubHandler{name: "h1", match: true, invoked: &invoked}
	h2 := &stubHandler{name: "h2", match: true, invoked: &invoked}
	pipe := buildPipeline(t, h1, h2)

	handled, err := pipe.Dispatch(context.Background(), tgbotapi.Update{}, stubEnv{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handled {
		t.Fatal("expected update to be handled")
	}
	if len(invoked) != 1 || invoked[0] != "h1" {
		t.Fatalf("expected only h1 to run, got %v", invoked)
	}
}

func TestDispatchContinuationRunsSubsequentHandlers(t *testing.T) {
	var invoked []string
	h1 := &stubHandler{name: "h1", match: true, cont: true, invoked: &invoked}
	h2 := &stubHandler{name: "h2", match: true, invoked: &invoked}
	pipe := buildPipeline(t, h1, h2)

	handled, err := pipe.Dispatch(context.Background(), tgbotapi.Update{}, stubEnv{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handled {
		t.Fatal("expected update to be handled")
	}
	if len(invoked) != 2 || invoked[0] != "h1" || invoked[1] != "h2" {
		t.Fatalf("expected h1 then h2, got %v", invoked)
	}
}

func TestDispatchSkipsNonMatchingHandlers(t *testing.T) {
	var invoked []string
	h1 := &stubHandler{name: "h1", match: false, invoked: &invoked}
	h2 := &stubHandler{name: "h2", match: true, invoked: &invoked}
	pipe := buildPipeline(t, h1, h2)

	handled, err := pipe.Dispatch(context.Background(), tgbotapi.Update{}, stubEnv{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handled {
		t.Fatal("expected update to be handled")
	}
	if len(invoked) != 1 || invoked[0] != "h2" {
		t.Fatalf("expected only h2 to run, got %v", invoked)
	}
}

func TestDispatchReportsUnhandledUpdate(t *testing.T) {
	var invoked []string
	pipe := buildPipeline(t, &stubHandler{name: "h1", invoked: &invoked})

	handled, err := pipe.Dispatch(context.Background(), tgbotapi.Update{}, stubEnv{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handled {
		t.Fatal("expected update to be unhandled")
	}
}

func TestDispatchPropagatesHandlerError(t *testing.T) {
	var invoked []string
	wantErr := errors.New("provider exploded")
	h1 := &stubHandler{name: "h1", match: true, err: wantErr, invoked: &invoked}
	h2 := &stubHandler{name: "h2", match: true, invoked: &invoked}
	pipe := buildPipeline(t, h1, h2)

	_, err := pipe.Dispatch(context.Background(), tgbotapi.Update{}, stubEnv{}, nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped handler error, got %v", err)
	}
	if len(invoked) != 1 {
		t.Fatalf("expected dispatch to stop after the failing handler, got %v", invoked)
	}
}

func TestPipelineOrdersHandlersByDependencies(t *testing.T) {
	var invoked []string
	// Registered out of order on purpose; all match and continue, so the
	// invocation order is the resolved order.
	last := &stubHandler{name: "last", deps: []string{"middle"}, match: true, cont: true, invoked: &invoked}
	first := &stubHandler{name: "first", match: true, cont: true, invoked: &invoked}
	middle := &stubHandler{name: "middle", deps: []string{"first"}, match: true, cont: true, invoked: &invoked}
	pipe := buildPipeline(t, last, first, middle)

	if _, err := pipe.Dispatch(context.Background(), tgbotapi.Update{}, stubEnv{}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(invoked) != 3 || invoked[0] != "first" || invoked[1] != "middle" || invoked[2] != "last" {
		t.Fatalf("expected dependency order first/middle/last, got %v", invoked)
	}
}

func TestNewPipelineFailsOnCycle(t *testing.T) {
	var invoked []string
	registry := NewRegistry()
	a := &stubHandler{name: "a", deps: []string{"b"}, invoked: &invoked}
	b := &stubHandler{name: "b", deps: []string{"a"}, invoked: &invoked}
	if err := registry.Register(a); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := registry.Register(b); err != nil {
		t.Fatalf("register b: %v", err)
	}

	if _, err := NewPipeline(registry, zap.NewNop()); err == nil {
		t.Fatal("expected cycle error, got nil")
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	var invoked []string
	registry := NewRegistry()
	if err := registry.Register(&stubHandler{name: "dup", invoked: &invoked}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := registry.Register(&stubHandler{name: "dup", invoked: &invoked}); err == nil {
		t.Fatal("expected duplicate registration error, got nil")
	}
}
