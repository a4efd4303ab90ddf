package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"support-chat-go/internal/config"
	"support-chat-go/internal/repository"
	"support-chat-go/internal/service"
	"support-chat-go/pkg/chatapi"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

type harness struct {
	repl    *REPL
	out     *bytes.Buffer
	store   service.ConversationStore
	tickets service.TicketService
	theme   service.ThemeService
}

func newHarness(t *testing.T, mux *http.ServeMux, input string) *harness {
	t.Helper()
	backend := httptest.NewServer(mux)
	t.Cleanup(backend.Close)

	client := chatapi.NewClient(config.BackendConfig{BaseURL: backend.URL + "/api", Timeout: 5 * time.Second})
	store := service.NewConversationStore(client, nil)
	tickets := service.NewTicketService(store, client, repository.NewMemoryTicketRepository())
	theme := service.NewThemeService(repository.NewMemoryThemeRepository(), func() bool { return false })
	require.NoError(t, theme.InitTheme(context.Background()))

	out := &bytes.Buffer{}
	return &harness{
		repl:    NewREPL(store, tickets, theme, strings.NewReader(input), out),
		out:     out,
		store:   store,
		tickets: tickets,
		theme:   theme,
	}
}

func chatBackend() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"session_id":"abc12345xyz","response":"Hi there!"}`))
	})
	return mux
}

func TestRun_SendsMessagesUntilEOF(t *testing.T) {
	h := newHarness(t, chatBackend(), "Hello\n\n/session\n")

	require.NoError(t, h.repl.Run(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "bot> Hi there!")
	assert.Contains(t, out, "Session: abc12345xyz")
	assert.Contains(t, out, "[abc12345]> ", "prompt shows the short session id once a session exists")
	assert.Len(t, h.store.State().Messages, 2)
}

func TestRun_QuitStopsReading(t *testing.T) {
	h := newHarness(t, chatBackend(), "/quit\nHello\n")

	require.NoError(t, h.repl.Run(context.Background()))
	assert.Empty(t, h.store.State().Messages)
}

func TestRun_ContextCancelled(t *testing.T) {
	h := newHarness(t, chatBackend(), "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, h.repl.Run(ctx))
}

func TestHandle_BackendDownPrintsFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	h := newHarness(t, mux, "")

	h.repl.Handle(context.Background(), "Hello")

	assert.Contains(t, h.out.String(), "bot> "+service.FallbackMessage)
}

func TestHandle_LoadAndClear(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/conversation/xyz/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":1,"session_id":"xyz","messages":[
			{"id":1,"content":"earlier question","sender":"user","timestamp":"2024-03-01T10:00:00Z"},
			{"id":2,"content":"earlier answer","sender":"bot","timestamp":"2024-03-01T10:00:01Z"}]}`))
	})
	h := newHarness(t, mux, "")
	ctx := context.Background()

	h.repl.Handle(ctx, "/load")
	assert.Contains(t, h.out.String(), "Usage: /load")

	h.out.Reset()
	h.repl.Handle(ctx, "/load xyz")
	assert.Contains(t, h.out.String(), "you> earlier question")
	assert.Contains(t, h.out.String(), "bot> earlier answer")

	h.out.Reset()
	h.repl.Handle(ctx, "/clear")
	assert.Contains(t, h.out.String(), "Conversation cleared.")
	assert.Empty(t, h.store.State().Messages)

	h.out.Reset()
	h.repl.Handle(ctx, "/history")
	assert.Contains(t, h.out.String(), "(no messages)")
}

func TestHandle_Tickets(t *testing.T) {
	const ticketJSON = `{"id":1,"ticket_id":"CS-1A2B3C4D","subject":"Billing","description":"Charged twice","status":"open","priority":"medium","created_at":"2024-03-01T10:00:00Z","updated_at":"2024-03-01T10:00:00Z"}`
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ticket/create/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(ticketJSON))
	})
	mux.HandleFunc("/api/ticket/CS-1A2B3C4D/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Replace(ticketJSON, `"open"`, `"resolved"`, 1)))
	})
	h := newHarness(t, mux, "")
	ctx := context.Background()

	h.repl.Handle(ctx, "/ticket Billing")
	assert.Contains(t, h.out.String(), "Usage: /ticket")

	h.out.Reset()
	h.repl.Handle(ctx, "/ticket Billing | Charged twice")
	assert.Contains(t, h.out.String(), "Ticket CS-1A2B3C4D created (status: open, priority: medium).")

	h.out.Reset()
	h.repl.Handle(ctx, "/tickets")
	assert.Contains(t, h.out.String(), "CS-1A2B3C4D")
	assert.Contains(t, h.out.String(), "Billing")

	h.out.Reset()
	h.repl.Handle(ctx, "/status CS-1A2B3C4D")
	assert.Contains(t, h.out.String(), "CS-1A2B3C4D: resolved")
}

func TestHandle_TicketFailureShowsStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ticket/create/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal server error"}`))
	})
	h := newHarness(t, mux, "")

	h.repl.Handle(context.Background(), "/ticket Billing | Charged twice")

	assert.Contains(t, h.out.String(), "[error] Could not create ticket: backend returned 500")
}

func TestHandle_ThemeAndUnknownCommand(t *testing.T) {
	h := newHarness(t, chatBackend(), "")
	ctx := context.Background()

	h.repl.Handle(ctx, "/theme")
	assert.Contains(t, h.out.String(), "Theme: dark")
	assert.True(t, h.theme.IsDarkMode())

	h.out.Reset()
	assert.False(t, h.repl.Handle(ctx, "/bogus"))
	assert.Contains(t, h.out.String(), "Unknown command /bogus")

	h.out.Reset()
	h.repl.Handle(ctx, "/help")
	assert.Contains(t, h.out.String(), "/ticket <subject> | <details>")
}
