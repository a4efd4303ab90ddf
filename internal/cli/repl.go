// Package cli 实现交互式终端聊天。
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"support-chat-go/internal/model"
	"support-chat-go/internal/service"
	"support-chat-go/pkg/chatapi"

	"github.com/fatih/color"
)

type palette struct {
	user   *color.Color
	bot    *color.Color
	system *color.Color
	err    *color.Color
}

func newPalette(dark bool) palette {
	if dark {
		return palette{
			user:   color.New(color.FgHiCyan, color.Bold),
			bot:    color.New(color.FgHiGreen),
			system: color.New(color.FgHiBlack),
			err:    color.New(color.FgHiRed),
		}
	}
	return palette{
		user:   color.New(color.FgBlue, color.Bold),
		bot:    color.New(color.FgGreen),
		system: color.New(color.FgMagenta),
		err:    color.New(color.FgRed),
	}
}

// REPL 是一个逐行读取输入的聊天循环。普通文本作为消息发送，以 / 开头的是命令。
type REPL struct {
	store   service.ConversationStore
	tickets service.TicketService
	theme   service.ThemeService
	in      io.Reader
	out     io.Writer
	colors  palette
}

// NewREPL 创建一个新的 REPL。
func NewREPL(store service.ConversationStore, tickets service.TicketService, theme service.ThemeService, in io.Reader, out io.Writer) *REPL {
	return &REPL{
		store:   store,
		tickets: tickets,
		theme:   theme,
		in:      in,
		out:     out,
		colors:  newPalette(theme.IsDarkMode()),
	}
}

// Run 读取输入直到 EOF、/quit 或 ctx 被取消。
func (r *REPL) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errCh <- err
			return
		}
		errCh <- io.EOF
	}()

	for {
		fmt.Fprint(r.out, r.prompt())

		var line string
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case line = <-lines:
		}

		if quit := r.Handle(ctx, line); quit {
			return nil
		}
	}
}

func (r *REPL) prompt() string {
	if id, ok := r.store.SessionID(); ok {
		return fmt.Sprintf("[%s]> ", shortID(id))
	}
	return "> "
}

// Handle 处理一行输入，返回 true 表示退出。
func (r *REPL) Handle(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}
	if !strings.HasPrefix(input, "/") {
		r.send(ctx, input)
		return false
	}

	cmd, args, _ := strings.Cut(input, " ")
	args = strings.TrimSpace(args)
	switch cmd {
	case "/quit", "/exit", "/q":
		return true
	case "/help":
		r.printHelp()
	case "/clear":
		r.store.ClearMessages()
		r.colors.system.Fprintln(r.out, "Conversation cleared.")
	case "/session":
		if id, ok := r.store.SessionID(); ok {
			r.colors.system.Fprintf(r.out, "Session: %s\n", id)
		} else {
			r.colors.system.Fprintln(r.out, "No session yet. Send a message to start one.")
		}
	case "/history":
		r.printTranscript(r.store.State().Messages)
	case "/load":
		r.load(ctx, args)
	case "/ticket":
		r.createTicket(ctx, args)
	case "/tickets":
		r.listTickets(ctx)
	case "/status":
		r.ticketStatus(ctx, args)
	case "/theme":
		r.toggleTheme(ctx)
	default:
		r.colors.err.Fprintf(r.out, "Unknown command %s. Type /help for commands.\n", cmd)
	}
	return false
}

func (r *REPL) send(ctx context.Context, content string) {
	r.colors.system.Fprintln(r.out, "bot is typing…")
	r.store.SendMessage(ctx, content)
	if last, ok := r.store.LastMessage(); ok && last.Sender == model.SenderBot {
		r.printMessage(last)
	}
}

func (r *REPL) load(ctx context.Context, sessionID string) {
	if sessionID == "" {
		r.colors.err.Fprintln(r.out, "Usage: /load <session_id>")
		return
	}
	r.store.LoadConversation(ctx, sessionID)
	r.printTranscript(r.store.State().Messages)
}

func (r *REPL) createTicket(ctx context.Context, args string) {
	subject, description, found := strings.Cut(args, "|")
	if !found || strings.TrimSpace(description) == "" {
		r.colors.err.Fprintln(r.out, "Usage: /ticket <subject> | <description>")
		return
	}
	ticket, err := r.tickets.Create(ctx, strings.TrimSpace(subject), strings.TrimSpace(description))
	if err != nil {
		r.printError("Could not create ticket", err)
		return
	}
	r.colors.system.Fprintf(r.out, "Ticket %s created (status: %s, priority: %s).\n", ticket.TicketID, ticket.Status, ticket.Priority)
}

func (r *REPL) listTickets(ctx context.Context) {
	records, err := r.tickets.List(ctx)
	if err != nil {
		r.printError("Could not read tickets", err)
		return
	}
	if len(records) == 0 {
		r.colors.system.Fprintln(r.out, "No tickets created from this client.")
		return
	}
	for _, rec := range records {
		r.colors.system.Fprintf(r.out, "%s  %-11s  %s  (%s)\n", rec.TicketID, rec.Status, rec.Subject, rec.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
}

func (r *REPL) ticketStatus(ctx context.Context, ticketID string) {
	if ticketID == "" {
		r.colors.err.Fprintln(r.out, "Usage: /status <ticket_id>")
		return
	}
	ticket, err := r.tickets.Status(ctx, ticketID)
	if err != nil {
		r.printError("Could not fetch ticket", err)
		return
	}
	r.colors.system.Fprintf(r.out, "%s: %s (priority %s) - %s\n", ticket.TicketID, ticket.Status, ticket.Priority, ticket.Subject)
}

func (r *REPL) toggleTheme(ctx context.Context) {
	err := r.theme.ToggleTheme(ctx)
	r.colors = newPalette(r.theme.IsDarkMode())
	if err != nil {
		r.printError("Theme switched but could not be saved", err)
		return
	}
	r.colors.system.Fprintf(r.out, "Theme: %s\n", r.theme.Theme())
}

func (r *REPL) printError(msg string, err error) {
	var respErr *chatapi.ResponseError
	if errors.As(err, &respErr) {
		r.colors.err.Fprintf(r.out, "[error] %s: backend returned %d\n", msg, respErr.StatusCode)
		return
	}
	r.colors.err.Fprintf(r.out, "[error] %s: %v\n", msg, err)
}

func (r *REPL) printTranscript(messages []model.Message) {
	if len(messages) == 0 {
		r.colors.system.Fprintln(r.out, "(no messages)")
		return
	}
	for _, m := range messages {
		r.printMessage(m)
	}
}

func (r *REPL) printMessage(m model.Message) {
	if m.Sender == model.SenderUser {
		r.colors.user.Fprint(r.out, "you> ")
		fmt.Fprintln(r.out, m.Content)
		return
	}
	r.colors.bot.Fprint(r.out, "bot> ")
	fmt.Fprintln(r.out, m.Content)
}

func (r *REPL) printHelp() {
	r.colors.system.Fprint(r.out, `Commands:
  /load <session_id>              Replace the conversation with a stored one
  /clear                          Forget messages and session
  /session                        Show the current session id
  /history                        Print the conversation
  /ticket <subject> | <details>   Open a support ticket
  /tickets                        List tickets opened from this client
  /status <ticket_id>             Refresh a ticket's status
  /theme                          Toggle dark/light colours
  /quit                           Exit
`)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
