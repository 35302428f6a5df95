package cmds

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/go-go-golems/hello-agent/pkg/client"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tcnksm/go-input"
)

type transcriptEntry struct {
	Role    string
	Content string
}

// chatSession is the state of the terminal front-end: a thread id and the local transcript
// of successful exchanges.
type chatSession struct {
	client     *client.Client
	out        io.Writer
	render     func(string) string
	threadID   string
	transcript []transcriptEntry
}

func newChatSession(c *client.Client, out io.Writer, render func(string) string) *chatSession {
	if render == nil {
		render = func(s string) string { return s + "\n" }
	}
	return &chatSession{
		client:   c,
		out:      out,
		render:   render,
		threadID: uuid.NewString(),
	}
}

// handleLine processes one line of user input and reports whether the session should end.
func (s *chatSession) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return false
	case "/quit", "/exit":
		return true
	case "/reset":
		s.transcript = nil
		s.threadID = uuid.NewString()
		_, _ = fmt.Fprintf(s.out, "Conversation cleared, new thread %s\n", s.threadID)
		return false
	case "/history":
		s.printHistory()
		return false
	case "/help":
		_, _ = fmt.Fprintln(s.out, "Commands: /reset, /history, /quit")
		return false
	}

	s.transcript = append(s.transcript, transcriptEntry{Role: "user", Content: line})
	_, _ = fmt.Fprintln(s.out, "Thinking...")

	answer, err := s.client.Chat(ctx, line, s.threadID)
	if err != nil {
		var unreachable *client.BackendUnreachableError
		if errors.As(err, &unreachable) {
			_, _ = fmt.Fprintf(s.out, "Error: cannot reach backend at %s. Is `hello-agent serve` running?\n", unreachable.URL)
		} else {
			_, _ = fmt.Fprintf(s.out, "Error: %v\n", err)
		}
		log.Debug().Err(err).Str("thread_id", s.threadID).Msg("chat request failed")
		return false
	}

	s.transcript = append(s.transcript, transcriptEntry{Role: "assistant", Content: answer})
	_, _ = fmt.Fprint(s.out, s.render(answer))
	return false
}

func (s *chatSession) printHistory() {
	_, _ = fmt.Fprintf(s.out, "Thread %s\n", s.threadID)
	if len(s.transcript) == 0 {
		_, _ = fmt.Fprintln(s.out, "(no messages yet)")
		return
	}
	for _, e := range s.transcript {
		if e.Role == "assistant" {
			_, _ = fmt.Fprintf(s.out, "[assistant]:\n%s", s.render(e.Content))
			continue
		}
		_, _ = fmt.Fprintf(s.out, "[%s]: %s\n", e.Role, e.Content)
	}
}

func markdownRenderer(out *os.File) func(string) string {
	if !isatty.IsTerminal(out.Fd()) {
		return nil
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		log.Warn().Err(err).Msg("could not create markdown renderer")
		return nil
	}
	return func(s string) string {
		rendered, err := r.Render(s)
		if err != nil {
			return s + "\n"
		}
		return rendered
	}
}

// promptReader prompts interactively on a terminal. Piped input is read line by line until
// EOF.
func promptReader(in *os.File, out io.Writer) func() (string, error) {
	if isatty.IsTerminal(in.Fd()) {
		ui := &input.UI{Writer: out, Reader: in}
		return func() (string, error) {
			return ui.Ask("You", &input.Options{HideOrder: true})
		}
	}
	scanner := bufio.NewScanner(in)
	return func() (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		return scanner.Text(), nil
	}
}

func NewChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a running hello-agent server",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, _ := cmd.Flags().GetString("url")
			c := client.New(url)

			session := newChatSession(c, os.Stdout, markdownRenderer(os.Stdout))
			if err := c.Health(cmd.Context()); err != nil {
				_, _ = fmt.Fprintf(os.Stdout, "Warning: %v\n", err)
			}
			_, _ = fmt.Fprintf(os.Stdout, "Thread %s. Type /help for commands.\n", session.threadID)

			readLine := promptReader(os.Stdin, os.Stdout)
			for {
				line, err := readLine()
				if err != nil {
					if errors.Is(err, input.ErrInterrupted) || errors.Is(err, io.EOF) {
						return nil
					}
					return errors.Wrap(err, "failed to read input")
				}
				if session.handleLine(cmd.Context(), line) {
					return nil
				}
			}
		},
	}
	cmd.Flags().String("url", client.DefaultBaseURL, "Base URL of the hello-agent server")
	return cmd
}
