package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/casualjim/omnichat/executor"
	"github.com/casualjim/omnichat/messages"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/k0kubun/pp/v3"
)

type Mode string

const (
	// ModeThread runs full conversations, tool calls included.
	ModeThread Mode = "thread"
	// ModeStream streams a single answer per prompt.
	ModeStream Mode = "stream"
	// ModeJSON asks for JSON objects and pretty prints them.
	ModeJSON Mode = "json"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeThread, ModeStream, ModeJSON:
		return true
	default:
		return false
	}
}

type Session struct {
	Executor *executor.Executor
	Mode     Mode
	System   string
	In       io.Reader
	Out      io.Writer
}

// Run reads prompts line by line until EOF or "exit". "/reset" forgets the conversation.
func Run(ctx context.Context, s Session) error {
	if s.Executor == nil {
		return fmt.Errorf("executor cannot be nil")
	}
	if !s.Mode.Valid() {
		return fmt.Errorf("unknown mode %q", s.Mode)
	}
	glam, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(s.In)
	scanner.Split(bufio.ScanLines)
	out := s.Out

	var history []messages.Message
	if s.System != "" {
		history = append(history, messages.System(s.System))
	}
	base := len(history)

	for {
		fmt.Fprintf(out, "%s: ", color.CyanString("User"))
		if !scanner.Scan() {
			fmt.Fprintln(out, "Exiting...")
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch {
		case input == "":
			continue
		case strings.EqualFold(input, "exit"):
			return nil
		case input == "/reset":
			history = history[:base]
			fmt.Fprintln(out, color.HiBlackString("conversation reset"))
			continue
		}

		prompt := append(history, messages.User(input))
		var next []messages.Message
		switch s.Mode {
		case ModeThread:
			next, err = runThread(ctx, out, glam, s.Executor, prompt)
		case ModeStream:
			next, err = runStream(ctx, out, s.Executor, prompt)
		case ModeJSON:
			next, err = runJSON(ctx, out, s.Executor, prompt)
		}
		if err != nil {
			fmt.Fprintf(out, "%s %v\n", color.RedString("Error:"), err)
			continue
		}
		history = next
	}
	return scanner.Err()
}

func runThread(ctx context.Context, out io.Writer, glam *glamour.TermRenderer, exec *executor.Executor, prompt []messages.Message) ([]messages.Message, error) {
	next, err := exec.RunThread(ctx, prompt)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(out)
	for _, m := range next[len(prompt):] {
		printMessage(out, glam, m)
	}
	return next, nil
}

func runStream(ctx context.Context, out io.Writer, exec *executor.Executor, prompt []messages.Message) ([]messages.Message, error) {
	var content strings.Builder
	fmt.Fprint(out, "\n"+color.MagentaString("Assistant")+": ")
	for chunk, err := range exec.StreamThread(ctx, prompt) {
		if err != nil {
			fmt.Fprintln(out)
			return nil, err
		}
		fmt.Fprint(out, chunk.Content)
		content.WriteString(chunk.Content)
	}
	fmt.Fprintln(out)
	return append(prompt, messages.Assistant(content.String())), nil
}

func runJSON(ctx context.Context, out io.Writer, exec *executor.Executor, prompt []messages.Message) ([]messages.Message, error) {
	doc, err := exec.GetJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		return nil, fmt.Errorf("model answered with invalid JSON: %w", err)
	}
	fmt.Fprintln(out)
	pp.Fprintln(out, v)
	return append(prompt, messages.Assistant(doc)), nil
}

func printMessage(out io.Writer, glam *glamour.TermRenderer, m messages.Message) {
	switch m.Role {
	case messages.RoleAssistant:
		if len(m.ToolCalls) > 0 {
			for _, tc := range m.ToolCalls {
				args := strings.ReplaceAll(string(tc.Arguments()), ":", "=")
				fmt.Fprintf(out, "%s: %s%s\n", color.YellowString("Tool call"), color.YellowString(tc.Name), args)
			}
			return
		}
		fmt.Fprint(out, color.MagentaString("Assistant")+": ")
		rendered, err := glam.Render(m.Text())
		if err != nil {
			rendered = m.Text()
		}
		fmt.Fprintln(out, strings.TrimSpace(rendered))
	case messages.RoleTool:
		fmt.Fprintf(out, "%s: %s\n", color.YellowString("Tool"), m.Text())
	case messages.RoleUser:
		fmt.Fprintln(out, color.HiBlackString("(%s)", m.Text()))
	}
}
