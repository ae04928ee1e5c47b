package session

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Console is the line-oriented chat surface.
type Console interface {
	// ReadLine shows prompt and returns the next line without its newline.
	// It returns io.EOF when input is exhausted.
	ReadLine(prompt string) (string, error)
	// ReadSecret is ReadLine without echo.
	ReadSecret(prompt string) (string, error)
	WriteLine(line string) error
}

// FormatNick right-aligns nick to width. Longer nicks are cut to width-3
// characters followed by "...".
func FormatNick(nick string, width int) string {
	r := []rune(nick)
	if width > 3 && len(r) > width {
		return string(r[:width-3]) + "..."
	}
	return fmt.Sprintf("%*s", width, nick)
}

// =============================================================================
// TERMINAL
// =============================================================================

// Terminal is a Console over a reader and a writer, typically stdin and
// stdout. Secrets are read without echo when the reader is a terminal.
type Terminal struct {
	in      *bufio.Reader
	fd      int
	isTTY   bool
	out     io.Writer
	nick    lipgloss.Style
	colored bool
}

// NewTerminal creates a console. colored enables nick styling.
func NewTerminal(in io.Reader, out io.Writer, colored bool) *Terminal {
	t := &Terminal{
		in:      bufio.NewReader(in),
		out:     out,
		colored: colored,
		nick:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
	}
	if f, ok := in.(*os.File); ok {
		t.fd = int(f.Fd())
		t.isTTY = term.IsTerminal(t.fd)
	}
	return t
}

func (t *Terminal) ReadLine(prompt string) (string, error) {
	if _, err := io.WriteString(t.out, t.style(prompt)); err != nil {
		return "", err
	}
	line, err := t.in.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	return strings.TrimRight(line, "\r\n"), err
}

func (t *Terminal) ReadSecret(prompt string) (string, error) {
	if !t.isTTY {
		return t.ReadLine(prompt)
	}
	if _, err := io.WriteString(t.out, t.style(prompt)); err != nil {
		return "", err
	}
	b, err := term.ReadPassword(t.fd)
	fmt.Fprintln(t.out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (t *Terminal) WriteLine(line string) error {
	_, err := fmt.Fprintln(t.out, t.style(line))
	return err
}

// style renders the nick column of a "nick  ::  text" line.
func (t *Terminal) style(line string) string {
	if !t.colored {
		return line
	}
	nick, rest, ok := strings.Cut(line, separator)
	if !ok {
		return line
	}
	return t.nick.Render(nick) + separator + rest
}

// =============================================================================
// SCRIPT
// =============================================================================

// Script is a Console replaying fixed input lines and recording everything
// written, prompts excluded. It backs batch runs and tests.
type Script struct {
	mu     sync.Mutex
	input  []string
	output []string
}

// NewScript returns a console that will read lines in order.
func NewScript(lines ...string) *Script {
	return &Script{input: lines}
}

func (s *Script) ReadLine(string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.input) == 0 {
		return "", io.EOF
	}
	line := s.input[0]
	s.input = s.input[1:]
	return line, nil
}

func (s *Script) ReadSecret(prompt string) (string, error) {
	return s.ReadLine(prompt)
}

func (s *Script) WriteLine(line string) error {
	s.mu.Lock()
	s.output = append(s.output, line)
	s.mu.Unlock()
	return nil
}

// Output returns the lines written so far.
func (s *Script) Output() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.output...)
}
