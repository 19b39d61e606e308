package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks the operator for credentials. Passwords are read without
// echo when input is a terminal.
type Prompter struct {
	in           *bufio.Reader
	out          io.Writer
	readPassword func() ([]byte, error)
}

// NewTerminalPrompter prompts on stderr and reads from stdin.
func NewTerminalPrompter() *Prompter {
	return NewPrompter(os.Stdin, os.Stderr)
}

// NewPrompter reads answers from in and writes prompts to out. When in is
// a terminal, password input is not echoed.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		p.readPassword = func() ([]byte, error) { return term.ReadPassword(fd) }
	}
	return p
}

// Username prompts for a plain-text answer.
func (p *Prompter) Username(label string) (string, error) {
	_, _ = fmt.Fprint(p.out, label)
	return p.readLine()
}

// Password prompts for a secret answer.
func (p *Prompter) Password(label string) (string, error) {
	_, _ = fmt.Fprint(p.out, label)
	if p.readPassword == nil {
		return p.readLine()
	}
	b, err := p.readPassword()
	_, _ = fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

// FillLogin prompts for whichever of user and password is empty. A nil
// Prompter reports the missing value instead.
func (p *Prompter) FillLogin(system string, user, password *string) error {
	if *user == "" {
		if p == nil {
			return fmt.Errorf("%s username is required", strings.ToLower(system))
		}
		v, err := p.Username(system + " username: ")
		if err != nil {
			return err
		}
		*user = v
	}
	if *password == "" {
		if p == nil {
			return fmt.Errorf("%s password is required", strings.ToLower(system))
		}
		v, err := p.Password(system + " password: ")
		if err != nil {
			return err
		}
		*password = v
	}
	return nil
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
