package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// prompter reads one answer per line. Every question is written to out
// before reading.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	text, err := p.in.ReadString('\n')
	if err == io.EOF && text != "" {
		err = nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// ask returns a non-empty answer, asking again on empty lines.
func (p *prompter) ask(label string) (string, error) {
	for {
		text, err := p.line(label + ": ")
		if err != nil {
			return "", fmt.Errorf("no answer for %q: %w", label, err)
		}
		if text != "" {
			return text, nil
		}
	}
}

// optional returns def when the answer is empty.
func (p *prompter) optional(label, def string) (string, error) {
	prompt := label + ": "
	if def != "" {
		prompt = fmt.Sprintf("%s [%s]: ", label, def)
	}
	text, err := p.line(prompt)
	if err == io.EOF {
		return def, nil
	}
	if err != nil {
		return "", err
	}
	if text == "" {
		return def, nil
	}
	return text, nil
}

// confirm defaults to no.
func (p *prompter) confirm(label string) (bool, error) {
	text, err := p.optional(label+" [y/N]", "")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(text) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// days returns 0 for an empty answer.
func (p *prompter) days(label string) (int, error) {
	for {
		text, err := p.optional(label, "")
		if err != nil {
			return 0, err
		}
		if text == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(text)
		if err == nil && n >= 0 {
			return n, nil
		}
		fmt.Fprintf(p.out, "%q is not a number of days\n", text)
	}
}
