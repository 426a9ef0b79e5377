package ui

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"
)

// Asker asks a single question. survey.AskOne satisfies it.
type Asker func(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error

// Prompter asks the operator for confirmation
type Prompter struct {
	ask         Asker
	interactive bool
}

// NewPrompter returns a prompter backed by survey. It is only interactive
// when stdin is a terminal.
func NewPrompter() *Prompter {
	return &Prompter{
		ask:         survey.AskOne,
		interactive: isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()),
	}
}

// NewPrompterWith returns a prompter using ask
func NewPrompterWith(ask Asker, interactive bool) *Prompter {
	return &Prompter{ask: ask, interactive: interactive}
}

// Interactive reports whether the prompter can ask questions
func (p *Prompter) Interactive() bool {
	return p.interactive
}

// Confirm asks a yes/no question. A non-interactive prompter answers def.
func (p *Prompter) Confirm(message, help string, def bool) (bool, error) {
	if !p.interactive {
		return def, nil
	}

	result := def
	prompt := &survey.Confirm{
		Message: message,
		Default: def,
		Help:    help,
	}
	if err := p.ask(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

// Password asks for a secret without echoing it. It fails when the
// prompter is not interactive.
func (p *Prompter) Password(message string) (string, error) {
	if !p.interactive {
		return "", fmt.Errorf("cannot prompt for %q: stdin is not a terminal", message)
	}

	var secret string
	prompt := &survey.Password{Message: message}
	if err := p.ask(prompt, &secret, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}
	return secret, nil
}
