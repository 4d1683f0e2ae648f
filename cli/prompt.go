// Package cli holds terminal prompts for interactive commands.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

var (
	ErrEmptyInput = errors.New("you must enter something")
	// ErrQuit is returned when the user interrupts a prompt or closes stdin.
	ErrQuit = errors.New("prompt closed")
)

// Prompter asks the user questions. Terminal is the promptui implementation.
type Prompter interface {
	Select(label string, items ...string) (int, string, error)
	Confirm(label string) (bool, error)
	String(label string) (string, error)
}

// Terminal prompts on a terminal.
type Terminal struct {
	Stdin  io.ReadCloser
	Stdout io.WriteCloser
}

// NewTerminal creates a Terminal on the process's stdin and stdout.
func NewTerminal() *Terminal {
	return &Terminal{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	}
}

// Select shows a single-choice menu and returns the chosen index and item.
// Typing filters the items by prefix.
func (t *Terminal) Select(label string, items ...string) (int, string, error) {
	sel := &promptui.Select{
		Label:    label,
		Items:    items,
		Size:     len(items),
		Searcher: PrefixSearcher(items),
		Stdin:    t.Stdin,
		Stdout:   t.Stdout,
	}

	idx, item, err := sel.Run()

	return idx, item, quitError(err)
}

// Confirm asks a yes/no question. Declining is not an error.
func (t *Terminal) Confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     t.Stdin,
		Stdout:    t.Stdout,
	}

	_, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}

		return false, quitError(err)
	}

	return true, nil
}

// String asks for a non-empty line of text.
func (t *Terminal) String(label string) (string, error) {
	prompt := promptui.Prompt{
		Label:    label,
		Validate: NotEmpty,
		Stdin:    t.Stdin,
		Stdout:   t.Stdout,
	}

	text, err := prompt.Run()

	return text, quitError(err)
}

func quitError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return fmt.Errorf("%w: %w", ErrQuit, err)
	}

	return err
}

// NotEmpty rejects blank input.
func NotEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrEmptyInput
	}

	return nil
}

// PrefixSearcher matches items that start with the input, ignoring case.
// Empty input matches nothing so the full list stays visible.
func PrefixSearcher(items []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		if input == "" || index < 0 || index >= len(items) {
			return false
		}

		return strings.HasPrefix(strings.ToLower(items[index]), strings.ToLower(input))
	}
}
