// Package prompt provides interactive terminal prompts for CLI commands.
package prompt

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
)

var (
	// ErrAborted is returned when the user aborts a prompt with Ctrl+C or Ctrl+D.
	ErrAborted = errors.New("aborted")

	// ErrPasswordMismatch is returned when the confirmation differs.
	ErrPasswordMismatch = errors.New("passwords do not match")
)

func wrapError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, promptui.ErrAbort) {
		return ErrAborted
	}
	return err
}

// Password prompts for a masked, non-empty password.
func Password(label string) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Mask:  '*',
		Validate: func(input string) error {
			if input == "" {
				return errors.New("password cannot be empty")
			}
			return nil
		},
	}
	result, err := p.Run()
	return result, wrapError(err)
}

// NewPassword prompts for a password twice and fails if the entries differ.
func NewPassword(label string) (string, error) {
	password, err := Password(label)
	if err != nil {
		return "", err
	}

	confirm, err := Password(fmt.Sprintf("Confirm %s", label))
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", ErrPasswordMismatch
	}
	return password, nil
}
