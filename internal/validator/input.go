// Package validator checks user messages before a turn starts and tool
// parameters before a tool runs.
package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// spaceRegexp is compiled once at package init and reused across all Sanitize calls.
var spaceRegexp = regexp.MustCompile(`\s+`)

// ErrEmptyMessage is returned for blank user input.
var ErrEmptyMessage = errors.New("message is empty")

// DefaultMaxLength caps the size of a single user message.
const DefaultMaxLength = 2000

type InputValidator struct {
	maxLength int
}

func NewInputValidator(maxLength int) *InputValidator {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &InputValidator{maxLength: maxLength}
}

func (v *InputValidator) Validate(message string) error {
	if !utf8.ValidString(message) {
		return errors.New("invalid UTF-8 encoding")
	}

	if strings.TrimSpace(message) == "" {
		return ErrEmptyMessage
	}

	if n := utf8.RuneCountInString(message); n > v.maxLength {
		return fmt.Errorf("message too long: %d characters, maximum %d", n, v.maxLength)
	}

	return nil
}

func (v *InputValidator) Sanitize(message string) string {
	message = strings.TrimSpace(message)
	message = spaceRegexp.ReplaceAllString(message, " ")
	return message
}
