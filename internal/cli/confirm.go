package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Confirmer asks yes/no questions before destructive commands.
type Confirmer struct {
	reader *LineReader
	writer io.Writer
	// AssumeYes skips the prompt, as with --yes.
	AssumeYes bool
}

// NewConfirmer creates a Confirmer. Nil arguments default to stdin and
// stdout.
func NewConfirmer(reader io.Reader, writer io.Writer) *Confirmer {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Confirmer{
		reader: NewLineReader(reader),
		writer: writer,
	}
}

// Confirm prints question and waits for an answer. Only y or yes confirms;
// an empty answer or end of input declines.
func (c *Confirmer) Confirm(ctx context.Context, question string) (bool, error) {
	if c.AssumeYes {
		return true, nil
	}

	if _, err := fmt.Fprint(c.writer, FormatPrompt(question+" [y/N]")); err != nil {
		return false, fmt.Errorf("failed to write prompt: %w", err)
	}

	answer, err := c.reader.ReadLine(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
