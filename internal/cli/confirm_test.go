package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "yes", input: "y\n", want: true},
		{name: "full yes mixed case", input: "Yes\n", want: true},
		{name: "no", input: "n\n"},
		{name: "empty answer declines", input: "\n"},
		{name: "end of input declines", input: ""},
		{name: "anything else declines", input: "maybe\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := NewConfirmer(strings.NewReader(tt.input), &out)

			got, err := c.Confirm(context.Background(), "Delete 3 parcels?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Delete 3 parcels? [y/N]")
		})
	}
}

func TestConfirmAssumeYes(t *testing.T) {
	var out bytes.Buffer
	c := NewConfirmer(strings.NewReader(""), &out)
	c.AssumeYes = true

	got, err := c.Confirm(context.Background(), "Delete?")
	require.NoError(t, err)
	assert.True(t, got)
	assert.Empty(t, out.String(), "no prompt is shown")
}
