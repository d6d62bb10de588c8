package tts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bold", in: "This is **bold** text", want: "This is bold text"},
		{name: "italic underscores", in: "an _emphasized_ word", want: "an emphasized word"},
		{name: "inline code", in: "run `voxagent-ctl reload` now", want: "run voxagent-ctl reload now"},
		{name: "heading", in: "## Plan\nDo the thing", want: "Plan\nDo the thing"},
		{name: "plain text untouched", in: "two eggs and toast", want: "two eggs and toast"},
		{name: "surrounding space trimmed", in: "  hi  ", want: "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}
