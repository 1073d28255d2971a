package domain_test

import (
	"strings"
	"testing"

	"github.com/Rrens/social-content-generator/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name     string
		mode     domain.Mode
		message  string
		expected string
	}{
		{
			"long prompt is truncated to 40 characters",
			domain.ModePrompt,
			"A photo of a mountain at sunrise with dramatic lighting and...",
			"🎨 Prompt: A photo of a mountain at sunrise with dr...",
		},
		{
			"short social message is kept",
			domain.ModeSocial,
			"Launch day tips",
			"📱 Social: Launch day tips",
		},
		{
			"exactly 40 characters has no ellipsis",
			domain.ModeImage,
			strings.Repeat("a", 40),
			"🖼️ Image: " + strings.Repeat("a", 40),
		},
		{
			"surrounding whitespace is trimmed",
			domain.ModeImage,
			"   neon city   ",
			"🖼️ Image: neon city",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, domain.DeriveTitle(tt.mode, tt.message))
		})
	}
}

func TestTruncate_CountsRunes(t *testing.T) {
	s := strings.Repeat("é", 45)
	got := domain.Truncate(s, 40)
	assert.Equal(t, strings.Repeat("é", 40)+"...", got)
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("x", 150)
	assert.Equal(t, strings.Repeat("x", 100)+"...", domain.Preview(long))
	assert.Equal(t, "hello", domain.Preview("  hello\n"))
}
