package llm_test

import (
	"strings"
	"testing"

	"github.com/Rrens/social-content-generator/internal/domain"
	"github.com/Rrens/social-content-generator/internal/llm"
	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	req := llm.Request{
		Input:     "morning coffee rituals",
		Task:      llm.TaskSocial,
		Platform:  domain.PlatformLinkedIn,
		InputKind: domain.InputTopic,
	}

	prompt := llm.BuildPrompt(req)

	mustContain := []string{
		"LinkedIn",
		"morning coffee rituals",
		"topic",
		"ONLY the post text",
	}
	for _, s := range mustContain {
		assert.Contains(t, prompt, s)
	}
}

func TestBuildPrompt_EnhanceInstructions(t *testing.T) {
	prompt := llm.BuildPrompt(llm.Request{
		Input:     "mention the discount code SPRING",
		Task:      llm.TaskEnhance,
		Platform:  domain.PlatformInstagram,
		InputKind: domain.InputInstructions,
	})

	assert.Contains(t, prompt, "set of instructions")
	assert.Contains(t, prompt, "mention the discount code SPRING")
	assert.Contains(t, prompt, "Instagram")
}

func TestBuildPrompt_ImagePrompt(t *testing.T) {
	prompt := llm.BuildPrompt(llm.Request{Input: "a lighthouse in fog", Task: llm.TaskPrompt})
	assert.Contains(t, prompt, "text-to-image")
	assert.Contains(t, prompt, "a lighthouse in fog")
}

func TestCleanOutput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain text",
			input:    "Golden hour over the peaks",
			expected: "Golden hour over the peaks",
		},
		{
			name:     "markdown block",
			input:    "```text\nGolden hour over the peaks\n```",
			expected: "Golden hour over the peaks",
		},
		{
			name:     "wrapped in quotes",
			input:    "  \"Golden hour over the peaks\"\n",
			expected: "Golden hour over the peaks",
		},
		{
			name:     "unterminated fence left alone",
			input:    "```oops",
			expected: "```oops",
		},
		{
			name:     "whitespace only",
			input:    "   \n\t",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, llm.CleanOutput(tt.input))
		})
	}
}

func TestFallback_TotalOverPlatformsAndKinds(t *testing.T) {
	tasks := []llm.Task{llm.TaskEnhance, llm.TaskPrompt, llm.TaskSocial}
	kinds := []domain.InputKind{domain.InputTopic, domain.InputInstructions}

	for _, task := range tasks {
		for _, platform := range domain.AllPlatforms {
			for _, kind := range kinds {
				out := llm.Fallback(llm.Request{Input: "Lisbon street food", Task: task, Platform: platform, InputKind: kind})
				assert.NotEmpty(t, strings.TrimSpace(out), "%s/%s/%s", task, platform, kind)
				assert.Contains(t, out, "Lisbon street food", "%s/%s/%s", task, platform, kind)
			}
		}
	}
}

func TestFallback_Deterministic(t *testing.T) {
	req := llm.Request{Input: "remote work tips", Task: llm.TaskSocial, Platform: domain.PlatformTwitter, InputKind: domain.InputTopic}
	assert.Equal(t, llm.Fallback(req), llm.Fallback(req))
	assert.Contains(t, llm.Fallback(req), "#")
}

func TestFallback_EmptyInput(t *testing.T) {
	out := llm.Fallback(llm.Request{Task: llm.TaskEnhance, Platform: domain.PlatformFacebook})
	assert.Contains(t, out, "your idea")
}

func TestFallback_InstructionsDifferFromTopic(t *testing.T) {
	topic := llm.Fallback(llm.Request{Input: "x", Task: llm.TaskEnhance, Platform: domain.PlatformInstagram, InputKind: domain.InputTopic})
	instr := llm.Fallback(llm.Request{Input: "x", Task: llm.TaskEnhance, Platform: domain.PlatformInstagram, InputKind: domain.InputInstructions})
	assert.NotEqual(t, topic, instr)
}
