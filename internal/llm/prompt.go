package llm

import (
	"fmt"
	"strings"

	"github.com/Rrens/social-content-generator/internal/domain"
)

var platformStyle = map[domain.Platform]string{
	domain.PlatformInstagram: "visual, emoji-friendly captions with a strong hook and 5-10 relevant hashtags",
	domain.PlatformTwitter:   "punchy posts under 280 characters with at most 2 hashtags",
	domain.PlatformLinkedIn:  "professional, insight-driven posts with a clear takeaway and a question for the audience",
	domain.PlatformFacebook:  "conversational, community-oriented posts that invite comments",
	domain.PlatformTikTok:    "short, energetic hooks that work as on-screen text or a video caption",
}

// BuildPrompt creates the remote prompt for a generation request
func BuildPrompt(req Request) string {
	switch req.Task {
	case TaskEnhance:
		return buildEnhancePrompt(req)
	case TaskSocial:
		return buildSocialPrompt(req)
	default:
		return buildImagePromptPrompt(req)
	}
}

func buildEnhancePrompt(req Request) string {
	subject := "topic"
	goal := "Expand it into a specific, engaging brief that names the audience, the angle and the tone."
	if req.InputKind == domain.InputInstructions {
		subject = "set of instructions"
		goal = "Rewrite them as clear, complete instructions that keep every requirement and add the missing details a writer needs."
	}

	return fmt.Sprintf(`You improve short inputs for a social media content generator.

The user wrote this %s for %s:
%s

%s
Target style for %s: %s.

Rules:
1. Respond with ONLY the improved text, no preamble or markdown
2. Keep it under 80 words
3. Keep the user's language and intent`,
		subject, req.Platform.DisplayName(), req.Input, goal, req.Platform.DisplayName(), platformStyle[req.Platform])
}

func buildSocialPrompt(req Request) string {
	return fmt.Sprintf(`Write a %s post.

Input (%s):
%s

Style: %s.

Rules:
1. Respond with ONLY the post text, ready to publish
2. Do not wrap the post in quotes or markdown`,
		req.Platform.DisplayName(), req.InputKind, req.Input, platformStyle[req.Platform])
}

func buildImagePromptPrompt(req Request) string {
	return fmt.Sprintf(`You write prompts for text-to-image models.

Idea:
%s

Write one detailed prompt describing subject, composition, lighting, color palette, style and camera or medium.
Respond with ONLY the prompt, a single paragraph under 120 words.`, req.Input)
}

// CleanOutput strips markdown fences and wrapping quotes from model output
func CleanOutput(content string) string {
	if inner := extractFromCodeBlock(content); inner != "" {
		content = inner
	}
	content = strings.TrimSpace(content)
	if len(content) >= 2 {
		first, last := content[0], content[len(content)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			content = strings.TrimSpace(content[1 : len(content)-1])
		}
	}
	return content
}

func extractFromCodeBlock(content string) string {
	startIdx := strings.Index(content, "```")
	if startIdx == -1 {
		return ""
	}

	contentStart := startIdx + 3
	// Skip the language tag after the marker
	if nl := strings.IndexByte(content[contentStart:], '\n'); nl != -1 {
		contentStart += nl + 1
	}

	endIdx := strings.Index(content[contentStart:], "```")
	if endIdx == -1 {
		return ""
	}

	return strings.TrimSpace(content[contentStart : contentStart+endIdx])
}
