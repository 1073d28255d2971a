package llm

import (
	"fmt"
	"strings"

	"github.com/Rrens/social-content-generator/internal/domain"
)

type fallbackTemplate struct {
	topic        string
	instructions string
	hashtags     string
}

// Each template takes the user's input once via %s.
var fallbackTemplates = map[domain.Platform]fallbackTemplate{
	domain.PlatformInstagram: {
		topic:        "Create an eye-catching Instagram post about %s. Open with a bold hook, share one surprising insight, and end with a question that invites comments.",
		instructions: "Create an Instagram post that follows these instructions: %s. Keep the caption visual and upbeat, and finish with a clear call to action.",
		hashtags:     "#instagood #inspiration #explore",
	},
	domain.PlatformTwitter: {
		topic:        "Write a punchy tweet about %s that sparks conversation in under 280 characters.",
		instructions: "Write a tweet that follows these instructions: %s. Keep it under 280 characters.",
		hashtags:     "#trending",
	},
	domain.PlatformLinkedIn: {
		topic:        "Write a professional LinkedIn post about %s. Share a practical lesson, back it with a concrete example, and ask your network how they approach it.",
		instructions: "Write a LinkedIn post that follows these instructions: %s. Keep the tone professional and close with a takeaway for your network.",
		hashtags:     "#leadership #growth #careers",
	},
	domain.PlatformFacebook: {
		topic:        "Write a friendly Facebook post about %s that tells a short story and invites your community to share their own experience.",
		instructions: "Write a Facebook post that follows these instructions: %s. Keep it warm and conversational.",
		hashtags:     "#community",
	},
	domain.PlatformTikTok: {
		topic:        "Write a TikTok caption about %s with a scroll-stopping first line and a reason to watch until the end.",
		instructions: "Write a TikTok caption that follows these instructions: %s. Keep it short and energetic.",
		hashtags:     "#fyp #foryou #viral",
	},
}

// Fallback synthesizes deterministic content locally. It never returns an empty string.
func Fallback(req Request) string {
	input := strings.TrimSpace(req.Input)
	if input == "" {
		input = "your idea"
	}

	switch req.Task {
	case TaskPrompt:
		return fmt.Sprintf("%s, highly detailed, cinematic composition, soft natural lighting, vibrant color palette, sharp focus, 4k digital art", input)
	case TaskSocial:
		tmpl := templateFor(req.Platform)
		return fmt.Sprintf(pick(tmpl, req.InputKind), input) + "\n\n" + tmpl.hashtags
	default:
		return fmt.Sprintf(pick(templateFor(req.Platform), req.InputKind), input)
	}
}

func templateFor(p domain.Platform) fallbackTemplate {
	if tmpl, ok := fallbackTemplates[p]; ok {
		return tmpl
	}
	// Platforms are validated at the HTTP boundary; Instagram is the product default.
	return fallbackTemplates[domain.PlatformInstagram]
}

func pick(tmpl fallbackTemplate, kind domain.InputKind) string {
	if kind == domain.InputInstructions {
		return tmpl.instructions
	}
	return tmpl.topic
}
