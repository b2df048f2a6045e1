package prompt

import (
	"fmt"
	"strconv"
	"strings"
)

type AspectRatio struct {
	ID    string // "1:1" | "9:16" | "16:9", the form sent to the API
	Slug  string // file-system safe form used in paths
	Label string

	PlatformOptimization string
	CompositionGuide     string
	FormatGuidance       string
	CompositionDetail    string
}

var aspectRatios = []AspectRatio{
	{
		ID:                   "1:1",
		Slug:                 "1x1",
		Label:                "square",
		PlatformOptimization: "Optimized for Instagram feed posts and Facebook carousel placements.",
		CompositionGuide:     "Centered hero composition with balanced negative space on every side.",
		FormatGuidance:       "Square format: product dead-center at roughly 60% of frame height, equal margins all around.",
		CompositionDetail:    "Keep visual weight even across all four quadrants and hold a clean safe margin for platform UI overlays.",
	},
	{
		ID:                   "9:16",
		Slug:                 "9x16",
		Label:                "vertical story",
		PlatformOptimization: "Optimized for Instagram Stories, TikTok, and YouTube Shorts full-screen placements.",
		CompositionGuide:     "Vertical flow: headline space in the top third, product in the middle third, message space in the bottom third.",
		FormatGuidance:       "Vertical story format: stack the composition top-to-bottom and keep the product inside the middle third.",
		CompositionDetail:    "Reserve the top and bottom sixths for platform chrome, lead the eye downward toward the message area.",
	},
	{
		ID:                   "16:9",
		Slug:                 "16x9",
		Label:                "landscape",
		PlatformOptimization: "Optimized for YouTube thumbnails, display banners, and web hero placements.",
		CompositionGuide:     "Rule-of-thirds composition with the product off-center and open copy space opposite it.",
		FormatGuidance:       "Wide landscape format: place the product on the right third and keep the left two thirds clear for messaging.",
		CompositionDetail:    "Horizontal sightlines with cinematic depth; keep the copy-safe area free of texture and clutter.",
	},
}

// Ratios returns the fixed enumeration in its canonical order: square,
// vertical story, landscape. The order is part of the scheduling
// contract, units are expanded against it.
func Ratios() []AspectRatio {
	out := make([]AspectRatio, len(aspectRatios))
	copy(out, aspectRatios)
	return out
}

// RatioByID resolves "1:1"-style IDs (tolerating padding like "09:16"),
// slugs like "9x16", and labels like "landscape".
func RatioByID(value string) (AspectRatio, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if norm := normalizeAspectRatio(value); norm != "" {
		value = norm
	}
	for _, r := range aspectRatios {
		if value == r.ID || value == r.Slug || value == r.Label {
			return r, true
		}
	}
	return AspectRatio{}, false
}

func normalizeAspectRatio(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return ""
	}
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return ""
	}
	a, errA := strconv.Atoi(strings.TrimSpace(parts[0]))
	b, errB := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errA != nil || errB != nil || a <= 0 || b <= 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", a, b)
}
