package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"creative-forge/internal/assets"
	"creative-forge/internal/brief"
)

const (
	MethodAssetComposed = "asset-composed"
	MethodTextOnly      = "text-only"
)

type Composed struct {
	Text         string
	BrandContext string
	Audience     string
	Assets       []assets.Record
	Fallback     bool
}

func (c Composed) Method() string {
	if len(c.Assets) > 0 {
		return MethodAssetComposed
	}
	return MethodTextOnly
}

type promptData struct {
	ProductName     string
	ProductCategory string
	Features        []string
	Colors          string
	Fonts           string
	Tone            string
	Required        []string
	Prohibited      []string
	Audience        string
	Message         string
	Ratio           AspectRatio

	AssetInstructions   []string
	IntegrationGuidance string
}

const sharedPromptSections = `PRODUCT:
- {{.ProductName}}{{if .ProductCategory}} ({{.ProductCategory}}){{end}}
{{- range .Features}}
- Feature: {{.}}
{{- end}}

BRAND CONSTRAINTS:
{{- if .Colors}}
- Palette: {{.Colors}}
{{- end}}
{{- if .Fonts}}
- Typography direction: {{.Fonts}}
{{- end}}
- Tone: {{.Tone}}
{{- range .Required}}
- Must include: {{.}}
{{- end}}
{{- range .Prohibited}}
- Never show: {{.}}
{{- end}}

AUDIENCE & MESSAGE:
- Audience: {{.Audience}}
- Campaign message: {{.Message}}

FORMAT ({{.Ratio.ID}}, {{.Ratio.Label}}):
- {{.Ratio.PlatformOptimization}}
- {{.Ratio.CompositionGuide}}
- {{.Ratio.FormatGuidance}}
- {{.Ratio.CompositionDetail}}`

var assetTemplate = template.Must(template.New("asset-composed").Parse(
	`TASK: Compose a premium marketing campaign image from the supplied brand assets.

` + sharedPromptSections + `

SUPPLIED ASSETS (use every one; never invent replacements):
{{- range .AssetInstructions}}
- {{.}}
{{- end}}

INTEGRATION:
- {{.IntegrationGuidance}}
- Assets keep their exact identity: no recoloring, no warping, no redesign.

OUTPUT RULES:
- One photorealistic campaign image, studio-grade lighting, full bleed.
- No watermarks, no borders, no text beyond the campaign message.
`))

var textTemplate = template.Must(template.New("text-only").Parse(
	`TASK: Generate a premium marketing campaign image from the description below.

` + sharedPromptSections + `

OUTPUT RULES:
- One photorealistic campaign image, studio-grade lighting, full bleed.
- No watermarks, no borders, no text beyond the campaign message.
`))

// Compose renders the generation instruction for one (product, ratio)
// unit. When any matched assets are present the asset-aware document is
// used, otherwise the text-only one. If template rendering fails the
// hand-built fallback prompt is returned instead, with zero assets.
func Compose(b brief.Brief, product brief.Product, ratio AspectRatio, matched []assets.Record) Composed {
	data := promptData{
		ProductName:     product.Name,
		ProductCategory: product.Category,
		Features:        product.Features,
		Colors:          strings.Join(b.BrandGuidelines.Colors, ", "),
		Fonts:           strings.Join(b.BrandGuidelines.Fonts, ", "),
		Tone:            b.BrandGuidelines.Tone,
		Required:        b.BrandGuidelines.RequiredElements,
		Prohibited:      b.BrandGuidelines.ProhibitedContent,
		Audience:        b.TargetAudience,
		Message:         b.CampaignMessage,
		Ratio:           ratio,
	}

	tpl := textTemplate
	if len(matched) > 0 {
		tpl = assetTemplate
		data.AssetInstructions = assetInstructions(ratio, matched)
		data.IntegrationGuidance = integrationGuidance(matched)
	}

	var buf strings.Builder
	buf.Grow(2048)
	if err := tpl.Execute(&buf, data); err != nil {
		return Composed{
			Text:         fallbackPrompt(b, product, ratio),
			BrandContext: b.BrandContext(),
			Audience:     b.TargetAudience,
			Fallback:     true,
		}
	}

	return Composed{
		Text:         strings.TrimSpace(buf.String()),
		BrandContext: b.BrandContext(),
		Audience:     b.TargetAudience,
		Assets:       matched,
	}
}

func assetInstructions(ratio AspectRatio, matched []assets.Record) []string {
	out := make([]string, 0, len(matched))
	for _, rec := range matched {
		switch rec.Category {
		case assets.CategoryLogo:
			out = append(out, fmt.Sprintf("Logo asset %q: place it %s, small but clearly legible.", rec.Filename, logoPlacement(ratio)))
		case assets.CategoryBackground:
			out = append(out, fmt.Sprintf("Background asset %q: use it as the base layer and re-light it to match the scene.", rec.Filename))
		case assets.CategoryProductImage:
			out = append(out, fmt.Sprintf("Product photo %q: treat it as the hero element and preserve its exact identity.", rec.Filename))
		}
	}
	return out
}

func logoPlacement(ratio AspectRatio) string {
	if ratio.ID == "9:16" {
		return "in the top third"
	}
	return "in the bottom-right corner"
}

func integrationGuidance(matched []assets.Record) string {
	names := make([]string, 0, len(matched))
	for _, rec := range matched {
		names = append(names, string(rec.Category))
	}
	return fmt.Sprintf("Blend the %d supplied asset(s) (%s) into one cohesive scene; generated elements support them, never replace them.",
		len(matched), strings.Join(names, ", "))
}

// fallbackPrompt assembles the same fields without the template engine.
// Its inputs are plain validated strings, so it cannot fail.
func fallbackPrompt(b brief.Brief, product brief.Product, ratio AspectRatio) string {
	var sb strings.Builder
	sb.Grow(1024)

	sb.WriteString("Generate a premium marketing campaign image.\n\n")

	sb.WriteString("Product: " + product.Name)
	if product.Category != "" {
		sb.WriteString(" (" + product.Category + ")")
	}
	sb.WriteString("\n")
	if len(product.Features) > 0 {
		sb.WriteString("Features: " + strings.Join(product.Features, ", ") + "\n")
	}

	if len(b.BrandGuidelines.Colors) > 0 {
		sb.WriteString("Brand palette: " + strings.Join(b.BrandGuidelines.Colors, ", ") + "\n")
	}
	sb.WriteString("Tone: " + b.BrandGuidelines.Tone + "\n")
	if b.TargetAudience != "" {
		sb.WriteString("Audience: " + b.TargetAudience + "\n")
	}
	sb.WriteString("Campaign message: " + b.CampaignMessage + "\n\n")

	sb.WriteString("Format " + ratio.ID + " (" + ratio.Label + "): ")
	sb.WriteString(ratio.FormatGuidance + " " + ratio.CompositionGuide + "\n")
	sb.WriteString("Photorealistic, studio-grade lighting, full bleed, no watermarks or borders.")

	return sb.String()
}
