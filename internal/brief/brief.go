package brief

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Brief struct {
	ID              string     `json:"campaignId" yaml:"campaignId"`
	Products        []Product  `json:"products" yaml:"products"`
	TargetAudience  string     `json:"targetAudience" yaml:"targetAudience"`
	CampaignMessage string     `json:"campaignMessage" yaml:"campaignMessage"`
	BrandGuidelines Guidelines `json:"brandGuidelines" yaml:"brandGuidelines"`
}

type Product struct {
	Name     string   `json:"name" yaml:"name"`
	Category string   `json:"category" yaml:"category"`
	Features []string `json:"features" yaml:"features"`
}

type Guidelines struct {
	Colors            []string `json:"colors" yaml:"colors"`
	Fonts             []string `json:"fonts" yaml:"fonts"`
	Tone              string   `json:"tone" yaml:"tone"`
	RequiredElements  []string `json:"requiredElements" yaml:"requiredElements"`
	ProhibitedContent []string `json:"prohibitedContent" yaml:"prohibitedContent"`
}

var defaultRequiredElements = []string{
	"brand logo visible",
	"campaign message legible",
}

var defaultProhibitedContent = []string{
	"competitor branding",
	"unlicensed third-party imagery",
	"misleading claims",
}

// Normalize trims every string field and fills the optional guideline
// lists with defaults when the brief omits them.
func (b *Brief) Normalize() {
	b.ID = strings.TrimSpace(b.ID)
	b.TargetAudience = strings.TrimSpace(b.TargetAudience)
	b.CampaignMessage = strings.TrimSpace(b.CampaignMessage)

	for i := range b.Products {
		b.Products[i].Name = strings.TrimSpace(b.Products[i].Name)
		b.Products[i].Category = strings.TrimSpace(b.Products[i].Category)
		b.Products[i].Features = trimList(b.Products[i].Features)
	}

	g := &b.BrandGuidelines
	g.Colors = trimList(g.Colors)
	g.Fonts = trimList(g.Fonts)
	g.Tone = strings.TrimSpace(g.Tone)
	g.RequiredElements = trimList(g.RequiredElements)
	g.ProhibitedContent = trimList(g.ProhibitedContent)

	if g.Tone == "" {
		g.Tone = "clean, modern, professional"
	}
	if len(g.RequiredElements) == 0 {
		g.RequiredElements = append([]string(nil), defaultRequiredElements...)
	}
	if len(g.ProhibitedContent) == 0 {
		g.ProhibitedContent = append([]string(nil), defaultProhibitedContent...)
	}
}

func (b *Brief) Validate() error {
	if len(b.Products) == 0 {
		return errors.New("brief has no products")
	}
	slugs := make(map[string]string, len(b.Products))
	for i, p := range b.Products {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("product %d has an empty name", i+1)
		}
		slug := Slug(p.Name)
		if slug == "" {
			return fmt.Errorf("product name %q has no path-safe characters", p.Name)
		}
		if prev, ok := slugs[slug]; ok {
			return fmt.Errorf("product names %q and %q collide in output paths", prev, p.Name)
		}
		slugs[slug] = p.Name
	}
	if strings.TrimSpace(b.CampaignMessage) == "" {
		return errors.New("campaign message is empty")
	}
	return nil
}

// Slug is the filesystem-safe form of a product name used in output
// paths: lower-cased, runs of non-alphanumerics collapsed to single
// underscores. Validate rejects briefs whose product slugs are empty
// or not pairwise distinct, so every product owns its own directory.
func Slug(value string) string {
	var sb strings.Builder
	sb.Grow(len(value))

	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && sb.Len() > 0 {
				sb.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	return strings.TrimRight(sb.String(), "_")
}

func (b *Brief) ProductNames() []string {
	names := make([]string, 0, len(b.Products))
	for _, p := range b.Products {
		names = append(names, p.Name)
	}
	return names
}

// BrandContext renders the guidelines as the compact JSON snapshot that
// is echoed into prompts and per-asset metadata.
func (b *Brief) BrandContext() string {
	data, err := json.Marshal(b.BrandGuidelines)
	if err != nil {
		return ""
	}
	return string(data)
}

// Load reads a brief from a .json, .yaml or .yml file, then normalizes
// and validates it.
func Load(path string) (Brief, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Brief{}, fmt.Errorf("read brief: %w", err)
	}

	var b Brief
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &b); err != nil {
			return Brief{}, fmt.Errorf("decode brief %s: %w", filepath.Base(path), err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &b); err != nil {
			return Brief{}, fmt.Errorf("decode brief %s: %w", filepath.Base(path), err)
		}
	default:
		return Brief{}, fmt.Errorf("unsupported brief format %q", filepath.Ext(path))
	}

	b.Normalize()
	if err := b.Validate(); err != nil {
		return Brief{}, fmt.Errorf("invalid brief: %w", err)
	}
	return b, nil
}

func trimList(in []string) []string {
	out := in[:0]
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
