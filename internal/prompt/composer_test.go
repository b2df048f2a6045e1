package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creative-forge/internal/assets"
	"creative-forge/internal/brief"
)

func testBrief() brief.Brief {
	b := brief.Brief{
		ID: "summer-launch",
		Products: []brief.Product{
			{Name: "Widget Pro", Category: "electronics", Features: []string{"waterproof", "12h battery"}},
		},
		TargetAudience:  "US, outdoor enthusiasts 25-40",
		CampaignMessage: "Power your summer",
		BrandGuidelines: brief.Guidelines{
			Colors: []string{"#FF6B35", "#004E89"},
			Fonts:  []string{"Montserrat"},
			Tone:   "energetic",
		},
	}
	b.Normalize()
	return b
}

func mustRatio(t *testing.T, id string) AspectRatio {
	t.Helper()
	r, ok := RatioByID(id)
	require.True(t, ok, "ratio %s", id)
	return r
}

func TestCompose_TallGuidanceVerbatim(t *testing.T) {
	b := testBrief()
	tall := mustRatio(t, "9:16")

	composed := Compose(b, b.Products[0], tall, nil)

	assert.Contains(t, composed.Text, tall.PlatformOptimization)
	assert.Contains(t, composed.Text, tall.CompositionGuide)
	assert.Contains(t, composed.Text, tall.FormatGuidance)
	assert.Contains(t, composed.Text, tall.CompositionDetail)
}

func TestCompose_NoAssetsNoAssetInstructions(t *testing.T) {
	b := testBrief()
	composed := Compose(b, b.Products[0], mustRatio(t, "1:1"), nil)

	assert.False(t, composed.Fallback)
	assert.Empty(t, composed.Assets)
	assert.Equal(t, MethodTextOnly, composed.Method())
	assert.NotContains(t, composed.Text, "SUPPLIED ASSETS")
	assert.NotContains(t, composed.Text, "INTEGRATION:")
}

func TestCompose_AssetInstructionsPerCategory(t *testing.T) {
	b := testBrief()
	matched := []assets.Record{
		{Category: assets.CategoryLogo, Filename: "acme_logo.png"},
		{Category: assets.CategoryBackground, Filename: "gradient_bg.png"},
		{Category: assets.CategoryProductImage, Filename: "widget_pro_studio.png"},
	}

	composed := Compose(b, b.Products[0], mustRatio(t, "16:9"), matched)

	assert.Equal(t, MethodAssetComposed, composed.Method())
	assert.Len(t, composed.Assets, 3)
	assert.Contains(t, composed.Text, `Logo asset "acme_logo.png"`)
	assert.Contains(t, composed.Text, "bottom-right corner")
	assert.Contains(t, composed.Text, "base layer")
	assert.Contains(t, composed.Text, "hero element")
	assert.Contains(t, composed.Text, "3 supplied asset(s)")
}

func TestCompose_LogoPlacementFollowsRatio(t *testing.T) {
	b := testBrief()
	logo := []assets.Record{{Category: assets.CategoryLogo, Filename: "acme_logo.png"}}

	tall := Compose(b, b.Products[0], mustRatio(t, "9:16"), logo)
	assert.Contains(t, tall.Text, "top third")
	assert.NotContains(t, tall.Text, "bottom-right corner")

	square := Compose(b, b.Products[0], mustRatio(t, "1:1"), logo)
	assert.Contains(t, square.Text, "bottom-right corner")
}

func TestCompose_CarriesBrandContextAndAudience(t *testing.T) {
	b := testBrief()
	composed := Compose(b, b.Products[0], mustRatio(t, "1:1"), nil)

	assert.Equal(t, b.BrandContext(), composed.BrandContext)
	assert.Equal(t, b.TargetAudience, composed.Audience)
	assert.Contains(t, composed.Text, "Widget Pro")
	assert.Contains(t, composed.Text, "Power your summer")
	assert.Contains(t, composed.Text, "waterproof")
	assert.Contains(t, composed.Text, "#FF6B35")
}

func TestFallbackPrompt_AlwaysRenders(t *testing.T) {
	b := testBrief()
	for _, ratio := range Ratios() {
		text := fallbackPrompt(b, b.Products[0], ratio)
		assert.Contains(t, text, "Widget Pro")
		assert.Contains(t, text, "Power your summer")
		assert.Contains(t, text, ratio.FormatGuidance)
	}

	// degenerate brief still renders
	text := fallbackPrompt(brief.Brief{CampaignMessage: "x"}, brief.Product{Name: "y"}, Ratios()[0])
	assert.True(t, strings.HasPrefix(text, "Generate a premium marketing campaign image."))
}

func TestRatios_FixedOrder(t *testing.T) {
	ratios := Ratios()
	require.Len(t, ratios, 3)
	assert.Equal(t, "1:1", ratios[0].ID)
	assert.Equal(t, "9:16", ratios[1].ID)
	assert.Equal(t, "16:9", ratios[2].ID)

	// returned slice is a copy
	ratios[0].ID = "mutated"
	assert.Equal(t, "1:1", Ratios()[0].ID)
}

func TestRatioByID_Forms(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1:1", "1:1", true},
		{"09:16", "9:16", true},
		{" 16:9 ", "16:9", true},
		{"9x16", "9:16", true},
		{"landscape", "16:9", true},
		{"vertical story", "9:16", true},
		{"4:5", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, ok := RatioByID(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, r.ID)
			}
		})
	}
}

func TestCatalog_MirrorsRatios(t *testing.T) {
	entries := Catalog()
	require.Len(t, entries, 3)
	assert.Equal(t, "1x1", entries[0].Slug)
	assert.Equal(t, "vertical story", entries[1].Label)
	assert.NotEmpty(t, entries[2].Platform)
}
