package prompt

type CatalogEntry struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Label    string `json:"label"`
	Platform string `json:"platform"`
}

// Catalog lists the supported aspect ratios for API consumers, in the
// same order units are scheduled.
func Catalog() []CatalogEntry {
	out := make([]CatalogEntry, 0, len(aspectRatios))
	for _, r := range aspectRatios {
		out = append(out, CatalogEntry{
			ID:       r.ID,
			Slug:     r.Slug,
			Label:    r.Label,
			Platform: r.PlatformOptimization,
		})
	}
	return out
}
