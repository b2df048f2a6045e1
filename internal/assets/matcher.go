package assets

import "strings"

// ForProduct selects at most one record per category for the product:
// a record whose ProductMatch equals the product name wins, otherwise
// the first generic record of that category, otherwise the category is
// omitted. Categories keep the pool's fixed scan order.
func (p *Pool) ForProduct(name string) []Record {
	if p == nil || len(p.records) == 0 {
		return nil
	}

	var out []Record
	for _, cat := range categoryDirs {
		if rec, ok := p.pick(cat.Category, name); ok {
			out = append(out, rec)
		}
	}
	return out
}

func (p *Pool) pick(cat Category, product string) (Record, bool) {
	var generic *Record
	for i := range p.records {
		rec := &p.records[i]
		if rec.Category != cat {
			continue
		}
		if rec.ProductMatch == product {
			return *rec, true
		}
		if rec.ProductMatch == "" && generic == nil {
			generic = rec
		}
	}
	if generic != nil {
		return *generic, true
	}
	return Record{}, false
}

// MatchesProduct reports whether a filename is considered an asset for
// the product: both sides are lower-cased with non-alphanumerics turned
// into spaces, and at least half (rounded up) of the product's words
// longer than two characters must appear as substrings of the filename.
func MatchesProduct(filename, product string) bool {
	words := productWords(product)
	if len(words) == 0 {
		return false
	}

	normalized := normalizeName(filename)
	hits := 0
	for _, w := range words {
		if strings.Contains(normalized, w) {
			hits++
		}
	}
	return hits >= (len(words)+1)/2
}

func firstMatch(filename string, products []string) string {
	for _, product := range products {
		if MatchesProduct(filename, product) {
			return product
		}
	}
	return ""
}

func productWords(product string) []string {
	var words []string
	for _, w := range strings.Fields(normalizeName(product)) {
		if len(w) > 2 {
			words = append(words, w)
		}
	}
	return words
}

func normalizeName(value string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return ' '
		}
	}, value)
	return strings.Join(strings.Fields(mapped), " ")
}
