package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

type Category string

const (
	CategoryLogo         Category = "logo"
	CategoryBackground   Category = "background"
	CategoryProductImage Category = "product-image"
)

// categoryDirs fixes the scan order: logos, then backgrounds, then
// product images. Within a directory os.ReadDir yields lexicographic
// filename order, which is the tie-break for equally matching assets.
var categoryDirs = []struct {
	Category Category
	Dir      string
}{
	{CategoryLogo, "logos"},
	{CategoryBackground, "backgrounds"},
	{CategoryProductImage, "product_images"},
}

type Record struct {
	Category     Category
	Filename     string
	Path         string
	MimeType     string
	ProductMatch string // empty for generic assets
	Data         []byte
}

// poolReadLimit bounds the open files during a pool scan.
const poolReadLimit = 8

var readFile = os.ReadFile

type Pool struct {
	records []Record
}

func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.records)
}

func (p *Pool) Records() []Record {
	if p == nil {
		return nil
	}
	out := make([]Record, len(p.records))
	copy(out, p.records)
	return out
}

// Load scans the asset pool under dir and reads every image once.
// Missing category directories yield empty categories, not errors.
// Each record's ProductMatch is computed here, against the products
// in brief order; the first matching product wins.
func Load(ctx context.Context, dir string, products []string) (*Pool, error) {
	var records []Record

	for _, cat := range categoryDirs {
		catDir := filepath.Join(dir, cat.Dir)
		entries, err := os.ReadDir(catDir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", cat.Dir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			mimeType, ok := mimeForExt(entry.Name())
			if !ok {
				continue
			}
			records = append(records, Record{
				Category: cat.Category,
				Filename: entry.Name(),
				Path:     filepath.Join(catDir, entry.Name()),
				MimeType: mimeType,
			})
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(poolReadLimit)
	for i := range records {
		i := i
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			data, err := readFile(records[i].Path)
			if err != nil {
				return fmt.Errorf("read asset %s: %w", records[i].Filename, err)
			}
			records[i].Data = data
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for i := range records {
		records[i].ProductMatch = firstMatch(records[i].Filename, products)
	}

	return &Pool{records: records}, nil
}

func mimeForExt(name string) (string, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png", true
	case ".jpg", ".jpeg":
		return "image/jpeg", true
	case ".webp":
		return "image/webp", true
	}
	return "", false
}
