// Package catalog turns a CSV sample catalog into download jobs. Each
// row names a folder, a human-readable description and an asset file;
// the loader sanitizes these into a destination path, skips files that
// are already on disk, and builds the primary and fallback URLs from
// configured base addresses.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/franksops/gopull/engine"
)

// Required CSV columns.
const (
	folderColumn = "CDName"
	nameColumn   = "description"
	assetColumn  = "location"
)

// ErrNoColumns is returned when the catalog header is missing a required
// column.
var ErrNoColumns = errors.New("catalog: missing required columns")

// Options controls how a catalog is turned into jobs.
type Options struct {
	// OutputDir is the root under which destination paths are built.
	OutputDir string

	// PrimaryBase is the base URL the asset name is appended to for the
	// primary download URL.
	PrimaryBase string

	// FallbackBases are base URLs for fallback download URLs, in order.
	FallbackBases []string

	// MaxNameLength caps the destination file name, including the asset
	// suffix. Zero means no truncation.
	MaxNameLength int

	// MaxRetries and Timeout are copied onto every JobSpec.
	MaxRetries int
	Timeout    time.Duration
}

// Load parses the catalog at path and returns one JobSpec per row whose
// destination file does not already exist, plus the number of rows
// skipped because the file was already present.
func Load(path string, opts Options) (jobs []engine.JobSpec, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()

	return Parse(f, opts)
}

// Parse reads catalog rows from r. Rows missing a required field are
// skipped silently, matching how a hand-curated CSV tends to degrade.
func Parse(r io.Reader, opts Options) (jobs []engine.JobSpec, skipped int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: read header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{folderColumn, nameColumn, assetColumn} {
		if _, ok := cols[required]; !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrNoColumns, required)
		}
	}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("catalog: read row: %w", err)
		}

		folder := field(row, cols[folderColumn])
		name := field(row, cols[nameColumn])
		asset := field(row, cols[assetColumn])
		if folder == "" || name == "" || asset == "" {
			continue
		}

		dest := filepath.Join(opts.OutputDir, SanitizeName(folder), destFileName(name, asset, opts.MaxNameLength))
		if _, err := os.Stat(dest); err == nil {
			skipped++
			continue
		}

		spec := engine.JobSpec{
			ID:          uuid.New().String(),
			PrimaryURL:  joinURL(opts.PrimaryBase, asset),
			Destination: dest,
			MaxRetries:  opts.MaxRetries,
			Timeout:     opts.Timeout,
		}
		for _, base := range opts.FallbackBases {
			spec.FallbackURLs = append(spec.FallbackURLs, joinURL(base, asset))
		}
		jobs = append(jobs, spec)
	}

	return jobs, skipped, nil
}

var unsafeChars = regexp.MustCompile(`[^\w\-&,()\. ]`)

// SanitizeName rewrites a catalog string into a path component that is
// safe on every supported filesystem. On Unix a leading dot is escaped
// so no destination ever becomes a hidden file.
func SanitizeName(s string) string {
	out := strings.TrimSpace(unsafeChars.ReplaceAllString(s, "_"))
	if runtime.GOOS != "windows" && strings.HasPrefix(out, ".") {
		out = "_" + out
	}
	return out
}

// destFileName builds "<description>.<asset>", truncating the description
// so the whole name fits within maxLen.
func destFileName(name, asset string, maxLen int) string {
	suffix := "." + asset
	base := SanitizeName(name)
	if maxLen > 0 {
		budget := maxLen - len(suffix)
		if budget < 0 {
			budget = 0
		}
		runes := []rune(base)
		if len(runes) > budget {
			base = string(runes[:budget])
		}
	}
	return base + suffix
}

func joinURL(base, asset string) string {
	return strings.TrimSuffix(base, "/") + "/" + asset
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
