// Package vocab loads canonical sample and drug vocabularies from disk.
package vocab

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/mugpeng/droma-registry/pkg/harmonize"
)

// Vocabulary is one loaded vocabulary with its manifest.
type Vocabulary struct {
	Manifest *Manifest                  `json:"manifest"`
	Entries  []harmonize.CanonicalEntry `json:"-"`
}

// LoadVocabulary reads dir/manifest.yaml and the data it points at.
// A data.gob next to the manifest takes priority over the CSV.
func LoadVocabulary(dir string) (*Vocabulary, error) {
	manifest, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		return nil, err
	}
	v := &Vocabulary{Manifest: manifest}

	gobPath := filepath.Join(dir, "data.gob")
	if _, err := os.Stat(gobPath); err == nil {
		if err := v.loadGob(gobPath); err != nil {
			return nil, fmt.Errorf("vocab %s: %w", manifest.ID, err)
		}
		return v, nil
	}

	if err := v.loadCSV(filepath.Join(dir, manifest.DataFile)); err != nil {
		return nil, fmt.Errorf("vocab %s: %w", manifest.ID, err)
	}
	return v, nil
}

func (v *Vocabulary) loadCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	format := v.Manifest.Format
	var reader io.Reader = f
	if enc := format.Encoding; enc != "" && !isUTF8(enc) {
		e, err := htmlindex.Get(enc)
		if err != nil {
			return fmt.Errorf("unsupported encoding %q: %w", enc, err)
		}
		reader = transform.NewReader(f, e.NewDecoder())
	}

	r := csv.NewReader(reader)
	if delim := format.Delimiter; delim != "" {
		r.Comma = []rune(delim)[0]
	}
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	var header []string
	if format.HasHeader {
		header, err = r.Read()
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		for i := range header {
			header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
		}
	}

	nameIdx, err := columnIndex(header, format.NameColumn, 0)
	if err != nil {
		return err
	}
	idIdx, err := columnIndex(header, format.IDColumn, -1)
	if err != nil {
		return err
	}
	projectIdx, err := columnIndex(header, format.ProjectColumn, -1)
	if err != nil {
		return err
	}
	var aliasIdx []int
	for _, col := range format.AliasColumns {
		i, err := columnIndex(header, col, -1)
		if err != nil {
			return err
		}
		aliasIdx = append(aliasIdx, i)
	}

	type key struct{ name, project string }
	seen := make(map[key]bool)
	var collisions int
	for line := 1; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read row: %w", err)
		}

		name := field(record, nameIdx)
		if name == "" {
			continue
		}
		e := harmonize.CanonicalEntry{
			ID:            field(record, idIdx),
			CanonicalName: name,
			Project:       field(record, projectIdx),
		}
		if e.ID == "" {
			e.ID = fmt.Sprintf("%s:%d", v.Manifest.ID, line)
		}
		if e.Project == "" {
			e.Project = v.Manifest.Project
		}
		for _, i := range aliasIdx {
			e.Aliases = append(e.Aliases, splitAliases(field(record, i), format.AliasSeparator)...)
		}

		k := key{name, e.Project}
		if seen[k] {
			collisions++
			continue
		}
		seen[k] = true
		v.Entries = append(v.Entries, e)
	}

	if collisions > 0 {
		slog.Warn("duplicate names in vocabulary", "vocab", v.Manifest.ID, "duplicates", collisions)
	}
	return nil
}

// columnIndex resolves a column by header name. Without a header, col may be
// a zero-based number.
func columnIndex(header []string, col string, fallback int) (int, error) {
	if col == "" {
		return fallback, nil
	}
	if header == nil {
		var i int
		if _, err := fmt.Sscanf(col, "%d", &i); err != nil || i < 0 {
			return 0, fmt.Errorf("column %q: need a header or a column number", col)
		}
		return i, nil
	}
	for i, h := range header {
		if h == col {
			return i, nil
		}
	}
	return 0, fmt.Errorf("column %q not found in header %v", col, header)
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func splitAliases(s, sep string) []string {
	if s == "" {
		return nil
	}
	if sep == "" {
		return []string{s}
	}
	var out []string
	for _, a := range strings.Split(s, sep) {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func isUTF8(enc string) bool {
	e := strings.ToLower(strings.ReplaceAll(enc, "-", ""))
	return e == "utf8" || e == ""
}
