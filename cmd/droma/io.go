package main

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mugpeng/droma-registry/pkg/harmonize"
)

// readNames loads input names by file extension: .txt holds one name per
// line, .csv/.tsv and .xlsx take the named column (or the first one) after a
// header row. Blank lines and cells are kept as "" so that name i is input
// row i; only trailing blanks are dropped.
func readNames(path, column, sheet string) ([]string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", "":
		return readLines(path)
	case ".csv", ".tsv":
		comma := ','
		if ext == ".tsv" {
			comma = '\t'
		}
		return readCSVColumn(path, column, comma)
	case ".xlsx":
		return readXLSXColumn(path, column, sheet)
	default:
		return nil, fmt.Errorf("unsupported input format %q", ext)
	}
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		names = append(names, strings.TrimSpace(sc.Text()))
	}
	return trimTrailingBlanks(names), sc.Err()
}

func readCSVColumn(path, column string, comma rune) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	// encoding/csv skips empty lines; they come back here as empty rows.
	var rows [][]string
	next := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := r.FieldPos(0)
		if len(rows) > 0 {
			for ; next < line; next++ {
				rows = append(rows, nil)
			}
		}
		rows = append(rows, rec)
		last, _ := r.FieldPos(len(rec) - 1)
		next = last + strings.Count(rec[len(rec)-1], "\n") + 1
	}
	return columnValues(rows, column)
}

func readXLSXColumn(path, column, sheet string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return columnValues(rows, column)
}

// columnValues picks column from rows whose first row is a header.
func columnValues(rows [][]string, column string) ([]string, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	idx := 0
	if column != "" {
		idx = -1
		for i, h := range rows[0] {
			if strings.TrimSpace(h) == column {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("column %q not found in header %v", column, rows[0])
		}
	}

	names := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var v string
		if idx < len(row) {
			v = strings.TrimSpace(row[idx])
		}
		names = append(names, v)
	}
	return trimTrailingBlanks(names), nil
}

func trimTrailingBlanks(names []string) []string {
	n := len(names)
	for n > 0 && names[n-1] == "" {
		n--
	}
	return names[:n]
}

var resultHeader = []string{
	"original_name", "cleaned_name", "harmonized_name", "harmonized_id",
	"match_type", "match_confidence", "new_name", "kept_original",
}

func writeResults(w io.Writer, format string, results []harmonize.MatchResult) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write(resultHeader); err != nil {
			return err
		}
		for _, r := range results {
			harmonized := ""
			if r.HarmonizedName != nil {
				harmonized = *r.HarmonizedName
			}
			if err := cw.Write([]string{
				r.OriginalName, r.CleanedName, harmonized, r.HarmonizedID,
				string(r.MatchType), strconv.FormatFloat(r.MatchConfidence, 'f', 4, 64),
				r.NewName, strconv.FormatBool(r.KeptOriginal),
			}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("unknown output format %q (want json or csv)", format)
	}
}
