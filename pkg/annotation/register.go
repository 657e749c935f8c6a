package annotation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mugpeng/droma-registry/pkg/harmonize"
)

// Attributes are per-row sample columns written by RegisterNames. Each is
// either one value for every row or one value per result.
type Attributes struct {
	DataType        OneOrMany[string]  `json:"data_type"`
	TumorType       OneOrMany[string]  `json:"tumor_type"`
	PatientID       OneOrMany[string]  `json:"patient_id"`
	Gender          OneOrMany[string]  `json:"gender"`
	Age             OneOrMany[float64] `json:"age"`
	FullEthnicity   OneOrMany[string]  `json:"full_ethnicity"`
	SimpleEthnicity OneOrMany[string]  `json:"simple_ethnicity"`
}

type attrColumn struct {
	name  string
	isSet bool
	check func(string, int) error
	at    func(int) any
}

func (a Attributes) columns() []attrColumn {
	str := func(name string, o OneOrMany[string]) attrColumn {
		return attrColumn{name, o.IsSet(), o.Check, func(i int) any { return o.At(i) }}
	}
	return []attrColumn{
		str("DataType", a.DataType),
		str("TumorType", a.TumorType),
		str("PatientID", a.PatientID),
		str("Gender", a.Gender),
		{"Age", a.Age.IsSet(), a.Age.Check, func(i int) any { return a.Age.At(i) }},
		str("FullEthnicity", a.FullEthnicity),
		str("SimpleEthnicity", a.SimpleEthnicity),
	}
}

// RegisterSummary reports what RegisterNames wrote.
type RegisterSummary struct {
	Added        int    `json:"added"`
	Skipped      int    `json:"skipped"`
	FirstIndexID string `json:"first_index_id,omitempty"`
	LastIndexID  string `json:"last_index_id,omitempty"`
}

// RegisterNames adds one row per result under project, named by the result's
// NewName, with ProjectRawName set to the original input. Rows whose name
// already exists in the project are skipped. New IndexIDs continue the
// UM_SAMPLE_<n> or UM_DRUG_<n> sequence. Everything happens in one transaction.
//
// Callers usually pass harmonize.Unmatched(results).
func (s *Store) RegisterNames(ctx context.Context, kind harmonize.Kind, project string, results []harmonize.MatchResult, attrs Attributes) (RegisterSummary, error) {
	var sum RegisterSummary
	t, err := tableFor(kind)
	if err != nil {
		return sum, err
	}
	if strings.TrimSpace(project) == "" {
		return sum, &harmonize.ValidationError{Field: "project", Message: "is required"}
	}

	var cols []attrColumn
	for _, c := range attrs.columns() {
		if !c.isSet {
			continue
		}
		if kind == harmonize.KindDrug {
			return sum, &harmonize.ValidationError{Field: c.name, Message: "only applies to samples"}
		}
		if err := c.check(c.name, len(results)); err != nil {
			return sum, &harmonize.ValidationError{Field: c.name, Message: err.Error()}
		}
		cols = append(cols, c)
	}
	if err := s.requireTable(ctx, t); err != nil {
		return sum, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sum, fmt.Errorf("begin register: %w", err)
	}
	defer tx.Rollback()

	next, err := nextIndex(ctx, tx, t)
	if err != nil {
		return sum, err
	}

	names := []string{quote(t.nameCol), "ProjectID", "ProjectRawName", "IndexID"}
	for _, c := range cols {
		names = append(names, quote(c.name))
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name,
		strings.Join(names, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", "))
	exists := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ? AND ProjectID = ?", t.name, quote(t.nameCol))

	for i, r := range results {
		name := strings.TrimSpace(r.NewName)
		if name == "" {
			sum.Skipped++
			continue
		}
		var n int
		if err := tx.QueryRowContext(ctx, exists, name, project).Scan(&n); err != nil {
			return RegisterSummary{}, fmt.Errorf("check %s: %w", name, err)
		}
		if n > 0 {
			sum.Skipped++
			continue
		}

		indexID := fmt.Sprintf("%s%d", t.idPrefix, next)
		next++
		args := []any{name, project, r.OriginalName, indexID}
		for _, c := range cols {
			args = append(args, c.at(i))
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return RegisterSummary{}, fmt.Errorf("insert %s: %w", name, err)
		}
		if sum.FirstIndexID == "" {
			sum.FirstIndexID = indexID
		}
		sum.LastIndexID = indexID
		sum.Added++
	}

	if err := tx.Commit(); err != nil {
		return RegisterSummary{}, fmt.Errorf("commit register: %w", err)
	}
	s.logger.Info("registered names", "table", t.name, "project", project,
		"added", sum.Added, "skipped", sum.Skipped, "first", sum.FirstIndexID, "last", sum.LastIndexID)
	return sum, nil
}

func nextIndex(ctx context.Context, tx *sql.Tx, t table) (int, error) {
	q := fmt.Sprintf(`SELECT COALESCE(MAX(CAST(substr(IndexID, %d) AS INTEGER)), 0)
		FROM %s WHERE IndexID LIKE ? ESCAPE '\'`, len(t.idPrefix)+1, t.name)
	var last int
	if err := tx.QueryRowContext(ctx, q, strings.ReplaceAll(t.idPrefix, "_", `\_`)+"%").Scan(&last); err != nil {
		return 0, fmt.Errorf("next %s index: %w", t.name, err)
	}
	return last + 1, nil
}

// ImportEntries seeds kind's table from canonical entries. The first alias
// becomes ProjectRawName; remaining sample aliases are joined into
// AlternateName. Entries already present for their project are skipped.
func (s *Store) ImportEntries(ctx context.Context, kind harmonize.Kind, entries []harmonize.CanonicalEntry) (int, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	if err := s.requireTable(ctx, t); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	cols := []string{quote(t.nameCol), "ProjectID", "ProjectRawName", "IndexID"}
	if t.altCol != "" {
		cols = append(cols, quote(t.altCol))
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	q := fmt.Sprintf(`INSERT INTO %s (%s) SELECT %s
		WHERE NOT EXISTS (SELECT 1 FROM %s WHERE %s = ? AND ProjectID = ?)`,
		t.name, strings.Join(cols, ", "), marks, t.name, quote(t.nameCol))

	added := 0
	for _, e := range entries {
		var raw, alt any
		if len(e.Aliases) > 0 {
			raw = e.Aliases[0]
		}
		args := []any{e.CanonicalName, e.Project, raw, nullIfEmpty(e.ID)}
		if t.altCol != "" {
			if len(e.Aliases) > 1 {
				alt = strings.Join(e.Aliases[1:], "|")
			}
			args = append(args, alt)
		}
		args = append(args, e.CanonicalName, e.Project)
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return 0, fmt.Errorf("import %s: %w", e.CanonicalName, err)
		}
		n, _ := res.RowsAffected()
		added += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return added, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
