package annotation

import (
	"context"
	"fmt"
	"strings"

	"github.com/mugpeng/droma-registry/pkg/harmonize"
)

// Filter narrows an annotation query. Unset fields do not filter.
// DataTypes and TumorTypes apply to samples only.
type Filter struct {
	Projects   OneOrMany[string] `json:"projects"`
	IDs        OneOrMany[string] `json:"ids"`
	DataTypes  OneOrMany[string] `json:"data_types"`
	TumorTypes OneOrMany[string] `json:"tumor_types"`
	Limit      int               `json:"limit"`
}

// Annotation is one row of sample_anno or drug_anno. Fields holds every
// non-NULL column keyed by its DROMA column name.
type Annotation struct {
	Kind    harmonize.Kind `json:"kind"`
	Name    string         `json:"name"`
	Project string         `json:"project"`
	IndexID string         `json:"index_id,omitempty"`
	Fields  map[string]any `json:"fields"`
}

// Annotations returns the rows of kind matching f, ordered by name.
func (s *Store) Annotations(ctx context.Context, kind harmonize.Kind, f Filter) ([]Annotation, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	if kind == harmonize.KindDrug {
		if f.DataTypes.IsSet() {
			return nil, &harmonize.ValidationError{Field: "data_types", Message: "only applies to samples"}
		}
		if f.TumorTypes.IsSet() {
			return nil, &harmonize.ValidationError{Field: "tumor_types", Message: "only applies to samples"}
		}
	}
	if f.Limit < 0 {
		return nil, &harmonize.ValidationError{Field: "limit", Message: "must not be negative"}
	}
	if err := s.requireTable(ctx, t); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	in := func(col string, vals OneOrMany[string]) {
		if !vals.IsSet() {
			return
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", vals.Len()), ", ")
		where = append(where, fmt.Sprintf("%s IN (%s)", quote(col), marks))
		for _, v := range vals.Values() {
			args = append(args, v)
		}
	}
	in("ProjectID", f.Projects)
	in(t.nameCol, f.IDs)
	in("DataType", f.DataTypes)
	in("TumorType", f.TumorTypes)

	q := fmt.Sprintf("SELECT %s FROM %s", t.columnList(), t.name)
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += fmt.Sprintf(" ORDER BY %s, rowid", quote(t.nameCol))
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.name, err)
	}
	defer rows.Close()

	var out []Annotation
	vals := make([]any, len(t.columns))
	ptrs := make([]any, len(t.columns))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		a := Annotation{Kind: kind, Fields: make(map[string]any, len(t.columns))}
		for i, c := range t.columns {
			v := vals[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			if v == nil {
				continue
			}
			a.Fields[c.name] = v
			str, _ := v.(string)
			switch c.name {
			case t.nameCol:
				a.Name = str
			case "ProjectID":
				a.Project = str
			case "IndexID":
				a.IndexID = str
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
