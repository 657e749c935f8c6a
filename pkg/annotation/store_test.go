package annotation

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mugpeng/droma-registry/pkg/harmonize"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "droma.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx, `INSERT INTO sample_anno
		(SampleID, ProjectID, ProjectRawName, AlternateName, IndexID, DataType, TumorType, Age) VALUES
		('MCF7', 'gCSI', 'MCF-7', 'MCF 7:Michigan Cancer Foundation-7', 'UM_SAMPLE_3', 'CellLine', 'breast cancer', 69),
		('HeLa', 'CCLE', 'HELA', NULL, NULL, 'CellLine', 'cervical cancer', NULL),
		('PDX-1', 'Xeva', NULL, NULL, 'UM_SAMPLE_12', 'PDX', 'breast cancer', NULL)`)
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `INSERT INTO drug_anno
		(DrugName, ProjectID, ProjectRawName, IndexID, MOA) VALUES
		('Cisplatin', 'gCSI', 'CDDP', 'UM_DRUG_1', 'DNA crosslinker'),
		('Imatinib', 'CCLE', 'Imatinib mesylate', 'UM_DRUG_2', NULL)`)
	require.NoError(t, err)
}

func TestOpenCreatesTables(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	tables, err := s.Tables(ctx)
	require.NoError(t, err)
	assert.Contains(t, tables, "sample_anno")
	assert.Contains(t, tables, "drug_anno")

	ok, err := s.TableExists(ctx, "drug_anno")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.TableExists(ctx, "mutation_raw")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMissingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	s, err := Open(path, WithoutCreate())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.FetchCanonicalEntries(context.Background(), harmonize.KindSample, "")
	require.ErrorIs(t, err, ErrTableNotFound)
}

func TestFetchCanonicalEntries(t *testing.T) {
	s := tempStore(t)
	seed(t, s)
	ctx := context.Background()

	entries, err := s.FetchCanonicalEntries(ctx, harmonize.KindSample, "")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, harmonize.CanonicalEntry{
		ID:            "UM_SAMPLE_3",
		CanonicalName: "MCF7",
		Aliases:       []string{"MCF-7", "MCF 7", "Michigan Cancer Foundation-7"},
		Project:       "gCSI",
	}, entries[0])
	assert.Equal(t, "row:2", entries[1].ID)
	assert.Equal(t, []string{"HELA"}, entries[1].Aliases)

	ccle, err := s.FetchCanonicalEntries(ctx, harmonize.KindSample, "CCLE")
	require.NoError(t, err)
	require.Len(t, ccle, 1)
	assert.Equal(t, "HeLa", ccle[0].CanonicalName)

	drugs, err := s.FetchCanonicalEntries(ctx, harmonize.KindDrug, "")
	require.NoError(t, err)
	require.Len(t, drugs, 2)
	assert.Equal(t, []string{"CDDP"}, drugs[0].Aliases)
}

func TestStoreAsCanonicalSource(t *testing.T) {
	s := tempStore(t)
	seed(t, s)

	h := harmonize.New(s)
	results, err := h.HarmonizeNames(context.Background(), harmonize.KindSample,
		[]string{"Michigan Cancer Foundation 7", "hela", "Unknown"}, harmonize.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, harmonize.MatchAlias, results[0].MatchType)
	assert.Equal(t, "UM_SAMPLE_3", results[0].HarmonizedID)
	assert.Equal(t, harmonize.MatchExact, results[1].MatchType)
	assert.Equal(t, harmonize.MatchNone, results[2].MatchType)
}

func TestAnnotations(t *testing.T) {
	s := tempStore(t)
	seed(t, s)
	ctx := context.Background()

	all, err := s.Annotations(ctx, harmonize.KindSample, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"HeLa", "MCF7", "PDX-1"}, []string{all[0].Name, all[1].Name, all[2].Name})
	assert.Equal(t, float64(69), all[1].Fields["Age"])
	assert.NotContains(t, all[0].Fields, "IndexID")

	pdx, err := s.Annotations(ctx, harmonize.KindSample, Filter{DataTypes: One("PDX")})
	require.NoError(t, err)
	require.Len(t, pdx, 1)
	assert.Equal(t, "Xeva", pdx[0].Project)

	some, err := s.Annotations(ctx, harmonize.KindSample, Filter{
		TumorTypes: One("breast cancer"),
		IDs:        Many("MCF7", "PDX-1", "HeLa"),
		Limit:      1,
	})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "MCF7", some[0].Name)

	drugs, err := s.Annotations(ctx, harmonize.KindDrug, Filter{Projects: Many("gCSI", "CCLE")})
	require.NoError(t, err)
	require.Len(t, drugs, 2)
	assert.Equal(t, "DNA crosslinker", drugs[0].Fields["MOA"])

	_, err = s.Annotations(ctx, harmonize.KindDrug, Filter{DataTypes: One("CellLine")})
	var verr *harmonize.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "data_types", verr.Field)
}

func TestProjects(t *testing.T) {
	s := tempStore(t)
	seed(t, s)
	projects, err := s.Projects(context.Background(), harmonize.KindSample)
	require.NoError(t, err)
	assert.Equal(t, []string{"CCLE", "Xeva", "gCSI"}, projects)
}

func TestRegisterNames(t *testing.T) {
	s := tempStore(t)
	seed(t, s)
	ctx := context.Background()

	results := []harmonize.MatchResult{
		{OriginalName: "New_Line-1", NewName: "new line 1", MatchType: harmonize.MatchNone},
		{OriginalName: "New Line 2", NewName: "new line 2", MatchType: harmonize.MatchNone},
		{OriginalName: "new-line-1", NewName: "new line 1", MatchType: harmonize.MatchNone},
	}
	sum, err := s.RegisterNames(ctx, harmonize.KindSample, "MyProject", results, Attributes{
		DataType:  One("CellLine"),
		TumorType: Many("lung cancer", "breast cancer", "lung cancer"),
	})
	require.NoError(t, err)
	assert.Equal(t, RegisterSummary{Added: 2, Skipped: 1, FirstIndexID: "UM_SAMPLE_13", LastIndexID: "UM_SAMPLE_14"}, sum)

	rows, err := s.Annotations(ctx, harmonize.KindSample, Filter{Projects: One("MyProject")})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "New_Line-1", rows[0].Fields["ProjectRawName"])
	assert.Equal(t, "breast cancer", rows[1].Fields["TumorType"])
	assert.Equal(t, "CellLine", rows[1].Fields["DataType"])

	again, err := s.RegisterNames(ctx, harmonize.KindSample, "MyProject", results[:1], Attributes{})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Added)
	assert.Equal(t, 1, again.Skipped)
}

func TestRegisterNamesValidation(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	results := []harmonize.MatchResult{{NewName: "a"}, {NewName: "b"}}
	var verr *harmonize.ValidationError

	_, err := s.RegisterNames(ctx, harmonize.KindSample, "", results, Attributes{})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "project", verr.Field)

	_, err = s.RegisterNames(ctx, harmonize.KindSample, "P", results, Attributes{Age: Many(1.0, 2.0, 3.0)})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Age", verr.Field)

	_, err = s.RegisterNames(ctx, harmonize.KindDrug, "P", results, Attributes{DataType: One("CellLine")})
	require.ErrorAs(t, err, &verr)

	sum, err := s.RegisterNames(ctx, harmonize.KindDrug, "P", results, Attributes{})
	require.NoError(t, err)
	assert.Equal(t, "UM_DRUG_1", sum.FirstIndexID)
	assert.Equal(t, "UM_DRUG_2", sum.LastIndexID)
}

func TestImportEntries(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	entries := []harmonize.CanonicalEntry{
		{ID: "V1", CanonicalName: "A549", Aliases: []string{"A-549", "A 549", "A549/ATCC"}, Project: "CCLE"},
		{ID: "", CanonicalName: "K562", Project: "GDSC"},
	}
	n, err := s.ImportEntries(ctx, harmonize.KindSample, entries)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.ImportEntries(ctx, harmonize.KindSample, entries)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := s.FetchCanonicalEntries(ctx, harmonize.KindSample, "CCLE")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entries[0], got[0])
}

func TestOneOrManyJSON(t *testing.T) {
	var f Filter
	require.NoError(t, json.Unmarshal([]byte(`{"projects":"gCSI","ids":["a","b"],"limit":5}`), &f))
	assert.Equal(t, []string{"gCSI"}, f.Projects.Values())
	assert.Equal(t, 2, f.IDs.Len())
	assert.Equal(t, "b", f.IDs.At(1))
	assert.Equal(t, "gCSI", f.Projects.At(7))
	assert.False(t, f.DataTypes.IsSet())

	out, err := json.Marshal(One(3))
	require.NoError(t, err)
	assert.JSONEq(t, `3`, string(out))
}

func TestFetchCanonicalEntriesNullableSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pandas.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE sample_anno (
		SampleID TEXT, ProjectID TEXT, ProjectRawName TEXT, AlternateName TEXT, IndexID TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO sample_anno (SampleID, ProjectID, ProjectRawName, AlternateName, IndexID) VALUES
		('HeLa', 'CCLE', NULL, NULL, NULL),
		('MCF7', NULL, 'MCF-7', NULL, NULL),
		(NULL, 'gCSI', 'orphan', NULL, NULL),
		('  ', 'gCSI', NULL, NULL, NULL)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path, WithoutCreate())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	entries, err := s.FetchCanonicalEntries(context.Background(), harmonize.KindSample, "")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "HeLa", entries[0].CanonicalName)
	assert.Equal(t, "CCLE", entries[0].Project)
	assert.Equal(t, "MCF7", entries[1].CanonicalName)
	assert.Equal(t, "", entries[1].Project)
	assert.Equal(t, []string{"MCF-7"}, entries[1].Aliases)
	assert.Equal(t, "row:2", entries[1].ID)

	results, err := harmonize.HarmonizeNames(context.Background(), s, harmonize.KindSample,
		[]string{"hela", "MCF-7"}, harmonize.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, harmonize.MatchExact, results[0].MatchType)
	assert.Equal(t, harmonize.MatchAlias, results[1].MatchType)
}
