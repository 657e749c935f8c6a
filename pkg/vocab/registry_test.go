package vocab

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mugpeng/droma-registry/pkg/harmonize"
)

func writeVocab(t *testing.T, root, name, manifest, data string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if data != "" {
		if err := os.WriteFile(filepath.Join(dir, "data.csv"), []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func setupRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	root := t.TempDir()

	writeVocab(t, root, "cell-lines", `id: cell-lines
kind: sample
version: "2024.1"
source: test
format:
  delimiter: ";"
  has_header: true
  name_column: SampleID
  id_column: IndexID
  project_column: ProjectID
  alias_columns: [ProjectRawName, AlternateName]
  alias_separator: "|"
`, "SampleID;IndexID;ProjectID;ProjectRawName;AlternateName\n"+
		"MCF7;S1;gCSI;MCF-7;MCF 7|Michigan Cancer Foundation-7\n"+
		"HeLa;S2;CCLE;;\n"+
		"HeLa;S3;CCLE;dup;\n"+
		";S4;CCLE;;\n")

	writeVocab(t, root, "compounds", `id: compounds
kind: drug
version: "1"
source: test
project: DROMA
format:
  has_header: false
  name_column: "0"
  alias_columns: ["1"]
  alias_separator: ":"
`, "Cisplatin,CDDP:Platinol\nImatinib,STI571\n")

	reg := NewRegistry(root)
	if err := reg.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return reg, root
}

func TestRegistryLoad(t *testing.T) {
	reg, _ := setupRegistry(t)
	if reg.Count() != 2 {
		t.Fatalf("Count = %d, want 2", reg.Count())
	}
	if reg.TotalEntries() != 4 {
		t.Errorf("TotalEntries = %d, want 4", reg.TotalEntries())
	}
}

func TestFetchCanonicalEntries(t *testing.T) {
	reg, _ := setupRegistry(t)
	ctx := context.Background()

	samples, err := reg.FetchCanonicalEntries(ctx, harmonize.KindSample, "")
	if err != nil {
		t.Fatalf("FetchCanonicalEntries: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2 (duplicate and blank rows dropped)", len(samples))
	}
	mcf := samples[0]
	if mcf.ID != "S1" || mcf.Project != "gCSI" {
		t.Errorf("MCF7 entry = %+v", mcf)
	}
	want := []string{"MCF-7", "MCF 7", "Michigan Cancer Foundation-7"}
	if len(mcf.Aliases) != len(want) {
		t.Fatalf("aliases = %v, want %v", mcf.Aliases, want)
	}
	for i := range want {
		if mcf.Aliases[i] != want[i] {
			t.Errorf("alias[%d] = %q, want %q", i, mcf.Aliases[i], want[i])
		}
	}

	mcf.Aliases[0] = "mutated"
	again, _ := reg.FetchCanonicalEntries(ctx, harmonize.KindSample, "")
	if again[0].Aliases[0] != "MCF-7" {
		t.Error("FetchCanonicalEntries must return a copy")
	}

	drugs, _ := reg.FetchCanonicalEntries(ctx, harmonize.KindDrug, "DROMA")
	if len(drugs) != 2 {
		t.Fatalf("got %d drugs for DROMA, want 2", len(drugs))
	}
	if drugs[0].ID != "compounds:1" || len(drugs[0].Aliases) != 2 {
		t.Errorf("drug entry = %+v", drugs[0])
	}

	ccle, _ := reg.FetchCanonicalEntries(ctx, harmonize.KindSample, "CCLE")
	if len(ccle) != 1 || ccle[0].CanonicalName != "HeLa" {
		t.Errorf("CCLE entries = %+v", ccle)
	}
}

func TestRegistryAsCanonicalSource(t *testing.T) {
	reg, _ := setupRegistry(t)
	results, err := harmonize.New(reg).HarmonizeNames(context.Background(), harmonize.KindDrug,
		[]string{"CDDP", "sti-571"}, harmonize.DefaultOptions())
	if err != nil {
		t.Fatalf("HarmonizeNames: %v", err)
	}
	if results[0].HarmonizedID != "compounds:1" {
		t.Errorf("CDDP -> %q, want compounds:1", results[0].HarmonizedID)
	}
	if results[1].MatchType != harmonize.MatchFuzzy {
		t.Errorf("sti-571 match type = %s, want fuzzy", results[1].MatchType)
	}
}

func TestList(t *testing.T) {
	reg, _ := setupRegistry(t)
	infos := reg.List()
	if len(infos) != 2 {
		t.Fatalf("List len = %d, want 2", len(infos))
	}
	if infos[0].ID != "cell-lines" || infos[1].ID != "compounds" {
		t.Errorf("List not sorted: %v", infos)
	}
	if infos[1].Kind != harmonize.KindDrug || infos[1].Entries != 2 {
		t.Errorf("compounds info = %+v", infos[1])
	}
}

func TestReload(t *testing.T) {
	reg, root := setupRegistry(t)
	writeVocab(t, root, "extra", "id: extra\nkind: drug\nformat:\n  has_header: false\n", "Paclitaxel\n")
	if err := reg.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if reg.Count() != 3 {
		t.Errorf("Count after reload = %d, want 3", reg.Count())
	}
}

func TestLoadFailureKeepsPreviousSet(t *testing.T) {
	reg, root := setupRegistry(t)
	writeVocab(t, root, "broken", "id: broken\nkind: protein\n", "")
	if err := reg.Reload(); err == nil {
		t.Fatal("expected error for invalid kind")
	}
	if reg.Count() != 2 {
		t.Errorf("Count = %d, want previous 2", reg.Count())
	}
}

func TestGobPriority(t *testing.T) {
	root := t.TempDir()
	dir := writeVocab(t, root, "g", "id: g\nkind: sample\nformat:\n  has_header: false\n", "FromCSV\n")
	entries := []harmonize.CanonicalEntry{{ID: "G1", CanonicalName: "FromGob"}}
	if err := SaveGob(entries, filepath.Join(dir, "data.gob")); err != nil {
		t.Fatalf("SaveGob: %v", err)
	}
	v, err := LoadVocabulary(dir)
	if err != nil {
		t.Fatalf("LoadVocabulary: %v", err)
	}
	if len(v.Entries) != 1 || v.Entries[0].CanonicalName != "FromGob" {
		t.Errorf("entries = %+v, want gob content", v.Entries)
	}
}

func TestLatin1Encoding(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "l1")
	os.MkdirAll(dir, 0o755)
	os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte("id: l1\nkind: sample\nformat:\n  encoding: latin1\n  has_header: false\n"), 0o644)
	os.WriteFile(filepath.Join(dir, "data.csv"), []byte("Caf\xe9\n"), 0o644)

	v, err := LoadVocabulary(dir)
	if err != nil {
		t.Fatalf("LoadVocabulary: %v", err)
	}
	if v.Entries[0].CanonicalName != "Café" {
		t.Errorf("name = %q, want Café", v.Entries[0].CanonicalName)
	}
}

func TestMissingColumn(t *testing.T) {
	root := t.TempDir()
	dir := writeVocab(t, root, "m", "id: m\nkind: drug\nformat:\n  has_header: true\n  name_column: DrugName\n", "Name\nX\n")
	if _, err := LoadVocabulary(dir); err == nil {
		t.Fatal("expected error for missing name column")
	}
}
