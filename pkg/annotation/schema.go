package annotation

import (
	"fmt"
	"strings"

	"github.com/mugpeng/droma-registry/pkg/harmonize"
)

type column struct {
	name    string
	sqlType string
}

// table describes one DROMA annotation table.
type table struct {
	name     string
	nameCol  string
	idPrefix string
	columns  []column
	// altCol holds extra aliases separated by ':' or '|'; empty for drugs.
	altCol string
}

var sampleTable = table{
	name:     "sample_anno",
	nameCol:  "SampleID",
	idPrefix: "UM_SAMPLE_",
	altCol:   "AlternateName",
	columns: []column{
		{"SampleID", "TEXT NOT NULL"},
		{"PatientID", "TEXT"},
		{"ProjectID", "TEXT NOT NULL DEFAULT ''"},
		{"HarmonizedIdentifier", "TEXT"},
		{"TumorType", "TEXT"},
		{"MolecularSubtype", "TEXT"},
		{"Gender", "TEXT"},
		{"Age", "REAL"},
		{"FullEthnicity", "TEXT"},
		{"SimpleEthnicity", "TEXT"},
		{"TNMstage", "TEXT"},
		{"Primary_Metastasis", "TEXT"},
		{"DataType", "TEXT"},
		{"ProjectRawName", "TEXT"},
		{"AlternateName", "TEXT"},
		{"IndexID", "TEXT"},
	},
}

var drugTable = table{
	name:     "drug_anno",
	nameCol:  "DrugName",
	idPrefix: "UM_DRUG_",
	columns: []column{
		{"DrugName", "TEXT NOT NULL"},
		{"ProjectID", "TEXT NOT NULL DEFAULT ''"},
		{"Harmonized ID (Pubchem ID)", "TEXT"},
		{"Source for Clinical Information", "TEXT"},
		{"Clinical Phase", "TEXT"},
		{"MOA", "TEXT"},
		{"Targets", "TEXT"},
		{"ProjectRawName", "TEXT"},
		{"IndexID", "TEXT"},
	},
}

func tableFor(kind harmonize.Kind) (table, error) {
	switch kind {
	case harmonize.KindSample:
		return sampleTable, nil
	case harmonize.KindDrug:
		return drugTable, nil
	default:
		return table{}, kind.Validate()
	}
}

func (t table) ddl() string {
	defs := make([]string, len(t.columns))
	for i, c := range t.columns {
		defs[i] = quote(c.name) + " " + c.sqlType
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", t.name, strings.Join(defs, ",\n\t"))
}

func (t table) indexDDL() string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_name_project ON %s (%s, ProjectID)",
		t.name, t.name, quote(t.nameCol))
}

func (t table) columnList() string {
	cols := make([]string, len(t.columns))
	for i, c := range t.columns {
		cols[i] = quote(c.name)
	}
	return strings.Join(cols, ", ")
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
