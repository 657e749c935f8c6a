package harmonize

import "testing"

func TestCleanSample(t *testing.T) {
	n := NewNormalizer(DefaultSampleRules())
	tests := []struct {
		input, want string
	}{
		{"MCF-7", "mcf 7"},
		{"  MCF7  ", "mcf7"},
		{"HeLa cells", "hela"},
		{"HeLa Cell Line", "hela"},
		{"A549 [ATCC]", "a549"},
		{"Unknown_Sample", "unknown sample"},
		{"细胞A549", "a549"},
		{"Ｍｃｆ７", "mcf7"},
		{"K-562 (CML)", "k 562 cml"},
		{"Café", "cafe"},
		{"cells", "cells"},
		{"MCF7\t\tparental", "mcf7"},
		{"", ""},
		{"[unknown]", ""},
	}
	for _, tt := range tests {
		if got := n.Clean(tt.input); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCleanDrug(t *testing.T) {
	n := NewNormalizer(DefaultDrugRules())
	tests := []struct {
		input, want string
	}{
		{"Imatinib Mesylate", "imatinib"},
		{"Doxorubicin_HCl", "doxorubicin"},
		{"Drug X hcl hydrate", "drug x"},
		{"Hydrochloride", "hydrochloride"},
		{"5-FU", "fluorouracil"},
		{"5FU", "fluorouracil"},
		{"CDDP", "cisplatin"},
		{"Adriamycin HCl", "doxorubicin"},
		{"Paclitaxel", "paclitaxel"},
	}
	for _, tt := range tests {
		if got := n.Clean(tt.input); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"MCF-7", "HeLa cells", "A549 [ATCC]", "细胞A549", "Ｍｃｆ７", "K-562 (CML)",
		"5-FU", "CDDP", "Imatinib Mesylate", "Drug X hcl hydrate", "[a]b]", "a [b",
		"  ", "Ünïcödé  Nämé", "x\u0000y", "NCI-H460; lung",
	}
	for _, rules := range []Rules{DefaultSampleRules(), DefaultDrugRules()} {
		n := NewNormalizer(rules)
		for _, in := range inputs {
			once := n.Clean(in)
			if twice := n.Clean(once); twice != once {
				t.Errorf("Clean(Clean(%q)) = %q, want %q", in, twice, once)
			}
		}
	}
}

func TestSynonymChains(t *testing.T) {
	n := NewNormalizer(Rules{
		Punctuation: "-",
		Synonyms: map[string]string{
			"a-b": "c",
			"c":   "d",
			"x":   "y",
			"y":   "x",
		},
	})
	tests := []struct {
		input, want string
	}{
		{"A-B", "d"},
		{"c", "d"},
		{"x", "x"},
		{"y", "y"},
	}
	for _, tt := range tests {
		if got := n.Clean(tt.input); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeKeepOriginal(t *testing.T) {
	drug := NewNormalizer(DefaultDrugRules())
	sample := NewNormalizer(DefaultSampleRules())
	long := "Doxorubicin hydroxyl analogue"

	if got := drug.Normalize(long, 17); !got.KeepOriginal {
		t.Errorf("drug Normalize(%q, 17).KeepOriginal = false, want true", long)
	}
	if got := drug.Normalize(long, 0); got.KeepOriginal {
		t.Errorf("drug Normalize(%q, 0).KeepOriginal = true, want false", long)
	}
	if got := drug.Normalize("Cisplatin", 17); got.KeepOriginal {
		t.Error("short drug name flagged as kept original")
	}
	if got := sample.Normalize(long, 17); got.KeepOriginal {
		t.Error("sample names must never be kept original")
	}
}
