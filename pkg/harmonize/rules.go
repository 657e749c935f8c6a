package harmonize

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules configures the per-kind cleaning steps of the normalizer.
type Rules struct {
	// Punctuation lists the runes replaced by a single space.
	Punctuation string `yaml:"punctuation"`
	// NoiseSuffixes are trailing tokens dropped while more than one token remains.
	NoiseSuffixes []string `yaml:"noise_suffixes"`
	// Synonyms maps a whole cleaned name to its preferred spelling.
	Synonyms map[string]string `yaml:"synonyms"`
	// KeepLongNames marks long cleaned names as exempt from fuzzy matching.
	KeepLongNames bool `yaml:"keep_long_names"`
}

// RuleSet holds the rules for both kinds.
type RuleSet struct {
	Sample Rules `yaml:"sample"`
	Drug   Rules `yaml:"drug"`
}

// For returns the rules for kind.
func (rs RuleSet) For(kind Kind) Rules {
	if kind == KindDrug {
		return rs.Drug
	}
	return rs.Sample
}

const defaultPunctuation = `-_()[]{}/\.,;:|`

// DefaultSampleRules returns the built-in cell line and sample rules.
func DefaultSampleRules() Rules {
	return Rules{
		Punctuation:   defaultPunctuation,
		NoiseSuffixes: []string{"cells", "cell", "line", "parental"},
	}
}

// DefaultDrugRules returns the built-in compound rules. Salt and hydrate
// forms are stripped so that "Imatinib mesylate" cleans to "imatinib".
func DefaultDrugRules() Rules {
	return Rules{
		Punctuation: defaultPunctuation,
		NoiseSuffixes: []string{
			"hcl", "hydrochloride", "dihydrochloride",
			"mesylate", "dimesylate", "maleate", "tosylate", "besylate",
			"citrate", "sulfate", "phosphate", "acetate", "tartrate",
			"fumarate", "succinate", "sodium", "potassium", "calcium",
			"hydrate", "monohydrate", "dihydrate", "trihydrate",
		},
		Synonyms: map[string]string{
			"5 fu":       "fluorouracil",
			"5fu":        "fluorouracil",
			"cddp":       "cisplatin",
			"adriamycin": "doxorubicin",
		},
		KeepLongNames: true,
	}
}

// DefaultRuleSet returns the built-in rules for both kinds.
func DefaultRuleSet() RuleSet {
	return RuleSet{Sample: DefaultSampleRules(), Drug: DefaultDrugRules()}
}

// rulesOverride is the file form of Rules; absent keys keep the defaults.
type rulesOverride struct {
	Punctuation   *string           `yaml:"punctuation"`
	NoiseSuffixes []string          `yaml:"noise_suffixes"`
	Synonyms      map[string]string `yaml:"synonyms"`
	KeepLongNames *bool             `yaml:"keep_long_names"`
}

func (o *rulesOverride) apply(r Rules) Rules {
	if o == nil {
		return r
	}
	if o.Punctuation != nil {
		r.Punctuation = *o.Punctuation
	}
	if o.NoiseSuffixes != nil {
		r.NoiseSuffixes = o.NoiseSuffixes
	}
	if len(o.Synonyms) > 0 {
		merged := make(map[string]string, len(r.Synonyms)+len(o.Synonyms))
		for k, v := range r.Synonyms {
			merged[k] = v
		}
		for k, v := range o.Synonyms {
			merged[k] = v
		}
		r.Synonyms = merged
	}
	if o.KeepLongNames != nil {
		r.KeepLongNames = *o.KeepLongNames
	}
	return r
}

// LoadRules reads a YAML rule file with optional sample and drug sections.
// Keys present in the file override the defaults; lists replace, synonym maps
// merge.
func LoadRules(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("read rules: %w", err)
	}
	var file struct {
		Sample *rulesOverride `yaml:"sample"`
		Drug   *rulesOverride `yaml:"drug"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return RuleSet{}, fmt.Errorf("parse rules %s: %w", path, err)
	}
	rs := DefaultRuleSet()
	rs.Sample = file.Sample.apply(rs.Sample)
	rs.Drug = file.Drug.apply(rs.Drug)
	return rs, nil
}
