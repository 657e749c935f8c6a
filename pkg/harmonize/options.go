package harmonize

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Default matching parameters.
const (
	DefaultMaxDistance            = 0.2
	DefaultMinNameLength          = 5
	DefaultKeepLongNamesThreshold = 17
	DefaultPartialMaxDistance     = 0.5
)

// Options tunes one HarmonizeNames call.
type Options struct {
	// MaxDistance is the largest accepted fuzzy distance (0 = identical).
	MaxDistance float64 `json:"max_distance" yaml:"max_distance" koanf:"max_distance" validate:"gte=0,lte=1"`
	// MinNameLength is the cleaned length below which only containment
	// (partial) matches are accepted.
	MinNameLength int `json:"min_name_length" yaml:"min_name_length" koanf:"min_name_length" validate:"gte=0"`
	// KeepLongNamesThreshold exempts longer cleaned drug names from fuzzy
	// and partial matching. Zero disables the exemption.
	KeepLongNamesThreshold int `json:"keep_long_names_threshold" yaml:"keep_long_names_threshold" koanf:"keep_long_names_threshold" validate:"gte=0"`
	// PartialMaxDistance bounds the distance between a name and the candidate
	// that contains it.
	PartialMaxDistance float64 `json:"partial_max_distance" yaml:"partial_max_distance" koanf:"partial_max_distance" validate:"gte=0,lte=1"`
	// Project restricts the canonical snapshot to one project.
	Project string `json:"project,omitempty" yaml:"project" koanf:"project" validate:"max=256"`
	// Workers bounds the fan-out; zero means GOMAXPROCS.
	Workers int `json:"workers,omitempty" yaml:"workers" koanf:"workers" validate:"gte=0,lte=1024"`
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		MaxDistance:            DefaultMaxDistance,
		MinNameLength:          DefaultMinNameLength,
		KeepLongNamesThreshold: DefaultKeepLongNamesThreshold,
		PartialMaxDistance:     DefaultPartialMaxDistance,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every option against its allowed range.
func (o Options) Validate() error {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{
			Field:   fe.Field(),
			Message: fmt.Sprintf("failed %s=%s (got %v)", fe.Tag(), fe.Param(), fe.Value()),
		}
	}
	return &ValidationError{Field: "options", Message: err.Error()}
}
