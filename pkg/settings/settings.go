// Package settings supplies the stored conversion defaults.
//
// Defaults are read from viper (config file, environment or flags), coerced
// with cast, clamped and validated. A Provider hands them to the converter
// at the start of each conversion.
package settings

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Config keys under which the defaults are stored.
const (
	KeyColumnDetection  = "html.column_detection"
	KeyScoreThreshold   = "html.score_threshold"
	KeyStripAttributes  = "html.strip_attributes"
	KeyAllowlistDomains = "html.allowlist_domains"
)

// ErrInvalid is returned when stored defaults fail validation.
var ErrInvalid = errors.New("invalid html settings")

// Defaults are the stored conversion defaults.
type Defaults struct {
	ColumnDetection  bool     `json:"column_detection" yaml:"column_detection" mapstructure:"column_detection"`
	ScoreThreshold   float64  `json:"score_threshold" yaml:"score_threshold" mapstructure:"score_threshold" validate:"gte=0,lte=1"`
	StripAttributes  bool     `json:"strip_attributes" yaml:"strip_attributes" mapstructure:"strip_attributes"`
	AllowlistDomains []string `json:"allowlist_domains" yaml:"allowlist_domains" mapstructure:"allowlist_domains" validate:"dive,hostname_rfc1123"`
}

// Default returns the built-in defaults: column detection on, threshold
// 0.7, attribute stripping on, no iframe domains allowed.
func Default() Defaults {
	return Defaults{
		ColumnDetection:  true,
		ScoreThreshold:   0.7,
		StripAttributes:  true,
		AllowlistDomains: []string{},
	}
}

// Provider supplies conversion defaults.
type Provider interface {
	Defaults() Defaults
}

// Static is a Provider that always returns the same defaults.
type Static Defaults

// Defaults returns a copy of s.
func (s Static) Defaults() Defaults {
	d := Defaults(s)
	d.AllowlistDomains = append([]string(nil), s.AllowlistDomains...)
	return d
}

var validate = validator.New()

// SetViperDefaults registers the built-in defaults on v.
func SetViperDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyColumnDetection, d.ColumnDetection)
	v.SetDefault(KeyScoreThreshold, d.ScoreThreshold)
	v.SetDefault(KeyStripAttributes, d.StripAttributes)
	v.SetDefault(KeyAllowlistDomains, d.AllowlistDomains)
}

// FromViper reads the defaults stored in v. Missing keys fall back to
// Default(). The threshold is clamped to [0,1] and the domain list is
// normalized before validation.
func FromViper(v *viper.Viper) (Defaults, error) {
	d := Default()

	if v.IsSet(KeyColumnDetection) {
		b, err := cast.ToBoolE(v.Get(KeyColumnDetection))
		if err != nil {
			return d, fmt.Errorf("%w: %s: %w", ErrInvalid, KeyColumnDetection, err)
		}
		d.ColumnDetection = b
	}

	if v.IsSet(KeyScoreThreshold) {
		f, err := cast.ToFloat64E(v.Get(KeyScoreThreshold))
		if err != nil {
			return d, fmt.Errorf("%w: %s: %w", ErrInvalid, KeyScoreThreshold, err)
		}
		d.ScoreThreshold = ClampThreshold(f)
	}

	if v.IsSet(KeyStripAttributes) {
		b, err := cast.ToBoolE(v.Get(KeyStripAttributes))
		if err != nil {
			return d, fmt.Errorf("%w: %s: %w", ErrInvalid, KeyStripAttributes, err)
		}
		d.StripAttributes = b
	}

	if v.IsSet(KeyAllowlistDomains) {
		domains, err := ParseDomains(v.Get(KeyAllowlistDomains))
		if err != nil {
			return d, fmt.Errorf("%w: %s: %w", ErrInvalid, KeyAllowlistDomains, err)
		}
		d.AllowlistDomains = domains
	}

	if err := Validate(d); err != nil {
		return d, err
	}
	return d, nil
}

// Validate checks d against its struct constraints.
func Validate(d Defaults) error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// ClampThreshold limits f to [0,1]. NaN becomes 0.
func ClampThreshold(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// ParseDomains accepts either a list of domains or a single string with
// one domain per line, and returns the normalized list.
func ParseDomains(raw any) ([]string, error) {
	if raw == nil {
		return []string{}, nil
	}
	if s, ok := raw.(string); ok {
		return NormalizeDomains(strings.Split(s, "\n")), nil
	}
	list, err := cast.ToStringSliceE(raw)
	if err != nil {
		return nil, err
	}
	return NormalizeDomains(list), nil
}

// NormalizeDomains trims and lowercases each entry and drops empty ones.
func NormalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		out = append(out, d)
	}
	return out
}
