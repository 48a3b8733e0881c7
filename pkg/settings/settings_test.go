package settings

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func newViper(t *testing.T, yamlConfig string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(yamlConfig)); err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}
	return v
}

func TestDefault(t *testing.T) {
	d := Default()
	if !d.ColumnDetection {
		t.Error("expected column detection on by default")
	}
	if d.ScoreThreshold != 0.7 {
		t.Errorf("ScoreThreshold = %v, want 0.7", d.ScoreThreshold)
	}
	if !d.StripAttributes {
		t.Error("expected attribute stripping on by default")
	}
	if len(d.AllowlistDomains) != 0 {
		t.Errorf("expected empty allowlist, got %v", d.AllowlistDomains)
	}
}

func TestFromViper(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		want    Defaults
		wantErr bool
	}{
		{
			name:   "empty config uses defaults",
			config: "",
			want:   Default(),
		},
		{
			name: "explicit values",
			config: `
html:
  column_detection: false
  score_threshold: 0.4
  strip_attributes: false
  allowlist_domains:
    - YouTube.com
    - " vimeo.com "
`,
			want: Defaults{
				ColumnDetection:  false,
				ScoreThreshold:   0.4,
				StripAttributes:  false,
				AllowlistDomains: []string{"youtube.com", "vimeo.com"},
			},
		},
		{
			name: "newline separated domains",
			config: `
html:
  allowlist_domains: "youtube.com\n\nplayer.vimeo.com\n"
`,
			want: Defaults{
				ColumnDetection:  true,
				ScoreThreshold:   0.7,
				StripAttributes:  true,
				AllowlistDomains: []string{"youtube.com", "player.vimeo.com"},
			},
		},
		{
			name: "threshold above one is clamped",
			config: `
html:
  score_threshold: 3
`,
			want: Defaults{ColumnDetection: true, ScoreThreshold: 1, StripAttributes: true, AllowlistDomains: []string{}},
		},
		{
			name: "negative threshold is clamped",
			config: `
html:
  score_threshold: -0.5
`,
			want: Defaults{ColumnDetection: true, ScoreThreshold: 0, StripAttributes: true, AllowlistDomains: []string{}},
		},
		{
			name: "string booleans are coerced",
			config: `
html:
  column_detection: "0"
  strip_attributes: "true"
`,
			want: Defaults{ColumnDetection: false, ScoreThreshold: 0.7, StripAttributes: true, AllowlistDomains: []string{}},
		},
		{
			name: "invalid domain fails validation",
			config: `
html:
  allowlist_domains:
    - "not a domain"
`,
			wantErr: true,
		},
		{
			name: "non numeric threshold fails",
			config: `
html:
  score_threshold: high
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromViper(newViper(t, tt.config))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("expected ErrInvalid, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromViper() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FromViper() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSetViperDefaults(t *testing.T) {
	v := viper.New()
	SetViperDefaults(v)

	got, err := FromViper(v)
	if err != nil {
		t.Fatalf("FromViper() error = %v", err)
	}
	if !reflect.DeepEqual(got, Default()) {
		t.Errorf("FromViper() = %+v, want %+v", got, Default())
	}
}

func TestStatic_ReturnsCopy(t *testing.T) {
	s := Static(Defaults{AllowlistDomains: []string{"example.com"}})

	d := s.Defaults()
	d.AllowlistDomains[0] = "changed.com"

	if s.Defaults().AllowlistDomains[0] != "example.com" {
		t.Error("mutating returned defaults should not affect the provider")
	}
}

func TestNormalizeDomains(t *testing.T) {
	got := NormalizeDomains([]string{" A.com ", "", "  ", "b.COM"})
	want := []string{"a.com", "b.com"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeDomains() = %v, want %v", got, want)
	}
}

func TestClampThreshold(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-1, 0},
		{0, 0},
		{0.35, 0.35},
		{1, 1},
		{1.5, 1},
		{math.Inf(1), 1},
		{math.Inf(-1), 0},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := ClampThreshold(tt.in); got != tt.want {
			t.Errorf("ClampThreshold(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
