package converter

import (
	"math"
	"reflect"
	"testing"

	"github.com/jmylchreest/htmlblocks/pkg/settings"
)

func TestResolveOptions(t *testing.T) {
	defaults := settings.Defaults{
		ColumnDetection:  true,
		ScoreThreshold:   0.7,
		StripAttributes:  true,
		AllowlistDomains: []string{"youtube.com"},
	}

	tests := []struct {
		name string
		opts []Option
		want Options
	}{
		{
			name: "defaults only",
			want: Options{
				ColumnDetection:  true,
				ScoreThreshold:   0.7,
				StripAttributes:  true,
				AllowlistDomains: []string{"youtube.com"},
			},
		},
		{
			name: "overrides applied field by field",
			opts: []Option{
				WithColumnDetection(false),
				WithScoreThreshold(0.2),
				WithPostID(9),
				WithPersistMedia(true),
				nil,
			},
			want: Options{
				ScoreThreshold:   0.2,
				StripAttributes:  true,
				AllowlistDomains: []string{"youtube.com"},
				PostID:           9,
				PersistMedia:     true,
			},
		},
		{
			name: "normalization",
			opts: []Option{
				WithScoreThreshold(-1),
				WithAllowlist(" Vimeo.com ", "", "YOUTUBE.COM"),
				WithPostID(-4),
				WithStripAttributes(false),
			},
			want: Options{
				ColumnDetection:  true,
				ScoreThreshold:   0,
				AllowlistDomains: []string{"vimeo.com", "youtube.com"},
			},
		},
		{
			name: "nan threshold",
			opts: []Option{WithScoreThreshold(math.NaN())},
			want: Options{
				ColumnDetection:  true,
				ScoreThreshold:   0,
				StripAttributes:  true,
				AllowlistDomains: []string{"youtube.com"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveOptions(defaults, tt.opts)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("resolveOptions() = %+v, want %+v", got, tt.want)
			}
		})
	}

	if defaults.AllowlistDomains[0] != "youtube.com" || len(defaults.AllowlistDomains) != 1 {
		t.Errorf("defaults were modified: %v", defaults.AllowlistDomains)
	}
}
