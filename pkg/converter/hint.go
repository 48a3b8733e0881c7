package converter

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/htmlblocks/pkg/blocks"
)

var (
	layoutPattern = regexp.MustCompile(`(grid|row|flex|col|column|span)`)
	ratioPattern  = regexp.MustCompile(`(1/2|1/3|2/3|50|33|66|6/12|4/12|8/12)`)
)

// layoutHint matches the element's class and id against the layout and
// ratio keyword families. Attributes removed by the sanitizer are not seen.
func layoutHint(s *goquery.Selection) blocks.LayoutHint {
	var parts []string
	if class, ok := s.Attr("class"); ok {
		parts = append(parts, class)
	}
	if id, ok := s.Attr("id"); ok {
		parts = append(parts, id)
	}
	text := strings.ToLower(strings.Join(parts, " "))

	return blocks.LayoutHint{
		Layout: layoutPattern.MatchString(text),
		Ratio:  ratioPattern.MatchString(text),
	}
}
