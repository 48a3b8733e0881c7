package converter

import (
	"github.com/jmylchreest/htmlblocks/pkg/blocks"
)

const (
	// maxColumns caps the size of a run of sibling containers.
	maxColumns = 3

	// hintBonus is added to the score for every layout or ratio hint in a run.
	hintBonus = 0.15
)

// detectColumns promotes runs of similar same-tag sibling containers into
// Columns and flattens every other container. The result holds no
// Containers at any depth.
func (cv *conversion) detectColumns(bs []blocks.Block) []blocks.Block {
	if !cv.opts.ColumnDetection {
		return cv.flatten(bs)
	}

	out := make([]blocks.Block, 0, len(bs))
	for i := 0; i < len(bs); {
		lead, ok := bs[i].(*blocks.Container)
		if !ok {
			out = append(out, bs[i])
			i++
			continue
		}

		run := []*blocks.Container{lead}
		for j := i + 1; j < len(bs) && len(run) < maxColumns; j++ {
			next, ok := bs[j].(*blocks.Container)
			if !ok || next.Tag != lead.Tag {
				break
			}
			run = append(run, next)
		}

		if len(run) >= 2 && Score(run) >= cv.opts.ScoreThreshold {
			cols := make([][]blocks.Block, len(run))
			for k, c := range run {
				cols[k] = c.Children
			}
			out = append(out, &blocks.Columns{Columns: cols})
			cv.result.Stats.ColumnsFormed++
			i += len(run)
			continue
		}

		// Only the lead is given up; the next container may start a run.
		out = append(out, lead.Children...)
		cv.result.Stats.Flattened++
		i++
	}

	return cv.flatten(out)
}

// flatten replaces every container with its children, recursively, and
// flattens the content of columns.
func (cv *conversion) flatten(bs []blocks.Block) []blocks.Block {
	out := make([]blocks.Block, 0, len(bs))
	for _, b := range bs {
		switch b := b.(type) {
		case *blocks.Container:
			cv.result.Stats.Flattened++
			out = append(out, cv.flatten(b.Children)...)
		case *blocks.Columns:
			cols := make([][]blocks.Block, len(b.Columns))
			for i, col := range b.Columns {
				cols[i] = cv.flatten(col)
			}
			out = append(out, &blocks.Columns{Columns: cols})
		default:
			out = append(out, b)
		}
	}
	return out
}

// Score rates how likely a run of containers is a set of parallel columns.
// It is the ratio of the shortest to the longest container length, plus
// 0.15 for each layout hint and each ratio hint in the run, capped at 1.
func Score(run []*blocks.Container) float64 {
	if len(run) == 0 {
		return 0
	}

	minLen, maxLen := 0, 0
	bonus := 0.0
	for i, c := range run {
		n := max(1, c.Length())
		if i == 0 || n < minLen {
			minLen = n
		}
		if n > maxLen {
			maxLen = n
		}
		if c.Hint.Layout {
			bonus += hintBonus
		}
		if c.Hint.Ratio {
			bonus += hintBonus
		}
	}

	return min(1.0, float64(minLen)/float64(maxLen)+bonus)
}
