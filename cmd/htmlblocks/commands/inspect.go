package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/htmlblocks/internal/logger"
	"github.com/jmylchreest/htmlblocks/pkg/blocks"
	"github.com/jmylchreest/htmlblocks/pkg/converter"
)

const summaryWidth = 60

var inspectCmd = &cobra.Command{
	Use:   "inspect [file...]",
	Short: "Show the blocks an HTML document converts to",
	Long: `Inspect runs the conversion without serializing and prints one row per
block, with columns expanded underneath their layout. Nothing is
downloaded or stored.

Examples:
  htmlblocks inspect page.html
  htmlblocks inspect --url https://example.com --selector main --threshold 0.5`,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	flags := inspectCmd.Flags()
	addInputFlags(flags)
	addConversionFlags(flags)
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	defaults, err := loadDefaults(viper.GetViper())
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}
	conv := converter.New(defaults, nil)
	opts := conversionOptions(cmd.Flags())

	urls, _ := cmd.Flags().GetStringSlice("url")
	selector, _ := cmd.Flags().GetString("selector")
	pages, release := pageFetcher(cmd.Flags())
	defer release()
	sources, err := readSources(ctx, cmd.InOrStdin(), args, urls, pages)
	if err != nil {
		return err
	}

	for _, src := range sources {
		doc, err := selectRegion(src.HTML, selector)
		if err != nil {
			return fmt.Errorf("%s: %w", src.Name, err)
		}
		result, err := conv.Analyze(ctx, doc, opts...)
		if err != nil {
			return fmt.Errorf("%s: %w", src.Name, err)
		}
		renderInspection(cmd.OutOrStdout(), src.Name, result)
	}
	return nil
}

// renderInspection prints the block table and a short summary.
func renderInspection(w io.Writer, name string, result *converter.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("%s", name)
	t.AppendHeader(table.Row{"#", "Block", "Length", "Summary"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, WidthMax: summaryWidth},
	})

	n := 0
	var appendBlocks func(bs []blocks.Block, indent string)
	appendBlocks = func(bs []blocks.Block, indent string) {
		for _, b := range bs {
			n++
			t.AppendRow(table.Row{n, indent + string(b.Kind()), b.Length(), summarize(b)})
			if c, ok := b.(*blocks.Columns); ok {
				for i, col := range c.Columns {
					t.AppendRow(table.Row{"", fmt.Sprintf("%s  column %d", indent, i+1), blocks.Sum(col), ""})
					appendBlocks(col, indent+"    ")
				}
			}
		}
	}
	appendBlocks(result.Blocks, "")

	stats := result.Stats
	t.AppendFooter(table.Row{"", "total", blocks.Sum(result.Blocks),
		fmt.Sprintf("%s in, %d elements removed, %d columns",
			humanize.Bytes(uint64(stats.InputBytes)),
			stats.TotalElementsRemoved(),
			stats.ColumnsFormed)})
	t.Render()

	for _, warn := range result.Warnings {
		_, _ = fmt.Fprintf(w, "warning: %s\n", warn.String())
	}
}

// summarize returns a one-line preview of b.
func summarize(b blocks.Block) string {
	switch b := b.(type) {
	case *blocks.Heading:
		return fmt.Sprintf("h%d %s", b.Level, b.Text)
	case *blocks.Paragraph:
		return b.Text
	case *blocks.List:
		kind := "ul"
		if b.Ordered {
			kind = "ol"
		}
		return fmt.Sprintf("%s (%d items) %s", kind, len(b.Items), strings.Join(b.Items, " | "))
	case *blocks.Quote:
		return b.Text
	case *blocks.Table:
		cells := 0
		for _, row := range b.Rows {
			cells += len(row)
		}
		return fmt.Sprintf("%d rows, %d cells", len(b.Rows), cells)
	case *blocks.Image:
		if b.Alt != "" {
			return b.Src + " (" + b.Alt + ")"
		}
		return b.Src
	case *blocks.Columns:
		return fmt.Sprintf("%d columns", len(b.Columns))
	case *blocks.Container:
		return "<" + b.Tag + ">"
	default:
		return ""
	}
}
