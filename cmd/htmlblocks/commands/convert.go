package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/htmlblocks/internal/logger"
	"github.com/jmylchreest/htmlblocks/internal/output"
	"github.com/jmylchreest/htmlblocks/pkg/converter"
	"github.com/jmylchreest/htmlblocks/pkg/media"
)

var convertCmd = &cobra.Command{
	Use:   "convert [file...]",
	Short: "Convert HTML files or pages into block markup",
	Long: `Convert HTML into block-comment markup.

Inputs are files, "-" for stdin, or pages fetched with --url. With no
input stdin is read. Conversion defaults come from the html.* config keys
and can be overridden per run.

Examples:
  # Convert a file
  htmlblocks convert page.html

  # Convert stdin without column detection
  cat page.html | htmlblocks convert --columns=false

  # Allow YouTube embeds and print JSON with stats
  htmlblocks convert page.html --allow-domain youtube.com -f json

  # Render a script-driven page before converting it
  htmlblocks convert --url https://example.com/app --render --wait-for main

  # Download images into the media library for post 42
  htmlblocks convert page.html --persist --post-id 42`,
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	flags := convertCmd.Flags()

	addInputFlags(flags)
	addConversionFlags(flags)

	// Media
	flags.Int("post-id", 0, "post that owns persisted images")
	flags.Bool("persist", false, "download images into the media library (requires --post-id)")

	// Output
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.StringP("format", "f", string(output.FormatMarkup), "output format: markup, json, jsonl, yaml")
	flags.Bool("compact", false, "disable pretty-printing for json output")
	flags.Bool("stats", false, "print conversion statistics to stderr")
}

// addConversionFlags registers the per-run overrides of the html.* defaults.
func addConversionFlags(flags *pflag.FlagSet) {
	flags.Bool("columns", true, "detect column layouts (default from html.column_detection)")
	flags.Float64("threshold", 0.7, "column score threshold 0..1 (default from html.score_threshold)")
	flags.Bool("strip-attributes", true, "keep only whitelisted attributes (default from html.strip_attributes)")
	flags.StringSlice("allow-domain", nil, "iframe domains to allow, replacing html.allowlist_domains")
}

// conversionOptions turns explicitly set flags into converter options.
// Flags left alone fall through to the stored defaults.
func conversionOptions(flags *pflag.FlagSet) []converter.Option {
	var opts []converter.Option
	if flags.Changed("columns") {
		v, _ := flags.GetBool("columns")
		opts = append(opts, converter.WithColumnDetection(v))
	}
	if flags.Changed("threshold") {
		v, _ := flags.GetFloat64("threshold")
		opts = append(opts, converter.WithScoreThreshold(v))
	}
	if flags.Changed("strip-attributes") {
		v, _ := flags.GetBool("strip-attributes")
		opts = append(opts, converter.WithStripAttributes(v))
	}
	if flags.Changed("allow-domain") {
		v, _ := flags.GetStringSlice("allow-domain")
		opts = append(opts, converter.WithAllowlist(v...))
	}
	return opts
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	flags := cmd.Flags()

	defaults, err := loadDefaults(viper.GetViper())
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}

	formatStr, _ := flags.GetString("format")
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	postID, _ := flags.GetInt("post-id")
	persist, _ := flags.GetBool("persist")
	if persist && postID <= 0 {
		return errors.New("--persist requires a positive --post-id")
	}

	var store *media.Store
	var persister media.Persister
	if persist {
		s, sideloader, err := openMedia(viper.GetViper())
		if err != nil {
			logger.Error("failed to open media library", "error", err)
			return err
		}
		defer func() { _ = s.Close() }()
		store, persister = s, sideloader
	}

	conv := converter.New(defaults, persister)

	opts := conversionOptions(flags)
	opts = append(opts,
		converter.WithPostID(postID),
		converter.WithPersistMedia(persist))

	urls, _ := flags.GetStringSlice("url")
	pages, release := pageFetcher(flags)
	defer release()
	sources, err := readSources(ctx, cmd.InOrStdin(), args, urls, pages)
	if err != nil {
		logger.Error("failed to read input", "error", err)
		return err
	}

	// Setup output
	var out io.Writer = cmd.OutOrStdout()
	if outPath, _ := flags.GetString("output"); outPath != "" {
		f, err := os.Create(outPath) //#nosec G304 -- CLI tool writes to user-specified output file
		if err != nil {
			logger.Error("failed to create output file", "path", outPath, "error", err)
			return err
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	compact, _ := flags.GetBool("compact")
	writer, err := output.NewWriter(out, format, output.WithPretty(!compact))
	if err != nil {
		return err
	}

	selector, _ := flags.GetString("selector")
	showStats, _ := flags.GetBool("stats")

	converted, failed := 0, 0
	for _, src := range sources {
		result, err := convertSource(ctx, conv, src, selector, opts)
		if err != nil {
			logger.Error("conversion failed", "input", src.Name, "error", err)
			failed++
			continue
		}
		for _, w := range result.Warnings {
			logger.Warn(w.Message, "input", src.Name, "phase", w.Phase, "context", w.Context)
		}
		if showStats {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "== %s\n%s", src.Name, result.Stats.String())
		}
		if err := writer.Write(result); err != nil {
			logger.Error("failed to write output", "error", err)
			return err
		}
		converted++
	}

	if err := writer.Flush(); err != nil {
		logger.Error("failed to write output", "error", err)
		return err
	}

	if store != nil && converted > 0 {
		if err := store.MarkDraft(ctx, postID); err != nil {
			logger.Warn("failed to mark post as draft", "post_id", postID, "error", err)
		}
	}

	logger.Info("html converted",
		"inputs", len(sources),
		"converted", converted,
		"failed", failed,
		"post_id", postID,
		"persist", persist)

	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", failed, len(sources))
	}
	return nil
}

func convertSource(ctx context.Context, conv *converter.Converter, src source, selector string, opts []converter.Option) (*converter.Result, error) {
	doc, err := selectRegion(src.HTML, selector)
	if err != nil {
		return nil, err
	}
	return conv.Convert(ctx, doc, opts...)
}
