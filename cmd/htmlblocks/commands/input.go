package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/pflag"

	"github.com/jmylchreest/htmlblocks/internal/logger"
	"github.com/jmylchreest/htmlblocks/internal/version"
	"github.com/jmylchreest/htmlblocks/pkg/fetcher"
)

// addInputFlags registers the flags that select and fetch input documents.
func addInputFlags(flags *pflag.FlagSet) {
	flags.StringSliceP("url", "u", nil, "URL(s) to fetch (can be repeated)")
	flags.String("selector", "", "CSS selector narrowing each input before conversion (e.g. article)")
	flags.Duration("timeout", 30*time.Second, "request timeout for --url")
	flags.Bool("render", false, "load --url pages in a headless browser so scripts run first")
	flags.String("wait-for", "", "CSS selector to wait for when rendering (default: body)")
}

// pageFetcher returns the fetcher for --url inputs and a function that
// releases it.
func pageFetcher(flags *pflag.FlagSet) (fetcher.Fetcher, func()) {
	timeout, _ := flags.GetDuration("timeout")
	if render, _ := flags.GetBool("render"); render {
		waitFor, _ := flags.GetString("wait-for")
		f := fetcher.NewRender(fetcher.RenderConfig{
			UserAgent:    version.UserAgent(),
			Timeout:      timeout,
			WaitSelector: waitFor,
		})
		return f, func() { _ = f.Close() }
	}
	return newFetcher(timeout), func() {}
}

// source is one HTML document to convert.
type source struct {
	Name string
	HTML string
}

// readSources loads the given files and URLs. With neither, or with a
// file named "-", stdin is read.
func readSources(ctx context.Context, stdin io.Reader, files, urls []string, f fetcher.Fetcher) ([]source, error) {
	if len(files) == 0 && len(urls) == 0 {
		files = []string{"-"}
	}

	sources := make([]source, 0, len(files)+len(urls))
	for _, path := range files {
		var data []byte
		var err error
		if path == "-" {
			data, err = io.ReadAll(stdin)
			path = "stdin"
		} else {
			data, err = os.ReadFile(path) //#nosec G304 -- CLI tool reads user-specified input file
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		sources = append(sources, source{Name: path, HTML: string(data)})
	}

	for _, u := range urls {
		content, err := f.Fetch(ctx, u, fetcher.Options{})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", u, err)
		}
		logger.Debug("page fetched", "url", u, "bytes", len(content.Body), "content_type", content.ContentType)
		sources = append(sources, source{Name: u, HTML: string(content.Body)})
	}

	return sources, nil
}

// selectRegion narrows a document to the outer HTML of every element
// matching selector, in document order. An empty selector returns doc
// unchanged.
func selectRegion(doc, selector string) (string, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return doc, nil
	}

	d, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(doc)))
	if err != nil {
		return "", fmt.Errorf("failed to parse document: %w", err)
	}

	matches := d.Find(selector)
	if matches.Length() == 0 {
		return "", fmt.Errorf("selector %q matched nothing", selector)
	}

	var sb strings.Builder
	var outerErr error
	matches.EachWithBreak(func(i int, s *goquery.Selection) bool {
		h, err := goquery.OuterHtml(s)
		if err != nil {
			outerErr = err
			return false
		}
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(h)
		return true
	})
	if outerErr != nil {
		return "", fmt.Errorf("failed to render selection: %w", outerErr)
	}
	return sb.String(), nil
}
