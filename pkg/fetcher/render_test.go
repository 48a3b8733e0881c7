package fetcher

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

var (
	_ Fetcher = (*StaticFetcher)(nil)
	_ Fetcher = (*RenderFetcher)(nil)
)

func TestNewRender_Defaults(t *testing.T) {
	f := NewRender(RenderConfig{ExecPath: "/bin/true"})
	defer func() { _ = f.Close() }()

	if f.Type() != "render" {
		t.Errorf("Type() = %q, want render", f.Type())
	}
	if f.config.WaitSelector != "body" {
		t.Errorf("WaitSelector = %q, want body", f.config.WaitSelector)
	}
	if f.config.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", f.config.Timeout)
	}
	if f.config.UserAgent != defaultUserAgent {
		t.Errorf("UserAgent = %q", f.config.UserAgent)
	}
}

func TestRenderFetcher_MissingBrowser(t *testing.T) {
	f := NewRender(RenderConfig{
		ExecPath: filepath.Join(t.TempDir(), "no-such-browser"),
		Timeout:  5 * time.Second,
	})
	defer func() { _ = f.Close() }()

	if _, err := f.Fetch(context.Background(), "http://127.0.0.1/", Options{}); err == nil {
		t.Error("expected an error when the browser cannot start")
	}
}
