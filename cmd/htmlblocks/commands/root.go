// Package commands implements the CLI commands for htmlblocks.
package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/htmlblocks/internal/logger"
	"github.com/jmylchreest/htmlblocks/internal/version"
	"github.com/jmylchreest/htmlblocks/pkg/fetcher"
	"github.com/jmylchreest/htmlblocks/pkg/media"
	"github.com/jmylchreest/htmlblocks/pkg/settings"
)

// Config keys outside the html.* conversion defaults.
const (
	keyMediaDir      = "media.dir"
	keyMediaBaseURL  = "media.base_url"
	keyMediaDatabase = "media.database"
	keyMediaMaxSize  = "media.max_size"
	keyMediaTimeout  = "media.timeout"

	keyServerAddr    = "server.addr"
	keyServerMaxBody = "server.max_body"
	keyServerToken   = "server.token"
	keyServerEditors = "server.editors"
)

var rootCmd = &cobra.Command{
	Use:   "htmlblocks",
	Short: "Convert HTML fragments into block editor markup",
	Long: `htmlblocks converts static HTML into block-comment markup.

Scripts, styles and event handlers are stripped, iframes are kept only for
allowlisted domains, and runs of similar sibling containers are turned into
column layouts.

Examples:
  # Convert a file and print the markup
  htmlblocks convert page.html

  # Convert the article of a remote page as JSON
  htmlblocks convert --url https://example.com/post --selector article -f json

  # Show the blocks that would be produced
  htmlblocks inspect page.html

  # Serve the convert endpoint
  htmlblocks serve --addr 127.0.0.1:8080`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		err := logger.Init(logger.Options{
			Debug: viper.GetBool("debug"),
			Quiet: viper.GetBool("quiet"),
			JSON:  viper.GetString("log_format") == "json",
			Level: viper.GetString("log_level"),
		})
		if err != nil {
			logger.Warn("ignoring log level", "error", err)
		}
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug("config loaded", "path", used)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.htmlblocks.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text, json")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides --debug and --quiet)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".htmlblocks")
		viper.SetConfigType("yaml")
	}

	// HTMLBLOCKS_HTML_SCORE_THRESHOLD sets html.score_threshold
	viper.SetEnvPrefix("HTMLBLOCKS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

func setDefaults(v *viper.Viper) {
	settings.SetViperDefaults(v)

	mediaDefaults := media.DefaultSideloaderConfig()
	v.SetDefault(keyMediaDir, mediaDefaults.Dir)
	v.SetDefault(keyMediaBaseURL, mediaDefaults.BaseURL)
	v.SetDefault(keyMediaDatabase, "htmlblocks.db")
	v.SetDefault(keyMediaMaxSize, "10MB")
	v.SetDefault(keyMediaTimeout, mediaDefaults.Timeout)

	v.SetDefault(keyServerAddr, "127.0.0.1:8080")
	v.SetDefault(keyServerMaxBody, "2MB")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadDefaults reads and validates the stored conversion defaults.
func loadDefaults(v *viper.Viper) (settings.Static, error) {
	d, err := settings.FromViper(v)
	if err != nil {
		return settings.Static{}, err
	}
	logger.Debug("conversion defaults",
		"column_detection", d.ColumnDetection,
		"score_threshold", d.ScoreThreshold,
		"strip_attributes", d.StripAttributes,
		"allowlist_domains", d.AllowlistDomains)
	return settings.Static(d), nil
}

// parseSize parses a human byte size such as "10MB". Empty or "0" means
// the caller's default.
func parseSize(key, value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return int64(n), nil
}

// mediaConfig reads the sideloader settings from v.
func mediaConfig(v *viper.Viper) (media.SideloaderConfig, error) {
	maxBytes, err := parseSize(keyMediaMaxSize, v.GetString(keyMediaMaxSize))
	if err != nil {
		return media.SideloaderConfig{}, err
	}
	return media.SideloaderConfig{
		Dir:      v.GetString(keyMediaDir),
		BaseURL:  v.GetString(keyMediaBaseURL),
		MaxBytes: maxBytes,
		Timeout:  v.GetDuration(keyMediaTimeout),
	}, nil
}

// openMedia opens the attachment catalogue and a sideloader writing into
// it. The caller closes the store.
func openMedia(v *viper.Viper) (*media.Store, *media.Sideloader, error) {
	cfg, err := mediaConfig(v)
	if err != nil {
		return nil, nil, err
	}

	dbPath := v.GetString(keyMediaDatabase)
	store, err := media.OpenStore(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open media database %s: %w", dbPath, err)
	}

	f := newFetcher(cfg.Timeout)
	sideloader, err := media.NewSideloader(store, f, cfg)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	logger.Debug("media persistence enabled",
		"database", dbPath,
		"dir", cfg.Dir,
		"max_size", humanize.IBytes(uint64(max(cfg.MaxBytes, 0))))
	return store, sideloader, nil
}

func newFetcher(timeout time.Duration) *fetcher.StaticFetcher {
	return fetcher.NewStatic(fetcher.StaticConfig{
		UserAgent: version.UserAgent(),
		Timeout:   timeout,
	})
}
