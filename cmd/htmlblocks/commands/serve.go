package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/htmlblocks/internal/logger"
	"github.com/jmylchreest/htmlblocks/internal/server"
	"github.com/jmylchreest/htmlblocks/pkg/converter"
	"github.com/jmylchreest/htmlblocks/pkg/media"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTML convert endpoint",
	Long: `Serve exposes POST ` + server.ConvertPath + `.

Callers authenticate with a bearer token. server.token grants access to
every post; server.editors maps further tokens to the post ids they may
edit:

  server:
    token: s3cret
    editors:
      alice-token: ["12", "14"]

Config keys are case-insensitive, so editor tokens are matched in lower
case.

Images are persisted into the media library configured under media.*.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("addr", "127.0.0.1:8080", "listen address")
	flags.String("max-body", "2MB", "maximum request body size")
	flags.Bool("no-auth", false, "accept every request without a token")
	flags.Bool("no-media", false, "disable media persistence")

	_ = viper.BindPFlag(keyServerAddr, flags.Lookup("addr"))
	_ = viper.BindPFlag(keyServerMaxBody, flags.Lookup("max-body"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	v := viper.GetViper()

	defaults, err := loadDefaults(v)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}

	maxBody, err := parseSize(keyServerMaxBody, v.GetString(keyServerMaxBody))
	if err != nil {
		return err
	}

	noAuth, _ := cmd.Flags().GetBool("no-auth")
	auth, err := buildAuthorizer(v, noAuth)
	if err != nil {
		return err
	}

	var persister media.Persister
	var posts server.PostMarker
	if noMedia, _ := cmd.Flags().GetBool("no-media"); !noMedia {
		store, sideloader, err := openMedia(v)
		if err != nil {
			logger.Error("failed to open media library", "error", err)
			return err
		}
		defer func() { _ = store.Close() }()
		persister, posts = sideloader, store
	}

	srv := server.New(converter.New(defaults, persister), auth, posts, server.Config{
		Addr:         v.GetString(keyServerAddr),
		MaxBodyBytes: maxBody,
	})
	return srv.ListenAndServe(ctx)
}

// buildAuthorizer creates the token authorizer from server.token and
// server.editors.
func buildAuthorizer(v *viper.Viper, noAuth bool) (server.Authorizer, error) {
	if noAuth {
		logger.Warn("authentication disabled, every request may convert and persist")
		return server.AllowAll{}, nil
	}

	grants := make(map[string][]string)
	if v.IsSet(keyServerEditors) {
		editors, err := cast.ToStringMapStringSliceE(v.Get(keyServerEditors))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", keyServerEditors, err)
		}
		for token, posts := range editors {
			grants[token] = posts
		}
	}
	if token := v.GetString(keyServerToken); token != "" {
		grants[token] = []string{server.AnyPost}
	}

	auth := server.NewTokenAuthorizer(grants)
	if auth.Len() == 0 {
		return nil, errors.New("no tokens configured: set server.token or server.editors, or pass --no-auth")
	}
	logger.Debug("authorizer configured", "tokens", auth.Len())
	return auth, nil
}
