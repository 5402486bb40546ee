package commands

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/scriptpack/internal/bundler"
	"github.com/wolfeidau/scriptpack/internal/devcert"
	"github.com/wolfeidau/scriptpack/internal/devserver"
	"github.com/wolfeidau/scriptpack/internal/profile"
	"gopkg.in/yaml.v3"
)

type ServeCmd struct {
	Profile     string `help:"profile to watch and serve" default:"webDevProd" env:"SCRIPTPACK_SERVE_PROFILE"`
	Root        string `help:"project root directory" default:"." env:"SCRIPTPACK_ROOT" type:"path"`
	Listen      string `help:"dev server listen address, overrides the profile" env:"SCRIPTPACK_LISTEN"`
	Cert        string `help:"path to TLS cert file" default:"" env:"SCRIPTPACK_TLS_CERT"`
	Key         string `help:"path to TLS key file" default:"" env:"SCRIPTPACK_TLS_KEY"`
	CertDir     string `help:"directory holding the generated development certificate" default:".scriptpack" env:"SCRIPTPACK_CERT_DIR"`
	Config      string `help:"YAML or JSON file overriding dev server settings" type:"existingfile" env:"SCRIPTPACK_DEV_SERVER_CONFIG"`
	FontCommand string `help:"font regeneration command, overrides the profile" env:"SCRIPTPACK_FONT_COMMAND"`
	NoTLS       bool   `help:"serve plain HTTP" default:"false" env:"SCRIPTPACK_NO_TLS"`
	NoWatch     bool   `help:"serve without building or watching the sources" default:"false" env:"SCRIPTPACK_NO_WATCH"`
	Tracing     bool   `help:"enable tracing" default:"false" env:"SCRIPTPACK_TRACING"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	shutdown := setup(ctx, globals, c.Tracing)
	defer shutdown()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profiles, err := resolveProfiles(ctx, c.Root, []string{c.Profile})
	if err != nil {
		return err
	}
	p := profiles[0]

	settings, err := c.devServerSettings(p)
	if err != nil {
		return err
	}

	cfg := devserver.Config{DevServer: settings, OutputDir: p.Output.Path}
	if settings.TLS {
		cert, err := c.certificate(settings.AllowedHosts)
		if err != nil {
			return err
		}
		cfg.Certificate = &cert
	}

	srv, err := devserver.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create dev server: %w", err)
	}

	log.Info().Str("version", globals.Version).Str("profile", p.Name).Msg("Starting scriptpack dev server")

	if !c.NoWatch {
		pipeline := bundler.New(p)
		go func() {
			if err := pipeline.Watch(ctx); err != nil {
				log.Error().Err(err).Str("profile", p.Name).Msg("Watch stopped")
				stop()
			}
		}()
	}

	return srv.ListenAndServe(ctx)
}

// devServerSettings layers the config file and flags over the profile's dev
// server section.
func (c *ServeCmd) devServerSettings(p *profile.Profile) (profile.DevServer, error) {
	settings := profile.DefaultDevServer(p.RootDir)
	if p.DevServer != nil {
		settings = p.DevServer.Clone()
	}

	if c.Config != "" {
		override, err := loadDevServerConfig(c.Config)
		if err != nil {
			return profile.DevServer{}, err
		}
		settings = settings.Overlay(override)
	}

	flags := profile.DevServerOverride{Listen: c.Listen, FontCommand: c.FontCommand}
	if c.NoTLS {
		flags.TLS = new(bool)
	}
	return settings.Overlay(flags), nil
}

func (c *ServeCmd) certificate(hosts []string) (tls.Certificate, error) {
	if c.Cert != "" || c.Key != "" {
		return devcert.Load(c.Cert, c.Key)
	}

	dir := c.CertDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(c.Root, dir)
	}
	return devcert.LoadOrGenerate(dir, hosts)
}

func loadDevServerConfig(path string) (profile.DevServerOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return profile.DevServerOverride{}, fmt.Errorf("failed to read dev server config: %w", err)
	}

	var cfg profile.DevServerOverride
	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return profile.DevServerOverride{}, fmt.Errorf("failed to parse JSON config: %w", err)
		}
		return cfg, nil
	}

	// Default to YAML
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return profile.DevServerOverride{}, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return cfg, nil
}
