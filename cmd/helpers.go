package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ziadkadry99/sigplace/internal/audit"
	"github.com/ziadkadry99/sigplace/internal/config"
	"github.com/ziadkadry99/sigplace/internal/embed"
	"github.com/ziadkadry99/sigplace/internal/geometry"
	"github.com/ziadkadry99/sigplace/internal/session"
	"github.com/ziadkadry99/sigplace/internal/walker"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `sigplace init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// sessionOptions derives per-session settings from the config. trail may
// be nil.
func sessionOptions(cfg *config.Config, trail *audit.Store) session.Options {
	return session.Options{
		MinSize:    geometry.Size{Width: cfg.MinWidthPx, Height: cfg.MinHeightPx},
		HandleSize: cfg.HandlePx,
		PreviewDPI: cfg.PreviewDPI,
		Density:    cfg.EmbedDensity,
		Audit:      trail,
	}
}

// auditStore returns the session audit trail, or nil when the config
// disables it.
func auditStore(cfg *config.Config) *audit.Store {
	if cfg.AuditEntries == 0 {
		return nil
	}
	return audit.NewStore(cfg.AuditEntries)
}

// evictInterval is how often idle sessions are checked for: a quarter of
// the TTL, bounded to [10s, 5m].
func evictInterval(ttl time.Duration) time.Duration {
	iv := ttl / 4
	if iv < 10*time.Second {
		iv = 10 * time.Second
	}
	if iv > 5*time.Minute {
		iv = 5 * time.Minute
	}
	return iv
}

// outputPath mirrors a document's relative path under outDir, renamed to
// its signed output name.
func outputPath(outDir string, doc walker.FileInfo) string {
	rel := filepath.FromSlash(doc.RelPath)
	return filepath.Join(outDir, filepath.Dir(rel), walker.OutputName(rel))
}

// errNothingEmbedded fails a document on which every placement was skipped.
var errNothingEmbedded = errors.New("no placement could be embedded")

// checkEmbedded rejects a report that embedded nothing, quoting the first
// skip reason.
func checkEmbedded(report embed.Report) error {
	if len(report.Embedded) > 0 {
		return nil
	}
	if len(report.Skipped) == 0 {
		return errNothingEmbedded
	}
	sk := report.Skipped[0]
	return fmt.Errorf("%w: %s: %s", errNothingEmbedded, sk.OverlayID, sk.Reason())
}
