package config

import "time"

// DensityPreset names a raster density used when resampling signature
// images for embedding.
type DensityPreset string

const (
	DensityDraft    DensityPreset = "draft"
	DensityStandard DensityPreset = "standard"
	DensityHigh     DensityPreset = "high"
)

// Config is the top-level sigplace configuration, corresponding to .sigplace.yml.
type Config struct {
	Port            int           `yaml:"port" koanf:"port"`
	AllowAllOrigins bool          `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	MaxUploadMB     int           `yaml:"max_upload_mb" koanf:"max_upload_mb"`
	MinWidthPx      float64       `yaml:"min_width_px" koanf:"min_width_px"`
	MinHeightPx     float64       `yaml:"min_height_px" koanf:"min_height_px"`
	HandlePx        float64       `yaml:"handle_px" koanf:"handle_px"`
	PreviewDPI      float64       `yaml:"preview_dpi" koanf:"preview_dpi"`
	EmbedDensity    float64       `yaml:"embed_density" koanf:"embed_density"`
	SessionTTL      time.Duration `yaml:"session_ttl" koanf:"session_ttl"`
	OutputDir       string        `yaml:"output_dir" koanf:"output_dir"`
	AuditEntries    int           `yaml:"audit_entries" koanf:"audit_entries"`
}
