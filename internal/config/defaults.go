package config

import "time"

// densityPresets maps each preset to raster pixels per PDF point.
var densityPresets = map[DensityPreset]float64{
	DensityDraft:    2.0,
	DensityStandard: 3.0,
	DensityHigh:     4.0,
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:         8080,
		MaxUploadMB:  32,
		MinWidthPx:   50,
		MinHeightPx:  25,
		HandlePx:     12,
		PreviewDPI:   72,
		EmbedDensity: densityPresets[DensityStandard],
		SessionTTL:   30 * time.Minute,
		OutputDir:    "signed",
		AuditEntries: 1000,
	}
}

// GetDensity returns the density for the given preset.
// Returns the standard density if the preset is not found.
func GetDensity(p DensityPreset) float64 {
	if d, ok := densityPresets[p]; ok {
		return d
	}
	return densityPresets[DensityStandard]
}

// MaxUploadBytes returns the request body limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
