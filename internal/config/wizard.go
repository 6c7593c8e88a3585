package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to sigplace! Let's configure your signing setup.")
	fmt.Println()

	def := DefaultConfig()

	// 1. Listening port.
	portPrompt := promptui.Prompt{
		Label:    "Server port",
		Default:  strconv.Itoa(def.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	port, _ := strconv.Atoi(portStr)

	// 2. CORS.
	corsPrompt := promptui.Select{
		Label: "Allowed browser origins",
		Items: []string{
			"localhost only",
			"any origin (development)",
		},
	}
	corsIdx, _, err := corsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("origin selection: %w", err)
	}

	// 3. Embedding density.
	densityPrompt := promptui.Select{
		Label: "Signature image quality",
		Items: []string{
			"draft    : 2 px per point, smallest files",
			"standard : 3 px per point",
			"high     : 4 px per point, sharpest print",
		},
		CursorPos: 1,
	}
	densityIdx, _, err := densityPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("density selection: %w", err)
	}
	presets := []DensityPreset{DensityDraft, DensityStandard, DensityHigh}

	// 4. Idle session lifetime.
	ttlPrompt := promptui.Prompt{
		Label:   "Evict idle sessions after (0 to keep forever)",
		Default: def.SessionTTL.String(),
		Validate: func(s string) error {
			_, err := time.ParseDuration(s)
			return err
		},
	}
	ttlStr, err := ttlPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("session ttl: %w", err)
	}
	ttl, _ := time.ParseDuration(ttlStr)

	// 5. Output directory.
	outputPrompt := promptui.Prompt{
		Label:   "Output directory for signed PDFs",
		Default: def.OutputDir,
	}
	outputDir, err := outputPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}

	// Build the config.
	cfg := DefaultConfig()
	cfg.Port = port
	cfg.AllowAllOrigins = corsIdx == 1
	cfg.EmbedDensity = GetDensity(presets[densityIdx])
	cfg.SessionTTL = ttl
	cfg.OutputDir = outputDir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// validatePort accepts a TCP port number.
func validatePort(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}
