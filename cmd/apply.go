package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sigplace/internal/manifest"
	"github.com/ziadkadry99/sigplace/internal/pdfdoc"
	"github.com/ziadkadry99/sigplace/internal/progress"
	"github.com/ziadkadry99/sigplace/internal/walker"
)

var applyCmd = &cobra.Command{
	Use:   "apply [flags] <pdf|dir|glob>...",
	Short: "Stamp the placements of a manifest onto PDF documents",
	Long: `Applies every placement in a YAML manifest to each input document and
writes <name>.signed.pdf under the output directory. Inputs may be files,
directories or doublestar globs such as "contracts/**/*.pdf".

Placements whose field or page a document lacks are skipped and reported;
the rest of that document is still signed. A document on which every
placement is skipped counts as failed and no output is written for it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("manifest", "m", "", "placement manifest (YAML)")
	applyCmd.Flags().StringP("out", "o", "", "output directory (overrides config output_dir)")
	applyCmd.Flags().StringSlice("exclude", nil, "glob patterns to skip")
	applyCmd.Flags().Bool("strict", false, "fail if any placement is skipped")
	applyCmd.MarkFlagRequired("manifest")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	manifestPath, _ := cmd.Flags().GetString("manifest")
	outDir, _ := cmd.Flags().GetString("out")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	strict, _ := cmd.Flags().GetBool("strict")
	if outDir == "" {
		outDir = cfg.OutputDir
	}

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}

	docs, err := walker.Expand(args, walker.WalkerConfig{Exclude: exclude})
	if err != nil {
		return fmt.Errorf("resolving inputs: %w", err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("no PDF documents found")
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Applying %d placement(s) from %s to %d document(s)\n", len(m.Placements), manifestPath, len(docs))
	}

	reporter := progress.NewReporter()
	var (
		signed, skipped int
		failed          []string
	)

	if len(docs) == 1 {
		reporter.Start(len(m.Placements))
	} else {
		reporter.Start(len(docs))
	}
	for i, doc := range docs {
		var hook func(done, total int)
		if len(docs) == 1 {
			hook = progress.Overlays(reporter, doc.RelPath)
		} else {
			reporter.Update(i+1, doc.RelPath)
		}

		n, err := applyOne(ctx, m, doc, outDir, cfg.EmbedDensity, hook)
		if err != nil {
			if ctx.Err() != nil {
				reporter.Finish()
				return ctx.Err()
			}
			failed = append(failed, fmt.Sprintf("%s: %v", doc.RelPath, err))
			continue
		}
		signed++
		skipped += n
	}
	reporter.Finish()

	for _, f := range failed {
		fmt.Fprintf(os.Stderr, "Error: %s\n", f)
	}
	fmt.Fprintf(os.Stderr, "Signed %d of %d document(s) into %s in %s", signed, len(docs), outDir, time.Since(start).Round(time.Millisecond))
	if skipped > 0 {
		fmt.Fprintf(os.Stderr, " (%d placement(s) skipped)", skipped)
	}
	fmt.Fprintln(os.Stderr)

	if len(failed) > 0 {
		return fmt.Errorf("%d document(s) failed", len(failed))
	}
	if strict && skipped > 0 {
		return fmt.Errorf("%d placement(s) skipped", skipped)
	}
	return nil
}

// applyOne stamps one document and returns how many placements were skipped.
// A document on which nothing could be embedded fails and is not written.
func applyOne(ctx context.Context, m *manifest.Manifest, doc walker.FileInfo, outDir string, density float64, hook func(done, total int)) (int, error) {
	pdf, err := pdfdoc.OpenFile(doc.Path, pdfdoc.WithDensity(density))
	if err != nil {
		return 0, err
	}
	report, err := m.Apply(ctx, pdf, hook)
	if err != nil {
		return 0, err
	}
	if verbose {
		for _, sk := range report.Skipped {
			fmt.Fprintf(os.Stderr, "  %s: skipped %s: %s\n", doc.RelPath, sk.OverlayID, sk.Reason())
		}
	}
	if err := checkEmbedded(report); err != nil {
		return len(report.Skipped), err
	}

	out := outputPath(outDir, doc)
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return 0, fmt.Errorf("creating output directory: %w", err)
	}
	if err := pdf.WriteFile(out); err != nil {
		return 0, err
	}
	return len(report.Skipped), nil
}
