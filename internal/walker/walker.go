// Package walker finds the PDF documents an offline apply run should stamp.
package walker

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultMaxFileSize is the maximum document size to process (64 MB).
const DefaultMaxFileSize int64 = 64 << 20

// pdfMagic opens every PDF file.
var pdfMagic = []byte("%PDF-")

// FileInfo holds metadata about a single document discovered during traversal.
type FileInfo struct {
	Path        string // Absolute path on disk.
	RelPath     string // Path relative to the root directory or glob base.
	Size        int64  // File size in bytes.
	ContentHash string // SHA-256 hex digest of the file content.
}

// WalkerConfig controls the behaviour of the Walk function.
type WalkerConfig struct {
	RootDir     string   // Root directory to walk.
	Include     []string // Glob patterns; only matching files are included.
	Exclude     []string // Glob patterns; matching files are excluded.
	MaxFileSize int64    // Files larger than this are skipped (0 = use default).
}

// Walk traverses the directory tree rooted at config.RootDir and returns
// metadata for every PDF that passes filtering. Files without a PDF header
// and previously signed outputs are skipped.
func Walk(config WalkerConfig) ([]FileInfo, error) {
	root, err := filepath.Abs(config.RootDir)
	if err != nil {
		return nil, fmt.Errorf("walker: resolve root: %w", err)
	}

	maxSize := config.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	var files []FileInfo

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Skip entries we cannot read instead of aborting.
			return nil
		}

		// Skip default-excluded directories.
		if d.IsDir() {
			if path != root && shouldExcludeDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		// Only process regular files.
		if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		// Apply user-defined include/exclude filters.
		if !MatchesInclude(relPath, config.Include) {
			return nil
		}
		if MatchesExclude(relPath, config.Exclude) || IsSignedOutput(relPath) {
			return nil
		}

		fi, ok := inspect(path, relPath, maxSize)
		if ok {
			files = append(files, fi)
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("walker: traversal: %w", err)
	}

	return files, nil
}

// Expand resolves command-line arguments into documents. Each argument may
// be a file, a directory (walked with the given config's filters) or a
// doublestar glob such as "contracts/**/*.pdf". Results are de-duplicated
// and sorted by path.
func Expand(args []string, config WalkerConfig) ([]FileInfo, error) {
	maxSize := config.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	seen := make(map[string]bool)
	var files []FileInfo
	add := func(fi FileInfo) {
		if !seen[fi.Path] {
			seen[fi.Path] = true
			files = append(files, fi)
		}
	}

	for _, arg := range args {
		st, err := os.Stat(arg)
		switch {
		case err == nil && st.IsDir():
			dirCfg := config
			dirCfg.RootDir = arg
			found, err := Walk(dirCfg)
			if err != nil {
				return nil, err
			}
			for _, fi := range found {
				add(fi)
			}

		case err == nil:
			fi, ok := inspect(arg, filepath.Base(arg), maxSize)
			if !ok {
				return nil, fmt.Errorf("walker: %s is not a PDF document", arg)
			}
			add(fi)

		default:
			base, pattern := doublestar.SplitPattern(filepath.ToSlash(arg))
			if !doublestar.ValidatePattern(pattern) {
				return nil, fmt.Errorf("walker: invalid pattern %q", arg)
			}
			matches, err := doublestar.Glob(os.DirFS(base), pattern, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("walker: expanding %s: %w", arg, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("walker: no documents match %s", arg)
			}
			for _, m := range matches {
				if MatchesExclude(m, config.Exclude) || IsSignedOutput(m) {
					continue
				}
				if fi, ok := inspect(filepath.Join(base, filepath.FromSlash(m)), m, maxSize); ok {
					add(fi)
				}
			}
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// inspect builds a FileInfo for path if it is a PDF within the size limit.
func inspect(path, relPath string, maxSize int64) (FileInfo, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileInfo{}, false
	}
	info, err := os.Stat(abs)
	if err != nil || info.Size() > maxSize {
		return FileInfo{}, false
	}
	if !isPDF(abs) {
		return FileInfo{}, false
	}
	hash, err := hashFile(abs)
	if err != nil {
		return FileInfo{}, false
	}
	return FileInfo{
		Path:        abs,
		RelPath:     filepath.ToSlash(relPath),
		Size:        info.Size(),
		ContentHash: hash,
	}, true
}

// isPDF reads the first 1024 bytes of a file and looks for the PDF header,
// which readers accept anywhere in that window.
func isPDF(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 1024)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false
	}
	return bytes.Contains(buf[:n], pdfMagic)
}

// hashFile computes the SHA-256 digest of the given file.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
