// Package archive implements the deterministic bundle/unbundle codec
// that turns a Package into a gzipped tar archive and back. Every field
// that could vary between machines or between two runs on the same
// inputs (mtime, mode, owner, gzip metadata) is pinned to a constant so
// that bundling the same logical package twice yields byte-identical
// output and the resulting digest is stable.
package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/buffrs-dev/buffrs/pkg/fsutil"
	"github.com/buffrs-dev/buffrs/pkg/manifest"
	"github.com/buffrs-dev/buffrs/pkg/pkg"
)

// manifestEntryName is the archive entry holding the manifest verbatim.
const manifestEntryName = "Proto.toml"

// protoPrefix namespaces every proto file entry within the archive.
const protoPrefix = "proto/"

// pinnedMode is applied to every archive entry regardless of the mode
// the source file had on disk.
const pinnedMode = 0o644

// pinnedModTime is the fixed mtime every entry is written with.
var pinnedModTime = time.Unix(0, 0)

// Bundle serializes a Package into a gzip-compressed tar archive. Entries
// are written in sorted order: the manifest first, then each proto file
// by ascending path.
func Bundle(p *pkg.Package) ([]byte, error) {
	var buf bytes.Buffer

	gz, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("create gzip writer: %w", err)
	}
	tw := tar.NewWriter(gz)

	if err := writeEntry(tw, manifestEntryName, p.ManifestBytes); err != nil {
		return nil, err
	}
	for _, path := range p.SortedPaths() {
		if err := writeEntry(tw, protoPrefix+path, p.Files[path]); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("close tar writer: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("close gzip writer: %w", err)
	}

	return buf.Bytes(), nil
}

func writeEntry(tw *tar.Writer, name string, content []byte) error {
	header := &tar.Header{
		Name:     name,
		Typeflag: tar.TypeReg,
		Mode:     pinnedMode,
		Size:     int64(len(content)),
		ModTime:  pinnedModTime,
		Uname:    "",
		Gname:    "",
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write tar header for %s: %w", name, err)
	}
	if _, err := tw.Write(content); err != nil {
		return fmt.Errorf("write tar content for %s: %w", name, err)
	}
	return nil
}

// Digest computes the archive's content-addressed key: sha256 over the
// compressed bytes, rendered as "sha256:<hex>".
func Digest(archiveBytes []byte) string {
	sum := sha256.Sum256(archiveBytes)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// Unbundle decompresses and validates an archive, writing its proto/
// files under destDir and returning the parsed manifest. Each entry path
// is checked against escaping destDir before that entry is written;
// entries earlier in the archive may already be on disk when a later
// entry is rejected.
func Unbundle(archiveBytes []byte, destDir string) (*manifest.Manifest, error) {
	gz, err := gzip.NewReader(bytes.NewReader(archiveBytes))
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)

	var manifestBytes []byte
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar entry: %w", err)
		}

		targetName, isManifest, err := validateEntry(header.Name)
		if err != nil {
			return nil, err
		}

		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("read content for %s: %w", header.Name, err)
		}

		if isManifest {
			manifestBytes = content
			continue
		}

		targetPath := filepath.Join(destDir, targetName)
		if err := fsutil.EnsureFileDir(targetPath); err != nil {
			return nil, fmt.Errorf("create parent directory for %s: %w", targetName, err)
		}
		if err := os.WriteFile(targetPath, content, fsutil.FileModeDefault); err != nil {
			return nil, fmt.Errorf("write %s: %w", targetName, err)
		}
	}

	if manifestBytes == nil {
		return nil, fmt.Errorf("%w: archive has no %s entry", UnsafeArchiveEntry, manifestEntryName)
	}

	m, err := manifest.Parse(manifestBytes)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// PeekManifest parses only the manifest entry of an archive, without
// extracting any proto file to disk. Used by the graph builder to
// discover a registry candidate's dependencies before installation.
func PeekManifest(archiveBytes []byte) (*manifest.Manifest, error) {
	gz, err := gzip.NewReader(bytes.NewReader(archiveBytes))
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar entry: %w", err)
		}
		if header.Name != manifestEntryName {
			continue
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("read content for %s: %w", header.Name, err)
		}
		return manifest.Parse(content)
	}
	return nil, fmt.Errorf("%w: archive has no %s entry", UnsafeArchiveEntry, manifestEntryName)
}

// validateEntry checks a tar entry's name for path traversal and
// classifies it as the manifest or a proto file relative to protoPrefix.
func validateEntry(name string) (relPath string, isManifest bool, err error) {
	if name == manifestEntryName {
		return "", true, nil
	}
	if !strings.HasPrefix(name, protoPrefix) {
		return "", false, fmt.Errorf("%w: %s", UnsafeArchiveEntry, name)
	}
	rel := strings.TrimPrefix(name, protoPrefix)
	cleaned := filepath.Clean(rel)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || filepath.IsAbs(cleaned) {
		return "", false, fmt.Errorf("%w: %s", UnsafeArchiveEntry, name)
	}
	return cleaned, false, nil
}
