package binary

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var gzipMagic = []byte{0x1f, 0x8b}

// Extractor turns a downloaded artifact into the executable file. Release
// assets are usually the bare binary; a tar.gz archive is searched for the
// first member named like the binary.
type Extractor struct {
	// Patterns are matched against archive member base names, in order.
	Patterns []string
}

// NewExtractor creates an extractor that picks "<name>-*" or "<name>".
func NewExtractor(name string) *Extractor {
	return &Extractor{Patterns: []string{name + "-*", name}}
}

// Extract writes the executable from src to destPath with mode 0755.
func (e *Extractor) Extract(src, destPath string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	head, _ := br.Peek(len(gzipMagic))
	if bytes.Equal(head, gzipMagic) {
		return e.extractFromTarGz(br, destPath)
	}
	return writeExecutable(destPath, br)
}

// MatchMember reports whether an archive member should be installed.
func (e *Extractor) MatchMember(name string) bool {
	base := path.Base(name)
	for _, p := range e.Patterns {
		if ok, _ := path.Match(p, base); ok {
			return true
		}
	}
	return false
}

func (e *Extractor) extractFromTarGz(r io.Reader, destPath string) error {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return fmt.Errorf("no member matching %s in archive", strings.Join(e.Patterns, " or "))
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		if header.Typeflag != tar.TypeReg || !e.MatchMember(header.Name) {
			continue
		}

		// Security check: prevent path traversal
		if !safeMemberName(header.Name) {
			return fmt.Errorf("illegal file path: %s", header.Name)
		}

		return writeExecutable(destPath, tarReader)
	}
}

func safeMemberName(name string) bool {
	if path.IsAbs(name) || filepath.IsAbs(name) {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(name), "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

func writeExecutable(destPath string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	outFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(outFile, r); err != nil {
		outFile.Close()
		return fmt.Errorf("write file: %w", err)
	}

	if err := outFile.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}

	return SetExecutable(destPath)
}

// SetExecutable sets executable permissions on a file
func SetExecutable(file string) error {
	// 0755 (rwxr-xr-x) regardless of umask
	if err := os.Chmod(file, 0755); err != nil {
		return fmt.Errorf("set executable: %w", err)
	}
	return nil
}
