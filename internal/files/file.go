// Package files names and creates destination files for incoming transfers.
package files

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxFileNameLength = 255
	fallbackName      = "unnamed"
	maxAttempts       = 10000
)

var ErrNoAvailableName = errors.New("no available file name")

func HashFile(r io.Reader) (string, error) {
	hash := sha256.New()
	if _, err := io.Copy(hash, r); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

// ExtractFileName returns the last path element, treating both slash kinds
// as separators regardless of platform.
func ExtractFileName(path string) string {
	path = strings.ReplaceAll(path, `\`, "/")
	parts := strings.Split(path, "/")
	return parts[len(parts)-1]
}

// SanitizeName turns a name announced by a remote peer into a single, safe
// path element.
func SanitizeName(name string) string {
	name = ExtractFileName(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == utf8.RuneError {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	if name == "" || name == "." || name == ".." {
		return fallbackName
	}
	if len(name) <= MaxFileNameLength {
		return name
	}

	base, ext := splitExt(name)
	if len(ext) >= MaxFileNameLength/2 {
		ext = ""
	}
	base = truncate(base, MaxFileNameLength-len(ext))
	return base + ext
}

// NewAvailableFile creates name inside dir, or "name (1).ext", "name (2).ext"
// and so on when it is taken. The file is created exclusively so concurrent
// receivers never share a path.
func NewAvailableFile(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	base, ext := splitExt(name)
	for i := 0; i < maxAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", base, i, ext)
		}

		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %s in %s", ErrNoAvailableName, name, dir)
}

// DirProvider places incoming files in Dir.
type DirProvider struct {
	Dir string
}

func (p DirProvider) NewFile(name string) (*os.File, error) {
	dir := p.Dir
	if dir == "" {
		dir = "."
	}
	return NewAvailableFile(dir, SanitizeName(name))
}

// splitExt keeps dotfiles such as ".bashrc" whole.
func splitExt(name string) (string, string) {
	ext := filepath.Ext(name)
	if ext == name || ext == "." {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	s = s[:max]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
