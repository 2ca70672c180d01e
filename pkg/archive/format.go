package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mholt/archives"

	pkgerrors "github.com/glorpus-work/depot/pkg/errors"
)

// Format identifies one of the supported archive containers.
type Format int

// Supported formats.
const (
	FormatUnknown Format = iota
	FormatTarGz
	FormatTarBz2
	FormatTarZst
	FormatZip
)

var formatNames = map[Format]string{
	FormatTarGz:  "tar.gz",
	FormatTarBz2: "tar.bz2",
	FormatTarZst: "tar.zst",
	FormatZip:    "zip",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

// Extension returns the canonical file extension including the leading dot.
func (f Format) Extension() string {
	if f == FormatUnknown {
		return ""
	}
	return "." + f.String()
}

// extensions are matched case-insensitively against the end of a file name.
var extensions = []struct {
	suffix string
	format Format
}{
	{".tar.gz", FormatTarGz},
	{".tgz", FormatTarGz},
	{".tar.bz2", FormatTarBz2},
	{".tbz2", FormatTarBz2},
	{".tbz", FormatTarBz2},
	{".tar.zst", FormatTarZst},
	{".tzst", FormatTarZst},
	{".zip", FormatZip},
}

var magics = []struct {
	prefix []byte
	format Format
}{
	{[]byte{0x1F, 0x8B, 0x08}, FormatTarGz},
	{[]byte{0x42, 0x5A, 0x68}, FormatTarBz2},
	{[]byte{0x50, 0x4B, 0x03, 0x04}, FormatZip},
	{[]byte{0x28, 0xB5, 0x2F, 0xFD}, FormatTarZst},
}

// ParseFormat maps a format name as written in a package description
// ("tar.gz", "tgz", "gztar", "zip", ...) to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "tar.gz", "tgz", "gztar", "targz":
		return FormatTarGz, nil
	case "tar.bz2", "tbz2", "tbz", "bztar", "tarbz2":
		return FormatTarBz2, nil
	case "tar.zst", "tzst", "zstdtar", "zsttar", "tarzst":
		return FormatTarZst, nil
	case "zip":
		return FormatZip, nil
	}
	return FormatUnknown, fmt.Errorf("archive format %q: %w", name, pkgerrors.ErrFormat)
}

// FormatFromName returns the format implied by a file name's extension.
func FormatFromName(name string) (Format, bool) {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext.suffix) {
			return ext.format, true
		}
	}
	return FormatUnknown, false
}

// DetectType determines the format of the archive at path from its extension,
// falling back to the leading magic bytes.
func DetectType(path string) (Format, error) {
	if f, ok := FormatFromName(path); ok {
		return f, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return FormatUnknown, pkgerrors.Wrapf(err, "failed to open %s", path)
	}
	defer func() { _ = file.Close() }()

	header := make([]byte, 4)
	n, err := io.ReadFull(file, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FormatUnknown, pkgerrors.Wrapf(err, "failed to read %s", path)
	}
	header = header[:n]
	for _, m := range magics {
		if bytes.HasPrefix(header, m.prefix) {
			return m.format, nil
		}
	}
	return FormatUnknown, fmt.Errorf("cannot determine archive type of %s: %w", path, pkgerrors.ErrFormat)
}

func extractor(f Format) (archives.Extractor, error) {
	switch f {
	case FormatTarGz:
		return archives.CompressedArchive{Compression: archives.Gz{}, Extraction: archives.Tar{}}, nil
	case FormatTarBz2:
		return archives.CompressedArchive{Compression: archives.Bz2{}, Extraction: archives.Tar{}}, nil
	case FormatTarZst:
		return archives.CompressedArchive{Compression: archives.Zstd{}, Extraction: archives.Tar{}}, nil
	case FormatZip:
		return archives.Zip{}, nil
	}
	return nil, fmt.Errorf("no extractor for %s: %w", f, pkgerrors.ErrFormat)
}

func archiver(f Format) (archives.Archiver, error) {
	switch f {
	case FormatTarGz:
		return archives.CompressedArchive{Compression: archives.Gz{}, Archival: archives.Tar{}}, nil
	case FormatTarBz2:
		return archives.CompressedArchive{Compression: archives.Bz2{}, Archival: archives.Tar{}}, nil
	case FormatTarZst:
		return archives.CompressedArchive{Compression: archives.Zstd{}, Archival: archives.Tar{}}, nil
	case FormatZip:
		return archives.Zip{}, nil
	}
	return nil, fmt.Errorf("no archiver for %s: %w", f, pkgerrors.ErrFormat)
}
