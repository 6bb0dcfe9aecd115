// Package archive writes and reads portable run archives. An archive is a
// JSON header line followed by the gzip-compressed JSON of a store.RunExport.
// The header carries a SHA-256 checksum of the compressed payload so an
// archive can be verified without decompressing it.
package archive

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kalden/ppsim/internal/store"
)

// FormatVersion is the archive layout written by Write.
const FormatVersion = 1

// Extension is the conventional archive file suffix.
const Extension = ".ppsim.gz"

// MaxDecompressedSize is the maximum allowed size of a decompressed payload (500MB).
const MaxDecompressedSize = 500 * 1024 * 1024

// Header is the plain-text first line of an archive.
type Header struct {
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	Checksum    string    `json:"checksum"`
	RunID       string    `json:"run_id"`
	Description string    `json:"description"`
	Replicate   string    `json:"replicate"`
	Tracks      int       `json:"tracks"`
	Patches     int       `json:"patches"`
	Samples     int       `json:"samples"`
}

// DefaultPath returns dir/<run-id>.ppsim.gz.
func DefaultPath(dir, runID string) string {
	return filepath.Join(dir, runID+Extension)
}

// Export writes the run and its results from s to path.
func Export(ctx context.Context, s store.ResultStore, runID, path string) (*Header, error) {
	exp, err := store.ExportRun(ctx, s, runID)
	if err != nil {
		return nil, err
	}
	return Write(path, exp)
}

// Import reads the archive at path into s, replacing any run with the same ID.
func Import(ctx context.Context, s store.ResultStore, path string) (*store.RunExport, error) {
	exp, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := store.ImportRun(ctx, s, exp); err != nil {
		return nil, err
	}
	return exp, nil
}

// Write stores exp at path: header line + gzip-compressed payload.
func Write(path string, exp *store.RunExport) (*Header, error) {
	payload, err := json.Marshal(exp)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}

	var compressed bytes.Buffer
	gzw, err := gzip.NewWriterLevel(&compressed, gzip.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := gzw.Write(payload); err != nil {
		return nil, fmt.Errorf("compressing payload: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}

	header := Header{
		Version:     FormatVersion,
		CreatedAt:   time.Now().UTC(),
		Checksum:    checksum(compressed.Bytes()),
		RunID:       exp.Run.ID,
		Description: exp.Run.Description,
		Replicate:   exp.Run.Replicate,
		Tracks:      len(exp.Tracks),
		Patches:     len(exp.Patches),
		Samples:     len(exp.Population),
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("marshaling header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(headerBytes, '\n')); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	if _, err := f.Write(compressed.Bytes()); err != nil {
		return nil, fmt.Errorf("writing compressed payload: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("closing file: %w", err)
	}
	return &header, nil
}

// Read verifies and decodes the archive at path.
func Read(path string) (*store.RunExport, error) {
	header, compressed, err := readVerified(path)
	if err != nil {
		return nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	decompressed, err := io.ReadAll(io.LimitReader(gzr, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing payload: %w", err)
	}
	if int64(len(decompressed)) > MaxDecompressedSize {
		return nil, fmt.Errorf("decompressed payload exceeds maximum size of %d bytes", MaxDecompressedSize)
	}

	var exp store.RunExport
	if err := json.Unmarshal(decompressed, &exp); err != nil {
		return nil, fmt.Errorf("parsing archive data: %w", err)
	}
	if exp.Run.ID != header.RunID {
		return nil, fmt.Errorf("payload run %q does not match header run %q", exp.Run.ID, header.RunID)
	}
	return &exp, nil
}

// ReadHeader reads only the header line of an archive.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	header, _, err := readHeader(bufio.NewReader(f))
	return header, err
}

// Verify checks the integrity of an archive without decompressing it.
func Verify(path string) (*Header, error) {
	header, _, err := readVerified(path)
	return header, err
}

func readVerified(path string) (*Header, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	header, reader, err := readHeader(bufio.NewReader(f))
	if err != nil {
		return nil, nil, err
	}
	compressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("reading compressed payload: %w", err)
	}
	if actual := checksum(compressed); actual != header.Checksum {
		return nil, nil, fmt.Errorf("checksum mismatch: expected %s, got %s", header.Checksum, actual)
	}
	return header, compressed, nil
}

func readHeader(reader *bufio.Reader) (*Header, *bufio.Reader, error) {
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("reading header line: %w", err)
	}

	var header Header
	if err := json.Unmarshal(bytes.TrimSpace(line), &header); err != nil {
		return nil, nil, fmt.Errorf("parsing header: %w", err)
	}
	if header.Version != FormatVersion {
		return nil, nil, fmt.Errorf("unsupported archive version %d", header.Version)
	}
	return &header, reader, nil
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}
