// Package archive implements the container format for backup snapshots:
// a TAR stream of named byte payloads wrapped in gzip compression.
//
// The package is a pure data transform. It has no knowledge of snapshot
// semantics and touches neither the filesystem nor the database, so the
// full behavior is covered by round-trip tests.
package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	// ErrInvalidFormat indicates input that is not a valid gzip stream.
	// This is the first validation gate for any uploaded or imported file.
	ErrInvalidFormat = errors.New("archive: invalid format")

	// ErrCorrupt indicates a gzip stream whose inner TAR container is
	// truncated or structurally inconsistent.
	ErrCorrupt = errors.New("archive: corrupt container")
)

// Entry is a named byte payload inside the container.
// Name is a slash-separated relative path; it identifies the payload and,
// for media entries, doubles as the filesystem-relative restore path.
type Entry struct {
	Name    string
	Content []byte
}

// Encode writes entries into a TAR container and returns the raw bytes.
// Entries keep their order. An empty entry list produces a valid,
// terminator-only container; zero-length content is valid.
//
// Output is deterministic for a given entry list except for the embedded
// modification times.
func Encode(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	now := time.Now().UTC()
	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.Name,
			Mode:     0644,
			Size:     int64(len(e.Content)),
			ModTime:  now,
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("writing header for %s: %w", e.Name, err)
		}
		if _, err := tw.Write(e.Content); err != nil {
			return nil, fmt.Errorf("writing content for %s: %w", e.Name, err)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing container: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a TAR container and returns its entries in order.
// Non-regular-file entries (directories, links) are skipped. A declared
// content length inconsistent with the remaining input fails with ErrCorrupt.
func Decode(data []byte) ([]Entry, error) {
	tr := tar.NewReader(bytes.NewReader(data))

	entries := []Entry{}
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrCorrupt, hdr.Name, err)
		}
		entries = append(entries, Entry{Name: hdr.Name, Content: content})
	}

	return entries, nil
}

// Compress gzips data.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)

	if _, err := gw.Write(data); err != nil {
		return nil, fmt.Errorf("compressing: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing compression: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress gunzips data. Input that is not a valid gzip stream fails
// with ErrInvalidFormat; no partial output is returned.
func Decompress(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	defer gr.Close()

	out, err := io.ReadAll(gr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return out, nil
}
