// Package archive keeps the compiler and program output of every trial as
// zstd-compressed files, one per stream: <dir>/<trial-id>.<stream>.log.zst.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/custodia-labs/anntune/internal/core/domain"
	"github.com/custodia-labs/anntune/internal/core/ports/driven"
)

const suffix = ".log.zst"

// Ensure Archive implements the interface.
var _ driven.OutputArchive = (*Archive)(nil)

// Archive stores trial output streams on disk.
// EncodeAll and DecodeAll are safe for concurrent use, so one encoder and
// one decoder serve every call.
type Archive struct {
	dir string
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// New creates an archive rooted at dir.
func New(dir string) (*Archive, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Archive{dir: dir, enc: enc, dec: dec}, nil
}

// Dir returns the archive directory.
func (a *Archive) Dir() string {
	return a.dir
}

// Save compresses data into the stream file, replacing any previous content.
func (a *Archive) Save(_ context.Context, trialID, stream string, data []byte) error {
	path, err := a.path(trialID, stream)
	if err != nil {
		return err
	}

	compressed := a.enc.EncodeAll(data, make([]byte, 0, len(data)/4))

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0600); err != nil {
		return fmt.Errorf("write %s output: %w", stream, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s output: %w", stream, err)
	}
	return nil
}

// Load returns the decompressed stream.
func (a *Archive) Load(_ context.Context, trialID, stream string) ([]byte, error) {
	path, err := a.path(trialID, stream)
	if err != nil {
		return nil, err
	}

	compressed, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s output of trial %s: %w", stream, trialID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s output: %w", stream, err)
	}

	data, err := a.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress %s output: %w", stream, err)
	}
	return data, nil
}

// Streams lists the stored streams of a trial: build, stdout and stderr
// first, then anything else alphabetically.
func (a *Archive) Streams(_ context.Context, trialID string) ([]string, error) {
	if err := checkName(trialID); err != nil {
		return nil, err
	}

	matches, err := filepath.Glob(filepath.Join(a.dir, trialID+".*"+suffix))
	if err != nil {
		return nil, fmt.Errorf("list streams: %w", err)
	}

	var names []string
	for _, m := range matches {
		base := filepath.Base(m)
		names = append(names, strings.TrimSuffix(strings.TrimPrefix(base, trialID+"."), suffix))
	}

	rank := map[string]int{driven.StreamBuild: 0, driven.StreamStdout: 1, driven.StreamStderr: 2}
	sort.Slice(names, func(i, j int) bool {
		ri, iok := rank[names[i]]
		rj, jok := rank[names[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return names[i] < names[j]
		}
	})
	return names, nil
}

func (a *Archive) path(trialID, stream string) (string, error) {
	if err := checkName(trialID); err != nil {
		return "", err
	}
	if err := checkName(stream); err != nil {
		return "", err
	}
	return filepath.Join(a.dir, trialID+"."+stream+suffix), nil
}

func checkName(s string) error {
	if s == "" || strings.ContainsAny(s, `/\.*?[`) {
		return fmt.Errorf("%w: archive name %q", domain.ErrInvalidInput, s)
	}
	return nil
}
