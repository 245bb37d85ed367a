// Package source rewrites the parameter block of the program under test.
//
// The block is a marker comment followed, within a small window, by plain
// assignment lines:
//
//	// GLOVE: Fine-tuned for 98% recall
//	M = 18;
//	ef_construction = 150;  // graph quality
//	ef_search = 2400;
//
// Assignments are matched by identifier, in any order. Indentation, line
// endings and anything after the first ';' are preserved.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/anntune/internal/core/domain"
	"github.com/custodia-labs/anntune/internal/core/ports/driven"
	"github.com/custodia-labs/anntune/internal/logger"
)

// assignmentPattern matches "<indent><ident> =" but not "<ident> ==".
var assignmentPattern = regexp.MustCompile(`^(\s*)([A-Za-z_][A-Za-z0-9_]*)\s*=(?:[^=]|$)`)

// Ensure Mutator implements the interface.
var _ driven.SourceMutator = (*Mutator)(nil)

// Mutator rewrites one source file in place.
type Mutator struct {
	path    string
	knobs   map[string]domain.Knob
	order   []domain.Knob
	markers []string
	comment string
	window  int
}

// NewMutator creates a mutator for target.Source inside target.WorkDir.
func NewMutator(target domain.TargetSettings, knobs []domain.Knob) *Mutator {
	path := target.Source
	if !filepath.IsAbs(path) {
		path = filepath.Join(target.WorkDir, path)
	}
	byName := make(map[string]domain.Knob, len(knobs))
	for _, k := range knobs {
		byName[k.Name] = k
	}
	return &Mutator{
		path:    path,
		knobs:   byName,
		order:   knobs,
		markers: target.Markers,
		comment: target.MarkerComment,
		window:  target.Window,
	}
}

// Path returns the file being rewritten.
func (m *Mutator) Path() string {
	return m.path
}

// Apply writes cfg into the parameter block.
func (m *Mutator) Apply(_ context.Context, cfg domain.Configuration) (*driven.MutationResult, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	out, res, err := m.rewrite(string(data), cfg)
	if err != nil {
		return nil, err
	}
	res.Path = m.path

	if out == string(data) {
		logger.Debug("Source %s already holds %s", m.path, cfg.Key())
		return res, nil
	}
	if err := writeAtomic(m.path, []byte(out)); err != nil {
		return nil, fmt.Errorf("write source: %w", err)
	}
	logger.Debug("Rewrote %s at line %d: applied %v", m.path, res.MarkerLine, res.Applied)
	return res, nil
}

// rewrite returns the new file content. It never touches lines outside the
// marker window.
func (m *Mutator) rewrite(content string, cfg domain.Configuration) (string, *driven.MutationResult, error) {
	lines := strings.SplitAfter(content, "\n")

	marker := -1
	for i, line := range lines {
		if m.isMarker(line) {
			marker = i
			break
		}
	}
	if marker < 0 {
		return "", nil, fmt.Errorf("%s: %w (looked for %s)", m.path, domain.ErrMarkerNotFound,
			strings.Join(quoteAll(m.markers), ", "))
	}

	values := make(map[string]string, len(cfg.Values))
	for _, kv := range cfg.Values {
		values[kv.Name] = m.format(kv)
	}

	body, eol := splitEOL(lines[marker])
	indent := body[:len(body)-len(strings.TrimLeft(body, " \t"))]
	lines[marker] = indent + m.comment + " " + cfg.Describe(m.order) + eol

	applied := make(map[string]bool)
	end := min(marker+m.window, len(lines)-1)
	for j := marker + 1; j <= end; j++ {
		body, eol := splitEOL(lines[j])
		match := assignmentPattern.FindStringSubmatch(body)
		if match == nil {
			continue
		}
		ident := match[2]
		value, ok := values[ident]
		if !ok {
			continue
		}
		var trailing string
		if semi := strings.IndexByte(body, ';'); semi >= 0 {
			trailing = body[semi+1:]
		}
		lines[j] = match[1] + ident + " = " + value + ";" + trailing + eol
		applied[ident] = true
	}

	res := &driven.MutationResult{MarkerLine: marker + 1}
	for _, kv := range cfg.Values {
		if applied[kv.Name] {
			res.Applied = append(res.Applied, kv.Name)
		} else {
			res.Missing = append(res.Missing, kv.Name)
		}
	}
	return strings.Join(lines, ""), res, nil
}

func (m *Mutator) isMarker(line string) bool {
	for _, marker := range m.markers {
		if marker != "" && strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

func (m *Mutator) format(kv domain.KnobValue) string {
	if k, ok := m.knobs[kv.Name]; ok {
		return k.Format(kv.Value)
	}
	return strconv.FormatFloat(kv.Value, 'g', -1, 64)
}

// splitEOL separates a line from its terminator ("\n", "\r\n" or none).
func splitEOL(line string) (string, string) {
	switch {
	case strings.HasSuffix(line, "\r\n"):
		return line[:len(line)-2], "\r\n"
	case strings.HasSuffix(line, "\n"):
		return line[:len(line)-1], "\n"
	default:
		return line, ""
	}
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strconv.Quote(s)
	}
	return out
}

// writeAtomic replaces path through a temp file in the same directory,
// keeping the original permissions.
func writeAtomic(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	tmpName = ""
	return nil
}
