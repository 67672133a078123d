package svcrelay

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// FlagsCodec reads and rewrites the caller-supplied argument tail of a
// unit's ExecStart directive. It edits existing unit files only; it never
// creates one or adds a directive that is not already there.
type FlagsCodec struct {
	// UnitDir is the directory holding unit files. Empty means
	// <user config dir>/systemd/user, resolved on every call.
	UnitDir string

	// LaunchPrefix is the fixed base invocation preceding the flags
	LaunchPrefix string
}

// NewFlagsCodec creates a codec for the user unit directory
func NewFlagsCodec() *FlagsCodec {
	return &FlagsCodec{LaunchPrefix: DefaultLaunchPrefix}
}

// WithUnitDir sets the unit directory
func (c *FlagsCodec) WithUnitDir(dir string) *FlagsCodec {
	c.UnitDir = dir
	return c
}

// WithLaunchPrefix sets the fixed base invocation
func (c *FlagsCodec) WithLaunchPrefix(prefix string) *FlagsCodec {
	if prefix != "" {
		c.LaunchPrefix = prefix
	}
	return c
}

func (c *FlagsCodec) prefix() string {
	if c.LaunchPrefix == "" {
		return DefaultLaunchPrefix
	}
	return c.LaunchPrefix
}

func (c *FlagsCodec) dir() (string, error) {
	if c.UnitDir != "" {
		return c.UnitDir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return "", ErrNoConfigDir
	}
	return filepath.Join(base, UserUnitDir), nil
}

// UnitPath returns the definition file path for the named unit. The path
// always lies directly inside the unit directory.
func (c *FlagsCodec) UnitPath(name string) (string, error) {
	if err := CheckUnitName(name); err != nil {
		return "", err
	}
	dir, err := c.dir()
	if err != nil {
		return "", err
	}
	dir = filepath.Clean(dir)
	path := filepath.Join(dir, UnitName(name))
	if filepath.Dir(path) != dir {
		return "", fmt.Errorf("%w: %q escapes %s", ErrInvalidUnitName, name, dir)
	}
	return path, nil
}

// ReadFlags returns the flag tail of the unit's ExecStart directive. A
// missing unit file, a missing directive, or a directive that does not
// contain the launch prefix all yield an empty string.
func (c *FlagsCodec) ReadFlags(name string) (string, error) {
	unit := UnitName(name)
	path, err := c.UnitPath(unit)
	if err != nil {
		return "", &OpError{Op: OpReadFlags, Unit: unit, Err: err}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", &OpError{Op: OpReadFlags, Unit: unit, Err: fmt.Errorf("failed to read unit file: %w", err)}
	}

	return ExtractFlags(string(data), c.prefix()), nil
}

// WriteFlags replaces the flag tail of every ExecStart directive in the
// unit file and writes the document back atomically. A missing unit file
// is not an error.
func (c *FlagsCodec) WriteFlags(name, flags string) error {
	unit := UnitName(name)
	path, err := c.UnitPath(unit)
	if err != nil {
		return &OpError{Op: OpWriteFlags, Unit: unit, Err: err}
	}

	// renameio replaces the path it is given, so resolve a linked unit
	// file to keep the link intact.
	target, err := filepath.EvalSymlinks(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &OpError{Op: OpWriteFlags, Unit: unit, Err: fmt.Errorf("failed to resolve unit file: %w", err)}
	}

	info, err := os.Stat(target)
	if err != nil {
		return &OpError{Op: OpWriteFlags, Unit: unit, Err: fmt.Errorf("failed to stat unit file: %w", err)}
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return &OpError{Op: OpWriteFlags, Unit: unit, Err: fmt.Errorf("failed to read unit file: %w", err)}
	}

	out := RewriteFlags(string(data), c.prefix(), flags)
	if out == string(data) {
		return nil
	}

	if err := renameio.WriteFile(target, []byte(out), info.Mode().Perm()); err != nil {
		return &OpError{Op: OpWriteFlags, Unit: unit, Err: fmt.Errorf("failed to write unit file: %w", err)}
	}
	return nil
}

// ExtractFlags returns the text following prefix in the last ExecStart
// directive of doc, or "" if there is none or it lacks prefix.
func ExtractFlags(doc, prefix string) string {
	var execLine string
	found := false
	for _, line := range splitLines(doc) {
		if value, ok := directiveValue(line.body); ok {
			execLine = value
			found = true
		}
	}
	if !found {
		return ""
	}

	if _, flags, ok := strings.Cut(execLine, prefix); ok {
		return flags
	}
	return ""
}

// RewriteFlags returns doc with every ExecStart directive replaced by
// prefix followed by the trimmed flags. All other lines, including their
// terminators, are passed through unchanged.
func RewriteFlags(doc, prefix, flags string) string {
	directive := LaunchDirective + prefix
	if flags = strings.TrimSpace(flags); flags != "" {
		directive += " " + flags
	}

	var b strings.Builder
	b.Grow(len(doc) + len(directive))
	for _, line := range splitLines(doc) {
		if _, ok := directiveValue(line.body); ok {
			b.WriteString(directive)
		} else {
			b.WriteString(line.body)
		}
		b.WriteString(line.eol)
	}
	return b.String()
}

// directiveValue reports whether line is a launch directive and returns its
// trimmed value. Surrounding whitespace on the line is tolerated; the key
// itself is matched case-sensitively.
func directiveValue(line string) (string, bool) {
	value, ok := strings.CutPrefix(strings.TrimSpace(line), LaunchDirective)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

type docLine struct {
	body string
	eol  string
}

// splitLines splits doc into lines that remember their terminator, so
// joining body+eol for every line reproduces doc exactly.
func splitLines(doc string) []docLine {
	if doc == "" {
		return nil
	}
	lines := make([]docLine, 0, strings.Count(doc, "\n")+1)
	for doc != "" {
		i := strings.IndexByte(doc, '\n')
		if i < 0 {
			lines = append(lines, docLine{body: doc})
			break
		}
		body, eol := doc[:i], "\n"
		if strings.HasSuffix(body, "\r") {
			body, eol = body[:len(body)-1], "\r\n"
		}
		lines = append(lines, docLine{body: body, eol: eol})
		doc = doc[i+1:]
	}
	return lines
}
