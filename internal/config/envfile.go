package config

import (
	"os"
	"regexp"
	"strings"
)

var stockListRe = regexp.MustCompile(`^(\s*STOCK_LIST\s*=\s*)(.*?)(\s*)$`)

// EnvFile edits the watchlist stored as STOCK_LIST in a dotenv file while
// preserving every other line (comments included).
type EnvFile struct {
	path string
}

// NewEnvFile creates an env file editor for the given path
func NewEnvFile(path string) *EnvFile {
	return &EnvFile{path: path}
}

// Path returns the env file path
func (e *EnvFile) Path() string {
	return e.path
}

// StockList returns the current watchlist value. A missing file or a missing
// STOCK_LIST line both yield an empty string.
func (e *EnvFile) StockList() (string, error) {
	text, err := e.read()
	if err != nil {
		return "", err
	}

	for _, line := range strings.Split(text, "\n") {
		m := stockListRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		return unquote(strings.TrimSpace(m[2])), nil
	}
	return "", nil
}

// SetStockList normalizes and writes the watchlist, returning the normalized
// value. Codes may be separated by commas or newlines.
func (e *EnvFile) SetStockList(value string) (string, error) {
	normalized := NormalizeStockList(value)

	text, err := e.read()
	if err != nil {
		return "", err
	}

	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if text == "" {
		lines = nil
	}

	replaced := false
	for i, line := range lines {
		m := stockListRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		lines[i] = m[1] + normalized + m[3]
		replaced = true
	}

	if !replaced {
		if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) != "" {
			lines = append(lines, "")
		}
		lines = append(lines, "STOCK_LIST="+normalized)
	}

	out := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(e.path, []byte(out), 0644); err != nil {
		return "", err
	}
	return normalized, nil
}

// NormalizeStockList collapses comma or newline separated codes into a
// single comma separated string with empty entries dropped.
func NormalizeStockList(value string) string {
	parts := strings.Split(strings.ReplaceAll(value, "\n", ","), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}

// Codes returns the watchlist as a slice of codes
func (e *EnvFile) Codes() ([]string, error) {
	raw, err := e.StockList()
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	return strings.Split(raw, ","), nil
}

func (e *EnvFile) read() (string, error) {
	data, err := os.ReadFile(e.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
