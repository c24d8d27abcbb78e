package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	errs "github.com/c360/ringbuff/errors"
)

// Limits applied to every config layer before it is decoded.
const (
	maxConfigSize  = 1 << 20 // ringwatch configs are a few hundred bytes
	maxNesting     = 16      // ringwatch sections nest two levels
	maxYAMLNodes   = 10000   // nodes visited with aliases expanded
	maxYAMLAliases = 100
	maxEnvVarLen   = 4096
	maxPathLen     = 4096
)

type layerFormat int

const (
	formatJSON layerFormat = iota
	formatYAML
)

// formatOf picks the decoder from the file extension.
func formatOf(path string) (layerFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return formatJSON, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	default:
		return 0, fmt.Errorf("only JSON or YAML config files allowed: %s", path)
	}
}

// checkConfigPath rejects empty or oversized paths, relative paths that
// leave the working directory and unknown extensions.
func checkConfigPath(path string) error {
	if path == "" {
		return errors.New("empty config path")
	}
	if len(path) > maxPathLen {
		return fmt.Errorf("path too long: %d > %d", len(path), maxPathLen)
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("cannot get working directory: %w", err)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("cannot resolve absolute path: %w", err)
		}
		rel, err := filepath.Rel(cwd, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("path traversal not allowed: %s resolves outside working directory", path)
		}
	}

	_, err := formatOf(path)
	return err
}

// readConfigFile reads a regular file no larger than maxConfigSize.
func readConfigFile(path string) ([]byte, error) {
	if err := checkConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot stat config file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", path)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes > %d", info.Size(), maxConfigSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	// The file may grow between Stat and Read.
	data, err := io.ReadAll(io.LimitReader(f, maxConfigSize+1))
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}
	if len(data) > maxConfigSize {
		return nil, fmt.Errorf("config file too large: more than %d bytes", maxConfigSize)
	}
	return data, nil
}

// decodeLayer checks the structural limits for the layer's format and
// decodes it into a generic map. An empty document yields an empty map.
func decodeLayer(format layerFormat, data []byte) (map[string]any, error) {
	raw := map[string]any{}

	switch format {
	case formatYAML:
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrParsingFailed, err)
		}
		if doc.Kind == 0 {
			return raw, nil
		}
		if err := checkYAML(&doc); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrParsingFailed, err)
		}
		if err := doc.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrParsingFailed, err)
		}

	case formatJSON:
		if err := checkJSON(data); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrParsingFailed, err)
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return raw, nil
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrParsingFailed, err)
		}
	}

	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// checkJSON walks the token stream and bounds container nesting.
// Unbalanced or stray delimiters surface as syntax errors from the decoder.
func checkJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("malformed JSON: %w", err)
		}
		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
			if depth > maxNesting {
				return fmt.Errorf("JSON nesting too deep: %d > %d", depth, maxNesting)
			}
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
	}
	if depth != 0 {
		return fmt.Errorf("malformed JSON: unclosed brackets (depth=%d)", depth)
	}
	return nil
}

// yamlWalk bounds a parsed YAML tree as the decoder would see it, with
// every alias expanded in place.
type yamlWalk struct {
	nodes   int
	aliases int
}

// checkYAML rejects documents that nest too deeply or that use aliases to
// expand far beyond their size on disk.
func checkYAML(doc *yaml.Node) error {
	var w yamlWalk
	return w.visit(doc, 0)
}

func (w *yamlWalk) visit(n *yaml.Node, depth int) error {
	if n == nil {
		return nil
	}

	w.nodes++
	if w.nodes > maxYAMLNodes {
		return fmt.Errorf("YAML expands to more than %d nodes", maxYAMLNodes)
	}

	switch n.Kind {
	case yaml.AliasNode:
		w.aliases++
		if w.aliases > maxYAMLAliases {
			return fmt.Errorf("YAML uses more than %d aliases", maxYAMLAliases)
		}
		return w.visit(n.Alias, depth)
	case yaml.MappingNode, yaml.SequenceNode:
		depth++
		if depth > maxNesting {
			return fmt.Errorf("YAML nesting too deep: %d > %d", depth, maxNesting)
		}
	}

	for _, c := range n.Content {
		if err := w.visit(c, depth); err != nil {
			return err
		}
	}
	return nil
}

// writeConfigFile replaces path with data through a temp file in the same
// directory, so a reader never sees a half-written config. The result is 0600.
func writeConfigFile(path string, data []byte) error {
	if err := checkConfigPath(path); err != nil {
		return fmt.Errorf("invalid config path: %w", err)
	}
	if len(data) > maxConfigSize {
		return fmt.Errorf("config data too large: %d bytes > %d", len(data), maxConfigSize)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("cannot create config file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("cannot write config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	// CreateTemp already uses 0600; keep it explicit for the renamed file.
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// checkEnvValue bounds an environment override before it is parsed.
func checkEnvValue(key, value string) error {
	if len(value) > maxEnvVarLen {
		return fmt.Errorf("environment variable %s too long: %d > %d", key, len(value), maxEnvVarLen)
	}
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("null byte in environment variable %s", key)
	}
	return nil
}
