package internal

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvOptions configures environment variable source behavior.
type EnvOptions struct {
	Prefix    string // Prefix for environment variables (e.g., "APP_")
	Lowercase bool   // Convert keys to lowercase
	Uppercase bool   // Convert keys to uppercase
}

// EnvSource loads configuration from environment variables.
type EnvSource struct {
	prefix    string
	lowercase bool
	uppercase bool
}

// NewEnvSource creates a new environment variable source.
func NewEnvSource(opts EnvOptions) *EnvSource {
	return &EnvSource{
		prefix:    opts.Prefix,
		lowercase: opts.Lowercase,
		uppercase: opts.Uppercase,
	}
}

// Load reads configuration from environment variables.
func (s *EnvSource) Load(ctx context.Context) (map[string]string, error) {
	config := make(map[string]string)

	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		if s.prefix != "" {
			if !strings.HasPrefix(key, s.prefix) {
				continue
			}
			key = strings.TrimPrefix(key, s.prefix)
		}

		switch {
		case s.lowercase:
			key = strings.ToLower(key)
		case s.uppercase:
			key = strings.ToUpper(key)
		}

		config[key] = value
	}

	return config, nil
}

// FileSource loads configuration from a YAML file.
type FileSource struct {
	path string
}

// NewFileSource creates a new file source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load reads and flattens the file. A missing file yields an empty snapshot.
func (s *FileSource) Load(ctx context.Context) (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to read file %s: %w", s.path, err)
	}

	return ParseYAML(data)
}

// ParseYAML flattens a YAML document into upper-cased, "_"-joined keys.
// Scalars keep their literal text; sequences are joined with commas.
func ParseYAML(data []byte) (map[string]string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}

	out := make(map[string]string)
	if len(root.Content) == 0 {
		return out, nil
	}
	if err := flatten("", root.Content[0], out); err != nil {
		return nil, err
	}
	return out, nil
}

func flatten(prefix string, node *yaml.Node, out map[string]string) error {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := strings.ToUpper(node.Content[i].Value)
			if prefix != "" {
				key = prefix + "_" + key
			}
			if err := flatten(key, node.Content[i+1], out); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		items := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("key %s: only scalar sequences are supported", prefix)
			}
			items = append(items, item.Value)
		}
		out[prefix] = strings.Join(items, ",")
	case yaml.ScalarNode:
		if prefix == "" {
			return fmt.Errorf("top-level yaml value must be a mapping")
		}
		out[prefix] = node.Value
	case yaml.AliasNode:
		return flatten(prefix, node.Alias, out)
	}
	return nil
}

// MapSource serves a fixed snapshot.
type MapSource struct {
	values map[string]string
}

// NewMapSource creates a new map source holding a copy of values.
func NewMapSource(values map[string]string) *MapSource {
	cp := make(map[string]string, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &MapSource{values: cp}
}

// Load returns a copy of the snapshot.
func (s *MapSource) Load(ctx context.Context) (map[string]string, error) {
	cp := make(map[string]string, len(s.values))
	for k, v := range s.values {
		cp[k] = v
	}
	return cp, nil
}
