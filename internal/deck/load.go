package deck

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// Format is a deck file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

//go:embed schema.json
var schemaJSON []byte

//go:embed default_deck.yaml
var defaultDeck []byte

const schemaURL = "https://deckviz.dev/schemas/deck.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// FormatFor infers the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported deck file extension %q", filepath.Ext(path))
}

// Load reads, validates and decodes the deck at path.
func Load(path string) (*Deck, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading deck: %w", err)
	}
	d, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Default returns the built-in deck.
func Default() (*Deck, error) {
	return Parse(defaultDeck, FormatYAML)
}

// DefaultSource returns the raw YAML of the built-in deck.
func DefaultSource() []byte {
	return bytes.Clone(defaultDeck)
}

// Parse decodes data in the given format. The document is first decoded into
// a generic value so one JSON Schema covers every format, then into a Deck.
func Parse(data []byte, format Format) (*Deck, error) {
	var raw any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: yaml: %v", ErrInvalidDeck, err)
		}
	case FormatTOML:
		m := map[string]any{}
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: toml: %v", ErrInvalidDeck, err)
		}
		raw = m
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: json: %v", ErrInvalidDeck, err)
		}
	default:
		return nil, fmt.Errorf("unsupported deck format %q", format)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidDeck)
	}

	doc, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDeck, err)
	}
	if err := validateSchema(doc); err != nil {
		return nil, err
	}

	d := &Deck{Options: DefaultOptions()}
	if err := json.Unmarshal(doc, d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDeck, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("unmarshal deck schema: %w", err)
			return
		}
		if err := c.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("add deck schema resource: %w", err)
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

func validateSchema(doc []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	// jsonschema wants json.Number for numerics, so decode with its helper.
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDeck, err)
	}
	if err := s.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s", ErrInvalidDeck, describe(ve))
		}
		return fmt.Errorf("%w: %v", ErrInvalidDeck, err)
	}
	return nil
}

// describe flattens a validation error tree to its leaf causes.
func describe(ve *jsonschema.ValidationError) string {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		return fmt.Sprintf("%s: %s", loc, ve.Error())
	}
	parts := make([]string, 0, len(ve.Causes))
	for _, c := range ve.Causes {
		parts = append(parts, describe(c))
	}
	return strings.Join(parts, "; ")
}

// Marshal encodes d in the given format.
func Marshal(d *Deck, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(d, "", "  ")
	case FormatYAML, FormatTOML:
		// Route through JSON so the snake_case json tags name every key.
		b, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		var generic map[string]any
		if err := json.Unmarshal(b, &generic); err != nil {
			return nil, err
		}
		if format == FormatYAML {
			return yaml.Marshal(generic)
		}
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(generic); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported deck format %q", format)
}
