package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"forum-importer/core/storage"

	"gopkg.in/yaml.v3"
)

// Format is a record set encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates an explicit format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported record format %q", s)
	}
}

// FormatFromPath infers the format from a file or object name. Anything that
// is not .yaml or .yml is treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode reads a record set. Unknown fields are rejected so typos in field
// names surface instead of silently dropping data.
func Decode(r io.Reader, format Format) (*RecordSet, error) {
	var set RecordSet

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&set); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decode yaml record set: %w", err)
		}
	case FormatJSON, "":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&set); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decode json record set: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported record format %q", format)
	}

	return &set, nil
}

// LoadObject downloads and decodes a record set from object storage.
func LoadObject(ctx context.Context, client storage.Client, bucket, key string, format Format, limit int64) (*RecordSet, error) {
	data, err := storage.ReadObject(ctx, client, bucket, key, limit)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatFromPath(key)
	}
	return Decode(bytes.NewReader(data), format)
}
