package repoindex

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// FieldDecoder is a minimal package description decoder: it reads leading
// "key: value" header lines and requires name and version fields.
//
// Real installations inject their full description grammar via WithDecoder;
// FieldDecoder is enough for identity resolution and simple field access.
type FieldDecoder struct{}

// Decode parses the description's header fields.
func (FieldDecoder) Decode(data []byte) (*Metadata, error) {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "--") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			// Header section ends at the first non-field line.
			break
		}
		fields[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning description: %w", err)
	}

	name, ok := fields["name"]
	if !ok || name == "" {
		return nil, fmt.Errorf("description has no name field")
	}
	versionText, ok := fields["version"]
	if !ok {
		return nil, fmt.Errorf("description %q has no version field", name)
	}
	version, err := ParseVersion(versionText)
	if err != nil {
		return nil, fmt.Errorf("description %q: %w", name, err)
	}

	return &Metadata{
		Name:    name,
		Version: version,
		Fields:  fields,
		Raw:     data,
	}, nil
}
