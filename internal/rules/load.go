package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/IshaanNene/folio/internal/types"
)

// Load reads and validates a rule set from a YAML file.
func Load(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule set: %w", err)
	}
	rs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// Parse decodes a YAML rule set. Unknown keys are rejected so that typos in a
// site file fail loudly instead of silently disabling a rule.
func Parse(data []byte) (*RuleSet, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var rs RuleSet
	if err := dec.Decode(&rs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &types.RuleError{Err: errors.New("empty rule set")}
		}
		return nil, &types.RuleError{Err: fmt.Errorf("decode: %w", err)}
	}

	if err := Validate(&rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Marshal encodes a rule set back to YAML.
func Marshal(rs *RuleSet) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(rs); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
