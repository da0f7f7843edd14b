package config

import (
	"bytes"
	"encoding/json"
	"io"
)

// mustJSONReader wraps a JSON literal string as an io.Reader for the schema compiler.
func mustJSONReader(s string) io.Reader {
	return bytes.NewReader([]byte(s))
}

// toValidatableDoc round-trips cfg through JSON so jsonschema validates the
// same shape viper/mapstructure produced, rather than Go-internal types.
func toValidatableDoc(cfg *Config) (any, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
