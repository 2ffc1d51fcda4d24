package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DecodeMap decodes editor-supplied settings, such as the settings object of
// a workspace/didChangeConfiguration notification, on top of a copy of
// defaults. Keys follow the TOML names; duration values are strings.
func DecodeMap[T any](raw any, defaults *T) (*T, error) {
	cfg := new(T)
	if defaults != nil {
		*cfg = *defaults
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "toml",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		ZeroFields:       true,
		DecodeHook:       mapstructure.TextUnmarshallerHookFunc(),
		Result:           cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decoding workspace settings: %w", err)
	}

	if v, ok := any(cfg).(Validatable); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("validating workspace settings: %w", err)
		}
	}
	return cfg, nil
}
