package provider

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// DecodeConfig decodes a factory config map into out using mapstructure
// tags. Duration strings such as "30s" are accepted.
func DecodeConfig(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("provider: config decoder: %w", err)
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("provider: decode config: %w", err)
	}
	return nil
}
