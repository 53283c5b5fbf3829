package provider

import (
	"github.com/go-viper/mapstructure/v2"
)

// DecodeConfig decodes a factory config map into out using mapstructure
// tags. Duration strings such as "90s" are accepted.
func DecodeConfig(cfg map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(cfg)
}
