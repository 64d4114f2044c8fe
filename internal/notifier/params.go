package notifier

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// DecodeParams decodes a channel's free-form params into out. Strings are
// converted to numbers, durations and comma-separated slices as needed.
func DecodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("building params decoder: %w", err)
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("decoding params: %w", err)
	}
	return nil
}
