package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Options wraps a brick's option map for typed value extraction. Accessors
// return the default if the key is missing or the value has the wrong type.
type Options struct {
	data map[string]any
}

// NewOptions creates Options from data. A nil map yields empty Options.
func NewOptions(data map[string]any) Options {
	if data == nil {
		data = make(map[string]any)
	}
	return Options{data: data}
}

// String returns the string value for key, or defaultVal.
func (o Options) String(key, defaultVal string) string {
	if s, ok := o.data[key].(string); ok {
		return s
	}
	return defaultVal
}

// Duration returns the duration value for key, or defaultVal.
//
// Strings are parsed with time.ParseDuration; plain numbers are seconds.
func (o Options) Duration(key string, defaultVal time.Duration) time.Duration {
	switch val := o.data[key].(type) {
	case string:
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	case float64:
		return time.Duration(val * float64(time.Second))
	case int:
		return time.Duration(val) * time.Second
	case int64:
		return time.Duration(val) * time.Second
	case time.Duration:
		return val
	}
	return defaultVal
}

// Bool returns the boolean value for key, or defaultVal.
func (o Options) Bool(key string, defaultVal bool) bool {
	if b, ok := o.data[key].(bool); ok {
		return b
	}
	return defaultVal
}

// Int returns the integer value for key, or defaultVal. A float64 is
// accepted only without a fractional part.
func (o Options) Int(key string, defaultVal int) int {
	switch val := o.data[key].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
	}
	return defaultVal
}

// Float returns the float64 value for key, or defaultVal.
func (o Options) Float(key string, defaultVal float64) float64 {
	switch val := o.data[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	}
	return defaultVal
}

// StringSlice returns the string slice for key, or defaultVal if any
// element is not a string.
func (o Options) StringSlice(key string, defaultVal []string) []string {
	switch val := o.data[key].(type) {
	case []string:
		return val
	case []any:
		result := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return defaultVal
			}
			result = append(result, s)
		}
		return result
	}
	return defaultVal
}

// Map returns the nested map for key, or defaultVal.
func (o Options) Map(key string, defaultVal map[string]any) map[string]any {
	if m, ok := o.data[key].(map[string]any); ok {
		return m
	}
	return defaultVal
}

// Any returns the raw value for key, or defaultVal if missing.
func (o Options) Any(key string, defaultVal any) any {
	v, ok := o.data[key]
	if !ok {
		return defaultVal
	}
	return v
}

// Has reports whether key is present.
func (o Options) Has(key string) bool {
	_, ok := o.data[key]
	return ok
}

// Raw returns the underlying map. It must not be modified.
func (o Options) Raw() map[string]any {
	return o.data
}

// Decode fills target, a pointer to a struct, from the options using
// `mapstructure` tags. Numeric strings convert to numbers and duration
// strings to time.Duration. Unknown keys are an error.
func (o Options) Decode(target any) error {
	if err := decode(o.data, target); err != nil {
		return fmt.Errorf("decode options: %w", err)
	}
	return nil
}

func decode(input map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
