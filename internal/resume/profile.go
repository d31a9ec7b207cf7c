package resume

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Profile is structured candidate data produced by an external parser.
type Profile struct {
	Skills          []string `mapstructure:"skills" json:"skills"`
	JobTitles       []string `mapstructure:"jobtitles" json:"jobTitles"`
	Education       []string `mapstructure:"education" json:"education"`
	TotalExperience float64  `mapstructure:"totalexperience" json:"totalExperience"`
}

// Load reads a profile from a JSON or YAML file. The format is picked by extension.
func Load(path string) (*Profile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read resume %q: %w", path, err)
	}

	return Decode(v.AllSettings())
}

// DecodeJSON decodes a profile from raw JSON bytes.
func DecodeJSON(data []byte) (*Profile, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode resume: %w", err)
	}
	return Decode(raw)
}

// Decode builds a profile out of loosely typed data. Missing fields become
// empty, values of an unexpected shape degrade to their zero value.
func Decode(raw map[string]any) (*Profile, error) {
	normalized := make(map[string]any, len(raw))
	for key, value := range raw {
		normalized[normalizeKey(key)] = value
	}

	var profile Profile
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &profile,
		WeaklyTypedInput: true,
		DecodeHook:       lenientHook,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(normalized); err != nil {
		return nil, fmt.Errorf("decode resume: %w", err)
	}

	profile.normalize()
	return &profile, nil
}

func (p *Profile) normalize() {
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.JobTitles == nil {
		p.JobTitles = []string{}
	}
	if p.Education == nil {
		p.Education = []string{}
	}
	if math.IsNaN(p.TotalExperience) || math.IsInf(p.TotalExperience, 0) || p.TotalExperience < 0 {
		p.TotalExperience = 0
	}
}

// normalizeKey folds camelCase, snake_case and kebab-case keys onto one form.
func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
}

func lenientHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if data == nil {
		return data, nil
	}

	switch to.Kind() {
	case reflect.Float64:
		return toFloat(data), nil
	case reflect.String:
		switch from.Kind() {
		case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
			return "", nil
		}
	case reflect.Slice:
		if from.Kind() == reflect.Map {
			return []string{}, nil
		}
		if items, ok := data.([]any); ok {
			// Drop non scalar entries so a single bad item does not fail the list.
			kept := make([]any, 0, len(items))
			for _, item := range items {
				switch item.(type) {
				case map[string]any, []any, nil:
					continue
				}
				kept = append(kept, item)
			}
			return kept, nil
		}
	}

	return data, nil
}

func toFloat(data any) float64 {
	switch v := data.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case uint:
		return float64(v)
	case uint64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
