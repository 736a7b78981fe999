package action

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/revgen/voicecmd/domain/entities"
)

func validateArguments(schema entities.ParameterSchema, args map[string]any) error {
	for _, name := range schema.Required {
		if _, ok := args[name]; !ok {
			return fmt.Errorf("missing required argument %q", name)
		}
	}

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop, ok := schema.Properties[name]
		if !ok {
			return fmt.Errorf("unexpected argument %q", name)
		}
		if err := validateValue(prop, args[name]); err != nil {
			return fmt.Errorf("argument %q: %w", name, err)
		}
	}
	return nil
}

func validateValue(prop entities.Property, value any) error {
	switch prop.Type {
	case entities.PropertyString:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		if len(prop.Enum) > 0 && !slices.Contains(prop.Enum, s) {
			return fmt.Errorf("%q is not one of %v", s, prop.Enum)
		}
	case entities.PropertyBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	case entities.PropertyInteger, entities.PropertyNumber:
		n, ok := toFloat(value)
		if !ok {
			return fmt.Errorf("expected %s, got %T", prop.Type, value)
		}
		if prop.Type == entities.PropertyInteger && n != math.Trunc(n) {
			return fmt.Errorf("expected integer, got %v", n)
		}
		if prop.Minimum != nil && n < *prop.Minimum {
			return fmt.Errorf("%v is below the minimum %v", n, *prop.Minimum)
		}
		if prop.Maximum != nil && n > *prop.Maximum {
			return fmt.Errorf("%v is above the maximum %v", n, *prop.Maximum)
		}
	}
	return nil
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// intArg reads an integer argument already checked by validateArguments.
func intArg(args map[string]any, name string, fallback int) int {
	v, ok := args[name]
	if !ok {
		return fallback
	}
	f, ok := toFloat(v)
	if !ok {
		return fallback
	}
	return int(f)
}

func stringArg(args map[string]any, name, fallback string) string {
	if s, ok := args[name].(string); ok && s != "" {
		return s
	}
	return fallback
}
