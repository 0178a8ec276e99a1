// ABOUTME: Pure parameter validation returning every schema violation
// ABOUTME: Checks requiredness, type tags, and enum membership

package sml

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"sort"
	"time"
)

// Violation codes.
const (
	ViolationRequired = "required"
	ViolationType     = "type"
	ViolationEnum     = "enum"
)

// Violation is one parameter that failed validation.
type Violation struct {
	Param   string `json:"param"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidateParams checks params against specs and returns every violation in
// parameter-name order. Parameters not declared in specs are ignored.
func ValidateParams(specs map[string]ParamSpec, params map[string]any) []Violation {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	var violations []Violation
	for _, name := range names {
		spec := specs[name]
		value, present := params[name]

		if !present || value == nil {
			if spec.Required && !(present && spec.Nullable) {
				violations = append(violations, Violation{
					Param:   name,
					Code:    ViolationRequired,
					Message: fmt.Sprintf("%s is required", name),
				})
			}
			continue
		}

		if !checkType(spec.Type, value) {
			violations = append(violations, Violation{
				Param:   name,
				Code:    ViolationType,
				Message: fmt.Sprintf("%s must be of type %s", name, spec.Type),
			})
			continue
		}

		if len(spec.Enum) > 0 && !inEnum(spec.Enum, value) {
			violations = append(violations, Violation{
				Param:   name,
				Code:    ViolationEnum,
				Message: fmt.Sprintf("%s must be one of %v", name, spec.Enum),
			})
		}
	}
	return violations
}

func checkType(t ParamType, v any) bool {
	switch t {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeNumber:
		f, ok := toFloat(v)
		return ok && !math.IsNaN(f)
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeObject:
		return isObject(v)
	case TypeArray:
		k := reflect.ValueOf(v).Kind()
		return k == reflect.Slice || k == reflect.Array
	case TypeDate:
		switch v.(type) {
		case time.Time, *time.Time, string:
			return true
		}
		return false
	default:
		return true
	}
}

func isObject(v any) bool {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		return !rv.IsNil()
	case reflect.Struct:
		return true
	}
	return false
}

// toFloat converts any Go numeric kind, or a json.Number, to float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func inEnum(enum []any, v any) bool {
	if f, ok := toFloat(v); ok {
		return slices.ContainsFunc(enum, func(e any) bool {
			ef, ok := toFloat(e)
			return ok && ef == f
		})
	}
	return slices.ContainsFunc(enum, func(e any) bool {
		return reflect.DeepEqual(e, v)
	})
}

// validateSpecs rejects schemas whose enum values cannot match their type tag.
func validateSpecs(specs map[string]ParamSpec) error {
	for name, spec := range specs {
		if name == "" {
			return fmt.Errorf("parameter with empty name")
		}
		for _, e := range spec.Enum {
			if e != nil && !checkType(spec.Type, e) {
				return fmt.Errorf("parameter %s: enum value %v is not of type %s", name, e, spec.Type)
			}
		}
	}
	return nil
}
