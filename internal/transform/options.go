package transform

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Decode copies the request options into the `cty:"name"` tagged fields of
// the struct into points to. Options missing from the pipeline leave their
// field untouched, so callers set defaults before decoding. Unknown options
// and values that cannot be converted to the field's type are errors.
func (r *Request) Decode(into any) error {
	target := reflect.ValueOf(into)
	if target.Kind() != reflect.Pointer || target.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("options must be decoded into a struct pointer, got %T", into)
	}
	attrs, err := optionAttributes(r.Options)
	if err != nil {
		return err
	}
	fields := taggedFields(target.Elem())

	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	var problems []string
	for _, name := range names {
		field, ok := fields[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("unsupported option '%s'", name))
			continue
		}
		ptr := field.Addr().Interface()
		ty, err := gocty.ImpliedType(ptr)
		if err != nil {
			return fmt.Errorf("option '%s': %w", name, err)
		}
		val, err := convert.Convert(attrs[name], ty)
		if err != nil {
			problems = append(problems, fmt.Sprintf("option '%s': %s", name, err))
			continue
		}
		if val.IsNull() {
			continue
		}
		if err := gocty.FromCtyValue(val, ptr); err != nil {
			problems = append(problems, fmt.Sprintf("option '%s': %s", name, err))
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// optionAttributes returns the attributes of an options object. A missing
// or null value has none.
func optionAttributes(v cty.Value) (map[string]cty.Value, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, errors.New("options are not known")
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("options must be an object, got %s", ty.FriendlyName())
	}
	return v.AsValueMap(), nil
}

func taggedFields(v reflect.Value) map[string]reflect.Value {
	fields := make(map[string]reflect.Value)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name, ok := t.Field(i).Tag.Lookup("cty")
		if !ok || name == "" || !t.Field(i).IsExported() {
			continue
		}
		fields[name] = v.Field(i)
	}
	return fields
}

// Duration parses a duration option such as "30s". An empty value is def.
func Duration(option, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("option '%s': %w", option, err)
	}
	return d, nil
}
