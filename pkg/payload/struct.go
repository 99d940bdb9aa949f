package payload

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

const structLogPrefix = "payload:struct"

// FormFromStruct flattens a struct (json tags honoured) or a string-keyed map into
// a Form. Keys are emitted in sorted order; slices become repeated parts; nested
// maps and structs are JSON-encoded; nil values are skipped.
func FormFromStruct(v any) (*Form, error) {
	fields := map[string]interface{}{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &fields,
	})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to build decoder: %w", structLogPrefix, err)
	}
	if err := decoder.Decode(v); err != nil {
		return nil, fmt.Errorf("%s - failed to flatten %T: %w", structLogPrefix, v, err)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	form := NewForm()
	for _, k := range keys {
		if err := addValue(form, k, fields[k]); err != nil {
			return nil, err
		}
	}
	return form, nil
}

func addValue(form *Form, name string, v interface{}) error {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}

	switch rv.Kind() {
	case reflect.String:
		form.Add(name, rv.String())
	case reflect.Bool:
		form.Add(name, strconv.FormatBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		form.Add(name, strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		form.Add(name, strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		form.Add(name, strconv.FormatFloat(rv.Float(), 'f', -1, 64))
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			form.AddFile(name, name, "", rv.Bytes())
			return nil
		}
		for i := 0; i < rv.Len(); i++ {
			if err := addValue(form, name, rv.Index(i).Interface()); err != nil {
				return err
			}
		}
	default:
		data, err := json.Marshal(rv.Interface())
		if err != nil {
			return fmt.Errorf("%s - failed to encode field %q: %w", structLogPrefix, name, err)
		}
		form.Add(name, string(data))
	}
	return nil
}
