// util/json.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
)

func UnmarshalJSON[T any](r io.Reader, out *T) error {
	// The whole contents are needed in order to turn decoder offsets into
	// line numbers.
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return UnmarshalJSONBytes(b, out)
}

// UnmarshalJSONBytes unmarshals b into out; syntax and type errors are
// reported with the line and character where they occurred.
func UnmarshalJSONBytes[T any](b []byte, out *T) error {
	err := json.Unmarshal(b, out)
	if err == nil {
		return nil
	}

	position := func(offset int64) (line, char int) {
		line, char = 1, 1
		for i := 0; i < int(offset) && i < len(b); i++ {
			if b[i] == '\n' {
				line++
				char = 1
			} else {
				char++
			}
		}
		return
	}

	switch jerr := err.(type) {
	case *json.SyntaxError:
		line, char := position(jerr.Offset)
		return fmt.Errorf("line %d, character %d: %w", line, char, jerr)

	case *json.UnmarshalTypeError:
		line, char := position(jerr.Offset)
		return fmt.Errorf("line %d, character %d: %s value for %s.%s invalid for type %s: %w",
			line, char, jerr.Value, jerr.Struct, jerr.Field, jerr.Type.String(), jerr)

	default:
		return err
	}
}

// CheckJSON checks that contents is valid JSON and that each object key
// corresponds to a field of T (by its json tag), reporting unknown keys
// to e.
func CheckJSON[T any](contents []byte, e *ErrorLogger) {
	defer e.CheckDepth(e.CurrentDepth())

	var items any
	if err := UnmarshalJSONBytes(contents, &items); err != nil {
		e.Error(err)
		return
	}

	ty := reflect.TypeFor[T]()
	checkJSONFields(items, ty, make(map[reflect.Type]map[string]reflect.Type), e)
}

func checkJSONFields(v any, ty reflect.Type, fieldCache map[reflect.Type]map[string]reflect.Type, e *ErrorLogger) {
	for ty.Kind() == reflect.Pointer {
		ty = ty.Elem()
	}

	mismatch := func() {
		e.ErrorString("unexpected %s for %s", reflect.TypeOf(v), ty)
	}

	switch ty.Kind() {
	case reflect.Array, reflect.Slice:
		switch arr := v.(type) {
		case []any:
			for _, item := range arr {
				checkJSONFields(item, ty.Elem(), fieldCache, e)
			}
		case string:
			// Point2LL and the like are arrays that encode as strings.
		default:
			mismatch()
		}

	case reflect.Map:
		if m, ok := v.(map[string]any); ok {
			for _, k := range SortedMapKeys(m) {
				e.Push(k)
				checkJSONFields(m[k], ty.Elem(), fieldCache, e)
				e.Pop()
			}
		} else {
			mismatch()
		}

	case reflect.Struct:
		items, ok := v.(map[string]any)
		if !ok {
			mismatch()
			return
		}

		fields, ok := fieldCache[ty]
		if !ok {
			fields = make(map[string]reflect.Type)
			for _, f := range reflect.VisibleFields(ty) {
				if tag, ok := f.Tag.Lookup("json"); ok {
					name, _, _ := strings.Cut(tag, ",")
					fields[name] = f.Type
				}
			}
			fieldCache[ty] = fields
		}

		for _, item := range SortedMapKeys(items) {
			if fty, ok := fields[item]; ok {
				e.Push(item)
				checkJSONFields(items[item], fty, fieldCache, e)
				e.Pop()
			} else {
				e.ErrorString("%q is not an expected JSON field. Is it misspelled?", item)
			}
		}
	}
}
