package task

import (
	"encoding"
	"encoding/json"
	"reflect"
	"slices"
)

var customJSONTypes = []reflect.Type{
	reflect.TypeFor[json.Marshaler](),
	reflect.TypeFor[json.Unmarshaler](),
	reflect.TypeFor[encoding.TextMarshaler](),
	reflect.TypeFor[encoding.TextUnmarshaler](),
}

// modelField is a field of a plain struct parameter, named the way
// encoding/json names it.
type modelField struct {
	name      string
	index     []int
	typ       reflect.Type
	omitEmpty bool
}

// modelFields lists the JSON fields of st. Untagged embedded structs are
// flattened; the shallower field wins a name clash.
func modelFields(st reflect.Type) []modelField {
	var fields []modelField
	seen := make(map[string]bool)
	var embedded [][]int

	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		name, ok := jsonName(f)
		if !ok {
			continue
		}
		if f.Anonymous && f.Type.Kind() == reflect.Struct && f.Tag.Get("json") == "" {
			embedded = append(embedded, f.Index)
			continue
		}
		if !f.IsExported() || seen[name] {
			continue
		}
		seen[name] = true
		fields = append(fields, modelField{
			name:      name,
			index:     f.Index,
			typ:       f.Type,
			omitEmpty: tagOptions(f.Tag.Get("json"))["omitempty"] != nil,
		})
	}

	for _, idx := range embedded {
		for _, f := range modelFields(st.FieldByIndex(idx).Type) {
			if seen[f.name] {
				continue
			}
			seen[f.name] = true
			f.index = append(slices.Clone(idx), f.index...)
			fields = append(fields, f)
		}
	}
	return fields
}

// walkableStruct reports whether values of typ can be taken apart field by
// field without changing their JSON form.
func walkableStruct(typ reflect.Type) bool {
	if typ.Kind() != reflect.Struct {
		return false
	}
	for _, m := range customJSONTypes {
		if typ.Implements(m) || reflect.PointerTo(typ).Implements(m) {
			return false
		}
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.Anonymous {
			continue
		}
		if f.Type.Kind() == reflect.Pointer || !f.IsExported() {
			return false
		}
		if f.Type.Kind() == reflect.Struct && !walkableStruct(f.Type) {
			return false
		}
	}
	return true
}

// mayHoldTask reports whether values of typ can contain tasks that must be
// reduced to ids rather than dumped as JSON.
func mayHoldTask(typ reflect.Type) bool {
	return holdsTask(typ, make(map[reflect.Type]bool))
}

func holdsTask(typ reflect.Type, seen map[reflect.Type]bool) bool {
	if typ.Implements(taskType) || typ.Kind() == reflect.Interface {
		return true
	}
	if seen[typ] {
		return false
	}
	seen[typ] = true

	switch typ.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return holdsTask(typ.Elem(), seen)
	case reflect.Map:
		return typ.Key().Kind() == reflect.String && holdsTask(typ.Elem(), seen)
	case reflect.Struct:
		if !walkableStruct(typ) {
			return false
		}
		for _, f := range modelFields(typ) {
			if holdsTask(f.typ, seen) {
				return true
			}
		}
	}
	return false
}

// walkFields maps each field of the struct v through fn, skipping empty
// omitempty fields like encoding/json does.
func walkFields(v reflect.Value, fn func(reflect.Value) (any, error)) (map[string]any, error) {
	fields := modelFields(v.Type())
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		fv := v.FieldByIndex(f.index)
		if f.omitEmpty && isEmptyValue(fv) {
			continue
		}
		item, err := fn(fv)
		if err != nil {
			return nil, err
		}
		out[f.name] = item
	}
	return out, nil
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Interface, reflect.Pointer:
		return v.IsZero()
	}
	return false
}
