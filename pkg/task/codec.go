package task

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Encode returns the reference form of t: every parameter, significant or
// not, plus the "__namespace__" and "__family__" tags. Nested tasks are
// encoded recursively.
func (r *Registry) Encode(t Task) (map[string]any, error) {
	if isNil(t) {
		return nil, fmt.Errorf("cannot encode a nil task")
	}
	kind, err := r.KindOf(t)
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		namespaceTag: kind.Namespace,
		familyTag:    kind.Family,
	}
	v := reflect.ValueOf(t).Elem()
	for _, p := range kind.params {
		encoded, err := r.encodeValue(v.FieldByIndex(p.index))
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s.%s: %w", kind.Key(), p.name, err)
		}
		out[p.name] = encoded
	}
	return out, nil
}

// MarshalTask returns the reference JSON of t, with sorted keys.
func (r *Registry) MarshalTask(t Task) ([]byte, error) {
	ref, err := r.Encode(t)
	if err != nil {
		return nil, err
	}
	return canonicalJSON(ref)
}

// UnmarshalTask decodes reference JSON into a new task of the tagged type.
func (r *Registry) UnmarshalTask(data []byte) (Task, error) {
	return r.decodeRef(data)
}

// Decode accepts a Task (returned unchanged), reference JSON as []byte or
// json.RawMessage, or a decoded reference map.
func (r *Registry) Decode(v any) (Task, error) {
	switch x := v.(type) {
	case Task:
		return x, nil
	case []byte:
		return r.decodeRef(x)
	case json.RawMessage:
		return r.decodeRef(x)
	case map[string]any:
		data, err := json.Marshal(x)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal reference: %w", err)
		}
		return r.decodeRef(data)
	default:
		return nil, fmt.Errorf("cannot decode a task from %T", v)
	}
}

func (r *Registry) encodeValue(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
		if v.IsNil() {
			return nil, nil
		}
	}

	if v.CanInterface() {
		switch x := v.Interface().(type) {
		case Task:
			return r.Encode(x)
		case taskCollection:
			return x.encodeRefs(r)
		}
	}

	switch v.Kind() {
	case reflect.Interface:
		return r.encodeValue(v.Elem())
	case reflect.Pointer:
		if mayHoldTask(v.Type().Elem()) {
			return r.encodeValue(v.Elem())
		}
	case reflect.Struct:
		if walkableStruct(v.Type()) && mayHoldTask(v.Type()) {
			return walkFields(v, r.encodeValue)
		}
	case reflect.Slice, reflect.Array:
		if !mayHoldTask(v.Type().Elem()) {
			break
		}
		out := make([]any, v.Len())
		for i := range out {
			item, err := r.encodeValue(v.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String || !mayHoldTask(v.Type().Elem()) {
			break
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			item, err := r.encodeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Key().String()] = item
		}
		return out, nil
	}

	return normalizeJSON(v.Interface())
}

func (r *Registry) decodeRef(data []byte) (Task, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("task reference must be a JSON object: %w", err)
	}

	namespace, err := tagValue(fields, namespaceTag)
	if err != nil {
		return nil, err
	}
	family, err := tagValue(fields, familyTag)
	if err != nil {
		return nil, err
	}

	kind, err := r.Lookup(namespace, family)
	if err != nil {
		return nil, err
	}

	ptr := reflect.New(kind.Type.Elem())
	for _, p := range kind.params {
		raw, ok := fields[p.name]
		if !ok {
			if isTaskSlot(p.typ) {
				return nil, &ValidationError{Namespace: namespace, Family: family, Field: p.name, Err: errMissingTask}
			}
			continue
		}
		delete(fields, p.name)
		if err := r.decodeValue(raw, ptr.Elem().FieldByIndex(p.index)); err != nil {
			return nil, &ValidationError{Namespace: namespace, Family: family, Field: p.name, Err: err}
		}
	}

	if len(fields) > 0 {
		unknown := make([]string, 0, len(fields))
		for name := range fields {
			unknown = append(unknown, name)
		}
		sort.Strings(unknown)
		return nil, &ValidationError{
			Namespace: namespace,
			Family:    family,
			Field:     strings.Join(unknown, ", "),
			Err:       fmt.Errorf("unknown field"),
		}
	}

	return ptr.Interface().(Task), nil
}

func tagValue(fields map[string]json.RawMessage, tag string) (string, error) {
	raw, ok := fields[tag]
	if !ok {
		return "", &ReferenceError{Missing: tag}
	}
	delete(fields, tag)

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("task reference %s must be a string: %w", tag, err)
	}
	return value, nil
}

// decodeValue fills the addressable value dst from raw.
func (r *Registry) decodeValue(raw json.RawMessage, dst reflect.Value) error {
	typ := dst.Type()

	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		dst.Set(reflect.Zero(typ))
		return nil
	}

	if dec, ok := dst.Addr().Interface().(collectionDecoder); ok {
		var raws []json.RawMessage
		if err := json.Unmarshal(raw, &raws); err != nil {
			return fmt.Errorf("expected a list of task references: %w", err)
		}
		return dec.decodeRefs(r, raws)
	}

	if isTaskSlot(typ) {
		t, err := r.decodeRef(raw)
		if err != nil {
			return err
		}
		tv := reflect.ValueOf(t)
		if !tv.Type().AssignableTo(typ) {
			return fmt.Errorf("task %v is not assignable to %v", tv.Type(), typ)
		}
		dst.Set(tv)
		return nil
	}

	if typ.Kind() == reflect.Interface && typ.NumMethod() == 0 {
		v, err := r.decodeAny(raw)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(&v).Elem())
		return nil
	}

	if needsTaskDecoding(typ) {
		switch typ.Kind() {
		case reflect.Pointer:
			ptr := reflect.New(typ.Elem())
			if err := r.decodeValue(raw, ptr.Elem()); err != nil {
				return err
			}
			dst.Set(ptr)
			return nil
		case reflect.Struct:
			return r.decodeStruct(raw, dst)
		case reflect.Slice, reflect.Array:
			var raws []json.RawMessage
			if err := json.Unmarshal(raw, &raws); err != nil {
				return fmt.Errorf("expected a list: %w", err)
			}
			if typ.Kind() == reflect.Array {
				if len(raws) != typ.Len() {
					return fmt.Errorf("expected %d items, got %d", typ.Len(), len(raws))
				}
			} else {
				dst.Set(reflect.MakeSlice(typ, len(raws), len(raws)))
			}
			for i, item := range raws {
				if err := r.decodeValue(item, dst.Index(i)); err != nil {
					return fmt.Errorf("item %d: %w", i, err)
				}
			}
			return nil
		case reflect.Map:
			var raws map[string]json.RawMessage
			if err := json.Unmarshal(raw, &raws); err != nil {
				return fmt.Errorf("expected an object: %w", err)
			}
			m := reflect.MakeMapWithSize(typ, len(raws))
			for key, item := range raws {
				elem := reflect.New(typ.Elem()).Elem()
				if err := r.decodeValue(item, elem); err != nil {
					return fmt.Errorf("key %q: %w", key, err)
				}
				m.SetMapIndex(reflect.ValueOf(key).Convert(typ.Key()), elem)
			}
			dst.Set(m)
			return nil
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(dst.Addr().Interface())
}

// decodeStruct fills the walkable struct dst field by field so that nested
// task references decode into their typed fields.
func (r *Registry) decodeStruct(raw json.RawMessage, dst reflect.Value) error {
	var raws map[string]json.RawMessage
	if err := json.Unmarshal(raw, &raws); err != nil {
		return fmt.Errorf("expected an object: %w", err)
	}
	for _, f := range modelFields(dst.Type()) {
		item, ok := raws[f.name]
		if !ok {
			continue
		}
		delete(raws, f.name)
		if err := r.decodeValue(item, dst.FieldByIndex(f.index)); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}
	if len(raws) > 0 {
		unknown := make([]string, 0, len(raws))
		for name := range raws {
			unknown = append(unknown, name)
		}
		sort.Strings(unknown)
		return fmt.Errorf("unknown field %s", strings.Join(unknown, ", "))
	}
	return nil
}

// decodeAny decodes raw as a plain JSON value, except that objects carrying
// both reference tags become tasks.
func (r *Registry) decodeAny(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch trimmed[0] {
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return nil, err
		}
		_, hasNamespace := fields[namespaceTag]
		_, hasFamily := fields[familyTag]
		if hasNamespace && hasFamily {
			return r.decodeRef(trimmed)
		}
		out := make(map[string]any, len(fields))
		for key, item := range fields {
			v, err := r.decodeAny(item)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			out[key] = v
		}
		return out, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := r.decodeAny(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, err
	}
	return v, nil
}

var errMissingTask = errors.New("missing required task parameter")

// isTaskSlot reports whether a field of typ holds a single task reference.
// Empty interfaces are plain JSON values whose tagged objects decode as tasks.
func isTaskSlot(typ reflect.Type) bool {
	if typ.Implements(taskType) {
		return true
	}
	return typ.Kind() == reflect.Interface && typ.NumMethod() > 0 && taskType.Implements(typ)
}

func needsTaskDecoding(typ reflect.Type) bool {
	return decodesTask(typ, make(map[reflect.Type]bool))
}

func decodesTask(typ reflect.Type, seen map[reflect.Type]bool) bool {
	if isTaskSlot(typ) || reflect.PointerTo(typ).Implements(collectionDecoderType) {
		return true
	}
	if typ.Kind() == reflect.Interface && typ.NumMethod() == 0 {
		return true
	}
	if seen[typ] {
		return false
	}
	seen[typ] = true

	switch typ.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return decodesTask(typ.Elem(), seen)
	case reflect.Map:
		return typ.Key().Kind() == reflect.String && decodesTask(typ.Elem(), seen)
	case reflect.Struct:
		if !walkableStruct(typ) {
			return false
		}
		for _, f := range modelFields(typ) {
			if decodesTask(f.typ, seen) {
				return true
			}
		}
	}
	return false
}

var collectionDecoderType = reflect.TypeFor[collectionDecoder]()
