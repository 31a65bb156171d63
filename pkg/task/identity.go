package task

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"runtime"
	"weak"
)

var taskType = reflect.TypeFor[Task]()

// ID returns the task id of t: the lowercase hex SHA-1 of the canonical JSON
// of {"namespace", "family", "parameters"}. The id is computed once per task
// instance and cached until the instance is garbage collected.
func (r *Registry) ID(t Task) (string, error) {
	if isNil(t) {
		return "", fmt.Errorf("cannot compute id of a nil task")
	}
	// Only registered pointer types reach the cache
	if _, err := r.KindOf(t); err != nil {
		return "", err
	}
	key := weak.Make(t.taskMeta())
	if cached, ok := r.ids.Load(key); ok {
		return cached.(string), nil
	}

	payload, err := r.IDPayload(t)
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(payload)
	id := hex.EncodeToString(sum[:])

	actual, loaded := r.ids.LoadOrStore(key, id)
	if !loaded {
		runtime.AddCleanup(t.taskMeta(), r.forget, key)
	}
	return actual.(string), nil
}

func (r *Registry) forget(key weak.Pointer[Meta]) {
	r.ids.Delete(key)
}

// IDPayload returns the canonical JSON bytes that ID hashes.
func (r *Registry) IDPayload(t Task) ([]byte, error) {
	kind, err := r.KindOf(t)
	if err != nil {
		return nil, err
	}

	params, err := r.hashParams(kind, t)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", kind.Key(), err)
	}

	return canonicalJSON(map[string]any{
		"namespace":  kind.Namespace,
		"family":     kind.Family,
		"parameters": params,
	})
}

func (r *Registry) hashParams(kind *Kind, t Task) (map[string]any, error) {
	v := reflect.ValueOf(t).Elem()
	params := make(map[string]any, len(kind.params))
	for _, p := range kind.params {
		value := v.FieldByIndex(p.index).Interface()
		if !p.config.Include(value) {
			continue
		}
		hashed, err := p.config.Hasher(r, value)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", p.name, err)
		}
		normalized, err := normalizeJSON(hashed)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", p.name, err)
		}
		params[p.name] = normalized
	}
	return params, nil
}

// canonical reduces v to the value hashed into a parent's id.
func (r *Registry) canonical(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil() {
		return nil, nil
	}

	if v.CanInterface() {
		switch x := v.Interface().(type) {
		case Task:
			return r.ID(x)
		case taskCollection:
			return x.hashIDs(r)
		}
	}

	switch v.Kind() {
	case reflect.Interface:
		return r.canonical(v.Elem())
	case reflect.Pointer:
		if mayHoldTask(v.Type().Elem()) {
			return r.canonical(v.Elem())
		}
	case reflect.Struct:
		if walkableStruct(v.Type()) && mayHoldTask(v.Type()) {
			return walkFields(v, r.canonical)
		}
	case reflect.Slice, reflect.Array:
		if !mayHoldTask(v.Type().Elem()) {
			break
		}
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil, nil
		}
		out := make([]any, v.Len())
		for i := range out {
			item, err := r.canonical(v.Index(i))
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
		if v.IsNil() {
			return nil, nil
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			item, err := r.canonical(iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Key().String()] = item
		}
		return out, nil
	}

	return normalizeJSON(v.Interface())
}

// normalizeJSON round-trips x through encoding/json, producing maps, slices,
// strings, bools, nil and json.Number. Numbers keep their literal form.
func normalizeJSON(x any) (any, error) {
	data, err := json.Marshal(x)
	if err != nil {
		return nil, fmt.Errorf("value is not JSON-serializable: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// canonicalJSON renders v with sorted object keys, no whitespace and no HTML
// escaping.
func canonicalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func isNil(t Task) bool {
	if t == nil {
		return true
	}
	v := reflect.ValueOf(t)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
