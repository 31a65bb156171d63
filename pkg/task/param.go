package task

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// IncludeFunc decides, per value, whether a parameter is part of the task id.
type IncludeFunc func(v any) bool

// Hasher converts a parameter value into the JSON-safe value hashed into the
// task id. Nested tasks should be reduced to their ids via r.
type Hasher func(r *Registry, v any) (any, error)

// ParameterConfig controls how one parameter takes part in the task id.
// Zero fields mean AlwaysInclude and DefaultHasher.
type ParameterConfig struct {
	Include IncludeFunc
	Hasher  Hasher
}

// AlwaysInclude makes a parameter significant.
func AlwaysInclude(any) bool { return true }

// AlwaysExclude makes a parameter insignificant: it is still encoded in task
// references but does not change the task id.
func AlwaysExclude(any) bool { return false }

// DefaultHasher is the type-directed canonical form: tasks become their ids,
// task sets become sorted id lists, collections of tasks are reduced
// element-wise, and anything else is its JSON value.
func DefaultHasher(r *Registry, v any) (any, error) {
	return r.canonical(reflect.ValueOf(v))
}

func (c ParameterConfig) withDefaults() ParameterConfig {
	if c.Include == nil {
		c.Include = AlwaysInclude
	}
	if c.Hasher == nil {
		c.Hasher = DefaultHasher
	}
	return c
}

// param is a resolved parameter of a registered task type.
type param struct {
	name   string
	index  []int
	typ    reflect.Type
	config ParameterConfig
}

const (
	namespaceTag = "__namespace__"
	familyTag    = "__family__"
)

var metaType = reflect.TypeFor[Meta]()

// collectParams walks a task struct in declaration order. Embedded structs are
// flattened; Meta contributes "version".
func collectParams(st reflect.Type, index []int, out *[]param) error {
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		idx := append(slices.Clone(index), i)

		if f.Anonymous {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				return fmt.Errorf("embedded pointer %s is not supported in task structs", f.Name)
			}
			if ft == metaType {
				*out = append(*out, param{
					name:  "version",
					index: append(idx, 0),
					typ:   reflect.TypeFor[string](),
				})
				continue
			}
			if ft.Kind() == reflect.Struct && f.IsExported() {
				if err := collectParams(ft, idx, out); err != nil {
					return err
				}
				continue
			}
		}

		if !f.IsExported() {
			continue
		}

		name, ok := jsonName(f)
		if !ok {
			continue
		}

		var cfg ParameterConfig
		if tagOptions(f.Tag.Get("stardag"))["exclude"] != nil {
			cfg.Include = AlwaysExclude
		}

		*out = append(*out, param{name: name, index: idx, typ: f.Type, config: cfg})
	}
	return nil
}

func jsonName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	return name, true
}

// tagOptions parses "a=1,b,c=" into {"a": &"1", "b": &"", "c": &""}.
func tagOptions(tag string) map[string]*string {
	opts := make(map[string]*string)
	if tag == "" {
		return opts
	}
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		val := v
		opts[k] = &val
	}
	return opts
}

// classTag returns the `stardag` tag of the field through which st embeds
// Meta, directly or via another embedded struct.
func classTag(st reflect.Type) map[string]*string {
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.Anonymous || f.Type.Kind() != reflect.Struct {
			continue
		}
		if f.Type == metaType || embedsMeta(f.Type) {
			return tagOptions(f.Tag.Get("stardag"))
		}
	}
	return map[string]*string{}
}

func embedsMeta(st reflect.Type) bool {
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.Anonymous || f.Type.Kind() != reflect.Struct {
			continue
		}
		if f.Type == metaType || embedsMeta(f.Type) {
			return true
		}
	}
	return false
}
