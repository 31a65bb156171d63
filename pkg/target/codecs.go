package target

import (
	"bytes"
	"context"
	"encoding"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// SelfSerializer is implemented by values that write themselves to a target.
// A failed SerializeTo must leave dst as it was; WriteWith does that.
type SelfSerializer interface {
	SerializeTo(ctx context.Context, dst FileSystemTarget) error
}

// SelfDeserializer is implemented by pointers that read themselves from a target.
type SelfDeserializer interface {
	DeserializeFrom(ctx context.Context, src FileSystemTarget) error
}

// DefaultExtensioner lets self-serializing types declare a file extension.
type DefaultExtensioner interface {
	DefaultExtension() string
}

// Table is a tabular result stored as CSV. The header is the first record.
type Table struct {
	Header []string
	Rows   [][]string
}

var (
	selfSerializerType   = reflect.TypeFor[SelfSerializer]()
	selfDeserializerType = reflect.TypeFor[SelfDeserializer]()
	tableType            = reflect.TypeFor[Table]()
	jsonMarshalerType    = reflect.TypeFor[json.Marshaler]()
	jsonUnmarshalerType  = reflect.TypeFor[json.Unmarshaler]()
	textMarshalerType    = reflect.TypeFor[encoding.TextMarshaler]()
)

// SelfSerializingCandidate accepts types implementing SelfSerializer whose
// pointer implements SelfDeserializer.
func SelfSerializingCandidate(typ reflect.Type) (Serializer, error) {
	loader := typ
	if typ.Kind() != reflect.Pointer {
		loader = reflect.PointerTo(typ)
	}
	if !typ.Implements(selfSerializerType) || !loader.Implements(selfDeserializerType) {
		return nil, Reject(typ, "not self-serializing")
	}
	return &selfSerializer{typ: typ}, nil
}

type selfSerializer struct {
	typ reflect.Type
}

func (s *selfSerializer) Dump(ctx context.Context, v any, dst FileSystemTarget) error {
	ser, ok := v.(SelfSerializer)
	if !ok {
		return fmt.Errorf("%T does not implement SelfSerializer", v)
	}
	return ser.SerializeTo(ctx, dst)
}

func (s *selfSerializer) Load(ctx context.Context, src FileSystemTarget, typ reflect.Type) (any, error) {
	if typ.Kind() == reflect.Pointer {
		ptr := reflect.New(typ.Elem())
		if err := ptr.Interface().(SelfDeserializer).DeserializeFrom(ctx, src); err != nil {
			return nil, err
		}
		return ptr.Interface(), nil
	}
	ptr := reflect.New(typ)
	if err := ptr.Interface().(SelfDeserializer).DeserializeFrom(ctx, src); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

func (s *selfSerializer) Extension() string {
	var sample any
	if s.typ.Kind() == reflect.Pointer {
		sample = reflect.New(s.typ.Elem()).Interface()
	} else {
		sample = reflect.New(s.typ).Elem().Interface()
	}
	if ext, ok := sample.(DefaultExtensioner); ok {
		return ext.DefaultExtension()
	}
	return ""
}

// TableCandidate accepts Table.
func TableCandidate(typ reflect.Type) (Serializer, error) {
	if typ != tableType {
		return nil, Reject(typ, "not a Table")
	}
	return CSVSerializer{}, nil
}

// CSVSerializer stores a Table as CSV.
type CSVSerializer struct{}

func (CSVSerializer) Dump(ctx context.Context, v any, dst FileSystemTarget) error {
	table, ok := v.(Table)
	if !ok {
		return fmt.Errorf("csv serializer expects Table, got %T", v)
	}

	return WriteWith(ctx, dst, func(out io.Writer) error {
		w := csv.NewWriter(out)
		if err := w.Write(table.Header); err != nil {
			return fmt.Errorf("failed to write csv header: %w", err)
		}
		if err := w.WriteAll(table.Rows); err != nil {
			return fmt.Errorf("failed to write csv rows: %w", err)
		}
		return nil
	})
}

func (CSVSerializer) Load(ctx context.Context, src FileSystemTarget, typ reflect.Type) (any, error) {
	data, err := ReadAll(ctx, src)
	if err != nil {
		return nil, err
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv %s: %w", src.Path(), err)
	}
	table := Table{Rows: [][]string{}}
	if len(records) > 0 {
		table.Header = records[0]
		table.Rows = records[1:]
	}
	return table, nil
}

func (CSVSerializer) Extension() string { return "csv" }

// PlainTextCandidate accepts string kinds.
func PlainTextCandidate(typ reflect.Type) (Serializer, error) {
	if typ.Kind() != reflect.String {
		return nil, Reject(typ, "not a string kind")
	}
	return PlainTextSerializer{}, nil
}

// PlainTextSerializer stores strings verbatim.
type PlainTextSerializer struct{}

func (PlainTextSerializer) Dump(ctx context.Context, v any, dst FileSystemTarget) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.String {
		return fmt.Errorf("plain text serializer expects a string, got %T", v)
	}
	return WriteAll(ctx, dst, []byte(rv.String()))
}

func (PlainTextSerializer) Load(ctx context.Context, src FileSystemTarget, typ reflect.Type) (any, error) {
	data, err := ReadAll(ctx, src)
	if err != nil {
		return nil, err
	}
	return reflect.ValueOf(string(data)).Convert(typ).Interface(), nil
}

func (PlainTextSerializer) Extension() string { return "txt" }

// JSONCandidate accepts types that survive a JSON round trip: scalars,
// collections and structs of such, and json.Marshaler/Unmarshaler pairs.
func JSONCandidate(typ reflect.Type) (Serializer, error) {
	if reason := jsonUnrepresentable(typ, map[reflect.Type]bool{}); reason != "" {
		return nil, Reject(typ, reason)
	}
	return JSONSerializer{}, nil
}

func jsonUnrepresentable(typ reflect.Type, seen map[reflect.Type]bool) string {
	if typ.Implements(jsonMarshalerType) && reflect.PointerTo(typ).Implements(jsonUnmarshalerType) {
		return ""
	}
	if seen[typ] {
		return ""
	}
	seen[typ] = true

	switch typ.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return ""
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return jsonUnrepresentable(typ.Elem(), seen)
	case reflect.Map:
		key := typ.Key()
		switch {
		case key.Kind() == reflect.String:
		case key.Kind() >= reflect.Int && key.Kind() <= reflect.Uint64:
		case key.Implements(textMarshalerType):
		default:
			return fmt.Sprintf("map key %v is not JSON-representable", key)
		}
		return jsonUnrepresentable(typ.Elem(), seen)
	case reflect.Struct:
		exported := 0
		for i := 0; i < typ.NumField(); i++ {
			f := typ.Field(i)
			if !f.IsExported() || f.Tag.Get("json") == "-" {
				continue
			}
			exported++
			if reason := jsonUnrepresentable(f.Type, seen); reason != "" {
				return fmt.Sprintf("field %s: %s", f.Name, reason)
			}
		}
		if exported == 0 {
			return "struct has no exported fields"
		}
		return ""
	default:
		return fmt.Sprintf("%v values are not JSON-representable", typ.Kind())
	}
}

// JSONSerializer stores values as compact JSON.
type JSONSerializer struct{}

func (JSONSerializer) Dump(ctx context.Context, v any, dst FileSystemTarget) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return WriteAll(ctx, dst, data)
}

func (JSONSerializer) Load(ctx context.Context, src FileSystemTarget, typ reflect.Type) (any, error) {
	data, err := ReadAll(ctx, src)
	if err != nil {
		return nil, err
	}
	ptr := reflect.New(typ)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON from %s: %w", src.Path(), err)
	}
	return ptr.Elem().Interface(), nil
}

func (JSONSerializer) Extension() string { return "json" }

// MsgpackCandidate accepts every type. It is the last resort of the default chain.
func MsgpackCandidate(typ reflect.Type) (Serializer, error) {
	return MsgpackSerializer{}, nil
}

// MsgpackSerializer stores values as MessagePack.
type MsgpackSerializer struct{}

func (MsgpackSerializer) Dump(ctx context.Context, v any, dst FileSystemTarget) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal msgpack: %w", err)
	}
	return WriteAll(ctx, dst, data)
}

func (MsgpackSerializer) Load(ctx context.Context, src FileSystemTarget, typ reflect.Type) (any, error) {
	data, err := ReadAll(ctx, src)
	if err != nil {
		return nil, err
	}
	ptr := reflect.New(typ)
	if err := msgpack.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal msgpack from %s: %w", src.Path(), err)
	}
	return ptr.Elem().Interface(), nil
}

func (MsgpackSerializer) Extension() string { return "msgpack" }

// YAMLSerializer stores values as YAML. It is not part of the default chain;
// pin it for a type with WithExplicit.
type YAMLSerializer struct{}

func (YAMLSerializer) Dump(ctx context.Context, v any, dst FileSystemTarget) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return WriteAll(ctx, dst, data)
}

func (YAMLSerializer) Load(ctx context.Context, src FileSystemTarget, typ reflect.Type) (any, error) {
	data, err := ReadAll(ctx, src)
	if err != nil {
		return nil, err
	}
	ptr := reflect.New(typ)
	if err := yaml.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML from %s: %w", src.Path(), err)
	}
	return ptr.Elem().Interface(), nil
}

func (YAMLSerializer) Extension() string { return "yaml" }
