// Copyright 2025 Radja Thaher
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dynjson converts between JSON and schema-typed dynamic protobuf
// messages. It is the runtime replacement for what generated stubs and
// protojson would do with compiled types: every field is resolved by name
// against the message descriptor, with fail-fast validation so malformed
// input never reaches the wire.
package dynjson

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

const fieldMaskFullName = "google.protobuf.FieldMask"

// fieldTables caches the canonical-name lookup table per message type so the
// descriptor is indexed once, not re-scanned per call.
var fieldTables sync.Map // protoreflect.MessageDescriptor -> map[string]protoreflect.FieldDescriptor

func fieldTable(md protoreflect.MessageDescriptor) map[string]protoreflect.FieldDescriptor {
	if t, ok := fieldTables.Load(md); ok {
		return t.(map[string]protoreflect.FieldDescriptor)
	}
	fields := md.Fields()
	table := make(map[string]protoreflect.FieldDescriptor, fields.Len()*2)
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		// Proto name is the fallback spelling; the JSON name wins on
		// collision because it is the canonical external form.
		if _, ok := table[string(fd.Name())]; !ok {
			table[string(fd.Name())] = fd
		}
		table[fd.JSONName()] = fd
	}
	actual, _ := fieldTables.LoadOrStore(md, table)
	return actual.(map[string]protoreflect.FieldDescriptor)
}

// Decode parses JSON text and builds a dynamic message of the given type.
// The input must be a single JSON object with no trailing data.
func Decode(md protoreflect.MessageDescriptor, data []byte) (*dynamicpb.Message, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON input: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid JSON input: trailing data after value")
	}
	return DecodeValue(md, v)
}

// DecodeValue builds a dynamic message from an already-parsed JSON value
// tree (maps, slices, json.Number, string, bool, nil).
func DecodeValue(md protoreflect.MessageDescriptor, v any) (*dynamicpb.Message, error) {
	msg := dynamicpb.NewMessage(md)
	if err := decodeInto(msg, v, ""); err != nil {
		return nil, err
	}
	return msg, nil
}

func decodeInto(m protoreflect.Message, v any, path string) error {
	obj, ok := v.(map[string]any)
	if !ok {
		return errNotAnObject(path, v)
	}
	md := m.Descriptor()
	table := fieldTable(md)

	// Tracks which oneof groups are already satisfied within this message
	// so a second member is rejected instead of silently winning.
	var seenOneofs map[int]string

	for key, val := range obj {
		fd, ok := table[key]
		if !ok {
			return errUnknownField(path, key)
		}
		if val == nil {
			// JSON null leaves the field unset, preserving the
			// absent-vs-default distinction.
			continue
		}
		if od := fd.ContainingOneof(); od != nil && !od.IsSynthetic() {
			if seenOneofs == nil {
				seenOneofs = make(map[int]string)
			}
			if first, dup := seenOneofs[od.Index()]; dup {
				return errAmbiguousOneof(path, string(od.Name()), first, key)
			}
			seenOneofs[od.Index()] = key
		}
		if err := setField(m, fd, val, joinPath(path, key)); err != nil {
			return err
		}
	}
	return nil
}

func setField(m protoreflect.Message, fd protoreflect.FieldDescriptor, v any, path string) error {
	switch {
	case fd.IsMap():
		obj, ok := v.(map[string]any)
		if !ok {
			return errNotAnObject(path, v)
		}
		mp := m.Mutable(fd).Map()
		for key, val := range obj {
			entryPath := joinPath(path, key)
			mk, err := mapKey(fd.MapKey(), key, entryPath)
			if err != nil {
				return err
			}
			if val == nil {
				continue
			}
			mv, err := singularValue(mp.NewValue, fd.MapValue(), val, entryPath)
			if err != nil {
				return err
			}
			mp.Set(mk, mv)
		}
		return nil

	case fd.IsList():
		arr, ok := v.([]any)
		if !ok {
			return errNotASequence(path, v)
		}
		lst := m.Mutable(fd).List()
		for i, elem := range arr {
			elemPath := fmt.Sprintf("%s[%d]", path, i)
			lv, err := singularValue(lst.NewElement, fd, elem, elemPath)
			if err != nil {
				return err
			}
			lst.Append(lv)
		}
		return nil

	default:
		val, err := singularValue(func() protoreflect.Value { return m.NewField(fd) }, fd, v, path)
		if err != nil {
			return err
		}
		m.Set(fd, val)
		return nil
	}
}

// singularValue converts one JSON value to a protoreflect.Value of the
// field's declared kind. newValue allocates the container-appropriate empty
// value for message kinds (field, list element, or map value).
func singularValue(newValue func() protoreflect.Value, fd protoreflect.FieldDescriptor, v any, path string) (protoreflect.Value, error) {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		b, ok := v.(bool)
		if !ok {
			return protoreflect.Value{}, errTypeMismatch(path, "boolean", v)
		}
		return protoreflect.ValueOfBool(b), nil

	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		n, err := decodeInt(v, 32, path)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfInt32(int32(n)), nil

	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		n, err := decodeInt(v, 64, path)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfInt64(n), nil

	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		n, err := decodeUint(v, 32, path)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfUint32(uint32(n)), nil

	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		n, err := decodeUint(v, 64, path)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfUint64(n), nil

	case protoreflect.FloatKind:
		f, err := decodeFloat(v, 32, path)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfFloat32(float32(f)), nil

	case protoreflect.DoubleKind:
		f, err := decodeFloat(v, 64, path)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfFloat64(f), nil

	case protoreflect.StringKind:
		s, ok := v.(string)
		if !ok {
			return protoreflect.Value{}, errTypeMismatch(path, "string", v)
		}
		return protoreflect.ValueOfString(s), nil

	case protoreflect.BytesKind:
		s, ok := v.(string)
		if !ok {
			return protoreflect.Value{}, errTypeMismatch(path, "base64 string", v)
		}
		b, err := decodeBase64(s)
		if err != nil {
			return protoreflect.Value{}, errTypeMismatch(path, "base64 string", v)
		}
		return protoreflect.ValueOfBytes(b), nil

	case protoreflect.EnumKind:
		return enumValue(fd.Enum(), v, path)

	case protoreflect.MessageKind, protoreflect.GroupKind:
		if fd.Message().FullName() == fieldMaskFullName {
			if s, ok := v.(string); ok {
				return fieldMaskValue(newValue, s), nil
			}
		}
		val := newValue()
		if err := decodeInto(val.Message(), v, path); err != nil {
			return protoreflect.Value{}, err
		}
		return val, nil

	default:
		return protoreflect.Value{}, errTypeMismatch(path, fd.Kind().String(), v)
	}
}

func enumValue(ed protoreflect.EnumDescriptor, v any, path string) (protoreflect.Value, error) {
	switch val := v.(type) {
	case string:
		// Symbolic names resolve case-sensitively against the declared set.
		if ev := ed.Values().ByName(protoreflect.Name(val)); ev != nil {
			return protoreflect.ValueOfEnum(ev.Number()), nil
		}
		return protoreflect.Value{}, errInvalidEnum(path, val, string(ed.FullName()))
	case json.Number:
		n, err := strconv.ParseInt(val.String(), 10, 32)
		if err != nil {
			return protoreflect.Value{}, errInvalidEnum(path, val, string(ed.FullName()))
		}
		return protoreflect.ValueOfEnum(protoreflect.EnumNumber(n)), nil
	default:
		return protoreflect.Value{}, errTypeMismatch(path, "enum name or number", v)
	}
}

func fieldMaskValue(newValue func() protoreflect.Value, s string) protoreflect.Value {
	val := newValue()
	msg := val.Message()
	pathsField := msg.Descriptor().Fields().ByName("paths")
	lst := msg.Mutable(pathsField).List()
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			lst.Append(protoreflect.ValueOfString(p))
		}
	}
	return val
}

func mapKey(fd protoreflect.FieldDescriptor, key, path string) (protoreflect.MapKey, error) {
	switch fd.Kind() {
	case protoreflect.StringKind:
		return protoreflect.ValueOfString(key).MapKey(), nil
	case protoreflect.BoolKind:
		switch key {
		case "true":
			return protoreflect.ValueOfBool(true).MapKey(), nil
		case "false":
			return protoreflect.ValueOfBool(false).MapKey(), nil
		}
		return protoreflect.MapKey{}, errTypeMismatch(path, "boolean key", key)
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		n, err := strconv.ParseInt(key, 10, 32)
		if err != nil {
			return protoreflect.MapKey{}, errTypeMismatch(path, "int32 key", key)
		}
		return protoreflect.ValueOfInt32(int32(n)).MapKey(), nil
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		n, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return protoreflect.MapKey{}, errTypeMismatch(path, "int64 key", key)
		}
		return protoreflect.ValueOfInt64(n).MapKey(), nil
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		n, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return protoreflect.MapKey{}, errTypeMismatch(path, "uint32 key", key)
		}
		return protoreflect.ValueOfUint32(uint32(n)).MapKey(), nil
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		n, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return protoreflect.MapKey{}, errTypeMismatch(path, "uint64 key", key)
		}
		return protoreflect.ValueOfUint64(n).MapKey(), nil
	default:
		return protoreflect.MapKey{}, errTypeMismatch(path, "map key", key)
	}
}

// decodeInt accepts JSON numbers and numeric strings. Large 64-bit
// identifiers commonly arrive as strings to avoid float precision loss, so
// both forms parse through strconv without a float round-trip.
func decodeInt(v any, bits int, path string) (int64, error) {
	switch val := v.(type) {
	case json.Number:
		n, err := strconv.ParseInt(val.String(), 10, bits)
		if err != nil {
			return 0, errTypeMismatch(path, fmt.Sprintf("int%d", bits), v)
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(val, 10, bits)
		if err != nil {
			return 0, errTypeMismatch(path, fmt.Sprintf("int%d", bits), v)
		}
		return n, nil
	default:
		return 0, errTypeMismatch(path, fmt.Sprintf("int%d", bits), v)
	}
}

func decodeUint(v any, bits int, path string) (uint64, error) {
	switch val := v.(type) {
	case json.Number:
		n, err := strconv.ParseUint(val.String(), 10, bits)
		if err != nil {
			return 0, errTypeMismatch(path, fmt.Sprintf("uint%d", bits), v)
		}
		return n, nil
	case string:
		n, err := strconv.ParseUint(val, 10, bits)
		if err != nil {
			return 0, errTypeMismatch(path, fmt.Sprintf("uint%d", bits), v)
		}
		return n, nil
	default:
		return 0, errTypeMismatch(path, fmt.Sprintf("uint%d", bits), v)
	}
}

func decodeFloat(v any, bits int, path string) (float64, error) {
	switch val := v.(type) {
	case json.Number:
		f, err := strconv.ParseFloat(val.String(), bits)
		if err != nil {
			return 0, errTypeMismatch(path, "number", v)
		}
		return f, nil
	case string:
		switch val {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		f, err := strconv.ParseFloat(val, bits)
		if err != nil {
			return 0, errTypeMismatch(path, "number", v)
		}
		return f, nil
	default:
		return 0, errTypeMismatch(path, "number", v)
	}
}

func decodeBase64(s string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	var err error
	for _, enc := range encodings {
		var b []byte
		if b, err = enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, err
}
