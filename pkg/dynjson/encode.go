package dynjson

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// Encode renders a dynamic message as compact JSON. Only populated fields
// are emitted, keyed by their canonical JSON names in field-declaration
// order. 64-bit integers are rendered as strings so the output survives
// consumers that parse numbers as floats.
func Encode(m protoreflect.Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeMessage(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeMessage(buf *bytes.Buffer, m protoreflect.Message) error {
	if m.Descriptor().FullName() == fieldMaskFullName {
		return writeFieldMask(buf, m)
	}
	buf.WriteByte('{')
	first := true
	fields := m.Descriptor().Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		if !m.Has(fd) {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		writeString(buf, fd.JSONName())
		buf.WriteByte(':')
		if err := writeField(buf, fd, m.Get(fd)); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeField(buf *bytes.Buffer, fd protoreflect.FieldDescriptor, v protoreflect.Value) error {
	switch {
	case fd.IsMap():
		return writeMap(buf, fd, v.Map())
	case fd.IsList():
		buf.WriteByte('[')
		lst := v.List()
		for i := 0; i < lst.Len(); i++ {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeSingular(buf, fd, lst.Get(i)); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		return writeSingular(buf, fd, v)
	}
}

func writeSingular(buf *bytes.Buffer, fd protoreflect.FieldDescriptor, v protoreflect.Value) error {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		buf.WriteString(strconv.FormatBool(v.Bool()))
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		buf.WriteString(strconv.FormatInt(v.Int(), 10))
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		buf.WriteString(strconv.FormatUint(v.Uint(), 10))
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		writeString(buf, strconv.FormatInt(v.Int(), 10))
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		writeString(buf, strconv.FormatUint(v.Uint(), 10))
	case protoreflect.FloatKind:
		writeFloat(buf, v.Float(), 32)
	case protoreflect.DoubleKind:
		writeFloat(buf, v.Float(), 64)
	case protoreflect.StringKind:
		writeString(buf, v.String())
	case protoreflect.BytesKind:
		writeString(buf, base64.StdEncoding.EncodeToString(v.Bytes()))
	case protoreflect.EnumKind:
		// Symbolic name when the number is in the declared set, else the
		// raw number for open-enum values the bundle does not know.
		if ev := fd.Enum().Values().ByNumber(v.Enum()); ev != nil {
			writeString(buf, string(ev.Name()))
		} else {
			buf.WriteString(strconv.FormatInt(int64(v.Enum()), 10))
		}
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return writeMessage(buf, v.Message())
	}
	return nil
}

// writeMap emits map entries with deterministic key order. The wire does not
// expose insertion order through protoreflect, so keys sort by their
// declared kind (numeric for integer keys, lexical otherwise).
func writeMap(buf *bytes.Buffer, fd protoreflect.FieldDescriptor, mp protoreflect.Map) error {
	type entry struct {
		key string
		num int64
		val protoreflect.Value
	}
	numeric := false
	switch fd.MapKey().Kind() {
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind,
		protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		numeric = true
	}

	entries := make([]entry, 0, mp.Len())
	mp.Range(func(k protoreflect.MapKey, v protoreflect.Value) bool {
		e := entry{key: k.String(), val: v}
		if numeric {
			e.num, _ = strconv.ParseInt(e.key, 10, 64)
		}
		entries = append(entries, e)
		return true
	})
	sort.Slice(entries, func(i, j int) bool {
		if numeric {
			return entries[i].num < entries[j].num
		}
		return entries[i].key < entries[j].key
	})

	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, e.key)
		buf.WriteByte(':')
		if err := writeSingular(buf, fd.MapValue(), e.val); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeFieldMask(buf *bytes.Buffer, m protoreflect.Message) error {
	pathsField := m.Descriptor().Fields().ByName("paths")
	lst := m.Get(pathsField).List()
	paths := make([]string, 0, lst.Len())
	for i := 0; i < lst.Len(); i++ {
		paths = append(paths, lst.Get(i).String())
	}
	writeString(buf, strings.Join(paths, ","))
	return nil
}

func writeFloat(buf *bytes.Buffer, f float64, bits int) {
	switch {
	case math.IsNaN(f):
		buf.WriteString(`"NaN"`)
	case math.IsInf(f, 1):
		buf.WriteString(`"Infinity"`)
	case math.IsInf(f, -1):
		buf.WriteString(`"-Infinity"`)
	default:
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, bits))
	}
}

func writeString(buf *bytes.Buffer, s string) {
	// encoding/json handles the full escaping rules.
	b, _ := json.Marshal(s)
	buf.Write(b)
}
