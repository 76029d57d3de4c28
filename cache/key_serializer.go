package cache

import (
	"encoding"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// KeySeparator defines the delimiter used between cache key components.
const KeySeparator = "::"

// KeySerializer turns a Key into its canonical string. Equal keys must map to
// equal strings and distinct keys to distinct strings.
type KeySerializer interface {
	SerializeKey(key Key) string
}

// defaultKeySerializer canonicalizes keys with reflection. Every scalar is
// tagged with its dynamic type so 1, int64(1) and "1" never collide.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates the reflection based key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return defaultKeySerializer{}
}

// SerializeKey builds the canonical form of key.
func (s defaultKeySerializer) SerializeKey(key Key) string {
	var b strings.Builder
	for i, part := range key {
		if i > 0 {
			b.WriteString(KeySeparator)
		}
		s.write(&b, reflect.ValueOf(part))
	}
	return b.String()
}

var textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()

func (s defaultKeySerializer) write(b *strings.Builder, v reflect.Value) {
	if !v.IsValid() {
		b.WriteString("nil")
		return
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			b.WriteString("nil")
			return
		}
		s.write(b, v.Elem())
		return
	}

	// time.Time, uuid.UUID and friends have no exported fields worth walking.
	if v.Type().Implements(textMarshalerType) && v.CanInterface() {
		if text, err := v.Interface().(encoding.TextMarshaler).MarshalText(); err == nil {
			b.WriteString(v.Type().String())
			b.WriteByte(':')
			b.WriteString(strconv.Quote(string(text)))
			return
		}
	}

	typ := v.Type().String()

	switch v.Kind() {
	case reflect.String:
		b.WriteString(typ + ":" + strconv.Quote(v.String()))
	case reflect.Bool:
		b.WriteString(typ + ":" + strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString(typ + ":" + strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		b.WriteString(typ + ":" + strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		b.WriteString(typ + ":" + strconv.FormatFloat(v.Float(), 'g', -1, 64))
	case reflect.Complex64, reflect.Complex128:
		b.WriteString(typ + ":" + strconv.FormatComplex(v.Complex(), 'g', -1, 128))
	case reflect.Slice:
		if v.IsNil() {
			b.WriteString(typ + ":nil")
			return
		}
		s.writeSequence(b, typ, v)
	case reflect.Array:
		s.writeSequence(b, typ, v)
	case reflect.Map:
		if v.IsNil() {
			b.WriteString(typ + ":nil")
			return
		}
		s.writeMap(b, typ, v)
	case reflect.Struct:
		s.writeStruct(b, typ, v)
	default:
		// Functions, channels and unsafe pointers are identified by address,
		// which is only stable within a single process.
		fmt.Fprintf(b, "%s:%#x", typ, v.Pointer())
	}
}

func (s defaultKeySerializer) writeSequence(b *strings.Builder, typ string, v reflect.Value) {
	b.WriteString(typ)
	b.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		s.write(b, v.Index(i))
	}
	b.WriteByte(']')
}

func (s defaultKeySerializer) writeMap(b *strings.Builder, typ string, v reflect.Value) {
	type pair struct{ k, v string }

	pairs := make([]pair, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		var kb, vb strings.Builder
		s.write(&kb, iter.Key())
		s.write(&vb, iter.Value())
		pairs = append(pairs, pair{kb.String(), vb.String()})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].k < pairs[j].k })

	b.WriteString(typ)
	b.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.k)
		b.WriteByte('=')
		b.WriteString(p.v)
	}
	b.WriteByte('}')
}

func (s defaultKeySerializer) writeStruct(b *strings.Builder, typ string, v reflect.Value) {
	t := v.Type()
	b.WriteString(typ)
	b.WriteByte('{')
	first := true
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(field.Name)
		b.WriteByte(':')
		s.write(b, v.Field(i))
	}
	b.WriteByte('}')
}
