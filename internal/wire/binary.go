// {{{ Copyright (c) Paul R. Tagliamonte <paultag@gmail.com> 2020-2021
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE. }}}

// Package wire implements the default wire codec for go-ipmpsc: a
// reflection-based little-endian binary encoding with a zero-copy decode
// path for strings and byte slices, in the spirit of the bincode codec the
// original ipmpsc library pairs with serde's borrowed-deserialize support.
// It is an internal implementation detail — the default, not the only
// choice; callers of the parent package may supply their own via
// ipmpsc.WithCodec.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"unsafe"
)

// Binary is the default Codec: fixed-width numeric kinds encoded verbatim,
// strings and byte slices length-prefixed, structs encoded field by field
// in declaration order (exported fields only).
type Binary struct{}

// Marshal encodes v into its little-endian binary image.
func (Binary) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, reflect.ValueOf(v)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data into v, which must be a non-nil pointer. When
// zeroCopy is true, string and []byte values reference data directly.
func (Binary) Unmarshal(data []byte, v any, zeroCopy bool) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("wire: Unmarshal target must be a non-nil pointer, got %T", v)
	}
	d := &decoder{buf: data, zeroCopy: zeroCopy}
	if err := d.decodeValue(rv.Elem()); err != nil {
		return err
	}
	if d.off != len(data) {
		return fmt.Errorf("wire: %d trailing bytes after decode", len(data)-d.off)
	}
	return nil
}

func encodeValue(buf *bytes.Buffer, v reflect.Value) error {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return fmt.Errorf("wire: cannot encode nil %s", v.Kind())
		}
		return encodeValue(buf, v.Elem())

	case reflect.Bool:
		if v.Bool() {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		return nil

	case reflect.Int8, reflect.Uint8, reflect.Int16, reflect.Uint16,
		reflect.Int32, reflect.Uint32, reflect.Int64, reflect.Uint64,
		reflect.Int, reflect.Uint:
		return encodeFixedInt(buf, v)

	case reflect.Float32:
		return binary.Write(buf, binary.LittleEndian, float32(v.Float()))

	case reflect.Float64:
		return binary.Write(buf, binary.LittleEndian, v.Float())

	case reflect.String:
		s := v.String()
		return encodeLengthPrefixed(buf, []byte(s))

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return encodeLengthPrefixed(buf, v.Bytes())
		}
		var lenPrefix [4]byte
		binary.LittleEndian.PutUint32(lenPrefix[:], uint32(v.Len()))
		buf.Write(lenPrefix[:])
		for i := 0; i < v.Len(); i++ {
			if err := encodeValue(buf, v.Index(i)); err != nil {
				return err
			}
		}
		return nil

	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := encodeValue(buf, v.Index(i)); err != nil {
				return err
			}
		}
		return nil

	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).PkgPath != "" {
				continue // unexported
			}
			if err := encodeValue(buf, v.Field(i)); err != nil {
				return fmt.Errorf("wire: field %s: %w", t.Field(i).Name, err)
			}
		}
		return nil

	default:
		return fmt.Errorf("wire: unsupported kind %s", v.Kind())
	}
}

// encodeFixedInt encodes a fixed-width integer kind in its natural byte
// width, little-endian. int/uint are encoded as 8 bytes for a stable
// on-the-wire width regardless of host int size.
func encodeFixedInt(buf *bytes.Buffer, v reflect.Value) error {
	switch v.Kind() {
	case reflect.Int8:
		buf.WriteByte(byte(v.Int()))
		return nil
	case reflect.Uint8:
		buf.WriteByte(byte(v.Uint()))
		return nil
	case reflect.Int16:
		return binary.Write(buf, binary.LittleEndian, int16(v.Int()))
	case reflect.Uint16:
		return binary.Write(buf, binary.LittleEndian, uint16(v.Uint()))
	case reflect.Int32:
		return binary.Write(buf, binary.LittleEndian, int32(v.Int()))
	case reflect.Uint32:
		return binary.Write(buf, binary.LittleEndian, uint32(v.Uint()))
	case reflect.Int64, reflect.Int:
		return binary.Write(buf, binary.LittleEndian, v.Int())
	case reflect.Uint64, reflect.Uint:
		return binary.Write(buf, binary.LittleEndian, v.Uint())
	default:
		return fmt.Errorf("wire: unsupported integer kind %s", v.Kind())
	}
}

func encodeLengthPrefixed(buf *bytes.Buffer, b []byte) error {
	var lenPrefix [4]byte
	binary.LittleEndian.PutUint32(lenPrefix[:], uint32(len(b)))
	buf.Write(lenPrefix[:])
	buf.Write(b)
	return nil
}

type decoder struct {
	buf      []byte
	off      int
	zeroCopy bool
}

func (d *decoder) take(n int) ([]byte, error) {
	if d.off+n > len(d.buf) {
		return nil, fmt.Errorf("wire: unexpected end of buffer decoding %d bytes", n)
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decoder) decodeValue(v reflect.Value) error {
	switch v.Kind() {
	case reflect.Bool:
		b, err := d.take(1)
		if err != nil {
			return err
		}
		v.SetBool(b[0] != 0)
		return nil

	case reflect.Int8:
		b, err := d.take(1)
		if err != nil {
			return err
		}
		v.SetInt(int64(int8(b[0])))
		return nil
	case reflect.Uint8:
		b, err := d.take(1)
		if err != nil {
			return err
		}
		v.SetUint(uint64(b[0]))
		return nil
	case reflect.Int16:
		b, err := d.take(2)
		if err != nil {
			return err
		}
		v.SetInt(int64(int16(binary.LittleEndian.Uint16(b))))
		return nil
	case reflect.Uint16:
		b, err := d.take(2)
		if err != nil {
			return err
		}
		v.SetUint(uint64(binary.LittleEndian.Uint16(b)))
		return nil
	case reflect.Int32:
		b, err := d.take(4)
		if err != nil {
			return err
		}
		v.SetInt(int64(int32(binary.LittleEndian.Uint32(b))))
		return nil
	case reflect.Uint32:
		b, err := d.take(4)
		if err != nil {
			return err
		}
		v.SetUint(uint64(binary.LittleEndian.Uint32(b)))
		return nil
	case reflect.Int64, reflect.Int:
		b, err := d.take(8)
		if err != nil {
			return err
		}
		v.SetInt(int64(binary.LittleEndian.Uint64(b)))
		return nil
	case reflect.Uint64, reflect.Uint:
		b, err := d.take(8)
		if err != nil {
			return err
		}
		v.SetUint(binary.LittleEndian.Uint64(b))
		return nil

	case reflect.Float32:
		b, err := d.take(4)
		if err != nil {
			return err
		}
		v.SetFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(b))))
		return nil
	case reflect.Float64:
		b, err := d.take(8)
		if err != nil {
			return err
		}
		v.SetFloat(math.Float64frombits(binary.LittleEndian.Uint64(b)))
		return nil

	case reflect.String:
		raw, err := d.takeLengthPrefixed()
		if err != nil {
			return err
		}
		if d.zeroCopy {
			v.SetString(unsafeString(raw))
		} else {
			v.SetString(string(raw))
		}
		return nil

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			raw, err := d.takeLengthPrefixed()
			if err != nil {
				return err
			}
			if d.zeroCopy {
				v.SetBytes(raw)
			} else {
				cp := make([]byte, len(raw))
				copy(cp, raw)
				v.SetBytes(cp)
			}
			return nil
		}
		n, err := d.takeCount()
		if err != nil {
			return err
		}
		slice := reflect.MakeSlice(v.Type(), n, n)
		for i := 0; i < n; i++ {
			if err := d.decodeValue(slice.Index(i)); err != nil {
				return err
			}
		}
		v.Set(slice)
		return nil

	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := d.decodeValue(v.Index(i)); err != nil {
				return err
			}
		}
		return nil

	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).PkgPath != "" {
				continue
			}
			if err := d.decodeValue(v.Field(i)); err != nil {
				return fmt.Errorf("wire: field %s: %w", t.Field(i).Name, err)
			}
		}
		return nil

	default:
		return fmt.Errorf("wire: unsupported kind %s", v.Kind())
	}
}

func (d *decoder) takeCount() (int, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint32(b)), nil
}

func (d *decoder) takeLengthPrefixed() ([]byte, error) {
	n, err := d.takeCount()
	if err != nil {
		return nil, err
	}
	return d.take(n)
}

// unsafeString views b's bytes as a string without copying. The caller is
// responsible for ensuring b (and the region it references) outlives the
// returned string, exactly the contract ipmpsc.ZeroCopyContext documents.
func unsafeString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}
