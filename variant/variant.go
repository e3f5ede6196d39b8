// Package variant implements the self-describing binary encoding used for
// ParqueDB's $data column (§4.A). Every encoded value starts with a 2-byte
// header (magic 0x56, version 0x01), a 1-byte type tag, and a type-specific
// body. Integers use the smallest width that losslessly holds the value.
// Re-encoding a decoded value always produces the same, normalized bytes.
package variant

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"sort"
	"time"
)

const (
	magicByte   byte = 0x56
	versionByte byte = 0x01
)

type tag byte

const (
	tagNull tag = iota
	tagTrue
	tagFalse
	tagInt8
	tagInt16
	tagInt32
	tagInt64
	tagFloat64
	tagBigInt
	tagString
	tagBinary
	tagDate
	tagArray
	tagObject
)

// ErrorKind distinguishes the ways decoding can fail, per §4.A.
type ErrorKind string

const (
	ErrBadMagic    ErrorKind = "bad_magic"
	ErrBadVersion  ErrorKind = "bad_version"
	ErrTruncated   ErrorKind = "truncated"
	ErrUnknownType ErrorKind = "unknown_type"
	ErrNotEncodable ErrorKind = "not_encodable"
)

// DecodeError reports a decoding failure along with the byte offset it was
// detected at, so callers can report Corruption with context.
type DecodeError struct {
	Kind   ErrorKind
	Offset int
	Detail string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("variant: %s at offset %d: %s", e.Kind, e.Offset, e.Detail)
}

// Date wraps a UTC instant truncated to millisecond precision, distinct
// from an arbitrary string so it round-trips through the "date" tag.
type Date struct{ time.Time }

// Binary distinguishes a raw byte payload from a string.
type Binary []byte

// Object is an ordered map: field order is preserved on round-trip, with
// later duplicate keys overwriting earlier ones in place (their original
// position is kept).
type Object struct {
	keys   []string
	values map[string]any
}

// NewObject builds an Object preserving insertion order of keys.
func NewObject() *Object {
	return &Object{values: make(map[string]any)}
}

// Set inserts or updates a field, preserving the original position on
// update.
func (o *Object) Set(key string, value any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Get returns a field's value.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Delete removes a field.
func (o *Object) Delete(key string) {
	if _, ok := o.values[key]; !ok {
		return
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the fields in their preserved order.
func (o *Object) Keys() []string { return append([]string(nil), o.keys...) }

// Len returns the number of fields.
func (o *Object) Len() int { return len(o.keys) }

// Range calls fn for every field in order.
func (o *Object) Range(fn func(key string, value any)) {
	for _, k := range o.keys {
		fn(k, o.values[k])
	}
}

// FromMap builds an Object from a map, with keys sorted for a deterministic
// (if arbitrary) order — used when ingesting JSON-decoded documents, whose
// key order Go's map does not preserve.
func FromMap(m map[string]any) *Object {
	o := NewObject()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		o.Set(k, m[k])
	}
	return o
}

// ToMap flattens an Object back to a plain map, discarding order.
func (o *Object) ToMap() map[string]any {
	m := make(map[string]any, len(o.keys))
	for _, k := range o.keys {
		m[k] = o.values[k]
	}
	return m
}

// IsEncodable reports whether v can be losslessly encoded: it rejects NaN,
// +/-Inf, and any Go type outside the supported set. Every Date and
// time.Time value is accepted.
func IsEncodable(v any) bool {
	switch x := v.(type) {
	case nil, bool, string, Binary, []byte:
		return true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return !math.IsNaN(x) && !math.IsInf(x, 0)
	case float32:
		return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
	case *big.Int:
		return x != nil
	case Date:
		return !x.Time.IsZero() || true // zero time is a valid, if unusual, date
	case time.Time:
		return true
	case []any:
		for _, e := range x {
			if !IsEncodable(e) {
				return false
			}
		}
		return true
	case *Object:
		ok := true
		x.Range(func(_ string, val any) {
			if !IsEncodable(val) {
				ok = false
			}
		})
		return ok
	case map[string]any:
		for _, val := range x {
			if !IsEncodable(val) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Encode renders v to its normalized binary form. It returns a
// *DecodeError-shaped error (ErrNotEncodable) if v is not encodable.
func Encode(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte(magicByte)
	buf.WriteByte(versionByte)
	if err := encodeValue(buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		buf.WriteByte(byte(tagNull))
	case bool:
		if x {
			buf.WriteByte(byte(tagTrue))
		} else {
			buf.WriteByte(byte(tagFalse))
		}
	case int:
		return encodeInt(buf, int64(x))
	case int8:
		return encodeInt(buf, int64(x))
	case int16:
		return encodeInt(buf, int64(x))
	case int32:
		return encodeInt(buf, int64(x))
	case int64:
		return encodeInt(buf, x)
	case uint:
		return encodeUintAsIntOrBig(buf, uint64(x))
	case uint8:
		return encodeInt(buf, int64(x))
	case uint16:
		return encodeInt(buf, int64(x))
	case uint32:
		return encodeInt(buf, int64(x))
	case uint64:
		return encodeUintAsIntOrBig(buf, x)
	case float32:
		return encodeFloat(buf, float64(x))
	case float64:
		return encodeFloat(buf, x)
	case *big.Int:
		return encodeBigInt(buf, x)
	case string:
		encodeString(buf, x)
	case Binary:
		encodeBinary(buf, x)
	case []byte:
		encodeBinary(buf, x)
	case Date:
		encodeDate(buf, x.Time)
	case time.Time:
		encodeDate(buf, x)
	case []any:
		return encodeArray(buf, x)
	case *Object:
		return encodeObject(buf, x)
	case map[string]any:
		return encodeObject(buf, FromMap(x))
	default:
		return &DecodeError{Kind: ErrNotEncodable, Detail: fmt.Sprintf("unsupported type %T", v)}
	}
	return nil
}

func encodeUintAsIntOrBig(buf *bytes.Buffer, x uint64) error {
	if x <= math.MaxInt64 {
		return encodeInt(buf, int64(x))
	}
	return encodeBigInt(buf, new(big.Int).SetUint64(x))
}

func encodeInt(buf *bytes.Buffer, x int64) error {
	switch {
	case x >= math.MinInt8 && x <= math.MaxInt8:
		buf.WriteByte(byte(tagInt8))
		buf.WriteByte(byte(int8(x)))
	case x >= math.MinInt16 && x <= math.MaxInt16:
		buf.WriteByte(byte(tagInt16))
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(int16(x)))
		buf.Write(b[:])
	case x >= math.MinInt32 && x <= math.MaxInt32:
		buf.WriteByte(byte(tagInt32))
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(int32(x)))
		buf.Write(b[:])
	default:
		buf.WriteByte(byte(tagInt64))
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(x))
		buf.Write(b[:])
	}
	return nil
}

func encodeFloat(buf *bytes.Buffer, x float64) error {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return &DecodeError{Kind: ErrNotEncodable, Detail: "NaN/Inf not encodable"}
	}
	buf.WriteByte(byte(tagFloat64))
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(x))
	buf.Write(b[:])
	return nil
}

func encodeBigInt(buf *bytes.Buffer, x *big.Int) error {
	buf.WriteByte(byte(tagBigInt))
	sign := byte(0)
	if x.Sign() < 0 {
		sign = 1
	}
	buf.WriteByte(sign)
	mag := new(big.Int).Abs(x).Bytes()
	writeVarint(buf, uint64(len(mag)))
	buf.Write(mag)
	return nil
}

func encodeString(buf *bytes.Buffer, s string) {
	buf.WriteByte(byte(tagString))
	writeVarint(buf, uint64(len(s)))
	buf.WriteString(s)
}

func encodeBinary(buf *bytes.Buffer, b []byte) {
	buf.WriteByte(byte(tagBinary))
	writeVarint(buf, uint64(len(b)))
	buf.Write(b)
}

func encodeDate(buf *bytes.Buffer, t time.Time) {
	buf.WriteByte(byte(tagDate))
	ms := t.UTC().UnixMilli()
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(ms))
	buf.Write(b[:])
}

func encodeArray(buf *bytes.Buffer, arr []any) error {
	buf.WriteByte(byte(tagArray))
	writeVarint(buf, uint64(len(arr)))
	for _, e := range arr {
		if err := encodeValue(buf, e); err != nil {
			return err
		}
	}
	return nil
}

func encodeObject(buf *bytes.Buffer, obj *Object) error {
	buf.WriteByte(byte(tagObject))
	writeVarint(buf, uint64(obj.Len()))
	var encErr error
	obj.Range(func(key string, val any) {
		if encErr != nil {
			return
		}
		writeVarint(buf, uint64(len(key)))
		buf.WriteString(key)
		encErr = encodeValue(buf, val)
	})
	return encErr
}

func writeVarint(buf *bytes.Buffer, x uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], x)
	buf.Write(tmp[:n])
}

// Decode parses a variant binary blob back into its Go representation:
// nil, bool, int64 (for every encoded integer width), float64, *big.Int,
// string, Binary, Date, []any, *Object.
func Decode(data []byte) (any, error) {
	if len(data) < 2 {
		return nil, &DecodeError{Kind: ErrTruncated, Offset: 0, Detail: "missing header"}
	}
	if data[0] != magicByte {
		return nil, &DecodeError{Kind: ErrBadMagic, Offset: 0, Detail: fmt.Sprintf("got 0x%02x", data[0])}
	}
	if data[1] != versionByte {
		return nil, &DecodeError{Kind: ErrBadVersion, Offset: 1, Detail: fmt.Sprintf("got 0x%02x", data[1])}
	}
	d := &decoder{buf: data, pos: 2}
	v, err := d.decodeValue()
	if err != nil {
		return nil, err
	}
	if d.pos != len(d.buf) {
		return nil, &DecodeError{Kind: ErrTruncated, Offset: d.pos, Detail: "trailing bytes"}
	}
	return v, nil
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) need(n int) error {
	if d.pos+n > len(d.buf) {
		return &DecodeError{Kind: ErrTruncated, Offset: d.pos, Detail: fmt.Sprintf("need %d bytes", n)}
	}
	return nil
}

func (d *decoder) readByte() (byte, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) readN(n int) ([]byte, error) {
	if err := d.need(n); err != nil {
		return nil, err
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) readVarint() (uint64, error) {
	x, n := binary.Uvarint(d.buf[d.pos:])
	if n <= 0 {
		return 0, &DecodeError{Kind: ErrTruncated, Offset: d.pos, Detail: "bad varint"}
	}
	d.pos += n
	return x, nil
}

func (d *decoder) decodeValue() (any, error) {
	start := d.pos
	t, err := d.readByte()
	if err != nil {
		return nil, err
	}
	switch tag(t) {
	case tagNull:
		return nil, nil
	case tagTrue:
		return true, nil
	case tagFalse:
		return false, nil
	case tagInt8:
		b, err := d.readN(1)
		if err != nil {
			return nil, err
		}
		return int64(int8(b[0])), nil
	case tagInt16:
		b, err := d.readN(2)
		if err != nil {
			return nil, err
		}
		return int64(int16(binary.BigEndian.Uint16(b))), nil
	case tagInt32:
		b, err := d.readN(4)
		if err != nil {
			return nil, err
		}
		return int64(int32(binary.BigEndian.Uint32(b))), nil
	case tagInt64:
		b, err := d.readN(8)
		if err != nil {
			return nil, err
		}
		return int64(binary.BigEndian.Uint64(b)), nil
	case tagFloat64:
		b, err := d.readN(8)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
	case tagBigInt:
		sign, err := d.readByte()
		if err != nil {
			return nil, err
		}
		n, err := d.readVarint()
		if err != nil {
			return nil, err
		}
		mag, err := d.readN(int(n))
		if err != nil {
			return nil, err
		}
		bi := new(big.Int).SetBytes(mag)
		if sign == 1 {
			bi.Neg(bi)
		}
		return bi, nil
	case tagString:
		n, err := d.readVarint()
		if err != nil {
			return nil, err
		}
		b, err := d.readN(int(n))
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case tagBinary:
		n, err := d.readVarint()
		if err != nil {
			return nil, err
		}
		b, err := d.readN(int(n))
		if err != nil {
			return nil, err
		}
		out := make(Binary, len(b))
		copy(out, b)
		return out, nil
	case tagDate:
		b, err := d.readN(8)
		if err != nil {
			return nil, err
		}
		ms := int64(binary.BigEndian.Uint64(b))
		return Date{time.UnixMilli(ms).UTC()}, nil
	case tagArray:
		n, err := d.readVarint()
		if err != nil {
			return nil, err
		}
		arr := make([]any, 0, n)
		for i := uint64(0); i < n; i++ {
			v, err := d.decodeValue()
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case tagObject:
		n, err := d.readVarint()
		if err != nil {
			return nil, err
		}
		obj := NewObject()
		for i := uint64(0); i < n; i++ {
			klen, err := d.readVarint()
			if err != nil {
				return nil, err
			}
			kb, err := d.readN(int(klen))
			if err != nil {
				return nil, err
			}
			v, err := d.decodeValue()
			if err != nil {
				return nil, err
			}
			obj.Set(string(kb), v)
		}
		return obj, nil
	default:
		return nil, &DecodeError{Kind: ErrUnknownType, Offset: start, Detail: fmt.Sprintf("tag %d", t)}
	}
}
