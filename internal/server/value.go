package server

import (
	"bytes"
	"fmt"
	"math"
)

// ValueKind is the tag of the Value sum type carried on the wire and in
// the store. It mirrors the DataType tagging the teacher used for
// CacheItem, generalized to the variants spec.md defines.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindStr
	KindBytes
	KindInt
	KindFloat
	KindList
	KindMap
	KindError
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindStr:
		return "string"
	case KindBytes:
		return "bytes"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Value is the tagged union described in spec.md §3. Zero value is Null.
type Value struct {
	Kind  ValueKind
	str   string
	bytes []byte
	num   int64
	flt   float64
	list  *List
	m     *OrderedMap
	err   string
}

func NullValue() Value                { return Value{Kind: KindNull} }
func StrValue(s string) Value         { return Value{Kind: KindStr, str: s} }
func BytesValue(b []byte) Value       { return Value{Kind: KindBytes, bytes: b} }
func IntValue(i int64) Value          { return Value{Kind: KindInt, num: i} }
func FloatValue(f float64) Value      { return Value{Kind: KindFloat, flt: f} }
func ErrorValue(msg string) Value     { return Value{Kind: KindError, err: msg} }
func MapValue(m *OrderedMap) Value    { return Value{Kind: KindMap, m: m} }

// ListValue builds a list-typed Value backed by a fresh doubly linked
// List holding items in order, so the result can be pushed/popped
// efficiently if it's later stored under a key.
func ListValue(items []Value) Value {
	l := NewList()
	for _, item := range items {
		l.RightPush(item)
	}
	return Value{Kind: KindList, list: l}
}

// listBacked wraps an existing List without copying, used internally by
// the store when creating the empty list a blocking pop or push expects.
func listBacked(l *List) Value { return Value{Kind: KindList, list: l} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

func (v Value) AsStr() string     { return v.str }
func (v Value) AsBytes() []byte   { return v.bytes }
func (v Value) AsInt() int64      { return v.num }
func (v Value) AsFloat() float64  { return v.flt }
func (v Value) AsError() string   { return v.err }
func (v Value) AsMap() *OrderedMap { return v.m }

// AsListSlice snapshots the list's current elements in order. It is the
// only way reply encoding or MGET-style construction touches list
// contents, so mutation of the original list afterward can't tear a
// reply already being written.
func (v Value) AsListSlice() []Value {
	if v.list == nil {
		return nil
	}
	return v.list.Values()
}

// listStruct exposes the backing List for in-place push/pop. Only
// store-side code in this package should call it.
func (v Value) listStruct() *List { return v.list }

// approxSize is a rough byte-size estimate for the INFO summary, in the
// spirit of the original server's sys.getsizeof(value) column.
func (v Value) approxSize() int {
	switch v.Kind {
	case KindStr:
		return len(v.str)
	case KindBytes:
		return len(v.bytes)
	case KindInt:
		return 8
	case KindFloat:
		return 8
	case KindList:
		n := 0
		for _, item := range v.AsListSlice() {
			n += item.approxSize()
		}
		return n
	case KindMap:
		n := 0
		if v.m != nil {
			v.m.Each(func(k, val Value) {
				n += k.approxSize() + val.approxSize()
			})
		}
		return n
	default:
		return 0
	}
}

// Equal reports whether two values carry the same data, used by the
// codec's round-trip property tests. Float comparisons tolerate the
// usual decimal-text round-trip noise.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindStr:
		return a.str == b.str
	case KindBytes:
		return bytes.Equal(a.bytes, b.bytes)
	case KindInt:
		return a.num == b.num
	case KindFloat:
		return math.Abs(a.flt-b.flt) < 1e-9
	case KindError:
		return a.err == b.err
	case KindList:
		al, bl := a.AsListSlice(), b.AsListSlice()
		if len(al) != len(bl) {
			return false
		}
		for i := range al {
			if !Equal(al[i], bl[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if a.m == nil || b.m == nil {
			return a.m == b.m
		}
		if a.m.Len() != b.m.Len() {
			return false
		}
		equal := true
		a.m.Each(func(k, av Value) {
			bv, ok := b.m.Get(k)
			if !ok || !Equal(av, bv) {
				equal = false
			}
		})
		return equal
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "<null>"
	case KindStr:
		return v.str
	case KindBytes:
		return fmt.Sprintf("%q", v.bytes)
	case KindInt:
		return fmt.Sprintf("%d", v.num)
	case KindFloat:
		return fmt.Sprintf("%g", v.flt)
	case KindError:
		return "ERR " + v.err
	default:
		return fmt.Sprintf("<%s>", v.Kind)
	}
}
