package models

import "strconv"

type ValueKind int

const (
	StringsValue ValueKind = iota
	UnsignedValue
	SignedValue
)

// Value is either one 16 bit integer or an ordered list of text
// components.
type Value struct {
	Kind     ValueKind
	Unsigned uint16
	Signed   int16
	Items    []string
}

func Unsigned(v uint16) Value { return Value{Kind: UnsignedValue, Unsigned: v} }

func Signed(v int16) Value { return Value{Kind: SignedValue, Signed: v} }

func Strings(items ...string) Value { return Value{Kind: StringsValue, Items: items} }

func (v Value) Len() int {
	if v.Kind == StringsValue {
		return len(v.Items)
	}
	return 1
}

// Components renders every component as text, in order.
func (v Value) Components() []string {
	switch v.Kind {
	case UnsignedValue:
		return []string{strconv.FormatUint(uint64(v.Unsigned), 10)}
	case SignedValue:
		return []string{strconv.FormatInt(int64(v.Signed), 10)}
	default:
		return v.Items
	}
}
