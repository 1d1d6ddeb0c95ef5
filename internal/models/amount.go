package models

import (
	"encoding/json"

	"github.com/facturaIA/hoadon-extractor/internal/money"
)

// AmountKind tells what an Amount currently holds.
type AmountKind int

const (
	AmountAbsent   AmountKind = iota // nothing extracted
	AmountRaw                        // text as captured, not yet resolved
	AmountResolved                   // parsed đồng value
)

// Amount is a money field that can be absent, raw captured text, or a resolved
// value. Absent is never the same as zero.
type Amount struct {
	kind  AmountKind
	raw   string
	value money.VND
}

// RawAmount wraps captured text. Empty text is absent.
func RawAmount(text string) Amount {
	if text == "" {
		return Amount{}
	}
	return Amount{kind: AmountRaw, raw: text}
}

// Resolved wraps a known value.
func Resolved(v money.VND) Amount {
	return Amount{kind: AmountResolved, value: v}
}

func (a Amount) Kind() AmountKind { return a.kind }
func (a Amount) IsAbsent() bool   { return a.kind == AmountAbsent }

// Raw returns the captured text of a raw amount.
func (a Amount) Raw() string {
	if a.kind == AmountRaw {
		return a.raw
	}
	return ""
}

// Value returns the resolved value. Raw and absent amounts report false.
func (a Amount) Value() (money.VND, bool) {
	if a.kind != AmountResolved {
		return 0, false
	}
	return a.value, true
}

// Or returns the resolved value or def.
func (a Amount) Or(def money.VND) money.VND {
	if v, ok := a.Value(); ok {
		return v
	}
	return def
}

// Resolve parses a raw amount with the noise floor applied. Unparseable or
// sub-floor text becomes absent.
func (a Amount) Resolve() Amount {
	if a.kind != AmountRaw {
		return a
	}
	if v, ok := money.ParseAmount(a.raw); ok {
		return Resolved(v)
	}
	return Amount{}
}

// String formats resolved values with dot grouping and returns raw text as is.
func (a Amount) String() string {
	switch a.kind {
	case AmountRaw:
		return a.raw
	case AmountResolved:
		return money.Format(a.value)
	default:
		return ""
	}
}

// MarshalJSON writes absent amounts as null and everything else as text.
func (a Amount) MarshalJSON() ([]byte, error) {
	if a.kind == AmountAbsent {
		return []byte("null"), nil
	}
	return json.Marshal(a.String())
}

// UnmarshalJSON reads text written by MarshalJSON or typed by a user.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = Amount{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*a = RawAmount(s).Resolve()
	if a.IsAbsent() && s != "" {
		*a = RawAmount(s)
	}
	return nil
}
