package engine

import (
	"strconv"
	"strings"

	"github.com/AlexZinkM/record-agent/internal/account"
	"github.com/AlexZinkM/record-agent/internal/errs"
	"github.com/AlexZinkM/record-agent/internal/record"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindRecord Kind = iota + 1
	KindAddress
	KindU64
	KindLiteral
)

// Value is a typed program input.
type Value struct {
	kind    Kind
	record  record.Plaintext
	address account.Address
	u64     uint64
	literal string
}

func RecordValue(pt record.Plaintext) Value {
	return Value{kind: KindRecord, record: pt}
}

func AddressValue(a account.Address) Value {
	return Value{kind: KindAddress, address: a}
}

func U64Value(v uint64) Value {
	return Value{kind: KindU64, u64: v}
}

// LiteralValue carries any other program literal verbatim, e.g. "5field" or "true".
func LiteralValue(s string) Value {
	return Value{kind: KindLiteral, literal: s}
}

func (v Value) Kind() Kind {
	return v.kind
}

// String renders the value as the engine expects it: record text, address string
// or a typed literal such as "1000000u64".
func (v Value) String() string {
	switch v.kind {
	case KindRecord:
		return v.record.String()
	case KindAddress:
		return v.address.String()
	case KindU64:
		return strconv.FormatUint(v.u64, 10) + "u64"
	default:
		return v.literal
	}
}

// MarshalText implements encoding.TextMarshaler.
func (v Value) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// ParseValue guesses the variant from the text form. Anything that is not a record,
// an address or a u64 literal is kept as a literal.
func ParseValue(s string) (Value, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Value{}, errs.Validation("empty input value")
	case strings.HasPrefix(s, "{"):
		pt, err := record.ParsePlaintext(s)
		if err != nil {
			return Value{}, err
		}
		return RecordValue(pt), nil
	case strings.HasPrefix(s, "aleo1"):
		a, err := account.ParseAddress(s)
		if err != nil {
			return Value{}, err
		}
		return AddressValue(a), nil
	case strings.HasSuffix(s, "u64"):
		n, err := strconv.ParseUint(strings.TrimSuffix(s, "u64"), 10, 64)
		if err != nil {
			return Value{}, errs.Validation("invalid u64 literal %q", s)
		}
		return U64Value(n), nil
	default:
		return LiteralValue(s), nil
	}
}
