package record

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/AlexZinkM/record-agent/internal/account"
	"github.com/AlexZinkM/record-agent/internal/crypto"
	"github.com/AlexZinkM/record-agent/internal/errs"
)

const (
	ciphertextPrefix = "record1"
	nonceEntry       = "_nonce"
	ownerEntry       = "owner"
	maxEntries       = 32
)

// String returns the canonical "record1..." encoding.
func (c Ciphertext) String() string {
	raw := make([]byte, 0, 65+len(c.Entries)*40)
	raw = append(raw, c.Owner[:]...)
	raw = append(raw, c.Nonce[:]...)
	raw = append(raw, byte(len(c.Entries)))
	for _, e := range c.Entries {
		raw = append(raw, byte(len(e.Name)))
		raw = append(raw, e.Name...)
		raw = append(raw, byte(e.Type), byte(e.Visibility))
		raw = append(raw, e.Value[:]...)
	}
	return ciphertextPrefix + base58.Encode(raw)
}

// MarshalText implements encoding.TextMarshaler.
func (c Ciphertext) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Ciphertext) UnmarshalText(text []byte) error {
	parsed, err := ParseCiphertext(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCiphertext decodes "record1...".
func ParseCiphertext(s string) (Ciphertext, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, ciphertextPrefix) {
		return Ciphertext{}, errs.Validation("record ciphertext must start with %s", ciphertextPrefix)
	}
	raw, err := base58.Decode(strings.TrimPrefix(s, ciphertextPrefix))
	if err != nil {
		return Ciphertext{}, errs.Validation("invalid record ciphertext: %v", err)
	}
	c, err := unmarshalCiphertext(raw)
	if err != nil {
		return Ciphertext{}, errs.Validation("invalid record ciphertext: %v", err)
	}
	return c, nil
}

func unmarshalCiphertext(raw []byte) (Ciphertext, error) {
	var c Ciphertext
	if len(raw) < 65 {
		return c, errors.New("too short")
	}
	owner, err := crypto.FieldFromBytes(raw[:32])
	if err != nil {
		return c, fmt.Errorf("owner: %w", err)
	}
	c.Owner = owner
	copy(c.Nonce[:], raw[32:64])
	count := int(raw[64])
	if count > maxEntries {
		return c, fmt.Errorf("too many entries: %d", count)
	}
	raw = raw[65:]

	c.Entries = make([]Entry, 0, count)
	for i := 0; i < count; i++ {
		if len(raw) < 1 {
			return c, errors.New("truncated entry")
		}
		n := int(raw[0])
		raw = raw[1:]
		if len(raw) < n+2+32 {
			return c, errors.New("truncated entry")
		}
		e := Entry{
			Name:       string(raw[:n]),
			Type:       EntryType(raw[n]),
			Visibility: Visibility(raw[n+1]),
		}
		if err := e.check(); err != nil {
			return c, err
		}
		if e.Value, err = crypto.FieldFromBytes(raw[n+2 : n+2+32]); err != nil {
			return c, fmt.Errorf("entry %s: %w", e.Name, err)
		}
		c.Entries = append(c.Entries, e)
		raw = raw[n+2+32:]
	}
	if len(raw) != 0 {
		return c, errors.New("trailing bytes")
	}
	return c, nil
}

func (e Entry) check() error {
	if e.Name == "" || e.Name == ownerEntry || e.Name == nonceEntry {
		return fmt.Errorf("invalid entry name %q", e.Name)
	}
	if e.Type != U64 && e.Type != FieldType {
		return fmt.Errorf("entry %s: unknown type %d", e.Name, e.Type)
	}
	if e.Visibility != Private && e.Visibility != Public {
		return fmt.Errorf("entry %s: unknown visibility %d", e.Name, e.Visibility)
	}
	return nil
}

func (e Entry) literal() string {
	if e.Type == U64 {
		v, _ := e.Value.Uint64()
		return strconv.FormatUint(v, 10) + "u64"
	}
	return e.Value.String()
}

// String renders the record in its text form, e.g.
//
//	{ owner: aleo1....private, microcredits: 100u64.private, _nonce: 3Xk...group.public }
func (p Plaintext) String() string {
	var b strings.Builder
	b.WriteString("{ ")
	b.WriteString(ownerEntry + ": " + p.Owner.String() + "." + Private.String())
	for _, e := range p.Entries {
		b.WriteString(", " + e.Name + ": " + e.literal() + "." + e.Visibility.String())
	}
	b.WriteString(", " + nonceEntry + ": " + p.Nonce.String() + "." + Public.String())
	b.WriteString(" }")
	return b.String()
}

// MarshalText implements encoding.TextMarshaler.
func (p Plaintext) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Plaintext) UnmarshalText(text []byte) error {
	parsed, err := ParsePlaintext(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePlaintext parses the text form produced by Plaintext.String.
func ParsePlaintext(s string) (Plaintext, error) {
	body := strings.TrimSpace(s)
	if !strings.HasPrefix(body, "{") || !strings.HasSuffix(body, "}") {
		return Plaintext{}, errs.Validation("record plaintext must be enclosed in braces")
	}
	body = strings.TrimSpace(body[1 : len(body)-1])

	var (
		p                  Plaintext
		hasOwner, hasNonce bool
	)
	for _, part := range strings.Split(body, ",") {
		name, value, ok := strings.Cut(part, ":")
		if !ok {
			return Plaintext{}, errs.Validation("invalid record member %q", strings.TrimSpace(part))
		}
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)

		dot := strings.LastIndex(value, ".")
		if dot < 0 {
			return Plaintext{}, errs.Validation("record member %s has no visibility", name)
		}
		literal, vis := value[:dot], value[dot+1:]
		visibility, err := parseVisibility(vis)
		if err != nil {
			return Plaintext{}, err
		}

		switch name {
		case ownerEntry:
			if p.Owner, err = account.ParseAddress(literal); err != nil {
				return Plaintext{}, err
			}
			hasOwner = true
		case nonceEntry:
			if p.Nonce, err = crypto.ParsePoint(literal); err != nil {
				return Plaintext{}, errs.Validation("invalid record nonce: %v", err)
			}
			hasNonce = true
		default:
			e, err := parseEntry(name, literal, visibility)
			if err != nil {
				return Plaintext{}, err
			}
			p.Entries = append(p.Entries, e)
		}
	}
	if !hasOwner || !hasNonce {
		return Plaintext{}, errs.Validation("record plaintext needs owner and _nonce")
	}
	return p, nil
}

func parseVisibility(s string) (Visibility, error) {
	switch s {
	case "private":
		return Private, nil
	case "public":
		return Public, nil
	default:
		return 0, errs.Validation("unknown visibility %q", s)
	}
}

func parseEntry(name, literal string, vis Visibility) (Entry, error) {
	e := Entry{Name: name, Visibility: vis}
	switch {
	case strings.HasSuffix(literal, "u64"):
		v, err := strconv.ParseUint(strings.TrimSuffix(literal, "u64"), 10, 64)
		if err != nil {
			return Entry{}, errs.Validation("entry %s: invalid u64 %q", name, literal)
		}
		e.Type, e.Value = U64, crypto.FieldFromUint64(v)
	case strings.HasSuffix(literal, "field"):
		f, err := crypto.ParseField(literal)
		if err != nil {
			return Entry{}, errs.Validation("entry %s: %v", name, err)
		}
		e.Type, e.Value = FieldType, f
	default:
		return Entry{}, errs.Validation("entry %s: unsupported literal %q", name, literal)
	}
	return e, nil
}
