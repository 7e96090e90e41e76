package crypto

import (
	"errors"
	"fmt"
)

// ErrMemberNotFound is returned by Plaintext.Find for an unknown member name.
var ErrMemberNotFound = errors.New("plaintext member not found")

// Member is a named field inside a structured plaintext.
type Member struct {
	Name  string
	Value Field
}

// Plaintext is an ordered struct of named field elements.
type Plaintext []Member

// Find returns the value of the member called name.
func (p Plaintext) Find(name string) (Field, error) {
	for _, m := range p {
		if m.Name == name {
			return m.Value, nil
		}
	}
	return Field{}, fmt.Errorf("%w: %s", ErrMemberNotFound, name)
}

const maxMemberName = 255

// marshal encodes p as count ‖ (len ‖ name ‖ value)*.
func (p Plaintext) marshal() ([]byte, error) {
	if len(p) > 255 {
		return nil, fmt.Errorf("too many plaintext members: %d", len(p))
	}
	out := make([]byte, 0, 1+len(p)*(1+8+len(Field{})))
	out = append(out, byte(len(p)))
	for _, m := range p {
		if m.Name == "" || len(m.Name) > maxMemberName {
			return nil, fmt.Errorf("invalid member name %q", m.Name)
		}
		out = append(out, byte(len(m.Name)))
		out = append(out, m.Name...)
		out = append(out, m.Value[:]...)
	}
	return out, nil
}

func unmarshalPlaintext(data []byte) (Plaintext, error) {
	if len(data) == 0 {
		return nil, errors.New("empty plaintext")
	}
	count := int(data[0])
	data = data[1:]
	p := make(Plaintext, 0, count)
	for i := 0; i < count; i++ {
		if len(data) < 1 {
			return nil, errors.New("truncated plaintext")
		}
		n := int(data[0])
		data = data[1:]
		if len(data) < n+len(Field{}) {
			return nil, errors.New("truncated plaintext")
		}
		name := string(data[:n])
		value, err := FieldFromBytes(data[n : n+len(Field{})])
		if err != nil {
			return nil, fmt.Errorf("member %s: %w", name, err)
		}
		p = append(p, Member{Name: name, Value: value})
		data = data[n+len(Field{}):]
	}
	if len(data) != 0 {
		return nil, errors.New("trailing bytes after plaintext")
	}
	return p, nil
}
