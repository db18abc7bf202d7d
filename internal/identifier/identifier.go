// Package identifier implements the tagged stream/topic addressing value:
// either a numeric u32 id or a normalized name string.
package identifier

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/tideline-io/tideline/internal/brokerrors"
)

const (
	KindNumeric uint8 = 1
	KindNamed   uint8 = 2

	MaxNameLength = 255
)

// Identifier is either a numeric id or a UTF-8 name (1-255 bytes).
type Identifier struct {
	Kind  uint8
	Value uint32
	Name  string
}

func FromNumeric(id uint32) Identifier {
	return Identifier{Kind: KindNumeric, Value: id}
}

func FromName(name string) (Identifier, error) {
	if len(name) == 0 || len(name) > MaxNameLength {
		return Identifier{}, brokerrors.ErrInvalidTopicName
	}
	return Identifier{Kind: KindNamed, Name: NormalizeName(name)}, nil
}

func (i Identifier) IsNumeric() bool { return i.Kind == KindNumeric }
func (i Identifier) IsNamed() bool   { return i.Kind == KindNamed }

func (i Identifier) String() string {
	if i.IsNumeric() {
		return strconv.FormatUint(uint64(i.Value), 10)
	}
	return i.Name
}

// NormalizeName lowercases the name, drops surrounding whitespace and
// joins the remaining whitespace-separated words with single dashes,
// matching to_lowercase_non_whitespace from the original name-lookup rule.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// AsBytes serializes the identifier as kind:u8 | length:u8 | value.
func (i Identifier) AsBytes() []byte {
	switch i.Kind {
	case KindNumeric:
		buf := make([]byte, 2+4)
		buf[0] = KindNumeric
		buf[1] = 4
		binary.LittleEndian.PutUint32(buf[2:], i.Value)
		return buf
	case KindNamed:
		name := []byte(i.Name)
		buf := make([]byte, 2+len(name))
		buf[0] = KindNamed
		buf[1] = byte(len(name))
		copy(buf[2:], name)
		return buf
	default:
		return nil
	}
}

// FromBytes parses an Identifier and returns the number of bytes consumed.
func FromBytes(data []byte) (Identifier, int, error) {
	if len(data) < 2 {
		return Identifier{}, 0, brokerrors.ErrInvalidCommand
	}
	kind := data[0]
	length := int(data[1])
	if len(data) < 2+length {
		return Identifier{}, 0, brokerrors.ErrInvalidCommand
	}
	value := data[2 : 2+length]
	switch kind {
	case KindNumeric:
		if length != 4 {
			return Identifier{}, 0, brokerrors.ErrInvalidCommand
		}
		return Identifier{Kind: KindNumeric, Value: binary.LittleEndian.Uint32(value)}, 2 + length, nil
	case KindNamed:
		if length == 0 || length > MaxNameLength {
			return Identifier{}, 0, brokerrors.ErrInvalidTopicName
		}
		return Identifier{Kind: KindNamed, Name: string(value)}, 2 + length, nil
	default:
		return Identifier{}, 0, brokerrors.ErrInvalidCommand
	}
}

// ToString renders the `|`-separated textual form used by the CLI/log
// encoding: a bare numeric id, or the raw name.
func (i Identifier) ToString() string {
	return i.String()
}

// FromString parses the textual form. A value that parses fully as a u32
// is treated as numeric; anything else is treated as a name.
func FromString(s string) (Identifier, error) {
	if s == "" {
		return Identifier{}, brokerrors.ErrInvalidCommand
	}
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		return FromNumeric(uint32(n)), nil
	}
	return FromName(s)
}

func (i Identifier) Equal(other Identifier) bool {
	if i.Kind != other.Kind {
		return false
	}
	if i.Kind == KindNumeric {
		return i.Value == other.Value
	}
	return i.Name == other.Name
}

func (i Identifier) Validate() error {
	switch i.Kind {
	case KindNumeric:
		if i.Value == 0 {
			return brokerrors.ErrInvalidTopicId
		}
		return nil
	case KindNamed:
		if len(i.Name) == 0 || len(i.Name) > MaxNameLength {
			return brokerrors.ErrInvalidTopicName
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown identifier kind %d", brokerrors.ErrInvalidCommand, i.Kind)
	}
}
