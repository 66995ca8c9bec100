package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCommand is returned by Parse for lines outside the grammar.
var ErrInvalidCommand = errors.New("protocol: invalid command")

// UnknownLabel is the sentinel label for a quadrant the model could not
// classify. It is always encoded as a 0 bit.
const UnknownLabel = "Unknown"

// Command is one ASCII line sent to the sorter microcontroller,
// without its trailing newline.
//
//	D             drop the next four olives onto the grid
//	S b0 b1 b2 b3 sort; bit i is 1 for a good olive in quadrant i
//
// Quadrant order is top-left, top-right, bottom-left, bottom-right.
type Command string

const (
	opDrop = "D"
	opSort = "S"
)

// Drop returns the drop trigger command.
func Drop() Command {
	return Command(opDrop)
}

// Bits maps each label to true iff it equals good.
func Bits(labels [4]string, good string) [4]bool {
	var bits [4]bool
	for i, l := range labels {
		bits[i] = l == good
	}
	return bits
}

// Sort encodes the four quadrant labels as a sort command.
// Anything other than the good label, including UnknownLabel, is a 0.
func Sort(labels [4]string, good string) Command {
	return SortBits(Bits(labels, good))
}

// SortBits encodes an explicit bit pattern as a sort command.
func SortBits(bits [4]bool) Command {
	var b strings.Builder
	b.WriteString(opSort)
	for _, bit := range bits {
		b.WriteByte(' ')
		if bit {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return Command(b.String())
}

// IsDrop reports whether c is the drop trigger.
func (c Command) IsDrop() bool {
	return c == opDrop
}

// IsSort reports whether c is a sort command.
func (c Command) IsSort() bool {
	return strings.HasPrefix(string(c), opSort+" ")
}

// Pattern returns the bit pattern of a sort command.
func (c Command) Pattern() ([4]bool, error) {
	var bits [4]bool
	fields := strings.Fields(string(c))
	if len(fields) != 5 || fields[0] != opSort || string(c) != strings.Join(fields, " ") {
		return bits, fmt.Errorf("%w: %q is not a sort command", ErrInvalidCommand, string(c))
	}
	for i, f := range fields[1:] {
		switch f {
		case "1":
			bits[i] = true
		case "0":
		default:
			return bits, fmt.Errorf("%w: bit %d is %q", ErrInvalidCommand, i, f)
		}
	}
	return bits, nil
}

// Line returns the wire form: the command followed by a newline.
func (c Command) Line() []byte {
	return []byte(string(c) + "\n")
}

// String implements fmt.Stringer.
func (c Command) String() string {
	return string(c)
}

// Parse validates a received line (a trailing "\n" or "\r\n" is allowed).
func Parse(line string) (Command, error) {
	line = strings.TrimRight(line, "\r\n")
	c := Command(line)
	if c.IsDrop() {
		return c, nil
	}
	if _, err := c.Pattern(); err != nil {
		return "", err
	}
	return c, nil
}
