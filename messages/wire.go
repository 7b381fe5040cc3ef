package messages

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/hagall-spatial/quadtree"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	ErrTypeWireType = "wire_type_error"
)

func wireTypeError(num protowire.Number, got, expected protowire.Type) error {
	return errors.New("unexpected wire type").
		WithType(ErrTypeWireType).
		WithTag("field", num).
		WithTag("wire_type", got).
		WithTag("expected_wire_type", expected)
}

func parseError(n int) error {
	return errors.New("parsing message failed").
		WithType(ErrTypeMalformed).
		Wrap(protowire.ParseError(n))
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendMessage(b []byte, num protowire.Number, encode func([]byte) []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, encode(nil))
}

func consumeVarint(num protowire.Number, typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, wireTypeError(num, typ, protowire.VarintType)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, parseError(n)
	}
	return v, n, nil
}

func consumeDouble(num protowire.Number, typ protowire.Type, b []byte) (float64, int, error) {
	if typ != protowire.Fixed64Type {
		return 0, 0, wireTypeError(num, typ, protowire.Fixed64Type)
	}
	v, n := protowire.ConsumeFixed64(b)
	if n < 0 {
		return 0, 0, parseError(n)
	}
	return math.Float64frombits(v), n, nil
}

func consumeBytes(num protowire.Number, typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, wireTypeError(num, typ, protowire.BytesType)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, parseError(n)
	}
	return v, n, nil
}

// consumeFields calls consume for every field of b. Fields consume does not
// handle (n == 0) are skipped.
func consumeFields(b []byte, consume func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) != 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return parseError(n)
		}
		b = b[n:]

		n, err := consume(num, typ, b)
		if err != nil {
			return err
		}
		if n == 0 {
			if n = protowire.ConsumeFieldValue(num, typ, b); n < 0 {
				return parseError(n)
			}
		}
		b = b[n:]
	}
	return nil
}

func appendPoint(b []byte, p quadtree.Point) []byte {
	b = appendDouble(b, 1, p.X)
	b = appendDouble(b, 2, p.Y)
	return b
}

func consumePoint(num protowire.Number, typ protowire.Type, b []byte) (quadtree.Point, int, error) {
	var p quadtree.Point

	data, n, err := consumeBytes(num, typ, b)
	if err != nil {
		return p, 0, err
	}

	err = consumeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var n int
		var err error

		switch num {
		case 1:
			p.X, n, err = consumeDouble(num, typ, b)
		case 2:
			p.Y, n, err = consumeDouble(num, typ, b)
		}
		return n, err
	})
	return p, n, err
}

func appendRectangle(b []byte, r quadtree.Rectangle) []byte {
	b = appendDouble(b, 1, r.X)
	b = appendDouble(b, 2, r.Y)
	b = appendDouble(b, 3, r.Width)
	b = appendDouble(b, 4, r.Height)
	return b
}

func consumeRectangle(num protowire.Number, typ protowire.Type, b []byte) (quadtree.Rectangle, int, error) {
	var r quadtree.Rectangle

	data, n, err := consumeBytes(num, typ, b)
	if err != nil {
		return r, 0, err
	}

	err = consumeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var n int
		var err error

		switch num {
		case 1:
			r.X, n, err = consumeDouble(num, typ, b)
		case 2:
			r.Y, n, err = consumeDouble(num, typ, b)
		case 3:
			r.Width, n, err = consumeDouble(num, typ, b)
		case 4:
			r.Height, n, err = consumeDouble(num, typ, b)
		}
		return n, err
	})
	return r, n, err
}

// Entity is the wire representation of an entity stored in a space.
type Entity struct {
	ID       uint32
	Label    string
	Position quadtree.Point
}

func appendEntity(b []byte, e Entity) []byte {
	b = appendVarint(b, 1, uint64(e.ID))
	if e.Label != "" {
		b = appendString(b, 2, e.Label)
	}
	b = appendMessage(b, 3, func(b []byte) []byte {
		return appendPoint(b, e.Position)
	})
	return b
}

func consumeEntity(num protowire.Number, typ protowire.Type, b []byte) (Entity, int, error) {
	var e Entity

	data, n, err := consumeBytes(num, typ, b)
	if err != nil {
		return e, 0, err
	}

	err = consumeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(num, typ, b)
			e.ID = uint32(v)
			return n, err

		case 2:
			v, n, err := consumeBytes(num, typ, b)
			e.Label = string(v)
			return n, err

		case 3:
			v, n, err := consumePoint(num, typ, b)
			e.Position = v
			return n, err

		default:
			return 0, nil
		}
	})
	return e, n, err
}
