package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// Binary is the codec used by raw TCP clients. A frame is a flat protobuf message:
//
//	1: type (string)   2: roomCode  3: username  4: message
//	5: from            6: count (varint)         7: error
//
// On a byte stream every frame is prefixed with its varint length (see ReadDelimited).
var Binary Codec = binaryCodec{}

const (
	fieldType     protowire.Number = 1
	fieldRoomCode protowire.Number = 2
	fieldUsername protowire.Number = 3
	fieldMessage  protowire.Number = 4
	fieldFrom     protowire.Number = 5
	fieldCount    protowire.Number = 6
	fieldError    protowire.Number = 7
)

// ErrFrameTooLarge is returned by ReadDelimited when the length prefix exceeds the limit.
var ErrFrameTooLarge = errors.New("frame exceeds size limit")

type binaryCodec struct{}

func (binaryCodec) Name() string { return "binary" }

func (binaryCodec) Encode(f Frame) ([]byte, error) {
	if f == nil {
		return nil, fmt.Errorf("failed to encode frame: nil frame")
	}
	b := appendString(nil, fieldType, string(f.FrameType()))
	switch v := deref(f).(type) {
	case Join:
		b = appendString(b, fieldRoomCode, v.RoomCode)
		b = appendString(b, fieldUsername, v.Username)
	case Chat:
		b = appendString(b, fieldRoomCode, v.RoomCode)
		b = appendString(b, fieldMessage, v.Message)
		b = appendString(b, fieldFrom, v.From)
	case CountUpdate:
		b = protowire.AppendTag(b, fieldCount, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v.Count))
	case MessageRelay:
		b = appendString(b, fieldFrom, v.From)
		b = appendString(b, fieldMessage, v.Message)
	case Error:
		b = appendString(b, fieldError, v.Error)
	default:
		return nil, fmt.Errorf("failed to encode frame: unsupported %T", f)
	}
	return b, nil
}

func (binaryCodec) Decode(data []byte) (Frame, error) {
	var (
		fields = make(map[protowire.Number]string)
		count  uint64
	)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			fields[num] = v
			data = data[n:]
		case typ == protowire.VarintType && num == fieldCount:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			count = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}

	t := Type(fields[fieldType])
	switch t {
	case "":
		return nil, ErrMissingType
	case TypeJoin:
		return Join{RoomCode: fields[fieldRoomCode], Username: fields[fieldUsername]}, nil
	case TypeChat:
		return Chat{RoomCode: fields[fieldRoomCode], Message: fields[fieldMessage], From: fields[fieldFrom]}, nil
	case TypeCountUpdate:
		return CountUpdate{Count: int(count)}, nil
	case TypeMessageRelay:
		return MessageRelay{From: fields[fieldFrom], Message: fields[fieldMessage]}, nil
	case TypeError:
		return Error{Error: fields[fieldError]}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// AppendDelimited appends body to dst prefixed with its varint length.
func AppendDelimited(dst, body []byte) []byte {
	return protowire.AppendBytes(dst, body)
}

// ReadDelimited reads one length-prefixed frame body from r.
// A limit of zero or less disables the size check.
func ReadDelimited(r *bufio.Reader, limit int) ([]byte, error) {
	size, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if limit > 0 && size > uint64(limit) {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, size, limit)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return body, nil
}
