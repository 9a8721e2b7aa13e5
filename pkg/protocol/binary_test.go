package protocol_test

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/omochice/room-chat/pkg/protocol"
)

func TestBinary_DelimitedStream(t *testing.T) {
	frames := []protocol.Frame{
		protocol.Join{RoomCode: "ABC123", Username: "alice"},
		protocol.Chat{RoomCode: "ABC123", Message: "hello", From: "alice"},
		protocol.CountUpdate{Count: 0},
		protocol.CountUpdate{Count: 7},
		protocol.Error{Error: "Room does not exist"},
	}

	var stream []byte
	for _, f := range frames {
		body, err := protocol.Binary.Encode(f)
		if err != nil {
			t.Fatalf("Encode(%#v) error = %v", f, err)
		}
		stream = protocol.AppendDelimited(stream, body)
	}

	r := bufio.NewReader(bytes.NewReader(stream))
	for i, want := range frames {
		body, err := protocol.ReadDelimited(r, 4096)
		if err != nil {
			t.Fatalf("frame %d: ReadDelimited() error = %v", i, err)
		}
		got, err := protocol.Binary.Decode(body)
		if err != nil {
			t.Fatalf("frame %d: Decode() error = %v", i, err)
		}
		if got != want {
			t.Errorf("frame %d = %#v, want %#v", i, got, want)
		}
	}

	if _, err := protocol.ReadDelimited(r, 4096); err != io.EOF {
		t.Errorf("ReadDelimited() at end = %v, want io.EOF", err)
	}
}

func TestReadDelimited_TooLarge(t *testing.T) {
	stream := protocol.AppendDelimited(nil, make([]byte, 100))
	_, err := protocol.ReadDelimited(bufio.NewReader(bytes.NewReader(stream)), 10)
	if !errors.Is(err, protocol.ErrFrameTooLarge) {
		t.Errorf("ReadDelimited() error = %v, want ErrFrameTooLarge", err)
	}
}

func TestReadDelimited_Truncated(t *testing.T) {
	stream := protocol.AppendDelimited(nil, []byte("abcdef"))
	_, err := protocol.ReadDelimited(bufio.NewReader(bytes.NewReader(stream[:4])), 0)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadDelimited() error = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestBinary_DecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty body", nil, protocol.ErrMissingType},
		{"truncated tag", []byte{0x0a, 0x05, 'j'}, protocol.ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := protocol.Binary.Decode(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
