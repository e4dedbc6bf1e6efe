package blockmode

import (
	"bytes"
	"errors"
	"testing"
)

func TestPad(t *testing.T) {
	tests := []struct {
		name   string
		inLen  int
		outLen int
		padVal byte
	}{
		{"empty", 0, 16, 16},
		{"one byte", 1, 16, 15},
		{"fifteen bytes", 15, 16, 1},
		{"full block", 16, 32, 16},
		{"block plus one", 17, 32, 15},
		{"two blocks", 32, 48, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := bytes.Repeat([]byte{0xAB}, tt.inLen)
			padded := Pad(data)
			if len(padded) != tt.outLen {
				t.Fatalf("len = %d, want %d", len(padded), tt.outLen)
			}
			for i := tt.inLen; i < len(padded); i++ {
				if padded[i] != tt.padVal {
					t.Fatalf("byte %d = %d, want %d", i, padded[i], tt.padVal)
				}
			}
			if !bytes.Equal(padded[:tt.inLen], data) {
				t.Error("data prefix changed")
			}

			got, err := Unpad(padded)
			if err != nil {
				t.Fatalf("Unpad: %v", err)
			}
			if !bytes.Equal(got, data) {
				t.Errorf("Unpad = %x, want %x", got, data)
			}
		})
	}
}

func TestPadDoesNotModifyInput(t *testing.T) {
	data := make([]byte, 3, 16)
	copy(data, "abc")
	Pad(data)
	if got := data[:cap(data)][3]; got != 0 {
		t.Errorf("Pad wrote into spare capacity: %d", got)
	}
}

func TestUnpadRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"zero length byte", append(bytes.Repeat([]byte{1}, 15), 0)},
		{"length byte above block size", append(bytes.Repeat([]byte{1}, 15), 17)},
		{"length byte 0xff", append(bytes.Repeat([]byte{1}, 15), 0xff)},
		{"longer than data", []byte{'a', 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unpad(tt.data)
			if !errors.Is(err, ErrPadding) {
				t.Fatalf("Unpad error = %v, want ErrPadding", err)
			}
			var e *Error
			if !errors.As(err, &e) || e.Op != "unpad" {
				t.Errorf("want *Error with Op unpad, got %#v", err)
			}
		})
	}
}

func TestUnpadChecksOnlyLengthByte(t *testing.T) {
	// The filler bytes are not inspected.
	data := append([]byte("hello world!"), 9, 9, 9, 4)
	got, err := Unpad(data)
	if err != nil {
		t.Fatalf("Unpad: %v", err)
	}
	if string(got) != "hello world!" {
		t.Errorf("Unpad = %q", got)
	}
}
