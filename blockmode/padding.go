package blockmode

import "fmt"

// Pad appends PKCS#7 padding: n bytes of value n, with n in 1..16. A full block
// of 0x10 is added when data is already block aligned. data is not modified.
func Pad(data []byte) []byte {
	n := BlockSize - len(data)%BlockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

// Unpad strips PKCS#7 padding. Only the length byte is checked: a value of 0,
// more than 16, or more than len(data) yields ErrPadding. The returned slice
// aliases data.
func Unpad(data []byte) ([]byte, error) {
	out, err := unpad(data)
	if err != nil {
		return nil, &Error{Op: "unpad", Err: err}
	}
	return out, nil
}

func unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrPadding)
	}
	n := int(data[len(data)-1])
	if n == 0 || n > BlockSize || n > len(data) {
		return nil, fmt.Errorf("%w: length byte %d out of range", ErrPadding, n)
	}
	return data[:len(data)-n], nil
}
