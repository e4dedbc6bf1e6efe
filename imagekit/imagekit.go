// Package imagekit turns images into raw 8-bit grayscale pixel buffers and
// back, and frames encrypted pixel data in a small envelope that records the
// image size.
//
// Envelope layout: 4-byte big-endian width, 4-byte big-endian height, then
// the payload (normally a blockmode ciphertext of the pixels).
//
// Encrypting raw pixels instead of the compressed file keeps the picture's
// structure in the byte stream, which is what makes ECB leakage visible:
// Visualize renders a ciphertext as an image of the same size.
package imagekit

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/gobeaver/cipherkit/blockmode"
)

const (
	// HeaderSize is the envelope header length in bytes.
	HeaderSize = 8

	// MinDimension and MaxDimension bound width and height.
	MinDimension = 1
	MaxDimension = 10000

	// MaxPixels caps width*height.
	MaxPixels = 50000000 // 50 megapixels
)

var (
	ErrDimensions = errors.New("image dimensions out of range")
	ErrEnvelope   = errors.New("not an image envelope")
	ErrPixelCount = errors.New("pixel count does not match dimensions")
	ErrDecode     = errors.New("cannot decode image")
)

// Raw is an uncompressed 8-bit grayscale image, one byte per pixel, rows top
// to bottom.
type Raw struct {
	Width  int
	Height int
	Pix    []byte
}

// Envelope is a parsed envelope: the recorded size and the payload.
type Envelope struct {
	Width  int
	Height int
	Body   []byte
}

func checkDimensions(width, height int) error {
	if width < MinDimension || width > MaxDimension || height < MinDimension || height > MaxDimension {
		return fmt.Errorf("%w: %dx%d, each side must be %d..%d", ErrDimensions, width, height, MinDimension, MaxDimension)
	}
	if width*height > MaxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDimensions, width, height, MaxPixels)
	}
	return nil
}

// Encode decodes a PNG, JPEG or GIF image and converts it to grayscale. The
// size is checked from the header before the pixels are decoded.
func Encode(r io.Reader) (*Raw, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := checkDimensions(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return FromImage(img), nil
}

// FromImage converts any image to grayscale pixels.
func FromImage(img image.Image) *Raw {
	b := img.Bounds()
	raw := &Raw{
		Width:  b.Dx(),
		Height: b.Dy(),
		Pix:    make([]byte, b.Dx()*b.Dy()),
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := (y - b.Min.Y) * raw.Width
		for x := b.Min.X; x < b.Max.X; x++ {
			raw.Pix[row+x-b.Min.X] = color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
		}
	}
	return raw
}

// FromPixels wraps decrypted pixels. len(pix) must be exactly width*height.
func FromPixels(width, height int, pix []byte) (*Raw, error) {
	if err := checkDimensions(width, height); err != nil {
		return nil, err
	}
	if len(pix) != width*height {
		return nil, fmt.Errorf("%w: have %d bytes, want %d", ErrPixelCount, len(pix), width*height)
	}
	return &Raw{Width: width, Height: height, Pix: pix}, nil
}

// Image returns the pixels as an *image.Gray sharing the buffer.
func (r *Raw) Image() *image.Gray {
	return &image.Gray{
		Pix:    r.Pix,
		Stride: r.Width,
		Rect:   image.Rect(0, 0, r.Width, r.Height),
	}
}

// PNG writes the pixels as a grayscale PNG.
func (r *Raw) PNG(w io.Writer) error {
	return png.Encode(w, r.Image())
}

// Marshal frames body with r's dimensions.
func (r *Raw) Marshal(body []byte) []byte {
	return Marshal(r.Width, r.Height, body)
}

// Marshal frames body with the given dimensions.
func Marshal(width, height int, body []byte) []byte {
	out := make([]byte, HeaderSize+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(width))
	binary.BigEndian.PutUint32(out[4:8], uint32(height))
	copy(out[HeaderSize:], body)
	return out
}

// Unmarshal parses an envelope. Data whose header does not hold plausible
// dimensions is reported as ErrEnvelope, so callers can fall back to treating
// it as a plain ciphertext.
func Unmarshal(data []byte) (*Envelope, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrEnvelope, len(data))
	}
	width := binary.BigEndian.Uint32(data[0:4])
	height := binary.BigEndian.Uint32(data[4:8])
	if width > MaxDimension || height > MaxDimension {
		return nil, fmt.Errorf("%w: header reads %dx%d", ErrEnvelope, width, height)
	}
	if err := checkDimensions(int(width), int(height)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnvelope, err)
	}
	return &Envelope{
		Width:  int(width),
		Height: int(height),
		Body:   data[HeaderSize:],
	}, nil
}

// Visualize encrypts r's pixels with c and renders the ciphertext body (IV
// removed) as an image of the same size. With ECB the outline of the original
// stays recognisable; the other modes look like noise.
func Visualize(c blockmode.Cipher, r *Raw) (*Raw, error) {
	ct, err := c.Encrypt(r.Pix)
	if err != nil {
		return nil, err
	}
	if c.Mode().UsesIV() {
		ct = ct[blockmode.BlockSize:]
	}
	// Padded modes add up to one block; drop it.
	return &Raw{Width: r.Width, Height: r.Height, Pix: ct[:len(r.Pix)]}, nil
}

// IsImageFile reports whether name has an extension Encode understands.
func IsImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif":
		return true
	default:
		return false
	}
}
