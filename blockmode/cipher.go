package blockmode

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
)

// Mode selects one of the five chaining modes. The zero value is not a mode.
type Mode int

const (
	ECB Mode = iota + 1
	CBC
	CFB
	OFB
	CTR
)

func (m Mode) String() string {
	switch m {
	case ECB:
		return "ECB"
	case CBC:
		return "CBC"
	case CFB:
		return "CFB"
	case OFB:
		return "OFB"
	case CTR:
		return "CTR"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Valid reports whether m is one of the five supported modes.
func (m Mode) Valid() bool {
	return m >= ECB && m <= CTR
}

// UsesIV reports whether ciphertexts of this mode start with an IV.
func (m Mode) UsesIV() bool {
	return m.Valid() && m != ECB
}

// Padded reports whether the mode applies PKCS#7 padding.
func (m Mode) Padded() bool {
	return m == ECB || m == CBC || m == OFB
}

// ParseMode maps a case-insensitive name ("ecb", "CBC", ...) to a Mode.
func ParseMode(name string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "ECB":
		return ECB, nil
	case "CBC":
		return CBC, nil
	case "CFB":
		return CFB, nil
	case "OFB":
		return OFB, nil
	case "CTR":
		return CTR, nil
	default:
		return 0, &Error{Op: "new", Err: fmt.Errorf("%w: unknown mode %q", ErrConfig, name)}
	}
}

// Modes lists every supported mode in a stable order.
func Modes() []Mode {
	return []Mode{ECB, CBC, CFB, OFB, CTR}
}

// Cipher encrypts and decrypts whole messages in one mode under one key.
//
// Every Encrypt call of an IV-based mode draws a fresh IV and returns
// IV || ciphertext; Decrypt expects the same layout. Nothing is carried over
// between calls, so a Cipher is safe for concurrent use. The set of
// implementations is closed: use New or the per-mode constructors.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
	Mode() Mode
	BlockSize() int

	sealed()
}

// IVCipher is implemented by the CBC, CFB, OFB and CTR ciphers. EncryptWithIV
// uses the given IV instead of a random one; the caller is then responsible
// for never repeating an IV under the same key.
type IVCipher interface {
	Cipher
	EncryptWithIV(iv, plaintext []byte) ([]byte, error)
}

type options struct {
	random      io.Reader
	segmentBits int
	primitive   PrimitiveFunc
	logger      *Logger
	metrics     *Metrics
}

// Option configures a Cipher at construction time.
type Option func(*options)

// WithRandom sets the IV source. It must be a CSPRNG outside of tests; the
// default is crypto/rand.Reader.
func WithRandom(r io.Reader) Option {
	return func(o *options) {
		o.random = r
	}
}

// WithSegmentSize sets the CFB segment size in bits (64 or 128, default 128).
// Other modes ignore it.
func WithSegmentSize(bits int) Option {
	return func(o *options) {
		o.segmentBits = bits
	}
}

// WithPrimitive replaces the AES primitive.
func WithPrimitive(fn PrimitiveFunc) Option {
	return func(o *options) {
		o.primitive = fn
	}
}

// WithLogger enables IV tracing at debug level.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics records calls and failures in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// New creates a Cipher for mode. The key must be 16, 24 or 32 bytes; it is
// copied, so the caller may reuse the slice afterwards.
func New(mode Mode, key []byte, opts ...Option) (Cipher, error) {
	o := options{
		random:      rand.Reader,
		segmentBits: 128,
		primitive:   AES,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if !mode.Valid() {
		return nil, &Error{Op: "new", Err: fmt.Errorf("%w: unknown mode %d", ErrConfig, int(mode))}
	}
	if !ValidKeyLength(len(key)) {
		return nil, &Error{Op: "new", Mode: mode, Err: fmt.Errorf("%w: got %d bytes, want 16, 24 or 32", ErrInvalidKeyLength, len(key))}
	}
	if mode == CFB && o.segmentBits != 64 && o.segmentBits != 128 {
		return nil, &Error{Op: "new", Mode: mode, Err: fmt.Errorf("%w: CFB segment size %d bits, want 64 or 128", ErrConfig, o.segmentBits)}
	}
	if o.random == nil || o.primitive == nil {
		return nil, &Error{Op: "new", Mode: mode, Err: fmt.Errorf("%w: nil IV source or primitive", ErrConfig)}
	}

	block, err := o.primitive(append([]byte(nil), key...))
	if err != nil {
		return nil, &Error{Op: "new", Mode: mode, Err: fmt.Errorf("%w: %v", ErrInvalidKeyLength, err)}
	}
	if block.BlockSize() != BlockSize {
		return nil, &Error{Op: "new", Mode: mode, Err: fmt.Errorf("%w: primitive block size %d, want %d", ErrConfig, block.BlockSize(), BlockSize)}
	}

	e := engine{
		mode:    mode,
		block:   block,
		random:  o.random,
		logger:  o.logger,
		metrics: o.metrics,
	}
	e.logger.Debug("%s cipher ready (%d-bit key)", mode, len(key)*8)

	switch mode {
	case ECB:
		return &ecbCipher{e}, nil
	case CBC:
		return &cbcCipher{e}, nil
	case CFB:
		return &cfbCipher{engine: e, segment: o.segmentBits / 8}, nil
	case OFB:
		return &ofbCipher{e}, nil
	default:
		return &ctrCipher{e}, nil
	}
}

// NewECB creates an ECB cipher. See the ECB notes in the package docs.
func NewECB(key []byte, opts ...Option) (Cipher, error) {
	return New(ECB, key, opts...)
}

// NewCBC creates a CBC cipher.
func NewCBC(key []byte, opts ...Option) (IVCipher, error) {
	return newIVCipher(CBC, key, opts...)
}

// NewCFB creates a CFB cipher with the given segment size in bits.
func NewCFB(key []byte, segmentBits int, opts ...Option) (IVCipher, error) {
	return newIVCipher(CFB, key, append(opts, WithSegmentSize(segmentBits))...)
}

// NewOFB creates an OFB cipher.
func NewOFB(key []byte, opts ...Option) (IVCipher, error) {
	return newIVCipher(OFB, key, opts...)
}

// NewCTR creates a CTR cipher.
func NewCTR(key []byte, opts ...Option) (IVCipher, error) {
	return newIVCipher(CTR, key, opts...)
}

func newIVCipher(mode Mode, key []byte, opts ...Option) (IVCipher, error) {
	c, err := New(mode, key, opts...)
	if err != nil {
		return nil, err
	}
	return c.(IVCipher), nil
}

// engine holds what every mode shares: the keyed primitive and the IV source.
// It never holds an IV or chaining state.
type engine struct {
	mode    Mode
	block   Primitive
	random  io.Reader
	logger  *Logger
	metrics *Metrics
}

func (e *engine) Mode() Mode {
	return e.mode
}

func (e *engine) BlockSize() int {
	return BlockSize
}

func (e *engine) sealed() {}

// begin records one call of n input bytes.
func (e *engine) begin(op string, n int) {
	e.metrics.recordCall(op, n)
}

// fail wraps err into an *Error for this mode and records it.
func (e *engine) fail(op string, err error) error {
	wrapped := &Error{Op: op, Mode: e.mode, Err: err}
	e.metrics.recordFailure(wrapped)
	e.logger.Warn("%v", wrapped)
	return wrapped
}

// newIV reads one block from the IV source.
func (e *engine) newIV() ([]byte, error) {
	iv := make([]byte, BlockSize)
	if _, err := io.ReadFull(e.random, iv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandom, err)
	}
	return iv, nil
}

// checkIV validates a caller supplied IV.
func (e *engine) checkIV(iv []byte) error {
	if len(iv) != BlockSize {
		return fmt.Errorf("%w: IV is %d bytes, want %d", ErrLength, len(iv), BlockSize)
	}
	return nil
}

// splitIV separates the IV prefix from the body.
func (e *engine) splitIV(data []byte) (iv, body []byte, err error) {
	if len(data) < BlockSize {
		return nil, nil, fmt.Errorf("%w: %d bytes cannot hold a %d byte IV", ErrLength, len(data), BlockSize)
	}
	return data[:BlockSize], data[BlockSize:], nil
}

// checkBlocks requires a non-empty, block aligned body.
func (e *engine) checkBlocks(body []byte) error {
	if len(body) == 0 || len(body)%BlockSize != 0 {
		return fmt.Errorf("%w: %d bytes is not a positive multiple of %d", ErrLength, len(body), BlockSize)
	}
	return nil
}

func (e *engine) traceIV(op string, iv []byte) {
	e.logger.Debug("%s %s iv=%x", e.mode, op, iv)
}

// encryptWithFreshIV is Encrypt for every IV-based mode.
func (e *engine) encryptWithFreshIV(plaintext []byte, seal func(iv, plaintext []byte) ([]byte, error)) ([]byte, error) {
	iv, err := e.newIV()
	if err != nil {
		e.begin("encrypt", len(plaintext))
		return nil, e.fail("encrypt", err)
	}
	return seal(iv, plaintext)
}
