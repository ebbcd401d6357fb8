// Package wire implements the FileDeck value stream.
//
// Every value on the connection is XDR encoded (RFC 4506). Strings and byte
// arrays are a 4-byte big-endian length followed by the data and zero padding
// to a 4-byte boundary; a string list is a 4-byte count followed by that many
// strings; a credential pair is two strings. Values carry no type tag, so the
// order in which peers read and write them is the whole contract. Replies
// that may or may not carry a value use XDR optional-data: a 4-byte boolean
// discriminant, then the value only when it is 1.
package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// MaxStringLength bounds names, tokens and credential fields read from a peer.
const MaxStringLength = 64 * 1024

// MaxListLength bounds the number of entries in a decoded string list.
const MaxListLength = 1 << 20

var (
	// ErrTooLarge is returned when a peer announces a value longer than allowed.
	ErrTooLarge = errors.New("value exceeds maximum length")

	// ErrBadDiscriminant is returned when an optional value's flag is
	// neither 0 nor 1.
	ErrBadDiscriminant = errors.New("invalid optional discriminant")
)

// Credentials is the username/password pair sent by login and register.
type Credentials struct {
	Username string
	Password string
}

// Codec reads and writes protocol values on one stream. Every write is
// flushed before returning so the peer never waits on buffered data.
//
// A Codec is not safe for concurrent use; one session owns it.
type Codec struct {
	r          *bufio.Reader
	w          *bufio.Writer
	maxPayload int
}

// NewCodec wraps rw. maxPayload bounds byte payloads (file contents);
// zero means unlimited.
func NewCodec(rw io.ReadWriter, maxPayload int) *Codec {
	return &Codec{
		r:          bufio.NewReader(rw),
		w:          bufio.NewWriter(rw),
		maxPayload: maxPayload,
	}
}

// ============================================================================
// Encoding
// ============================================================================

func (c *Codec) marshal(v any) error {
	if _, err := xdr.Marshal(c.w, v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// WriteString sends one string value.
func (c *Codec) WriteString(s string) error {
	return c.marshal(s)
}

// WriteStrings sends a counted list of strings. A nil list is sent as empty.
func (c *Codec) WriteStrings(list []string) error {
	if list == nil {
		list = []string{}
	}
	return c.marshal(list)
}

// WriteBytes sends a byte payload.
func (c *Codec) WriteBytes(data []byte) error {
	if data == nil {
		data = []byte{}
	}
	return c.marshal(data)
}

// WriteOptionalBytes sends a present byte payload as optional-data.
func (c *Codec) WriteOptionalBytes(data []byte) error {
	if err := c.writeFlag(true); err != nil {
		return err
	}
	return c.WriteBytes(data)
}

// WriteOptionalStrings sends a present string list as optional-data.
func (c *Codec) WriteOptionalStrings(list []string) error {
	if err := c.writeFlag(true); err != nil {
		return err
	}
	return c.WriteStrings(list)
}

// WriteAbsent sends the empty arm of an optional value.
func (c *Codec) WriteAbsent() error {
	if err := c.writeFlag(false); err != nil {
		return err
	}
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// writeFlag buffers the discriminant; the value that follows flushes it.
func (c *Codec) writeFlag(present bool) error {
	var flag uint32
	if present {
		flag = 1
	}
	if err := binary.Write(c.w, binary.BigEndian, flag); err != nil {
		return fmt.Errorf("encode flag: %w", err)
	}
	return nil
}

// WriteCredentials sends a credential pair.
func (c *Codec) WriteCredentials(creds Credentials) error {
	return c.marshal(creds)
}

// ============================================================================
// Decoding
// ============================================================================

// ReadString reads one string value of at most MaxStringLength bytes.
func (c *Codec) ReadString() (string, error) {
	data, err := decodeOpaque(c.r, MaxStringLength)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadBytes reads one byte payload, bounded by the codec's payload limit.
func (c *Codec) ReadBytes() ([]byte, error) {
	return decodeOpaque(c.r, c.maxPayload)
}

// ReadCredentials reads a username followed by a password.
func (c *Codec) ReadCredentials() (Credentials, error) {
	var creds Credentials
	var err error
	if creds.Username, err = c.ReadString(); err != nil {
		return Credentials{}, fmt.Errorf("username: %w", err)
	}
	if creds.Password, err = c.ReadString(); err != nil {
		return Credentials{}, fmt.Errorf("password: %w", err)
	}
	return creds, nil
}

// ReadStrings reads a counted list of strings.
func (c *Codec) ReadStrings() ([]string, error) {
	count, err := peekUint32(c.r)
	if err != nil {
		return nil, err
	}
	if count > MaxListLength {
		return nil, fmt.Errorf("list of %d entries: %w", count, ErrTooLarge)
	}

	var list []string
	if _, err := xdr.Unmarshal(c.r, &list); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return list, nil
}

// ReadOptionalBytes reads optional-data wrapping a byte payload. ok is
// false when the peer sent the empty arm.
func (c *Codec) ReadOptionalBytes() (data []byte, ok bool, err error) {
	if ok, err = c.readFlag(); err != nil || !ok {
		return nil, false, err
	}
	data, err = c.ReadBytes()
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// ReadOptionalStrings reads optional-data wrapping a string list.
func (c *Codec) ReadOptionalStrings() (list []string, ok bool, err error) {
	if ok, err = c.readFlag(); err != nil || !ok {
		return nil, false, err
	}
	list, err = c.ReadStrings()
	if err != nil {
		return nil, false, err
	}
	return list, true, nil
}

func (c *Codec) readFlag() (bool, error) {
	var flag uint32
	if err := binary.Read(c.r, binary.BigEndian, &flag); err != nil {
		return false, fmt.Errorf("read flag: %w", err)
	}
	switch flag {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("flag %d: %w", flag, ErrBadDiscriminant)
	}
}

// peekUint32 returns the next 4-byte big-endian value without consuming it.
func peekUint32(r *bufio.Reader) (uint32, error) {
	b, err := r.Peek(4)
	if err != nil {
		return 0, fmt.Errorf("read length: %w", err)
	}
	return binary.BigEndian.Uint32(b), nil
}

// decodeOpaque reads variable-length opaque data:
// [length:uint32][data:length bytes][padding:0-3 bytes].
// A max of zero disables the length check.
func decodeOpaque(r io.Reader, max int) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}

	if max > 0 && uint64(length) > uint64(max) {
		return nil, fmt.Errorf("length %d, limit %d: %w", length, max, ErrTooLarge)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}

	padding := (4 - (length % 4)) % 4
	if padding > 0 {
		var padBuf [3]byte
		if _, err := io.ReadFull(r, padBuf[:padding]); err != nil {
			return nil, fmt.Errorf("skip padding: %w", err)
		}
	}

	return data, nil
}

// IsClosed reports whether err means the peer went away rather than sent
// malformed data.
func IsClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
