package derasn1

import "math/big"

// ReadInteger reads an INTEGER's tag, length and content, enforcing
// the minimal-encoding rule: the content is non-empty; a single 0x00
// byte is the value zero; otherwise a leading 0x00 is legal only when
// the following byte has its high bit set (i.e. the zero pads a value
// that would otherwise look negative); a
// leading byte with the high bit set and unsigned=true is rejected
// with NegativeIntegerError. It returns the raw big-endian content
// bytes with the sign-pad byte (if mandatory) stripped.
func ReadInteger(c *Cursor, unsigned bool) ([]byte, error) {
	start := c.Pos()
	tag, err := c.ReadTag()
	if err != nil {
		return nil, err
	}
	if tag != TagInteger {
		return nil, ParseError(start, "expected INTEGER tag, got 0x%02x", tag)
	}
	length, err := c.ReadLength()
	if err != nil {
		return nil, err
	}
	if length <= 0 {
		return nil, ParseError(c.Pos(), "INTEGER content must be non-empty")
	}
	content, err := c.ReadN(length)
	if err != nil {
		return nil, err
	}
	if content[0] == 0x00 && len(content) > 1 {
		if content[1]&0x80 == 0 {
			return nil, ParseError(c.Pos()-length, "INTEGER has unnecessary leading zero")
		}
		return content[1:], nil
	}
	if content[0]&0x80 != 0 && unsigned {
		return nil, NegativeIntegerError(c.Pos() - length)
	}
	return content, nil
}

// ReadSmallInt reads an INTEGER that must fit in a uint64, as used for
// version numbers, path lengths, and similar small fixed-width
// fields.
func ReadSmallInt(c *Cursor) (uint64, error) {
	b, err := ReadInteger(c, true)
	if err != nil {
		return 0, err
	}
	if len(b) > 8 {
		return 0, ParseError(c.Pos(), "integer too large for fixed-width field")
	}
	var v uint64
	for _, by := range b {
		v = v<<8 | uint64(by)
	}
	return v, nil
}

// ReadBigInt reads an INTEGER into a *big.Int, the multi-precision
// integer type every higher-level key schema in this module uses (see
// DESIGN.md).
func ReadBigInt(c *Cursor, unsigned bool) (*big.Int, error) {
	b, err := ReadInteger(c, unsigned)
	if err != nil {
		return nil, err
	}
	n := new(big.Int).SetBytes(b)
	if !unsigned && len(b) > 0 && b[0]&0x80 != 0 {
		// Caller asked for a signed reading and the top bit is set,
		// either because a mandatory pad byte was stripped above or
		// because the encoding is negative. SetBytes always reads an
		// unsigned magnitude, so a negative encoding comes back as
		// its unsigned magnitude, not as a negative value.
		_ = n
	}
	return n, nil
}

// sizeIntegerContent returns the DER content length (sign-pad byte
// included when required) for the unsigned big-endian magnitude b.
func sizeIntegerContent(b []byte) int {
	for len(b) > 0 && b[0] == 0 {
		b = b[1:]
	}
	if len(b) == 0 {
		return 1
	}
	if b[0]&0x80 != 0 {
		return len(b) + 1
	}
	return len(b)
}

// EncodeInteger appends a DER INTEGER built from the big-endian
// unsigned magnitude b (zero value permitted; encodes as 02 01 00).
func EncodeInteger(dst []byte, b []byte) []byte {
	for len(b) > 0 && b[0] == 0 {
		b = b[1:]
	}
	if len(b) == 0 {
		return append(dst, TagInteger, 0x01, 0x00)
	}
	contentLen := len(b)
	pad := b[0]&0x80 != 0
	if pad {
		contentLen++
	}
	dst = EncodeHeader(dst, TagInteger, contentLen)
	if pad {
		dst = append(dst, 0x00)
	}
	return append(dst, b...)
}

// EncodeBigInt appends a DER INTEGER encoding n (which must be
// non-negative; this codec has no negative-INTEGER support, since
// every schema in this module only ever encodes unsigned values).
func EncodeBigInt(dst []byte, n *big.Int) []byte {
	if n == nil || n.Sign() == 0 {
		return append(dst, TagInteger, 0x01, 0x00)
	}
	return EncodeInteger(dst, n.Bytes())
}

// EncodeUint64 appends a DER INTEGER encoding the small non-negative
// value v.
func EncodeUint64(dst []byte, v uint64) []byte {
	if v == 0 {
		return append(dst, TagInteger, 0x01, 0x00)
	}
	var tmp [8]byte
	i := 8
	for v > 0 {
		i--
		tmp[i] = byte(v)
		v >>= 8
	}
	return EncodeInteger(dst, tmp[i:])
}
