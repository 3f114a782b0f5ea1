package derasn1

// ReadOIDBytes reads an OBJECT IDENTIFIER's tag, length and raw content
// bytes (the DER-encoded subidentifier stream, not a dotted-decimal
// form) and returns the content together with the byte-sum used
// throughout this module as a fast registry key.
func ReadOIDBytes(c *Cursor) (content []byte, sum int, err error) {
	start := c.Pos()
	tag, err := c.ReadTag()
	if err != nil {
		return nil, 0, err
	}
	if tag != TagOID {
		return nil, 0, ParseError(start, "expected OBJECT IDENTIFIER tag, got 0x%02x", tag)
	}
	length, err := c.ReadLength()
	if err != nil {
		return nil, 0, err
	}
	if length < 1 {
		return nil, 0, ObjectIdError(c.Pos(), "OBJECT IDENTIFIER content must be non-empty")
	}
	content, err = c.ReadN(length)
	if err != nil {
		return nil, 0, err
	}
	// Trivial structural check: every subidentifier's final byte must
	// have its high bit clear, and the stream itself must not end
	// mid-subidentifier.
	if content[len(content)-1]&0x80 != 0 {
		return nil, 0, ObjectIdError(start, "OBJECT IDENTIFIER content ends mid-subidentifier")
	}
	sum = 0
	for _, b := range content {
		sum += int(b)
	}
	return content, sum, nil
}

// EncodeOIDBytes appends a DER OBJECT IDENTIFIER built from raw
// (already-encoded) subidentifier content bytes.
func EncodeOIDBytes(dst []byte, raw []byte) []byte {
	dst = EncodeHeader(dst, TagOID, len(raw))
	return append(dst, raw...)
}

// OIDSum computes the registry fast-path sum for raw OID content
// bytes without a full decode (used when building schemas' expected
// OID comparisons).
func OIDSum(raw []byte) int {
	sum := 0
	for _, b := range raw {
		sum += int(b)
	}
	return sum
}

// ReadOctetString reads an OCTET STRING's tag, length and raw content
// with no interpretation "OCTET STRING".
func ReadOctetString(c *Cursor) ([]byte, error) {
	start := c.Pos()
	tag, err := c.ReadTag()
	if err != nil {
		return nil, err
	}
	if tag != TagOctetString {
		return nil, ParseError(start, "expected OCTET STRING tag, got 0x%02x", tag)
	}
	length, err := c.ReadLength()
	if err != nil {
		return nil, err
	}
	return c.ReadN(length)
}

// EncodeOctetString appends a DER OCTET STRING.
func EncodeOctetString(dst []byte, value []byte) []byte {
	dst = EncodeHeader(dst, TagOctetString, len(value))
	return append(dst, value...)
}

// ReadNull consumes a NULL's tag and length, failing with
// Expect0Error if the length is not zero "NULL".
func ReadNull(c *Cursor) error {
	start := c.Pos()
	tag, err := c.ReadTag()
	if err != nil {
		return err
	}
	if tag != TagNull {
		return ParseError(start, "expected NULL tag, got 0x%02x", tag)
	}
	length, err := c.ReadLength()
	if err != nil {
		return err
	}
	if length != 0 {
		return Expect0Error(start, "NULL must have zero length, got %d", length)
	}
	return nil
}

// EncodeNull appends a DER NULL (05 00).
func EncodeNull(dst []byte) []byte {
	return append(dst, TagNull, 0x00)
}

// ReadSequenceHeader reads a SEQUENCE header (tag 0x30, CONSTRUCTED)
// and returns the content length.
func ReadSequenceHeader(c *Cursor) (int, error) {
	return readConstructedHeader(c, TagSequence)
}

// ReadSetHeader reads a SET header (tag 0x31, CONSTRUCTED).
func ReadSetHeader(c *Cursor) (int, error) {
	return readConstructedHeader(c, TagSet)
}

func readConstructedHeader(c *Cursor, base byte) (int, error) {
	start := c.Pos()
	tag, err := c.ReadTag()
	if err != nil {
		return 0, err
	}
	if !MatchTag(tag, base, true) {
		return 0, ParseError(start, "expected constructed tag 0x%02x, got 0x%02x", base|classConstructed, tag)
	}
	return c.ReadLength()
}
