package pkix

import "go.step.sm/ocsp/derasn1"

// Extension is one element of a certificate or CRL extension block:
// `SEQUENCE { extnId OID, critical BOOLEAN DEFAULT FALSE, extnValue
// OCTET STRING }`
type Extension struct {
	OIDRaw   []byte
	OIDSum   int
	Critical bool
	Value    []byte
}

// ParseExtensions decodes the `SEQUENCE OF Extension` body whose
// header has already been consumed by the caller (the enclosing
// `[3] EXPLICIT` or bare SEQUENCE framing differs between
// certificates, CSRs and CRLs), reading until end.
func ParseExtensions(c *derasn1.Cursor, end int) ([]Extension, error) {
	var exts []Extension
	for c.Pos() < end {
		ext, err := parseOneExtension(c)
		if err != nil {
			return nil, err
		}
		exts = append(exts, ext)
	}
	if c.Pos() != end {
		return nil, derasn1.ParseError(end, "extensions block did not consume its declared length")
	}
	return exts, nil
}

func parseOneExtension(c *derasn1.Cursor) (Extension, error) {
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return Extension{}, err
	}
	end := c.Pos() + seqLen
	oidRaw, sum, err := derasn1.ReadOIDBytes(c)
	if err != nil {
		return Extension{}, err
	}
	critical := false
	if c.Pos() < end {
		b, err := c.PeekByte()
		if err != nil {
			return Extension{}, err
		}
		if b == derasn1.TagBoolean {
			start := c.Pos()
			if _, err := c.ReadTag(); err != nil {
				return Extension{}, err
			}
			length, err := c.ReadLength()
			if err != nil {
				return Extension{}, err
			}
			if length != 1 {
				return Extension{}, derasn1.ParseError(start, "BOOLEAN must have length 1")
			}
			v, err := c.ReadN(1)
			if err != nil {
				return Extension{}, err
			}
			critical = v[0] != 0x00
		}
	}
	value, err := derasn1.ReadOctetString(c)
	if err != nil {
		return Extension{}, err
	}
	if c.Pos() != end {
		return Extension{}, derasn1.ParseError(end, "Extension did not consume its declared length")
	}
	return Extension{OIDRaw: oidRaw, OIDSum: sum, Critical: critical, Value: value}, nil
}

// EncodeExtensions appends a DER `SEQUENCE OF Extension` built from
// exts (no outer context tag — callers wrap it as needed).
func EncodeExtensions(dst []byte, exts []Extension) []byte {
	var content []byte
	for _, e := range exts {
		var item []byte
		item = derasn1.EncodeOIDBytes(item, e.OIDRaw)
		if e.Critical {
			item = append(item, derasn1.TagBoolean, 0x01, 0xFF)
		}
		item = derasn1.EncodeOctetString(item, e.Value)
		var seq []byte
		seq = derasn1.EncodeHeader(seq, derasn1.TagSequence|0x20, len(item))
		seq = append(seq, item...)
		content = append(content, seq...)
	}
	dst = derasn1.EncodeHeader(dst, derasn1.TagSequence|0x20, len(content))
	return append(dst, content...)
}
