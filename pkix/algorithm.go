package pkix

import "go.step.sm/ocsp/derasn1"

// AlgorithmIdentifier is `SEQUENCE { algorithm OID, parameters ANY
// OPTIONAL }`. ParamsRaw holds the parameters element verbatim
// (including its own tag/length) so schema-specific code can decide
// whether NULL is required, forbidden, or an OID is expected.
type AlgorithmIdentifier struct {
	OIDRaw    []byte
	OIDSum    int
	ParamsRaw []byte // nil when parameters is absent
}

// ParseAlgorithmIdentifier decodes one AlgorithmIdentifier SEQUENCE.
func ParseAlgorithmIdentifier(c *derasn1.Cursor) (AlgorithmIdentifier, error) {
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return AlgorithmIdentifier{}, err
	}
	end := c.Pos() + seqLen
	oidRaw, sum, err := derasn1.ReadOIDBytes(c)
	if err != nil {
		return AlgorithmIdentifier{}, err
	}
	var params []byte
	if c.Pos() < end {
		start := c.Pos()
		tag, err := c.ReadTag()
		if err != nil {
			return AlgorithmIdentifier{}, err
		}
		length, err := c.ReadLength()
		if err != nil {
			return AlgorithmIdentifier{}, err
		}
		if _, err := c.ReadN(length); err != nil {
			return AlgorithmIdentifier{}, err
		}
		params = append([]byte{tag}, c.Bytes()[start+1:c.Pos()]...)
	}
	if c.Pos() != end {
		return AlgorithmIdentifier{}, derasn1.ParseError(end, "AlgorithmIdentifier did not consume its declared length")
	}
	return AlgorithmIdentifier{OIDRaw: oidRaw, OIDSum: sum, ParamsRaw: params}, nil
}

// EncodeAlgorithmIdentifier appends a DER AlgorithmIdentifier. When
// withNullParams is true a NULL parameters element is emitted
// (RSA/DSA-with-SHA*); otherwise the algorithm OID is the only field.
func EncodeAlgorithmIdentifier(dst []byte, oidRaw []byte, withNullParams bool) []byte {
	var content []byte
	content = derasn1.EncodeOIDBytes(content, oidRaw)
	if withNullParams {
		content = derasn1.EncodeNull(content)
	}
	dst = derasn1.EncodeHeader(dst, derasn1.TagSequence|0x20, len(content))
	return append(dst, content...)
}

// EncodeAlgorithmIdentifierWithParams appends a DER AlgorithmIdentifier
// whose parameters are an already-encoded element (e.g. a named-curve
// OID for ECDSA public keys).
func EncodeAlgorithmIdentifierWithParams(dst []byte, oidRaw []byte, paramsRaw []byte) []byte {
	var content []byte
	content = derasn1.EncodeOIDBytes(content, oidRaw)
	content = append(content, paramsRaw...)
	dst = derasn1.EncodeHeader(dst, derasn1.TagSequence|0x20, len(content))
	return append(dst, content...)
}
