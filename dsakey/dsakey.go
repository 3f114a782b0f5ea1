// Package dsakey implements the DSA/DH key schema: bare PKCS #3/shared
// `Parameters ::= SEQUENCE { p, q, g }` plus the bare-vs-wrapped
// disambiguation of a leading version INTEGER.
package dsakey

import (
	"math/big"

	"go.step.sm/ocsp/derasn1"
)

// Parameters is the shared DSAParameters/DHParameter-ish domain block;
// Q and PrivateValueLength are populated only when present (DH's
// optional subgroup factor and bounded private exponent length).
type Parameters struct {
	P, G *big.Int
	Q    *big.Int // nil when absent (legacy PKCS #3 DH without subgroup order)
	// PrivateValueLength is DH's optional bound on the private key
	// length in bits; 0 when absent.
	PrivateValueLength int
}

// PublicKey is a DSA/DH public value Y together with its domain
// parameters.
type PublicKey struct {
	Parameters
	Y *big.Int
}

// PrivateKey is a bare DSA/DH private key: domain parameters plus the
// private exponent X. The bare form (PKCS #3) is distinguished from
// the wrapped form by whether the top-level sequence contains a
// leading version INTEGER; ParsePrivateKeyAuto below implements that
// disambiguation.
type PrivateKey struct {
	Parameters
	X *big.Int
}

// parametersSchema is `DSAParameters ::= SEQUENCE { p, q, g }`.
var parametersSchema = []derasn1.ItemDescriptor{
	{Depth: 0, Tag: derasn1.TagSequence, Constructed: true},
	{Depth: 1, Tag: derasn1.TagInteger}, // p
	{Depth: 1, Tag: derasn1.TagInteger}, // q
	{Depth: 1, Tag: derasn1.TagInteger}, // g
}

// ParseParameters decodes `DSAParameters ::= SEQUENCE { p, q, g }` off
// an already-positioned cursor shared with the caller (the
// AlgorithmIdentifier.parameters region), the same convention
// pkix.ParseAlgorithmIdentifier's callers use elsewhere in this module.
func ParseParameters(c *derasn1.Cursor) (Parameters, error) {
	data := make([]derasn1.DataSlot, len(parametersSchema))
	for i := 1; i < len(parametersSchema); i++ {
		data[i] = derasn1.DataSlot{Kind: derasn1.SlotBigInt}
	}
	if err := derasn1.GetASNItems(parametersSchema, data, c, true); err != nil {
		return Parameters{}, err
	}
	if end := data[0].Offset + data[0].Length; c.Pos() != end {
		return Parameters{}, derasn1.ParseError(end, "DSAParameters did not consume its declared length")
	}
	return Parameters{P: data[1].BigVal, Q: data[2].BigVal, G: data[3].BigVal}, nil
}

// EncodeParameters appends `SEQUENCE { p, q, g }`.
func EncodeParameters(dst []byte, params Parameters) []byte {
	data := []derasn1.DataSlot{
		{},
		{Kind: derasn1.SlotBigInt, BigVal: params.P},
		{Kind: derasn1.SlotBigInt, BigVal: params.Q},
		{Kind: derasn1.SlotBigInt, BigVal: params.G},
	}
	return appendViaSchema(dst, parametersSchema, data)
}

// publicSchema is the bare `DSAPublicKey ::= INTEGER`.
var publicSchema = []derasn1.ItemDescriptor{
	{Depth: 0, Tag: derasn1.TagInteger},
}

// ParsePublicKey decodes a bare DSA public value `INTEGER` wrapped by
// the caller's PKCS #8/X.509 AlgorithmIdentifier(params); this
// function reads only the Y integer (the wrapper itself is pkcs8's concern).
func ParsePublicKey(der []byte, params Parameters) (PublicKey, error) {
	c := derasn1.NewCursor(der)
	data := []derasn1.DataSlot{{Kind: derasn1.SlotBigInt}}
	if err := derasn1.GetASNItems(publicSchema, data, c, true); err != nil {
		return PublicKey{}, err
	}
	if c.Pos() != c.Len() {
		return PublicKey{}, derasn1.ParseError(c.Pos(), "trailing bytes after DSA public value")
	}
	return PublicKey{Parameters: params, Y: data[0].BigVal}, nil
}

// EncodePublicKey appends the bare INTEGER public value.
func EncodePublicKey(dst []byte, pub PublicKey) []byte {
	data := []derasn1.DataSlot{{Kind: derasn1.SlotBigInt, BigVal: pub.Y}}
	return appendViaSchema(dst, publicSchema, data)
}

// ParsePrivateKeyAuto decodes a DSA/DH private key body, distinguishing
// the bare PKCS #3-style form (leading version INTEGER, then p, q, g,
// x, the layout EncodePrivateKey writes) from a plain `SEQUENCE { p, q, g, x }`
// by peeking whether a version field precedes the parameters. This
// dispatch is value-dependent (it inspects the bit length of the
// first decoded INTEGER, not its tag shape), which the descriptor
// engine's static preorder schemas cannot express, so this function
// stays hand-rolled the way it always has; see EncodeParameters/
// EncodePublicKey/EncodePrivateKey above and below for the structurally
// fixed shapes this package expresses through GetASNItems/SizeASNItems/
// SetASNItems instead.
func ParsePrivateKeyAuto(der []byte) (PrivateKey, error) {
	c := derasn1.NewCursor(der)
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return PrivateKey{}, err
	}
	end := c.Pos() + seqLen

	first, err := derasn1.ReadBigInt(c, false)
	if err != nil {
		return PrivateKey{}, err
	}
	// Heuristic: a first INTEGER of at most 8 bits (a version number)
	// immediately followed by further structure marks the wrapped/bare
	// PKCS#3 form; a large prime P in the first slot marks the plain
	// `{p, q, g, x}` shape.
	isVersionForm := first.BitLen() <= 8 && c.Pos() < end

	var k PrivateKey
	if isVersionForm {
		p, err := derasn1.ReadBigInt(c, false)
		if err != nil {
			return PrivateKey{}, err
		}
		q, err := derasn1.ReadBigInt(c, false)
		if err != nil {
			return PrivateKey{}, err
		}
		g, err := derasn1.ReadBigInt(c, false)
		if err != nil {
			return PrivateKey{}, err
		}
		x, err := derasn1.ReadBigInt(c, false)
		if err != nil {
			return PrivateKey{}, err
		}
		k.P, k.Q, k.G, k.X = p, q, g, x
	} else {
		q, err := derasn1.ReadBigInt(c, false)
		if err != nil {
			return PrivateKey{}, err
		}
		g, err := derasn1.ReadBigInt(c, false)
		if err != nil {
			return PrivateKey{}, err
		}
		x, err := derasn1.ReadBigInt(c, false)
		if err != nil {
			return PrivateKey{}, err
		}
		k.P, k.Q, k.G, k.X = first, q, g, x
	}
	if c.Pos() != end {
		return PrivateKey{}, derasn1.ParseError(end, "DSA/DH private key did not consume its declared length")
	}
	return k, nil
}

// privateSchema is the version-form `SEQUENCE { version(0), p, q, g, x }`
// EncodePrivateKey emits; ParsePrivateKeyAuto above decodes both this
// form and the bare `{p, q, g, x}` form, so it is not the schema's
// mirror image (see its doc comment).
var privateSchema = []derasn1.ItemDescriptor{
	{Depth: 0, Tag: derasn1.TagSequence, Constructed: true},
	{Depth: 1, Tag: derasn1.TagInteger}, // version
	{Depth: 1, Tag: derasn1.TagInteger}, // p
	{Depth: 1, Tag: derasn1.TagInteger}, // q
	{Depth: 1, Tag: derasn1.TagInteger}, // g
	{Depth: 1, Tag: derasn1.TagInteger}, // x
}

// EncodePrivateKey appends the version-form `SEQUENCE { version(0),
// p, q, g, x }`.
func EncodePrivateKey(dst []byte, k PrivateKey) []byte {
	data := []derasn1.DataSlot{
		{},
		{Kind: derasn1.SlotUint, UintVal: 0},
		{Kind: derasn1.SlotBigInt, BigVal: k.P},
		{Kind: derasn1.SlotBigInt, BigVal: k.Q},
		{Kind: derasn1.SlotBigInt, BigVal: k.G},
		{Kind: derasn1.SlotBigInt, BigVal: k.X},
	}
	return appendViaSchema(dst, privateSchema, data)
}

// appendViaSchema runs the two-pass template encode (size, then emit)
// and appends the result to dst; every encoder in this package shares
// this shape.
func appendViaSchema(dst []byte, asn []derasn1.ItemDescriptor, data []derasn1.DataSlot) []byte {
	total, err := derasn1.SizeASNItems(asn, data)
	if err != nil {
		panic(err) // fixed schema against caller-supplied, already-valid fields
	}
	out := make([]byte, total)
	if err := derasn1.SetASNItems(asn, data, total, out); err != nil {
		panic(err)
	}
	return append(dst, out...)
}
