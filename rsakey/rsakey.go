// Package rsakey implements the RSA public/private key schemas: PKCS #1
// bare forms and the X.509 SubjectPublicKeyInfo wrapper, following the
// same flat decode-then-validate style the rest of this module uses
// for its other ASN.1 structures (see ocsp's CertID/SingleResponse
// parsing).
package rsakey

import (
	"math/big"

	"go.step.sm/ocsp/derasn1"
	"go.step.sm/ocsp/oid"
)

// PublicKey is a decoded RSA public key: modulus and exponent as
// big.Int, the universal ecosystem boundary type for multi-precision
// integers (the X-MP collaborator, see DESIGN.md).
type PublicKey struct {
	N *big.Int
	E *big.Int
}

// PrivateKey is a decoded RSAPrivateKey (PKCS #1), version 0 or 1;
// a version-1 key carrying extra primes (OtherPrimeInfos) is
// rejected.
type PrivateKey struct {
	N, E, D, P, Q, DP, DQ, QInv *big.Int
}

// bareSchema is `RSAPublicKey ::= SEQUENCE { modulus INTEGER,
// publicExponent INTEGER }`.
var bareSchema = []derasn1.ItemDescriptor{
	{Depth: 0, Tag: derasn1.TagSequence, Constructed: true},
	{Depth: 1, Tag: derasn1.TagInteger},
	{Depth: 1, Tag: derasn1.TagInteger},
}

// wrappedSchema is the X.509 SubjectPublicKeyInfo wrapper: AlgorithmIdentifier
// (id-RSA, NULL) then the BIT STRING carrying a bareSchema body.
var wrappedSchema = []derasn1.ItemDescriptor{
	{Depth: 0, Tag: derasn1.TagSequence, Constructed: true},
	{Depth: 1, Tag: derasn1.TagSequence, Constructed: true},
	{Depth: 2, Tag: derasn1.TagOID},
	{Depth: 2, Tag: derasn1.TagNull},
	{Depth: 1, Tag: derasn1.TagBitString},
}

// privateSchema is a bare PKCS #1 RSAPrivateKey (version 0 or 1); the
// version field is read as a fixed-width uint and validated
// separately since the engine does not judge field values.
var privateSchema = []derasn1.ItemDescriptor{
	{Depth: 0, Tag: derasn1.TagSequence, Constructed: true},
	{Depth: 1, Tag: derasn1.TagInteger}, // version
	{Depth: 1, Tag: derasn1.TagInteger}, // modulus
	{Depth: 1, Tag: derasn1.TagInteger}, // publicExponent
	{Depth: 1, Tag: derasn1.TagInteger}, // privateExponent
	{Depth: 1, Tag: derasn1.TagInteger}, // prime1
	{Depth: 1, Tag: derasn1.TagInteger}, // prime2
	{Depth: 1, Tag: derasn1.TagInteger}, // exponent1
	{Depth: 1, Tag: derasn1.TagInteger}, // exponent2
	{Depth: 1, Tag: derasn1.TagInteger}, // coefficient
}

// ParsePublicKey accepts either the bare PKCS #1
// `RSAPublicKey ::= SEQUENCE { modulus INTEGER, publicExponent INTEGER }`
// or the X.509-wrapped SubjectPublicKeyInfo form, trying the inner
// form first and retrying the wrapped form on structural failure.
func ParsePublicKey(der []byte) (PublicKey, error) {
	if pub, err := parseBarePublicKey(der); err == nil {
		return pub, nil
	}
	return parseWrappedPublicKey(der)
}

func parseBarePublicKey(der []byte) (PublicKey, error) {
	c := derasn1.NewCursor(der)
	data := make([]derasn1.DataSlot, len(bareSchema))
	data[1] = derasn1.DataSlot{Kind: derasn1.SlotBigInt, Unsigned: true}
	data[2] = derasn1.DataSlot{Kind: derasn1.SlotBigInt, Unsigned: true}
	if err := derasn1.GetASNItems(bareSchema, data, c, true); err != nil {
		return PublicKey{}, err
	}
	if c.Pos() != c.Len() {
		return PublicKey{}, derasn1.ParseError(c.Pos(), "trailing bytes after RSAPublicKey")
	}
	return PublicKey{N: data[1].BigVal, E: data[2].BigVal}, nil
}

func parseWrappedPublicKey(der []byte) (PublicKey, error) {
	c := derasn1.NewCursor(der)
	data := make([]derasn1.DataSlot, len(wrappedSchema))
	rsaOID, err := oid.Bytes(oid.KeyType, oid.KeyRSA)
	if err != nil {
		return PublicKey{}, err
	}
	data[2] = derasn1.DataSlot{Kind: derasn1.SlotOID, ExpectedRaw: rsaOID}
	data[3] = derasn1.DataSlot{Kind: derasn1.SlotExpectedBytes} // NULL must be zero-length
	data[4] = derasn1.DataSlot{Kind: derasn1.SlotBitString}
	if err := derasn1.GetASNItems(wrappedSchema, data, c, true); err != nil {
		return PublicKey{}, err
	}
	if c.Pos() != data[0].Offset+data[0].Length {
		return PublicKey{}, derasn1.ParseError(c.Pos(), "SubjectPublicKeyInfo did not consume its declared length")
	}
	return parseBarePublicKey(data[4].BitString.RightAlign())
}

// EncodePublicKey appends the bare PKCS #1 form.
func EncodePublicKey(dst []byte, pub PublicKey) []byte {
	data := []derasn1.DataSlot{
		{},
		{Kind: derasn1.SlotBigInt, BigVal: pub.N},
		{Kind: derasn1.SlotBigInt, BigVal: pub.E},
	}
	return appendViaSchema(dst, bareSchema, data)
}

// EncodeWrappedPublicKey appends the X.509 SubjectPublicKeyInfo form.
func EncodeWrappedPublicKey(dst []byte, pub PublicKey) []byte {
	rsaOID, err := oid.Bytes(oid.KeyType, oid.KeyRSA)
	if err != nil {
		panic(err) // registry entry is static and always present
	}
	var inner []byte
	inner = EncodePublicKey(inner, pub)
	var bitstr []byte
	bitstr = derasn1.EncodeBitString(bitstr, inner, 0)

	data := []derasn1.DataSlot{
		{},
		{},
		{Kind: derasn1.SlotOID, ExpectedRaw: rsaOID},
		{Kind: derasn1.SlotNone},
		{Kind: derasn1.SlotReplace, Bytes: bitstr},
	}
	return appendViaSchema(dst, wrappedSchema, data)
}

// ParsePrivateKey decodes a bare PKCS #1 RSAPrivateKey. Version must
// be 0 or 1; a version-1 key carrying OtherPrimeInfos is detected by
// the trailing-bytes check and rejected (extra primes unsupported).
func ParsePrivateKey(der []byte) (PrivateKey, error) {
	c := derasn1.NewCursor(der)
	data := make([]derasn1.DataSlot, len(privateSchema))
	data[1] = derasn1.DataSlot{Kind: derasn1.SlotUint, Unsigned: true}
	for i := 2; i < len(privateSchema); i++ {
		data[i] = derasn1.DataSlot{Kind: derasn1.SlotBigInt, Unsigned: true}
	}
	if err := derasn1.GetASNItems(privateSchema, data, c, true); err != nil {
		return PrivateKey{}, err
	}
	version := data[1].UintVal
	if version != 0 && version != 1 {
		return PrivateKey{}, derasn1.ParseError(data[1].Offset, "RSAPrivateKey version must be 0 or 1, got %d", version)
	}
	end := data[0].Offset + data[0].Length
	if c.Pos() != end {
		return PrivateKey{}, derasn1.ParseError(end, "RSAPrivateKey carries unsupported extra-prime info or trailing bytes")
	}
	return PrivateKey{
		N: data[2].BigVal, E: data[3].BigVal, D: data[4].BigVal,
		P: data[5].BigVal, Q: data[6].BigVal, DP: data[7].BigVal,
		DQ: data[8].BigVal, QInv: data[9].BigVal,
	}, nil
}

// EncodePrivateKey appends a version-0 bare PKCS #1 RSAPrivateKey.
func EncodePrivateKey(dst []byte, k PrivateKey) []byte {
	data := []derasn1.DataSlot{
		{},
		{Kind: derasn1.SlotUint, UintVal: 0},
		{Kind: derasn1.SlotBigInt, BigVal: k.N},
		{Kind: derasn1.SlotBigInt, BigVal: k.E},
		{Kind: derasn1.SlotBigInt, BigVal: k.D},
		{Kind: derasn1.SlotBigInt, BigVal: k.P},
		{Kind: derasn1.SlotBigInt, BigVal: k.Q},
		{Kind: derasn1.SlotBigInt, BigVal: k.DP},
		{Kind: derasn1.SlotBigInt, BigVal: k.DQ},
		{Kind: derasn1.SlotBigInt, BigVal: k.QInv},
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
