// Package edkey implements the RFC 8410 CurvePrivateKey schema for
// Ed25519, Ed448, X25519 and X448: an OCTET STRING
// private scalar wrapped by the shared pkcs8 PrivateKeyInfo, and a
// SubjectPublicKeyInfo carrying the raw public value as a BIT STRING.
package edkey

import (
	"go.step.sm/ocsp/derasn1"
	"go.step.sm/ocsp/oid"
)

// sizes, per RFC 8032/7748.
const (
	Ed25519Size = 32
	Ed448Size   = 57
	X25519Size  = 32
	X448Size    = 56
)

// PrivateKey is a decoded CurvePrivateKey body (the OCTET STRING
// payload found inside a pkcs8.PrivateKeyInfo's privateKey field).
type PrivateKey struct {
	KeyID int // one of oid.KeyEd25519/KeyEd448/KeyX25519/KeyX448
	Value []byte
}

// PublicKey is the raw public value carried by a SubjectPublicKeyInfo
// BIT STRING.
type PublicKey struct {
	KeyID int
	Value []byte
}

func expectedSize(keyID int) (int, bool) {
	switch keyID {
	case oid.KeyEd25519:
		return Ed25519Size, true
	case oid.KeyEd448:
		return Ed448Size, true
	case oid.KeyX25519:
		return X25519Size, true
	case oid.KeyX448:
		return X448Size, true
	default:
		return 0, false
	}
}

// privateSchema is the bare `CurvePrivateKey ::= OCTET STRING`.
var privateSchema = []derasn1.ItemDescriptor{
	{Depth: 0, Tag: derasn1.TagOctetString},
}

// ParsePrivateKey decodes `CurvePrivateKey ::= OCTET STRING` whose
// body length must match keyID's expected raw key size.
func ParsePrivateKey(der []byte, keyID int) (PrivateKey, error) {
	size, ok := expectedSize(keyID)
	if !ok {
		return PrivateKey{}, derasn1.ObjectIdError(-1, "unsupported curve key id %d", keyID)
	}
	c := derasn1.NewCursor(der)
	data := []derasn1.DataSlot{{Kind: derasn1.SlotBytes}}
	if err := derasn1.GetASNItems(privateSchema, data, c, true); err != nil {
		return PrivateKey{}, err
	}
	if c.Pos() != c.Len() {
		return PrivateKey{}, derasn1.ParseError(c.Pos(), "trailing bytes after CurvePrivateKey")
	}
	if len(data[0].Bytes) != size {
		return PrivateKey{}, derasn1.ParseError(-1, "CurvePrivateKey value has length %d, want %d", len(data[0].Bytes), size)
	}
	return PrivateKey{KeyID: keyID, Value: data[0].Bytes}, nil
}

// EncodePrivateKey appends the OCTET STRING CurvePrivateKey body.
func EncodePrivateKey(dst []byte, k PrivateKey) []byte {
	data := []derasn1.DataSlot{{Kind: derasn1.SlotBytes, Bytes: k.Value}}
	return appendViaSchema(dst, privateSchema, data)
}

// wrappedSchema is the X.509 SubjectPublicKeyInfo wrapper: RFC 8410
// forbids AlgorithmIdentifier parameters entirely, so unlike rsakey/
// eckey's wrapped form there is no NULL/OID slot between the algorithm
// OID and the BIT STRING.
var wrappedSchema = []derasn1.ItemDescriptor{
	{Depth: 0, Tag: derasn1.TagSequence, Constructed: true},
	{Depth: 1, Tag: derasn1.TagSequence, Constructed: true},
	{Depth: 2, Tag: derasn1.TagOID},
	{Depth: 1, Tag: derasn1.TagBitString},
}

const (
	pubSlotKeyOID = 2
	pubSlotBits   = 3
)

// ParsePublicKey decodes a SubjectPublicKeyInfo whose algorithm OID
// names one of the RFC 8410 curves and whose BIT STRING carries the
// raw public value byte-aligned (unused == 0).
func ParsePublicKey(der []byte) (PublicKey, error) {
	c := derasn1.NewCursor(der)
	data := make([]derasn1.DataSlot, len(wrappedSchema))
	data[pubSlotKeyOID] = derasn1.DataSlot{Kind: derasn1.SlotOID}
	data[pubSlotBits] = derasn1.DataSlot{Kind: derasn1.SlotBitString}

	if err := derasn1.GetASNItems(wrappedSchema, data, c, true); err != nil {
		return PublicKey{}, err
	}
	end := data[0].Offset + data[0].Length
	if c.Pos() != end {
		return PublicKey{}, derasn1.ParseError(end, "SubjectPublicKeyInfo did not consume its declared length")
	}
	keyID, ok := oid.Lookup(oid.KeyType, data[pubSlotKeyOID].DecodedSum, data[pubSlotKeyOID].DecodedRaw)
	if !ok {
		return PublicKey{}, derasn1.ObjectIdError(data[pubSlotKeyOID].Offset, "unrecognised RFC 8410 key algorithm OID")
	}
	size, ok := expectedSize(keyID)
	if !ok {
		return PublicKey{}, derasn1.ObjectIdError(data[pubSlotKeyOID].Offset, "key algorithm OID is not an RFC 8410 curve")
	}
	point := data[pubSlotBits].BitString
	if point.Unused != 0 {
		return PublicKey{}, derasn1.BitStringError(data[pubSlotBits].Offset, "RFC 8410 public key BIT STRING must be byte-aligned")
	}
	if len(point.Bytes) != size {
		return PublicKey{}, derasn1.ParseError(end, "public value has length %d, want %d", len(point.Bytes), size)
	}
	return PublicKey{KeyID: keyID, Value: point.Bytes}, nil
}

// EncodePublicKey appends the SubjectPublicKeyInfo wrapper; RFC 8410
// forbids AlgorithmIdentifier parameters entirely (no NULL, no OID).
func EncodePublicKey(dst []byte, pub PublicKey) []byte {
	keyOID, err := oid.Bytes(oid.KeyType, pub.KeyID)
	if err != nil {
		panic(err) // registry entry is static and always present
	}
	data := []derasn1.DataSlot{
		{},
		{},
		{Kind: derasn1.SlotOID, ExpectedRaw: keyOID},
		{Kind: derasn1.SlotBitString, BitString: derasn1.BitString{Bytes: pub.Value}},
	}
	return appendViaSchema(dst, wrappedSchema, data)
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
