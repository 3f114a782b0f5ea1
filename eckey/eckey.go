// Package eckey implements the elliptic-curve private/public key
// schema (SEC 1 / RFC 5915 ECPrivateKey) and its explicit-domain
// parameters form. The curve registry is an external collaborator,
// referenced here only through its OID-keyed lookup in the oid
// package; the actual curve arithmetic is out of scope.
package eckey

import (
	"math/big"

	"go.step.sm/ocsp/derasn1"
	"go.step.sm/ocsp/oid"
)

// tagParameters/tagPublicKey are ECPrivateKey's two EXPLICIT optional
// fields: [0] ECParameters, [1] BIT STRING (RFC 5915 tags both fields
// EXPLICIT, so each carries its own universally-tagged value one level
// down).
var (
	tagParameters = derasn1.ContextTag(0, false)
	tagPublicKey  = derasn1.ContextTag(1, false)
)

// PrivateKey is a decoded SEC 1 ECPrivateKey.
type PrivateKey struct {
	D           *big.Int
	CurveOIDRaw []byte // nil if parameters were absent or explicit
	CurveID     int    // one of oid.Curve* constants, -1 if unresolved
	PublicPoint []byte // uncompressed X9.62 point 04||X||Y, nil if absent
}

// PublicKey is the X.509-wrapped EC public key (SubjectPublicKeyInfo
// with algorithm id-ecPublicKey and the named curve as parameters).
type PublicKey struct {
	CurveOIDRaw []byte
	CurveID     int
	Point       []byte // uncompressed X9.62 point
}

const uncompressedPointPrefix = 0x04

// headSchema decodes ECPrivateKey's three leading, always-structurally
// fixed fields plus the [0] parameters wrapper as an opaque region:
// ECParameters is a CHOICE between a namedCurve OID and the unparsed
// SpecifiedECDomain SEQUENCE, and GetASNItems can only keep the shared
// cursor in sync across a constructed item's body when declared
// children span it completely — which an intentionally-unparsed
// alternative can't satisfy. The wrapper's content is inspected by
// hand below instead, and the cursor advanced past it explicitly.
var headSchema = []derasn1.ItemDescriptor{
	{Depth: 0, Tag: derasn1.TagSequence, Constructed: true},
	{Depth: 1, Tag: derasn1.TagInteger},                                    // version
	{Depth: 1, Tag: derasn1.TagOctetString},                                // privateKey
	{Depth: 1, Tag: tagParameters, Constructed: true, Optional: 1, HeaderOnly: true}, // [0] parameters
}

// publicKeySchema decodes the explicit `[1] BIT STRING` field in
// isolation, once the cursor has been advanced past any preceding
// parameters field; unlike the parameters CHOICE this field has only
// one legal shape, so it is fully spanned by its declared child and
// needs no hand-rolled peek.
var publicKeySchema = []derasn1.ItemDescriptor{
	{Depth: 0, Tag: tagPublicKey, Constructed: true, Optional: 1},
	{Depth: 1, Tag: derasn1.TagBitString},
}

const (
	headSlotVersion    = 1
	headSlotPrivateKey = 2
	headSlotParamsWrap = 3
)

// ParsePrivateKey decodes `ECPrivateKey ::= SEQUENCE { version
// INTEGER(1), privateKey OCTET STRING, [0] parameters OPTIONAL,
// [1] publicKey BIT STRING OPTIONAL }`. Parameters, when present,
// are resolved from a named-curve OID; the explicit-domain
// SpecifiedECDomain form is accepted and resolved to -1 (caller falls back to the curve
// registry's custom-curve path) since this schema does not interpret
// it further.
func ParsePrivateKey(der []byte) (PrivateKey, error) {
	c := derasn1.NewCursor(der)
	head := make([]derasn1.DataSlot, len(headSchema))
	head[headSlotVersion] = derasn1.DataSlot{Kind: derasn1.SlotUint, Unsigned: true}
	head[headSlotPrivateKey] = derasn1.DataSlot{Kind: derasn1.SlotBytes}
	if err := derasn1.GetASNItems(headSchema, head, c, false); err != nil {
		return PrivateKey{}, err
	}
	if head[headSlotVersion].UintVal != 1 {
		return PrivateKey{}, derasn1.ParseError(head[headSlotVersion].Offset, "ECPrivateKey version must be 1, got %d", head[headSlotVersion].UintVal)
	}
	k := PrivateKey{D: new(big.Int).SetBytes(head[headSlotPrivateKey].Bytes), CurveID: -1}

	wrap := head[headSlotParamsWrap]
	if wrap.Present {
		inner := derasn1.NewCursor(c.Bytes()[wrap.Offset : wrap.Offset+wrap.Length])
		if peek, err := inner.PeekByte(); err == nil && peek == derasn1.TagOID {
			raw, sum, err := derasn1.ReadOIDBytes(inner)
			if err != nil {
				return PrivateKey{}, err
			}
			k.CurveOIDRaw = raw
			if id, ok := oid.Lookup(oid.CurveType, sum, raw); ok {
				k.CurveID = id
			}
		}
		// else: explicit SpecifiedECDomain form, left unparsed, per the
		// doc comment above.
		if err := c.Skip(wrap.Length); err != nil {
			return PrivateKey{}, err
		}
	}

	pub := make([]derasn1.DataSlot, len(publicKeySchema))
	pub[1] = derasn1.DataSlot{Kind: derasn1.SlotBitString}
	if err := derasn1.GetASNItems(publicKeySchema, pub, c, true); err != nil {
		return PrivateKey{}, err
	}
	if pub[1].Present {
		point := pub[1].BitString.RightAlign()
		if len(point) == 0 || point[0] != uncompressedPointPrefix {
			return PrivateKey{}, derasn1.ParseError(pub[1].Offset, "EC public key point is not in uncompressed X9.62 form")
		}
		k.PublicPoint = point
	}

	end := head[0].Offset + head[0].Length
	if c.Pos() != end {
		return PrivateKey{}, derasn1.ParseError(end, "ECPrivateKey did not consume its declared length")
	}
	return k, nil
}

// encodeSchema mirrors headSchema/publicKeySchema for the encode
// direction: unlike decode, SizeASNItems/SetASNItems compute every
// item's position from a reverse walk over the whole array rather than
// a live sequential cursor, so the parameters wrapper's single
// (namedCurve OID) child can be declared directly without the
// cursor-sync constraint that forces decode to hand-roll it.
var encodeSchema = []derasn1.ItemDescriptor{
	{Depth: 0, Tag: derasn1.TagSequence, Constructed: true}, // 0 ECPrivateKey
	{Depth: 1, Tag: derasn1.TagInteger},                     // 1 version
	{Depth: 1, Tag: derasn1.TagOctetString},                 // 2 privateKey
	{Depth: 1, Tag: tagParameters, Constructed: true},       // 3 [0] wrapper
	{Depth: 2, Tag: derasn1.TagOID},                         // 4 namedCurve
	{Depth: 1, Tag: tagPublicKey, Constructed: true},        // 5 [1] wrapper
	{Depth: 2, Tag: derasn1.TagBitString},                   // 6 inner BIT STRING
}

// EncodePrivateKey appends a SEC 1 ECPrivateKey with an explicit
// named-curve OID and, when point is non-nil, the public key field.
func EncodePrivateKey(dst []byte, k PrivateKey, point []byte) []byte {
	data := make([]derasn1.DataSlot, len(encodeSchema))
	data[1] = derasn1.DataSlot{Kind: derasn1.SlotUint, UintVal: 1}
	data[2] = derasn1.DataSlot{Kind: derasn1.SlotBytes, Bytes: k.D.Bytes()}
	if k.CurveOIDRaw != nil {
		data[4] = derasn1.DataSlot{Kind: derasn1.SlotOID, ExpectedRaw: k.CurveOIDRaw}
	} else {
		data[3] = derasn1.DataSlot{NoOut: true}
		data[4] = derasn1.DataSlot{NoOut: true}
	}
	if point != nil {
		data[6] = derasn1.DataSlot{Kind: derasn1.SlotBitString, BitString: derasn1.BitString{Bytes: point}}
	} else {
		data[5] = derasn1.DataSlot{NoOut: true}
		data[6] = derasn1.DataSlot{NoOut: true}
	}
	return appendViaSchema(dst, encodeSchema, data)
}

// wrappedSchema is the X.509 SubjectPublicKeyInfo wrapper: algorithm
// id-ecPublicKey with the named-curve OID as parameters, BIT STRING
// carrying the uncompressed point.
var wrappedSchema = []derasn1.ItemDescriptor{
	{Depth: 0, Tag: derasn1.TagSequence, Constructed: true},
	{Depth: 1, Tag: derasn1.TagSequence, Constructed: true},
	{Depth: 2, Tag: derasn1.TagOID},
	{Depth: 2, Tag: derasn1.TagOID},
	{Depth: 1, Tag: derasn1.TagBitString},
}

const (
	pubSlotKeyOID   = 2
	pubSlotCurveOID = 3
	pubSlotBits     = 4
)

// ParsePublicKey decodes the X.509 SubjectPublicKeyInfo wrapping an EC
// public key: algorithm id-ecPublicKey with the named-curve OID as
// parameters, BIT STRING carrying the uncompressed point.
func ParsePublicKey(der []byte) (PublicKey, error) {
	c := derasn1.NewCursor(der)
	ecOID, err := oid.Bytes(oid.KeyType, oid.KeyEC)
	if err != nil {
		return PublicKey{}, err
	}
	data := make([]derasn1.DataSlot, len(wrappedSchema))
	data[pubSlotKeyOID] = derasn1.DataSlot{Kind: derasn1.SlotOID, ExpectedRaw: ecOID}
	data[pubSlotCurveOID] = derasn1.DataSlot{Kind: derasn1.SlotOID}
	data[pubSlotBits] = derasn1.DataSlot{Kind: derasn1.SlotBitString}

	if err := derasn1.GetASNItems(wrappedSchema, data, c, true); err != nil {
		return PublicKey{}, err
	}
	end := data[0].Offset + data[0].Length
	if c.Pos() != end {
		return PublicKey{}, derasn1.ParseError(end, "SubjectPublicKeyInfo did not consume its declared length")
	}
	curveID, ok := oid.Lookup(oid.CurveType, data[pubSlotCurveOID].DecodedSum, data[pubSlotCurveOID].DecodedRaw)
	if !ok {
		return PublicKey{}, derasn1.ObjectIdError(data[pubSlotCurveOID].Offset, "unrecognised named curve OID")
	}
	point := data[pubSlotBits].BitString.RightAlign()
	if len(point) == 0 || point[0] != uncompressedPointPrefix {
		return PublicKey{}, derasn1.ParseError(end, "EC public key point is not in uncompressed X9.62 form")
	}
	return PublicKey{CurveOIDRaw: data[pubSlotCurveOID].DecodedRaw, CurveID: curveID, Point: point}, nil
}

// EncodePublicKey appends the SubjectPublicKeyInfo wrapper.
func EncodePublicKey(dst []byte, pub PublicKey) []byte {
	ecOID, err := oid.Bytes(oid.KeyType, oid.KeyEC)
	if err != nil {
		panic(err) // registry entry is static and always present
	}
	data := []derasn1.DataSlot{
		{},
		{},
		{Kind: derasn1.SlotOID, ExpectedRaw: ecOID},
		{Kind: derasn1.SlotOID, ExpectedRaw: pub.CurveOIDRaw},
		{Kind: derasn1.SlotBitString, BitString: derasn1.BitString{Bytes: pub.Point}},
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
