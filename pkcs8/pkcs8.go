// Package pkcs8 implements the PrivateKeyInfo wrapper of this module,
// dispatching the per-algorithm NULL-parameter rule (required for RSA
// and classic DSA, forbidden for the RFC 8410 curves, a named-curve
// OID expected for ECDSA) before handing the inner OCTET STRING back
// to the caller for schema-specific parsing.
package pkcs8

import (
	"go.step.sm/ocsp/derasn1"
	"go.step.sm/ocsp/oid"
)

// ParamKind classifies what an algorithm identifier's parameters must
// look like, resolved from the key algorithm OID.
type ParamKind int

const (
	ParamsNull ParamKind = iota
	ParamsForbidden
	ParamsOID
)

func paramKindFor(keyID int) ParamKind {
	switch keyID {
	case oid.KeyRSA, oid.KeyDSA:
		return ParamsNull
	case oid.KeyEd25519, oid.KeyEd448, oid.KeyX25519, oid.KeyX448:
		return ParamsForbidden
	case oid.KeyEC:
		return ParamsOID
	default:
		return ParamsNull
	}
}

// PrivateKeyInfo is a decoded PKCS #8 wrapper: the resolved key
// algorithm, the algorithm parameters (nil unless ParamKind == ParamsOID),
// and the inner OCTET STRING body left for rsakey/eckey/edkey/dsakey to
// parse further.
type PrivateKeyInfo struct {
	KeyAlgID   int
	ParamsRaw  []byte // non-nil only when ParamKind == ParamsOID
	PrivateKey []byte
}

// schema is PrivateKeyInfo's item descriptor array: { version,
// AlgorithmIdentifier { algorithm, parameters (NULL or OID, the union
// of every key algorithm's legal shape) }, privateKey }. Which
// parameter variant is actually required for a given algorithm is a
// per-OID rule, not a structural one, so the schema accepts the union
// and Parse validates the matched variant against paramKindFor
// afterward.
var schema = []derasn1.ItemDescriptor{
	{Depth: 0, Tag: derasn1.TagSequence, Constructed: true},
	{Depth: 1, Tag: derasn1.TagInteger},
	{Depth: 1, Tag: derasn1.TagSequence, Constructed: true},
	{Depth: 2, Tag: derasn1.TagOID},
	{Depth: 2, Tag: derasn1.TagNull, Optional: 1},
	{Depth: 2, Tag: derasn1.TagOID, Optional: 1},
	{Depth: 1, Tag: derasn1.TagOctetString},
}

const (
	slotVersion = 1
	slotAlgOID  = 3
	slotNull    = 4
	slotParams  = 5
	slotKeyBody = 6
)

// Parse decodes `PrivateKeyInfo ::= SEQUENCE { version INTEGER(0),
// privateKeyAlgorithm AlgorithmIdentifier, privateKey OCTET STRING }`.
func Parse(der []byte) (PrivateKeyInfo, error) {
	c := derasn1.NewCursor(der)
	data := make([]derasn1.DataSlot, len(schema))
	data[slotVersion] = derasn1.DataSlot{Kind: derasn1.SlotUint, Unsigned: true}
	data[slotAlgOID] = derasn1.DataSlot{Kind: derasn1.SlotOID}
	data[slotParams] = derasn1.DataSlot{Kind: derasn1.SlotOID}

	if err := derasn1.GetASNItems(schema, data, c, true); err != nil {
		return PrivateKeyInfo{}, err
	}
	end := data[0].Offset + data[0].Length

	if data[slotVersion].UintVal != 0 {
		return PrivateKeyInfo{}, derasn1.ParseError(data[slotVersion].Offset, "PrivateKeyInfo version must be 0, got %d", data[slotVersion].UintVal)
	}
	keyID, ok := oid.Lookup(oid.KeyType, data[slotAlgOID].DecodedSum, data[slotAlgOID].DecodedRaw)
	if !ok {
		return PrivateKeyInfo{}, derasn1.ObjectIdError(data[slotAlgOID].Offset, "unrecognised private key algorithm OID")
	}

	var params []byte
	switch paramKindFor(keyID) {
	case ParamsNull:
		if !data[slotNull].Present {
			return PrivateKeyInfo{}, derasn1.ParseError(end, "algorithm %d requires a NULL parameter", keyID)
		}
	case ParamsForbidden:
		if data[slotNull].Present || data[slotParams].Present {
			return PrivateKeyInfo{}, derasn1.ParseError(end, "algorithm %d forbids AlgorithmIdentifier parameters", keyID)
		}
	case ParamsOID:
		if !data[slotParams].Present {
			return PrivateKeyInfo{}, derasn1.ParseError(end, "algorithm %d requires a named-curve OID parameter", keyID)
		}
		slot := data[slotParams]
		header := derasn1.EncodeHeader(nil, slot.Tag, slot.Length)
		params = append(header, c.Bytes()[slot.Offset:slot.Offset+slot.Length]...)
	}

	// Trailing optional attributes ([0] IMPLICIT Attributes) and
	// publicKey ([1] IMPLICIT BIT STRING, RFC 5958) are not consumed by
	// the schema; GetASNItems(..., true) only demands the mandatory
	// items above matched, so the cursor may legally sit short of end.
	if c.Pos() > end {
		return PrivateKeyInfo{}, derasn1.ParseError(end, "PrivateKeyInfo mandatory fields exceed its declared length")
	}
	return PrivateKeyInfo{KeyAlgID: keyID, ParamsRaw: params, PrivateKey: data[slotKeyBody].Bytes}, nil
}

// Encode appends a DER PrivateKeyInfo wrapping keyBody under keyID's
// algorithm identifier.
func Encode(dst []byte, keyID int, paramsRaw []byte, keyBody []byte) []byte {
	keyOID, err := oid.Bytes(oid.KeyType, keyID)
	if err != nil {
		panic(err) // registry entry is static and always present
	}

	data := make([]derasn1.DataSlot, len(schema))
	data[slotVersion] = derasn1.DataSlot{Kind: derasn1.SlotUint, UintVal: 0}
	data[slotAlgOID] = derasn1.DataSlot{Kind: derasn1.SlotOID, ExpectedRaw: keyOID}
	data[slotKeyBody] = derasn1.DataSlot{Kind: derasn1.SlotBytes, Bytes: keyBody}

	switch paramKindFor(keyID) {
	case ParamsNull:
		data[slotNull] = derasn1.DataSlot{Kind: derasn1.SlotNone}
		data[slotParams] = derasn1.DataSlot{NoOut: true}
	case ParamsOID:
		// paramsRaw already carries the full OID TLV (tag+length+content,
		// see Parse); SlotReplace emits it verbatim instead of
		// re-wrapping it in another OID header.
		data[slotNull] = derasn1.DataSlot{NoOut: true}
		data[slotParams] = derasn1.DataSlot{Kind: derasn1.SlotReplace, Bytes: paramsRaw}
	case ParamsForbidden:
		data[slotNull] = derasn1.DataSlot{NoOut: true}
		data[slotParams] = derasn1.DataSlot{NoOut: true}
	}

	total, err := derasn1.SizeASNItems(schema, data)
	if err != nil {
		panic(err) // fixed schema against caller-supplied, already-valid fields
	}
	out := make([]byte, total)
	if err := derasn1.SetASNItems(schema, data, total, out); err != nil {
		panic(err)
	}
	return append(dst, out...)
}
