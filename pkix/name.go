// Package pkix holds the structural types shared by the certificate,
// CRL, and CSR schemas: relative distinguished names, algorithm
// identifiers, and the raw extension block, grounded in RFC 5280 and
// the same flat struct style ocsp's CertID/Extension use.
package pkix

import (
	"strings"

	"go.step.sm/ocsp/derasn1"
	"go.step.sm/ocsp/oid"
)

// AttributeTypeAndValue is one RDN attribute: its OID resolved against
// the CertNameType kind (NID -1 when unrecognised; an unrecognised
// attribute is skipped from the NID map, not dropped from the stored
// list), the raw string tag (for round-trip) and value bytes.
type AttributeTypeAndValue struct {
	OIDRaw []byte
	NID    int // one of oid.Name* constants, or -1 if unrecognised
	Tag    byte
	Value  []byte
}

const nidUnknown = -1

// Name is a decoded X.501 Name: SEQUENCE OF SET OF
// AttributeTypeAndValue, stored as a flat preorder slice (a SET with
// more than one member is uncommon in practice and the round-trip
// byte slice, not this decomposition, is what signature verification
// hashes).
type Name struct {
	// Raw is the exact encoded SEQUENCE bytes (tag+length+content),
	// used for hashing and signature verification: a byte-wise hash of
	// the full Name structure, not a recomposed one.
	Raw   []byte
	RDNs  []AttributeTypeAndValue
}

// asnNameMax bounds the composed printable form.
const asnNameMax = 256

var nidTagLabel = map[int]string{
	oid.NameCommonName:             "CN",
	oid.NameSurname:                "SN",
	oid.NameSerialNumber:           "serialNumber",
	oid.NameCountryName:            "C",
	oid.NameLocalityName:           "L",
	oid.NameStateOrProvinceName:    "ST",
	oid.NameStreetAddress:         "street",
	oid.NameOrganizationName:       "O",
	oid.NameOrganizationalUnitName: "OU",
	oid.NameBusinessCategory:      "businessCategory",
	oid.NamePostalCode:            "postalCode",
	oid.NameGivenName:             "GN",
	oid.NameEmailAddress:          "emailAddress",
	oid.NameUserID:                "UID",
	oid.NameDomainComponent:       "DC",
}

// directoryStringTags lists the tags permitted for a DirectoryString
// CHOICE value
var directoryStringTags = map[byte]bool{
	derasn1.TagPrintableString: true,
	derasn1.TagUTF8String:      true,
	derasn1.TagIA5String:       true,
	derasn1.TagT61String:       true,
	derasn1.TagUniversalString: true,
	derasn1.TagBMPString:       true,
}

// ParseName decodes a Name SEQUENCE starting at the cursor's current
// position, consuming exactly one element.
func ParseName(c *derasn1.Cursor) (Name, error) {
	start := c.Pos()
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return Name{}, err
	}
	contentStart := c.Pos()
	end := contentStart + seqLen
	var rdns []AttributeTypeAndValue
	for c.Pos() < end {
		setLen, err := derasn1.ReadSetHeader(c)
		if err != nil {
			return Name{}, err
		}
		setEnd := c.Pos() + setLen
		for c.Pos() < setEnd {
			atv, err := parseAttributeTypeAndValue(c)
			if err != nil {
				return Name{}, err
			}
			rdns = append(rdns, atv)
		}
		if c.Pos() != setEnd {
			return Name{}, derasn1.ParseError(setEnd, "RDN SET did not consume its declared length")
		}
	}
	if c.Pos() != end {
		return Name{}, derasn1.ParseError(end, "Name SEQUENCE did not consume its declared length")
	}
	raw := c.Bytes()[start:end]
	return Name{Raw: raw, RDNs: rdns}, nil
}

func parseAttributeTypeAndValue(c *derasn1.Cursor) (AttributeTypeAndValue, error) {
	_, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return AttributeTypeAndValue{}, err
	}
	oidRaw, sum, err := derasn1.ReadOIDBytes(c)
	if err != nil {
		return AttributeTypeAndValue{}, err
	}
	nid, ok := oid.Lookup(oid.CertNameType, sum, oidRaw)
	if !ok {
		nid = nidUnknown
	}
	start := c.Pos()
	tag, err := c.ReadTag()
	if err != nil {
		return AttributeTypeAndValue{}, err
	}
	if !directoryStringTags[tag] {
		return AttributeTypeAndValue{}, derasn1.ParseError(start, "unsupported DirectoryString tag 0x%02x", tag)
	}
	length, err := c.ReadLength()
	if err != nil {
		return AttributeTypeAndValue{}, err
	}
	value, err := c.ReadN(length)
	if err != nil {
		return AttributeTypeAndValue{}, err
	}
	return AttributeTypeAndValue{OIDRaw: oidRaw, NID: nid, Tag: tag, Value: value}, nil
}

// EncodeName appends a DER Name built from rdns, one RDN per SET
// (the common, single-attribute-per-RDN shape the schemas in this
// module always produce).
func EncodeName(dst []byte, rdns []AttributeTypeAndValue) []byte {
	var content []byte
	for _, a := range rdns {
		var atv []byte
		atv = derasn1.EncodeOIDBytes(atv, a.OIDRaw)
		atv = derasn1.EncodeHeader(atv, a.Tag, len(a.Value))
		atv = append(atv, a.Value...)
		var seq []byte
		seq = derasn1.EncodeHeader(seq, derasn1.TagSequence|0x20, len(atv))
		seq = append(seq, atv...)
		var set []byte
		set = derasn1.EncodeHeader(set, derasn1.TagSet|0x20, len(seq))
		set = append(set, seq...)
		content = append(content, set...)
	}
	dst = derasn1.EncodeHeader(dst, derasn1.TagSequence|0x20, len(content))
	return append(dst, content...)
}

// String composes the length-bounded "/CN=.../OU=..." printable form
// used for logging; the ASCII-only concatenation truncates instead of
// overflowing asnNameMax.
func (n Name) String() string {
	var b strings.Builder
	for _, a := range n.RDNs {
		label, ok := nidTagLabel[a.NID]
		if !ok {
			continue
		}
		seg := "/" + label + "=" + sanitizeASCII(a.Value)
		if b.Len()+len(seg) > asnNameMax {
			remaining := asnNameMax - b.Len()
			if remaining > 0 {
				b.WriteString(seg[:remaining])
			}
			break
		}
		b.WriteString(seg)
	}
	return b.String()
}

func sanitizeASCII(v []byte) string {
	out := make([]byte, 0, len(v))
	for _, b := range v {
		if b < 0x20 || b >= 0x7f {
			out = append(out, '?')
			continue
		}
		out = append(out, b)
	}
	return string(out)
}
