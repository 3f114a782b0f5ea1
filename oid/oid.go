// Package oid is the registry half of the codec: a static, read-only
// table mapping a (Kind, ID) pair to its DER-encoded OBJECT IDENTIFIER
// content bytes and back. Every schema package resolves the OIDs it
// expects through this registry rather than carrying its own copies.
package oid

import (
	"fmt"
	"strconv"
	"strings"

	"go.step.sm/ocsp/derasn1"
)

// Kind discriminates the namespace an OID ID is resolved in; the same
// numeric ID may mean different things under different kinds.
type Kind int

const (
	HashType Kind = iota
	SigType
	KeyType
	CurveType
	BlockType
	OcspType
	CertExtType
	CrlExtType
	CertAuthInfoType
	CertPolicyType
	CertAltNameType
	CertKeyUseType
	KdfType
	PBEType
	KeyWrapType
	CmsKeyAgreeType
	HmacType
	CompressType
	CertNameType
	TlsExtType
	CsrAttrType
	Ignore
)

// entry is one row of the static registry: the DER content bytes for
// an OID together with the precomputed byte-sum fast key.
type entry struct {
	kind Kind
	id   int
	raw  []byte
	sum  int
}

func mk(kind Kind, id int, raw ...byte) entry {
	sum := 0
	for _, b := range raw {
		sum += int(b)
	}
	return entry{kind: kind, id: id, raw: raw, sum: sum}
}

// Hash algorithm IDs (HashType).
const (
	HashMD2 = iota
	HashMD5
	HashSHA1
	HashSHA224
	HashSHA256
	HashSHA384
	HashSHA512
	HashSHA3_256
	HashSHA3_384
	HashSHA3_512
)

// Signature algorithm IDs (SigType).
const (
	SigMD2WithRSA = iota
	SigMD5WithRSA
	SigSHA1WithRSA
	SigSHA224WithRSA
	SigSHA256WithRSA
	SigSHA384WithRSA
	SigSHA512WithRSA
	SigSHA1WithECDSA
	SigSHA224WithECDSA
	SigSHA256WithECDSA
	SigSHA384WithECDSA
	SigSHA512WithECDSA
	SigDSAWithSHA1
	SigDSAWithSHA256
	SigEd25519
)

// Key algorithm IDs (KeyType).
const (
	KeyRSA = iota
	KeyDSA
	KeyEC
	KeyEd25519
	KeyEd448
	KeyX25519
	KeyX448
)

// Curve IDs (CurveType).
const (
	CurveP224 = iota
	CurveP256
	CurveP384
	CurveP521
)

// Cert extension IDs (CertExtType).
const (
	ExtSubjectKeyId = iota
	ExtKeyUsage
	ExtSubjectAltName
	ExtIssuerAltName
	ExtBasicConstraints
	ExtNameConstraints
	ExtCrlDistributionPoints
	ExtCertificatePolicies
	ExtAuthorityKeyId
	ExtExtendedKeyUsage
	ExtAuthorityInfoAccess
	ExtSubjectInfoAccess
	ExtFreshestCrl
	ExtInhibitAnyPolicy
	ExtOCSPNoCheck
)

// CRL extension IDs (CrlExtType).
const (
	CrlExtCrlNumber = iota
	CrlExtDeltaCrlIndicator
	CrlExtIssuingDistributionPoint
	CrlExtAuthorityKeyId
	CrlExtInvalidityDate
	CrlExtCrlReason
	CrlExtCertificateIssuer
)

// Authority-info-access method IDs (CertAuthInfoType).
const (
	AuthInfoOCSP = iota
	AuthInfoCAIssuers
)

// Extended key usage IDs (CertKeyUseType).
const (
	EkuServerAuth = iota
	EkuClientAuth
	EkuCodeSigning
	EkuEmailProtection
	EkuTimeStamping
	EkuOCSPSigning
	EkuAny
)

// OCSP-specific IDs (OcspType).
const (
	OcspBasic = iota
	OcspNonce
	OcspNoCheck
	OcspCrl
	OcspResponse
)

// PBE/PBES/KDF IDs.
const (
	PBEWithSHA1And40BitRC2 = iota
	PBEWithSHA1And3KeyTripleDESCBC
	PBEWithSHA1AndDESCBC
	PBEWithSHA1AndRC4_128
	PBES2
)

const (
	KdfPBKDF2 = iota
)

const (
	BlockDESCBC = iota
	BlockDESEDE3CBC
	BlockRC2CBC
	BlockRC4
	BlockAES128CBC
	BlockAES256CBC
)

const (
	HmacSHA1 = iota
	HmacSHA256
)

// CertPolicy / CertAltName / CertName IDs used only as lookups for a
// handful of well-known values; most policy OIDs pass through as
// opaque dotted strings rather than registry entries (this module
// "optional helpers").
const (
	PolicyAnyPolicy = iota
)

const (
	NameCommonName = iota
	NameSurname
	NameSerialNumber
	NameCountryName
	NameLocalityName
	NameStateOrProvinceName
	NameStreetAddress
	NameOrganizationName
	NameOrganizationalUnitName
	NameBusinessCategory
	NamePostalCode
	NameGivenName
	NameEmailAddress
	NameUserID
	NameDomainComponent
)

var table = []entry{
	// hashes — RFC 3279/4055/5754
	mk(HashType, HashMD2, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x02, 0x02),
	mk(HashType, HashMD5, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x02, 0x05),
	mk(HashType, HashSHA1, 0x2B, 0x0E, 0x03, 0x02, 0x1A),
	mk(HashType, HashSHA224, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x04),
	mk(HashType, HashSHA256, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x01),
	mk(HashType, HashSHA384, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x02),
	mk(HashType, HashSHA512, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x03),
	mk(HashType, HashSHA3_256, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x08),
	mk(HashType, HashSHA3_384, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x09),
	mk(HashType, HashSHA3_512, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x0A),

	// signature algorithms — PKCS#1 (1.2.840.113549.1.1.*) and
	// id-ecdsa-with-* / id-dsa-with-sha1 / id-Ed25519
	mk(SigType, SigMD2WithRSA, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x01, 0x01, 0x02),
	mk(SigType, SigMD5WithRSA, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x01, 0x01, 0x04),
	mk(SigType, SigSHA1WithRSA, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x01, 0x01, 0x05),
	mk(SigType, SigSHA224WithRSA, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x01, 0x01, 0x0E),
	mk(SigType, SigSHA256WithRSA, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x01, 0x01, 0x0B),
	mk(SigType, SigSHA384WithRSA, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x01, 0x01, 0x0C),
	mk(SigType, SigSHA512WithRSA, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x01, 0x01, 0x0D),
	mk(SigType, SigSHA1WithECDSA, 0x2A, 0x86, 0x48, 0xCE, 0x3D, 0x04, 0x01),
	mk(SigType, SigSHA224WithECDSA, 0x2A, 0x86, 0x48, 0xCE, 0x3D, 0x04, 0x03, 0x01),
	mk(SigType, SigSHA256WithECDSA, 0x2A, 0x86, 0x48, 0xCE, 0x3D, 0x04, 0x03, 0x02),
	mk(SigType, SigSHA384WithECDSA, 0x2A, 0x86, 0x48, 0xCE, 0x3D, 0x04, 0x03, 0x03),
	mk(SigType, SigSHA512WithECDSA, 0x2A, 0x86, 0x48, 0xCE, 0x3D, 0x04, 0x03, 0x04),
	mk(SigType, SigDSAWithSHA1, 0x2A, 0x86, 0x48, 0xCE, 0x38, 0x04, 0x03),
	mk(SigType, SigDSAWithSHA256, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x03, 0x02),
	mk(SigType, SigEd25519, 0x2B, 0x65, 0x70),

	// key algorithms
	mk(KeyType, KeyRSA, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x01, 0x01, 0x01),
	mk(KeyType, KeyDSA, 0x2A, 0x86, 0x48, 0xCE, 0x38, 0x04, 0x01),
	mk(KeyType, KeyEC, 0x2A, 0x86, 0x48, 0xCE, 0x3D, 0x02, 0x01),
	mk(KeyType, KeyEd25519, 0x2B, 0x65, 0x70),
	mk(KeyType, KeyEd448, 0x2B, 0x65, 0x71),
	mk(KeyType, KeyX25519, 0x2B, 0x65, 0x6E),
	mk(KeyType, KeyX448, 0x2B, 0x65, 0x6F),

	// named curves — secp224r1/256r1/384r1/521r1
	mk(CurveType, CurveP224, 0x2B, 0x81, 0x04, 0x00, 0x21),
	mk(CurveType, CurveP256, 0x2A, 0x86, 0x48, 0xCE, 0x3D, 0x03, 0x01, 0x07),
	mk(CurveType, CurveP384, 0x2B, 0x81, 0x04, 0x00, 0x22),
	mk(CurveType, CurveP521, 0x2B, 0x81, 0x04, 0x00, 0x23),

	// certificate extensions — RFC 5280 §4.2, 2.5.29.*
	mk(CertExtType, ExtSubjectKeyId, 0x55, 0x1D, 0x0E),
	mk(CertExtType, ExtKeyUsage, 0x55, 0x1D, 0x0F),
	mk(CertExtType, ExtSubjectAltName, 0x55, 0x1D, 0x11),
	mk(CertExtType, ExtIssuerAltName, 0x55, 0x1D, 0x12),
	mk(CertExtType, ExtBasicConstraints, 0x55, 0x1D, 0x13),
	mk(CertExtType, ExtNameConstraints, 0x55, 0x1D, 0x1E),
	mk(CertExtType, ExtCrlDistributionPoints, 0x55, 0x1D, 0x1F),
	mk(CertExtType, ExtCertificatePolicies, 0x55, 0x1D, 0x20),
	mk(CertExtType, ExtAuthorityKeyId, 0x55, 0x1D, 0x23),
	mk(CertExtType, ExtExtendedKeyUsage, 0x55, 0x1D, 0x25),
	mk(CertExtType, ExtFreshestCrl, 0x55, 0x1D, 0x2E),
	mk(CertExtType, ExtInhibitAnyPolicy, 0x55, 0x1D, 0x36),
	mk(CertExtType, ExtAuthorityInfoAccess, 0x2B, 0x06, 0x01, 0x05, 0x05, 0x07, 0x01, 0x01),
	mk(CertExtType, ExtSubjectInfoAccess, 0x2B, 0x06, 0x01, 0x05, 0x05, 0x07, 0x01, 0x0B),
	mk(CertExtType, ExtOCSPNoCheck, 0x2B, 0x06, 0x01, 0x05, 0x05, 0x07, 0x30, 0x01, 0x05),

	// CRL extensions
	mk(CrlExtType, CrlExtCrlNumber, 0x55, 0x1D, 0x14),
	mk(CrlExtType, CrlExtDeltaCrlIndicator, 0x55, 0x1D, 0x1B),
	mk(CrlExtType, CrlExtIssuingDistributionPoint, 0x55, 0x1D, 0x1C),
	mk(CrlExtType, CrlExtAuthorityKeyId, 0x55, 0x1D, 0x23),
	mk(CrlExtType, CrlExtInvalidityDate, 0x55, 0x1D, 0x18),
	mk(CrlExtType, CrlExtCrlReason, 0x55, 0x1D, 0x15),
	mk(CrlExtType, CrlExtCertificateIssuer, 0x55, 0x1D, 0x1D),

	// authority-info-access methods
	mk(CertAuthInfoType, AuthInfoOCSP, 0x2B, 0x06, 0x01, 0x05, 0x05, 0x07, 0x30, 0x01),
	mk(CertAuthInfoType, AuthInfoCAIssuers, 0x2B, 0x06, 0x01, 0x05, 0x05, 0x07, 0x30, 0x02),

	// extended key usages
	mk(CertKeyUseType, EkuServerAuth, 0x2B, 0x06, 0x01, 0x05, 0x05, 0x07, 0x03, 0x01),
	mk(CertKeyUseType, EkuClientAuth, 0x2B, 0x06, 0x01, 0x05, 0x05, 0x07, 0x03, 0x02),
	mk(CertKeyUseType, EkuCodeSigning, 0x2B, 0x06, 0x01, 0x05, 0x05, 0x07, 0x03, 0x03),
	mk(CertKeyUseType, EkuEmailProtection, 0x2B, 0x06, 0x01, 0x05, 0x05, 0x07, 0x03, 0x04),
	mk(CertKeyUseType, EkuTimeStamping, 0x2B, 0x06, 0x01, 0x05, 0x05, 0x07, 0x03, 0x08),
	mk(CertKeyUseType, EkuOCSPSigning, 0x2B, 0x06, 0x01, 0x05, 0x05, 0x07, 0x03, 0x09),
	mk(CertKeyUseType, EkuAny, 0x55, 0x1D, 0x25, 0x00),

	// OCSP — RFC 6960, id-pkix-ocsp 1.3.6.1.5.5.7.48.1
	mk(OcspType, OcspBasic, 0x2B, 0x06, 0x01, 0x05, 0x05, 0x07, 0x30, 0x01, 0x01),
	mk(OcspType, OcspNonce, 0x2B, 0x06, 0x01, 0x05, 0x05, 0x07, 0x30, 0x01, 0x02),
	mk(OcspType, OcspCrl, 0x2B, 0x06, 0x01, 0x05, 0x05, 0x07, 0x30, 0x01, 0x03),
	mk(OcspType, OcspResponse, 0x2B, 0x06, 0x01, 0x05, 0x05, 0x07, 0x30, 0x01, 0x04),
	mk(OcspType, OcspNoCheck, 0x2B, 0x06, 0x01, 0x05, 0x05, 0x07, 0x30, 0x01, 0x05),

	// PBES1/PBES2/PBKDF2 — PKCS#5/#12, 1.2.840.113549.1.5.*
	mk(PBEType, PBEWithSHA1And40BitRC2, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x01, 0x0C, 0x01, 0x06),
	mk(PBEType, PBEWithSHA1And3KeyTripleDESCBC, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x01, 0x0C, 0x01, 0x03),
	mk(PBEType, PBEWithSHA1AndDESCBC, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x01, 0x05, 0x0A),
	mk(PBEType, PBEWithSHA1AndRC4_128, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x01, 0x0C, 0x01, 0x01),
	mk(PBEType, PBES2, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x01, 0x05, 0x0D),
	mk(KdfType, KdfPBKDF2, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x01, 0x05, 0x0C),

	// block ciphers used by PBES2 encryptionScheme
	mk(BlockType, BlockDESCBC, 0x2B, 0x0E, 0x03, 0x02, 0x07),
	mk(BlockType, BlockDESEDE3CBC, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x03, 0x07),
	mk(BlockType, BlockRC2CBC, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x03, 0x02),
	mk(BlockType, BlockRC4, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x03, 0x04),
	mk(BlockType, BlockAES128CBC, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x01, 0x02),
	mk(BlockType, BlockAES256CBC, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x01, 0x2A),

	mk(HmacType, HmacSHA1, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x02, 0x07),
	mk(HmacType, HmacSHA256, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x02, 0x09),

	mk(CertPolicyType, PolicyAnyPolicy, 0x55, 0x1D, 0x20, 0x00),

	// X.500 attribute types — RFC 5280 §A.1, 2.5.4.* plus PKCS#9 email/
	// RFC 2247 domainComponent / RFC 2798 userid
	mk(CertNameType, NameCommonName, 0x55, 0x04, 0x03),
	mk(CertNameType, NameSurname, 0x55, 0x04, 0x04),
	mk(CertNameType, NameSerialNumber, 0x55, 0x04, 0x05),
	mk(CertNameType, NameCountryName, 0x55, 0x04, 0x06),
	mk(CertNameType, NameLocalityName, 0x55, 0x04, 0x07),
	mk(CertNameType, NameStateOrProvinceName, 0x55, 0x04, 0x08),
	mk(CertNameType, NameStreetAddress, 0x55, 0x04, 0x09),
	mk(CertNameType, NameOrganizationName, 0x55, 0x04, 0x0A),
	mk(CertNameType, NameOrganizationalUnitName, 0x55, 0x04, 0x0B),
	mk(CertNameType, NameBusinessCategory, 0x55, 0x04, 0x0F),
	mk(CertNameType, NamePostalCode, 0x55, 0x04, 0x11),
	mk(CertNameType, NameGivenName, 0x55, 0x04, 0x2A),
	mk(CertNameType, NameEmailAddress, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x01, 0x09, 0x01),
	mk(CertNameType, NameUserID, 0x09, 0x92, 0x26, 0x89, 0x93, 0xF2, 0x2C, 0x64, 0x01, 0x01),
	mk(CertNameType, NameDomainComponent, 0x09, 0x92, 0x26, 0x89, 0x93, 0xF2, 0x2C, 0x64, 0x01, 0x19),
}

func findBySum(kind Kind, sum int) (entry, bool) {
	for _, e := range table {
		if e.kind == kind && e.sum == sum {
			return e, true
		}
	}
	return entry{}, false
}

func findByID(kind Kind, id int) (entry, bool) {
	for _, e := range table {
		if e.kind == kind && e.id == id {
			return e, true
		}
	}
	return entry{}, false
}

// Lookup resolves raw OID content bytes (as returned by
// derasn1.ReadOIDBytes) within kind, returning the registry ID on a
// byte-exact match. The sum is used only as a pre-filter; the final
// comparison always falls back to a byte-exact check.
func Lookup(kind Kind, sum int, raw []byte) (id int, ok bool) {
	for _, e := range table {
		if e.kind == kind && e.sum == sum && bytesEqual(e.raw, raw) {
			return e.id, true
		}
	}
	return 0, false
}

// Bytes returns the canonical DER content bytes for (kind, id).
func Bytes(kind Kind, id int) ([]byte, error) {
	e, ok := findByID(kind, id)
	if !ok {
		return nil, derasn1.ObjectIdError(-1, "no registered OID for kind %d id %d", kind, id)
	}
	return e.raw, nil
}

// Expect resolves the canonical DER content bytes for (kind, id) and
// the matching byte sum, the pair a schema descriptor needs to set as
// its ExpectedRaw/ExpectedSum before invoking the template engine (so
// the engine itself never imports this package, avoiding a cycle).
func Expect(kind Kind, id int) (raw []byte, sum int, err error) {
	e, ok := findByID(kind, id)
	if !ok {
		return nil, 0, derasn1.ObjectIdError(-1, "no registered OID for kind %d id %d", kind, id)
	}
	return e.raw, e.sum, nil
}

// MatchAny resolves raw content bytes against every ID registered
// under kind, used when a schema's CHOICE of algorithm is open-ended
// (e.g. "which signature algorithm is this"). Ignore kind never
// matches anything "unless kind is Ignore".
func MatchAny(kind Kind, raw []byte) (id int, ok bool) {
	if kind == Ignore {
		return 0, false
	}
	sum := derasn1.OIDSum(raw)
	return Lookup(kind, sum, raw)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// DottedString renders raw OID content bytes as the usual dotted
// decimal form, used only for human-readable output (certificate
// policy OIDs) and the zlint-style
// policy-OID-to-string conversion this module is grounded on.
func DottedString(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var parts []int64
	first := int64(raw[0])
	parts = append(parts, first/40, first%40)
	var cur int64
	for _, b := range raw[1:] {
		cur = cur<<7 | int64(b&0x7F)
		if b&0x80 == 0 {
			parts = append(parts, cur)
			cur = 0
		}
	}
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = strconv.FormatInt(p, 10)
	}
	return strings.Join(strs, ".")
}

// ParseDotted is the inverse of DottedString, encoding a dotted
// decimal OID string into DER content bytes.
func ParseDotted(s string) ([]byte, error) {
	fields := strings.Split(s, ".")
	if len(fields) < 2 {
		return nil, fmt.Errorf("oid: %q has fewer than two arcs", s)
	}
	nums := make([]int64, len(fields))
	for i, f := range fields {
		n, err := strconv.ParseInt(f, 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("oid: %q has a non-numeric or negative arc", s)
		}
		nums[i] = n
	}
	var out []byte
	first := nums[0]*40 + nums[1]
	out = appendBase128(out, first)
	for _, n := range nums[2:] {
		out = appendBase128(out, n)
	}
	return out, nil
}

func appendBase128(dst []byte, v int64) []byte {
	if v == 0 {
		return append(dst, 0x00)
	}
	var tmp []byte
	for v > 0 {
		tmp = append(tmp, byte(v&0x7F))
		v >>= 7
	}
	for i := len(tmp) - 1; i >= 0; i-- {
		b := tmp[i]
		if i != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
	}
	return dst
}
