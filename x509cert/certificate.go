// Package x509cert implements the RFC 5280 Certificate and PKCS #10
// CertificationRequest schemas, grounded in the same CertID-style flat
// decode functions ocsp uses, generalized from OCSP's narrow grammar
// to the full certificate.
package x509cert

import (
	"crypto/sha1"
	"crypto/sha256"
	"math/big"

	"go.step.sm/ocsp/derasn1"
	"go.step.sm/ocsp/oid"
	"go.step.sm/ocsp/pkix"
)

// KeyUsage bits
const (
	KeyUsageDigitalSignature = 1 << iota
	KeyUsageNonRepudiation
	KeyUsageKeyEncipherment
	KeyUsageDataEncipherment
	KeyUsageKeyAgreement
	KeyUsageKeyCertSign
	KeyUsageCRLSign
	KeyUsageEncipherOnly
	KeyUsageDecipherOnly
)

// ExtKeyUsage bits.
const (
	EKUServerAuth = 1 << iota
	EKUClientAuth
	EKUCodeSigning
	EKUEmailProtection
	EKUTimeStamping
	EKUOCSPSigning
	EKUAny
)

// GeneralNameKind discriminates the SubjectAltName/IssuerAltName
// CHOICE variants this schema recognises.
type GeneralNameKind int

const (
	GeneralNameDNS GeneralNameKind = iota
	GeneralNameEmail
	GeneralNameURI
	GeneralNameIP
	GeneralNameDirectory
	GeneralNameOther
)

// GeneralName is a single SAN/IAN entry, stored as a flat slice rather
// than a linked structure.
type GeneralName struct {
	Kind  GeneralNameKind
	Value []byte
}

// AuthorityInfoAccess holds the recognised access-method locations.
type AuthorityInfoAccess struct {
	OCSPServer []string
	CAIssuers  []string
}

// CertificatePolicy is a decoded policy OID rendered as a dotted
// string.
type CertificatePolicy struct {
	OID string
}

// CRLDistributionPoint holds only the first distribution point's
// fullName URI member; other GeneralNames and the other distribution
// points in the SEQUENCE are not retained.
type CRLDistributionPoint struct {
	URI string
}

// BasicConstraints is the decoded BasicConstraints extension.
type BasicConstraints struct {
	IsCA             bool
	PathLenPresent   bool
	PathLen          int
}

// NameConstraints holds the permitted/excluded subtree lists this
// schema recognises (DNS, rfc822, directoryName).
type NameConstraints struct {
	PermittedDNS       []string
	ExcludedDNS        []string
	PermittedEmail     []string
	ExcludedEmail      []string
	PermittedDirectory []pkix.Name
	ExcludedDirectory  []pkix.Name
}

// Certificate is a decoded RFC 5280 Certificate.
type Certificate struct {
	Raw          []byte // the full Certificate DER
	RawTBS       []byte // the exact tbsCertificate bytes (signed region)
	Version      int    // 0, 1, or 2
	SerialNumber *big.Int

	SignatureAlgID int // oid.SigType id (outer, duplicated from tbsCertificate)

	Issuer       pkix.Name
	IssuerSHA1   [20]byte
	IssuerSHA256 [32]byte

	NotBefore, NotAfter derasn1.DateTime

	Subject       pkix.Name
	SubjectSHA1   [20]byte
	SubjectSHA256 [32]byte

	PublicKeyAlgID int // oid.KeyType id
	PublicKeyRaw   []byte // the SubjectPublicKeyInfo DER, for rsakey/eckey/edkey to parse

	SignatureRaw []byte // the outer BIT STRING value (unused==0 enforced)

	HasSKI                 bool
	SubjectKeyID           []byte
	HasAKI                 bool
	AuthorityKeyID         []byte
	KeyUsage               int
	HasKeyUsage            bool
	ExtKeyUsage            int
	SubjectAltNames        []GeneralName
	IssuerAltNames         []GeneralName
	BasicConstraintsValid  bool
	BasicConstraints       BasicConstraints
	NameConstraintsValid   bool
	NameConstraints        NameConstraints
	CertificatePolicies    []CertificatePolicy
	CRLDistributionPoint   *CRLDistributionPoint
	AuthorityInfoAccess    AuthorityInfoAccess
	InhibitAnyPolicy       bool
	OCSPNoCheck            bool

	// CriticalExtensionUnknown reports an unrecognised critical
	// extension; the error is deferred rather than aborting the parse,
	// so a successful parse may still carry this set and callers
	// decide whether to treat it as fatal.
	CriticalExtensionUnknown bool
}

// SelfSigned reports whether the certificate is self-signed:
// symmetric, and determined by byte-wise SHA-256 Name hash equality.
func (c *Certificate) SelfSigned() bool {
	return c.IssuerSHA256 == c.SubjectSHA256
}

// ParseCertificate decodes a full RFC 5280 Certificate.
func ParseCertificate(der []byte) (*Certificate, error) {
	c := derasn1.NewCursor(der)
	outerSeqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return nil, err
	}
	outerEnd := c.Pos() + outerSeqLen

	tbsStart := c.Pos()
	cert, err := parseTBSCertificate(c)
	if err != nil {
		return nil, err
	}
	cert.RawTBS = der[tbsStart:c.Pos()]

	outerAlg, err := pkix.ParseAlgorithmIdentifier(c)
	if err != nil {
		return nil, err
	}
	outerSigID, ok := oid.Lookup(oid.SigType, outerAlg.OIDSum, outerAlg.OIDRaw)
	if !ok {
		return nil, derasn1.ObjectIdError(c.Pos(), "unrecognised outer signatureAlgorithm OID")
	}
	if outerSigID != cert.SignatureAlgID {
		return nil, derasn1.ParseError(c.Pos(), "SignatureOidMismatch: inner and outer signature algorithm OIDs differ")
	}

	sigBits, err := derasn1.ReadBitString(c)
	if err != nil {
		return nil, err
	}
	if sigBits.Unused != 0 {
		return nil, derasn1.BitStringError(c.Pos(), "certificate signature BIT STRING must be byte-aligned")
	}
	cert.SignatureRaw = sigBits.Bytes

	if c.Pos() != outerEnd {
		return nil, derasn1.ParseError(outerEnd, "Certificate did not consume its declared length")
	}
	cert.Raw = der[:outerEnd]
	return cert, nil
}

func parseTBSCertificate(c *derasn1.Cursor) (*Certificate, error) {
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return nil, err
	}
	end := c.Pos() + seqLen

	cert := &Certificate{}

	version := 0
	if b, err := c.PeekByte(); err == nil && b == derasn1.ContextTag(0, true) {
		start := c.Pos()
		c.ReadTag()
		length, err := c.ReadLength()
		if err != nil {
			return nil, err
		}
		vEnd := c.Pos() + length
		v, err := derasn1.ReadSmallInt(c)
		if err != nil {
			return nil, err
		}
		if c.Pos() != vEnd {
			return nil, derasn1.ParseError(start, "version field did not consume its declared length")
		}
		version = int(v)
		if version < 0 || version > 2 {
			return nil, derasn1.ParseError(start, "certificate version %d out of range", version)
		}
	}
	cert.Version = version

	serial, err := derasn1.ReadBigInt(c, true)
	if err != nil {
		return nil, err
	}
	if serial.Sign() < 0 {
		return nil, derasn1.NegativeIntegerError(c.Pos())
	}
	cert.SerialNumber = serial

	alg, err := pkix.ParseAlgorithmIdentifier(c)
	if err != nil {
		return nil, err
	}
	sigID, ok := oid.Lookup(oid.SigType, alg.OIDSum, alg.OIDRaw)
	if !ok {
		return nil, derasn1.ObjectIdError(c.Pos(), "unrecognised tbsCertificate signature OID")
	}
	cert.SignatureAlgID = sigID

	issuer, err := pkix.ParseName(c)
	if err != nil {
		return nil, err
	}
	cert.Issuer = issuer
	cert.IssuerSHA1 = sha1.Sum(issuer.Raw)
	cert.IssuerSHA256 = sha256.Sum256(issuer.Raw)

	notBefore, notAfter, err := parseValidity(c)
	if err != nil {
		return nil, err
	}
	cert.NotBefore, cert.NotAfter = notBefore, notAfter

	subject, err := pkix.ParseName(c)
	if err != nil {
		return nil, err
	}
	cert.Subject = subject
	cert.SubjectSHA1 = sha1.Sum(subject.Raw)
	cert.SubjectSHA256 = sha256.Sum256(subject.Raw)

	spkiStart := c.Pos()
	spkiLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return nil, err
	}
	spkiEnd := c.Pos() + spkiLen
	pkAlg, err := pkix.ParseAlgorithmIdentifier(c)
	if err != nil {
		return nil, err
	}
	pkID, ok := oid.Lookup(oid.KeyType, pkAlg.OIDSum, pkAlg.OIDRaw)
	if !ok {
		return nil, derasn1.ObjectIdError(c.Pos(), "unrecognised subjectPublicKeyInfo algorithm OID")
	}
	cert.PublicKeyAlgID = pkID
	if err := c.Skip(spkiEnd - c.Pos()); err != nil {
		return nil, err
	}
	cert.PublicKeyRaw = c.Bytes()[spkiStart:spkiEnd]

	// issuerUniqueID / subjectUniqueID are accepted and skipped; no
	// caller in this module consults them.
	for {
		if c.Pos() >= end {
			break
		}
		b, err := c.PeekByte()
		if err != nil {
			return nil, err
		}
		if b == derasn1.ContextTag(1, false) || b == derasn1.ContextTag(2, false) {
			c.ReadTag()
			length, err := c.ReadLength()
			if err != nil {
				return nil, err
			}
			if _, err := c.ReadN(length); err != nil {
				return nil, err
			}
			continue
		}
		break
	}

	if c.Pos() < end {
		b, err := c.PeekByte()
		if err != nil {
			return nil, err
		}
		if b != derasn1.ContextTag(3, true) {
			return nil, derasn1.ParseError(c.Pos(), "unexpected trailing field in tbsCertificate")
		}
		if version < 2 {
			return nil, derasn1.ParseError(c.Pos(), "extensions present but certificate version < 2")
		}
		c.ReadTag()
		extLen, err := c.ReadLength()
		if err != nil {
			return nil, err
		}
		extEnd := c.Pos() + extLen
		seqLen, err := derasn1.ReadSequenceHeader(c)
		if err != nil {
			return nil, err
		}
		if c.Pos()+seqLen != extEnd {
			return nil, derasn1.ParseError(extEnd, "extensions SEQUENCE did not match [3] wrapper length")
		}
		exts, err := pkix.ParseExtensions(c, extEnd)
		if err != nil {
			return nil, err
		}
		if err := applyExtensions(cert, exts); err != nil {
			return nil, err
		}
	}

	if c.Pos() != end {
		return nil, derasn1.ParseError(end, "tbsCertificate did not consume its declared length")
	}
	return cert, nil
}

func parseValidity(c *derasn1.Cursor) (derasn1.DateTime, derasn1.DateTime, error) {
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return derasn1.DateTime{}, derasn1.DateTime{}, err
	}
	end := c.Pos() + seqLen
	nb, err := readTime(c)
	if err != nil {
		return derasn1.DateTime{}, derasn1.DateTime{}, err
	}
	na, err := readTime(c)
	if err != nil {
		return derasn1.DateTime{}, derasn1.DateTime{}, err
	}
	if c.Pos() != end {
		return derasn1.DateTime{}, derasn1.DateTime{}, derasn1.ParseError(end, "Validity did not consume its declared length")
	}
	return nb, na, nil
}

func readTime(c *derasn1.Cursor) (derasn1.DateTime, error) {
	tag, err := c.PeekByte()
	if err != nil {
		return derasn1.DateTime{}, err
	}
	switch tag {
	case derasn1.TagUTCTime:
		return derasn1.ReadUTCTime(c)
	case derasn1.TagGeneralizedTime:
		return derasn1.ReadGeneralizedTime(c)
	default:
		return derasn1.DateTime{}, derasn1.ParseError(c.Pos(), "expected UTCTime or GeneralizedTime, got tag 0x%02x", tag)
	}
}
