// Package crl implements the RFC 5280 CertificateList schema, grounded
// in the same pkix/oid primitives x509cert uses for the parallel parts
// of its grammar (Name, AlgorithmIdentifier, Extension block).
package crl

import (
	"crypto/sha1"
	"math/big"

	"go.step.sm/ocsp/derasn1"
	"go.step.sm/ocsp/oid"
	"go.step.sm/ocsp/pkix"
	"go.step.sm/ocsp/verify"
)

// RevokedCertificate is one entry of TBSCertList.revokedCertificates.
type RevokedCertificate struct {
	SerialNumber   *big.Int
	RevocationDate derasn1.DateTime
	// Entry extensions are parsed past but not interpreted further.
}

// CertificateList is a decoded RFC 5280 CRL.
type CertificateList struct {
	Raw    []byte
	RawTBS []byte

	Version        int // 0 if absent, must be 1 when present
	VersionPresent bool

	SignatureAlgID int

	Issuer     pkix.Name
	IssuerHash [20]byte // SHA-1 of Issuer.Raw, used as a signer-store lookup key

	ThisUpdate        derasn1.DateTime
	NextUpdate        derasn1.DateTime
	NextUpdatePresent bool

	RevokedCertificates []RevokedCertificate

	HasAKI         bool
	AuthorityKeyID []byte

	CriticalExtensionUnknown bool

	OuterSignatureAlgID int
	SignatureRaw        []byte
}

// CheckSignatureFrom verifies list's signature was produced by the
// key described by pubKeyAlgID/pubKeyRaw (the issuing CA's
// SubjectPublicKeyInfo), delegating to verify.VerifySignature over
// RawTBS/SignatureRaw/OuterSignatureAlgID the same way
// ocsp.Response.CheckSignatureFrom does for OCSP responses. Callers
// resolve the issuing CA's public key themselves, typically via
// verify.FindIssuer and CRLKeyUsagePolicy against IssuerHash.
func (list *CertificateList) CheckSignatureFrom(pubKeyAlgID int, pubKeyRaw []byte) error {
	return verify.VerifySignature(list.RawTBS, list.SignatureRaw, list.OuterSignatureAlgID, pubKeyAlgID, pubKeyRaw)
}

// ParseCertificateList decodes a full RFC 5280 `CertificateList`.
func ParseCertificateList(der []byte) (*CertificateList, error) {
	c := derasn1.NewCursor(der)
	outerSeqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return nil, err
	}
	outerEnd := c.Pos() + outerSeqLen

	tbsStart := c.Pos()
	list, err := parseTBSCertList(c)
	if err != nil {
		return nil, err
	}
	list.RawTBS = der[tbsStart:c.Pos()]

	outerAlg, err := pkix.ParseAlgorithmIdentifier(c)
	if err != nil {
		return nil, err
	}
	outerSigID, ok := oid.Lookup(oid.SigType, outerAlg.OIDSum, outerAlg.OIDRaw)
	if !ok {
		return nil, derasn1.ObjectIdError(c.Pos(), "unrecognised outer signatureAlgorithm OID")
	}
	if outerSigID != list.SignatureAlgID {
		return nil, derasn1.ParseError(c.Pos(), "SignatureOidMismatch: inner and outer signature algorithm OIDs differ")
	}
	list.OuterSignatureAlgID = outerSigID

	sigBits, err := derasn1.ReadBitString(c)
	if err != nil {
		return nil, err
	}
	if sigBits.Unused != 0 {
		return nil, derasn1.BitStringError(c.Pos(), "CRL signature BIT STRING must be byte-aligned")
	}
	list.SignatureRaw = sigBits.Bytes

	if c.Pos() != outerEnd {
		return nil, derasn1.ParseError(outerEnd, "CertificateList did not consume its declared length")
	}
	list.Raw = der[:outerEnd]
	return list, nil
}

func parseTBSCertList(c *derasn1.Cursor) (*CertificateList, error) {
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return nil, err
	}
	end := c.Pos() + seqLen

	list := &CertificateList{}

	if b, err := c.PeekByte(); err == nil && b == derasn1.TagInteger {
		v, err := derasn1.ReadSmallInt(c)
		if err != nil {
			return nil, err
		}
		if v != 1 {
			return nil, derasn1.ParseError(c.Pos(), "CRL version must be 1 (v2) when present, got %d", v)
		}
		list.Version = int(v)
		list.VersionPresent = true
	}

	alg, err := pkix.ParseAlgorithmIdentifier(c)
	if err != nil {
		return nil, err
	}
	sigID, ok := oid.Lookup(oid.SigType, alg.OIDSum, alg.OIDRaw)
	if !ok {
		return nil, derasn1.ObjectIdError(c.Pos(), "unrecognised tbsCertList signature OID")
	}
	list.SignatureAlgID = sigID

	issuer, err := pkix.ParseName(c)
	if err != nil {
		return nil, err
	}
	list.Issuer = issuer
	list.IssuerHash = sha1.Sum(issuer.Raw)

	thisUpdate, err := readTime(c)
	if err != nil {
		return nil, err
	}
	list.ThisUpdate = thisUpdate

	if c.Pos() < end {
		b, err := c.PeekByte()
		if err != nil {
			return nil, err
		}
		if b == derasn1.TagUTCTime || b == derasn1.TagGeneralizedTime {
			nextUpdate, err := readTime(c)
			if err != nil {
				return nil, err
			}
			list.NextUpdate = nextUpdate
			list.NextUpdatePresent = true
		}
	}

	if c.Pos() < end {
		b, err := c.PeekByte()
		if err != nil {
			return nil, err
		}
		if derasn1.MatchTag(b, derasn1.TagSequence, true) {
			revSeqLen, err := derasn1.ReadSequenceHeader(c)
			if err != nil {
				return nil, err
			}
			revEnd := c.Pos() + revSeqLen
			for c.Pos() < revEnd {
				entry, err := parseRevokedCertificate(c)
				if err != nil {
					return nil, err
				}
				list.RevokedCertificates = append(list.RevokedCertificates, entry)
			}
			if c.Pos() != revEnd {
				return nil, derasn1.ParseError(revEnd, "revokedCertificates did not consume its declared length")
			}
		}
	}

	if c.Pos() < end {
		b, err := c.PeekByte()
		if err != nil {
			return nil, err
		}
		if b != derasn1.ContextTag(0, true) {
			return nil, derasn1.ParseError(c.Pos(), "unexpected trailing field in tbsCertList")
		}
		c.ReadTag()
		extLen, err := c.ReadLength()
		if err != nil {
			return nil, err
		}
		extEnd := c.Pos() + extLen
		innerSeqLen, err := derasn1.ReadSequenceHeader(c)
		if err != nil {
			return nil, err
		}
		if c.Pos()+innerSeqLen != extEnd {
			return nil, derasn1.ParseError(extEnd, "crlExtensions SEQUENCE did not match [0] wrapper length")
		}
		exts, err := pkix.ParseExtensions(c, extEnd)
		if err != nil {
			return nil, err
		}
		if err := applyCrlExtensions(list, exts); err != nil {
			return nil, err
		}
	}

	if c.Pos() != end {
		return nil, derasn1.ParseError(end, "tbsCertList did not consume its declared length")
	}
	return list, nil
}

func parseRevokedCertificate(c *derasn1.Cursor) (RevokedCertificate, error) {
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return RevokedCertificate{}, err
	}
	end := c.Pos() + seqLen
	serial, err := derasn1.ReadBigInt(c, true)
	if err != nil {
		return RevokedCertificate{}, err
	}
	date, err := readTime(c)
	if err != nil {
		return RevokedCertificate{}, err
	}
	// crlEntryExtensions, when present, are parsed past: skip whatever
	// remains within this entry's declared length.
	if c.Pos() < end {
		if err := c.Skip(end - c.Pos()); err != nil {
			return RevokedCertificate{}, err
		}
	}
	if c.Pos() != end {
		return RevokedCertificate{}, derasn1.ParseError(end, "revokedCertificate entry did not consume its declared length")
	}
	return RevokedCertificate{SerialNumber: serial, RevocationDate: date}, nil
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

func applyCrlExtensions(list *CertificateList, exts []pkix.Extension) error {
	seen := make(map[int]bool)
	for _, ext := range exts {
		extID, known := oid.Lookup(oid.CrlExtType, ext.OIDSum, ext.OIDRaw)
		if known {
			if seen[extID] {
				return derasn1.ParseError(-1, "DuplicateOid: CRL extension %d appears more than once", extID)
			}
			seen[extID] = true
		}
		if !known {
			if ext.Critical {
				list.CriticalExtensionUnknown = true
			}
			continue
		}
		switch extID {
		case oid.CrlExtAuthorityKeyId:
			if err := parseCrlAKI(list, ext); err != nil {
				return err
			}
		default:
			// CrlNumber, DeltaCrlIndicator, IssuingDistributionPoint,
			// InvalidityDate, CrlReason, CertificateIssuer: recognised
			// but not interpreted by this schema, parsed past.
		}
	}
	return nil
}

func parseCrlAKI(list *CertificateList, ext pkix.Extension) error {
	c := derasn1.NewCursor(ext.Value)
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return err
	}
	end := c.Pos() + seqLen
	for c.Pos() < end {
		tag, err := c.ReadTag()
		if err != nil {
			return err
		}
		length, err := c.ReadLength()
		if err != nil {
			return err
		}
		content, err := c.ReadN(length)
		if err != nil {
			return err
		}
		if tag == derasn1.ContextTag(0, false) {
			list.HasAKI = true
			if len(content) == 20 {
				list.AuthorityKeyID = content
			} else {
				sum := sha1.Sum(content)
				list.AuthorityKeyID = sum[:]
			}
		}
	}
	if c.Pos() != end {
		return derasn1.ParseError(end, "AuthorityKeyIdentifier did not consume its declared length")
	}
	return nil
}
