package x509cert

import (
	"go.step.sm/ocsp/derasn1"
	"go.step.sm/ocsp/oid"
	"go.step.sm/ocsp/pkix"
)

// CertificationRequest is a decoded PKCS #10 CSR
type CertificationRequest struct {
	Raw    []byte
	RawTBS []byte

	Subject       pkix.Name
	PublicKeyAlgID int
	PublicKeyRaw   []byte

	ChallengePassword      string
	HasChallengePassword   bool
	SerialNumber           string
	HasSerialNumber        bool
	ExtensionRequest       []pkix.Extension
	HasExtensionRequest    bool

	SignatureAlgID int
	SignatureRaw   []byte
}

// attribute OIDs recognised inside CertificationRequestInfo's
// attributes SET — PKCS #9 challengePassword/
// unstructuredName-adjacent serialNumber, and extensionRequest.
var (
	oidChallengePassword = []byte{0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x01, 0x09, 0x07}
	oidExtensionRequest  = []byte{0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x01, 0x09, 0x0E}
	oidSerialNumber      = []byte{0x55, 0x04, 0x05}
)

// ParseCertificationRequest decodes a PKCS #10 CertificationRequest.
func ParseCertificationRequest(der []byte) (*CertificationRequest, error) {
	c := derasn1.NewCursor(der)
	outerSeqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return nil, err
	}
	outerEnd := c.Pos() + outerSeqLen

	tbsStart := c.Pos()
	csr, err := parseCertificationRequestInfo(c)
	if err != nil {
		return nil, err
	}
	csr.RawTBS = der[tbsStart:c.Pos()]

	alg, err := pkix.ParseAlgorithmIdentifier(c)
	if err != nil {
		return nil, err
	}
	sigID, ok := oid.Lookup(oid.SigType, alg.OIDSum, alg.OIDRaw)
	if !ok {
		return nil, derasn1.ObjectIdError(c.Pos(), "unrecognised CSR signatureAlgorithm OID")
	}
	csr.SignatureAlgID = sigID

	sigBits, err := derasn1.ReadBitString(c)
	if err != nil {
		return nil, err
	}
	if sigBits.Unused != 0 {
		return nil, derasn1.BitStringError(c.Pos(), "CSR signature BIT STRING must be byte-aligned")
	}
	csr.SignatureRaw = sigBits.Bytes

	if c.Pos() != outerEnd {
		return nil, derasn1.ParseError(outerEnd, "CertificationRequest did not consume its declared length")
	}
	csr.Raw = der[:outerEnd]
	return csr, nil
}

func parseCertificationRequestInfo(c *derasn1.Cursor) (*CertificationRequest, error) {
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return nil, err
	}
	end := c.Pos() + seqLen

	version, err := derasn1.ReadSmallInt(c)
	if err != nil {
		return nil, err
	}
	if version != 0 {
		return nil, derasn1.ParseError(c.Pos(), "CertificationRequestInfo version must be 0, got %d", version)
	}

	subject, err := pkix.ParseName(c)
	if err != nil {
		return nil, err
	}

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
		return nil, derasn1.ObjectIdError(c.Pos(), "unrecognised subjectPKInfo algorithm OID")
	}
	if err := c.Skip(spkiEnd - c.Pos()); err != nil {
		return nil, err
	}

	csr := &CertificationRequest{
		Subject:        subject,
		PublicKeyAlgID: pkID,
		PublicKeyRaw:   c.Bytes()[spkiStart:spkiEnd],
	}

	if c.Pos() < end {
		b, err := c.PeekByte()
		if err != nil {
			return nil, err
		}
		if b == derasn1.ContextTag(0, true) {
			if _, err := c.ReadTag(); err != nil {
				return nil, err
			}
			attrsLen, err := c.ReadLength()
			if err != nil {
				return nil, err
			}
			attrsEnd := c.Pos() + attrsLen
			if err := parseAttributes(csr, c, attrsEnd); err != nil {
				return nil, err
			}
		}
	}

	if c.Pos() != end {
		return nil, derasn1.ParseError(end, "CertificationRequestInfo did not consume its declared length")
	}
	return csr, nil
}

func parseAttributes(csr *CertificationRequest, c *derasn1.Cursor, end int) error {
	for c.Pos() < end {
		seqLen, err := derasn1.ReadSequenceHeader(c)
		if err != nil {
			return err
		}
		attrEnd := c.Pos() + seqLen
		oidRaw, _, err := derasn1.ReadOIDBytes(c)
		if err != nil {
			return err
		}
		setLen, err := derasn1.ReadSetHeader(c)
		if err != nil {
			return err
		}
		setEnd := c.Pos() + setLen

		switch {
		case bytesEqual(oidRaw, oidChallengePassword):
			if c.Pos() < setEnd {
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
				if tag != derasn1.TagPrintableString && tag != derasn1.TagUTF8String && tag != derasn1.TagIA5String {
					return derasn1.ParseError(c.Pos(), "challengePassword must be PrintableString, UTF8String or IA5String")
				}
				csr.ChallengePassword = string(content)
				csr.HasChallengePassword = true
			}
		case bytesEqual(oidRaw, oidSerialNumber):
			if c.Pos() < setEnd {
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
				_ = tag
				csr.SerialNumber = string(content)
				csr.HasSerialNumber = true
			}
		case bytesEqual(oidRaw, oidExtensionRequest):
			if c.Pos() < setEnd {
				extSeqLen, err := derasn1.ReadSequenceHeader(c)
				if err != nil {
					return err
				}
				extEnd := c.Pos() + extSeqLen
				exts, err := pkix.ParseExtensions(c, extEnd)
				if err != nil {
					return err
				}
				csr.ExtensionRequest = exts
				csr.HasExtensionRequest = true
			}
		default:
			// unrecognised attribute: skipped whole
			// "recognised attributes" being an enumerated subset.
		}

		if c.Pos() != setEnd {
			if err := c.Skip(setEnd - c.Pos()); err != nil {
				return err
			}
		}
		if c.Pos() != attrEnd {
			return derasn1.ParseError(attrEnd, "Attribute did not consume its declared length")
		}
	}
	if c.Pos() != end {
		return derasn1.ParseError(end, "attributes SET did not consume its declared length")
	}
	return nil
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
