package x509cert

import (
	"crypto/sha1"

	"go.step.sm/ocsp/derasn1"
	"go.step.sm/ocsp/oid"
	"go.step.sm/ocsp/pkix"
)

// applyExtensions re-parses each extension's OCTET STRING value
// through its subschema per the known-extensions table. Unknown
// critical extensions set CriticalExtensionUnknown and otherwise do
// not abort the walk, so the rest of the object is still discovered
// (the error is reported last, a deliberate deferral). Duplicate
// recognised OIDs fail immediately with DuplicateOid, since, unlike the date/critical-
// extension deferrals, a duplicate is itself evidence of a malformed
// input the caller should stop trusting right away.
func applyExtensions(cert *Certificate, exts []pkix.Extension) error {
	seen := make(map[int]bool)
	for _, ext := range exts {
		extID, known := oid.Lookup(oid.CertExtType, ext.OIDSum, ext.OIDRaw)
		if known {
			if seen[extID] {
				return derasn1.ParseError(-1, "DuplicateOid: extension %d appears more than once", extID)
			}
			seen[extID] = true
		}
		if !known {
			if ext.Critical {
				cert.CriticalExtensionUnknown = true
			}
			continue
		}
		var err error
		switch extID {
		case oid.ExtBasicConstraints:
			err = parseBasicConstraints(cert, ext)
		case oid.ExtSubjectAltName:
			err = parseGeneralNames(&cert.SubjectAltNames, ext.Value)
		case oid.ExtIssuerAltName:
			err = parseGeneralNames(&cert.IssuerAltNames, ext.Value)
		case oid.ExtAuthorityKeyId:
			err = parseAuthorityKeyID(cert, ext)
		case oid.ExtSubjectKeyId:
			err = parseSubjectKeyID(cert, ext)
		case oid.ExtKeyUsage:
			err = parseKeyUsage(cert, ext)
		case oid.ExtExtendedKeyUsage:
			err = parseExtKeyUsage(cert, ext)
		case oid.ExtNameConstraints:
			err = parseNameConstraints(cert, ext)
		case oid.ExtCertificatePolicies:
			err = parseCertificatePolicies(cert, ext)
		case oid.ExtCrlDistributionPoints:
			err = parseCRLDistributionPoints(cert, ext)
		case oid.ExtAuthorityInfoAccess:
			err = parseAuthorityInfoAccess(cert, ext)
		case oid.ExtInhibitAnyPolicy:
			cert.InhibitAnyPolicy = true
		case oid.ExtOCSPNoCheck:
			cert.OCSPNoCheck = true
		default:
			// recognised by OID but this schema does not interpret it
			// (e.g. FreshestCrl, SubjectInfoAccess): parsed past.
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func parseBasicConstraints(cert *Certificate, ext pkix.Extension) error {
	c := derasn1.NewCursor(ext.Value)
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return err
	}
	end := c.Pos() + seqLen
	bc := BasicConstraints{}
	if c.Pos() < end {
		b, err := c.PeekByte()
		if err != nil {
			return err
		}
		if b == derasn1.TagBoolean {
			c.ReadTag()
			length, err := c.ReadLength()
			if err != nil {
				return err
			}
			v, err := c.ReadN(length)
			if err != nil {
				return err
			}
			bc.IsCA = len(v) == 1 && v[0] != 0x00
		}
	}
	if c.Pos() < end {
		pathLen, err := derasn1.ReadSmallInt(c)
		if err != nil {
			return err
		}
		if !bc.IsCA {
			return derasn1.ParseError(c.Pos(), "BasicConstraints pathLen present without ca=TRUE")
		}
		if pathLen > 127 {
			return derasn1.ParseError(c.Pos(), "BasicConstraints pathLen does not fit in 7 bits")
		}
		bc.PathLenPresent = true
		bc.PathLen = int(pathLen)
	}
	if c.Pos() != end {
		return derasn1.ParseError(end, "BasicConstraints did not consume its declared length")
	}
	cert.BasicConstraintsValid = true
	cert.BasicConstraints = bc
	return nil
}

func parseGeneralNames(out *[]GeneralName, value []byte) error {
	c := derasn1.NewCursor(value)
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return err
	}
	end := c.Pos() + seqLen
	for c.Pos() < end {
		start := c.Pos()
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
		base := tag &^ 0x20
		switch base {
		case derasn1.ContextTag(1, false) &^ 0x20: // rfc822Name
			*out = append(*out, GeneralName{Kind: GeneralNameEmail, Value: content})
		case derasn1.ContextTag(2, false) &^ 0x20: // dNSName
			*out = append(*out, GeneralName{Kind: GeneralNameDNS, Value: content})
		case derasn1.ContextTag(4, true) &^ 0x20: // directoryName, EXPLICIT constructed
			*out = append(*out, GeneralName{Kind: GeneralNameDirectory, Value: content})
		case derasn1.ContextTag(6, false) &^ 0x20: // uniformResourceIdentifier
			if len(content) == 0 {
				return derasn1.ParseError(start, "SubjectAltName URI must be non-empty")
			}
			*out = append(*out, GeneralName{Kind: GeneralNameURI, Value: content})
		case derasn1.ContextTag(7, false) &^ 0x20: // iPAddress
			*out = append(*out, GeneralName{Kind: GeneralNameIP, Value: content})
		case derasn1.ContextTag(0, true) &^ 0x20: // otherName
			*out = append(*out, GeneralName{Kind: GeneralNameOther, Value: content})
		default:
			// unrecognised GeneralName variant: skipped, the same way
			// an unrecognised RDN attribute is skipped elsewhere.
		}
	}
	if c.Pos() != end {
		return derasn1.ParseError(end, "GeneralNames did not consume its declared length")
	}
	return nil
}

// hashKeyID returns id unchanged when it is already exactly a 20-byte
// SHA-1 hash (the common case, a keyIdentifier the issuing CA already
// derived the canonical way); otherwise it hashes the content to
// produce a 20-byte id AuthorityKeyIdentifier/
// SubjectKeyIdentifier "hashing behaviour".
func hashKeyID(id []byte) []byte {
	if len(id) == 20 {
		return id
	}
	sum := sha1.Sum(id)
	return sum[:]
}

func parseAuthorityKeyID(cert *Certificate, ext pkix.Extension) error {
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
			cert.HasAKI = true
			cert.AuthorityKeyID = hashKeyID(content)
		}
		// authorityCertIssuer [1] / authorityCertSerialNumber [2] are
		// parsed past, not interpreted.
	}
	if c.Pos() != end {
		return derasn1.ParseError(end, "AuthorityKeyIdentifier did not consume its declared length")
	}
	return nil
}

func parseSubjectKeyID(cert *Certificate, ext pkix.Extension) error {
	c := derasn1.NewCursor(ext.Value)
	value, err := derasn1.ReadOctetString(c)
	if err != nil {
		return err
	}
	if c.Pos() != c.Len() {
		return derasn1.ParseError(c.Pos(), "SubjectKeyIdentifier did not consume its declared length")
	}
	cert.HasSKI = true
	cert.SubjectKeyID = hashKeyID(value)
	return nil
}

func parseKeyUsage(cert *Certificate, ext pkix.Extension) error {
	c := derasn1.NewCursor(ext.Value)
	bits, err := derasn1.ReadBitString(c)
	if err != nil {
		return err
	}
	if c.Pos() != c.Len() {
		return derasn1.ParseError(c.Pos(), "KeyUsage did not consume its declared length")
	}
	var v int
	for i, b := range bits.Bytes {
		for bit := 0; bit < 8; bit++ {
			if b&(0x80>>uint(bit)) != 0 {
				v |= 1 << uint(i*8+bit)
			}
		}
	}
	cert.KeyUsage = v
	cert.HasKeyUsage = true
	return nil
}

func parseExtKeyUsage(cert *Certificate, ext pkix.Extension) error {
	c := derasn1.NewCursor(ext.Value)
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return err
	}
	end := c.Pos() + seqLen
	var v int
	for c.Pos() < end {
		raw, sum, err := derasn1.ReadOIDBytes(c)
		if err != nil {
			return err
		}
		ekuID, ok := oid.Lookup(oid.CertKeyUseType, sum, raw)
		if !ok {
			if ext.Critical {
				return derasn1.ObjectIdError(c.Pos(), "unrecognised ExtendedKeyUsage OID in a critical extension")
			}
			continue
		}
		switch ekuID {
		case oid.EkuServerAuth:
			v |= EKUServerAuth
		case oid.EkuClientAuth:
			v |= EKUClientAuth
		case oid.EkuCodeSigning:
			v |= EKUCodeSigning
		case oid.EkuEmailProtection:
			v |= EKUEmailProtection
		case oid.EkuTimeStamping:
			v |= EKUTimeStamping
		case oid.EkuOCSPSigning:
			v |= EKUOCSPSigning
		case oid.EkuAny:
			v |= EKUAny
		}
	}
	if c.Pos() != end {
		return derasn1.ParseError(end, "ExtendedKeyUsage did not consume its declared length")
	}
	cert.ExtKeyUsage = v
	return nil
}

func parseNameConstraints(cert *Certificate, ext pkix.Extension) error {
	c := derasn1.NewCursor(ext.Value)
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return err
	}
	end := c.Pos() + seqLen
	var nc NameConstraints
	for c.Pos() < end {
		tag, err := c.ReadTag()
		if err != nil {
			return err
		}
		length, err := c.ReadLength()
		if err != nil {
			return err
		}
		subtreesEnd := c.Pos() + length
		var permitted bool
		switch tag {
		case derasn1.ContextTag(0, true):
			permitted = true
		case derasn1.ContextTag(1, true):
			permitted = false
		default:
			return derasn1.ParseError(c.Pos(), "unexpected NameConstraints field tag 0x%02x", tag)
		}
		for c.Pos() < subtreesEnd {
			if err := parseGeneralSubtree(&nc, permitted, c); err != nil {
				return err
			}
		}
		if c.Pos() != subtreesEnd {
			return derasn1.ParseError(subtreesEnd, "GeneralSubtrees did not consume its declared length")
		}
	}
	if c.Pos() != end {
		return derasn1.ParseError(end, "NameConstraints did not consume its declared length")
	}
	cert.NameConstraintsValid = true
	cert.NameConstraints = nc
	return nil
}

func parseGeneralSubtree(nc *NameConstraints, permitted bool, c *derasn1.Cursor) error {
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return err
	}
	end := c.Pos() + seqLen
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
	switch tag {
	case derasn1.ContextTag(2, false):
		if permitted {
			nc.PermittedDNS = append(nc.PermittedDNS, string(content))
		} else {
			nc.ExcludedDNS = append(nc.ExcludedDNS, string(content))
		}
	case derasn1.ContextTag(1, false):
		if permitted {
			nc.PermittedEmail = append(nc.PermittedEmail, string(content))
		} else {
			nc.ExcludedEmail = append(nc.ExcludedEmail, string(content))
		}
	case derasn1.ContextTag(4, true):
		name, err := pkix.ParseName(derasn1.NewCursor(content))
		if err != nil {
			return err
		}
		if permitted {
			nc.PermittedDirectory = append(nc.PermittedDirectory, name)
		} else {
			nc.ExcludedDirectory = append(nc.ExcludedDirectory, name)
		}
	}
	// minimum/maximum fields, when present, are skipped implicitly:
	// they are only meaningful for name forms this schema does not
	// recognise (the content read above already consumed `base`).
	if c.Pos() != end {
		if err := c.Skip(end - c.Pos()); err != nil {
			return err
		}
	}
	return nil
}

func parseCertificatePolicies(cert *Certificate, ext pkix.Extension) error {
	const maxCertPol = 16
	c := derasn1.NewCursor(ext.Value)
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return err
	}
	end := c.Pos() + seqLen
	seen := make(map[string]bool)
	for c.Pos() < end {
		if len(cert.CertificatePolicies) >= maxCertPol {
			return c.Skip(end - c.Pos())
		}
		piSeqLen, err := derasn1.ReadSequenceHeader(c)
		if err != nil {
			return err
		}
		piEnd := c.Pos() + piSeqLen
		raw, _, err := derasn1.ReadOIDBytes(c)
		if err != nil {
			return err
		}
		dotted := oid.DottedString(raw)
		if seen[dotted] {
			return derasn1.ParseError(c.Pos(), "DuplicateOid: certificate policy %s appears more than once", dotted)
		}
		seen[dotted] = true
		cert.CertificatePolicies = append(cert.CertificatePolicies, CertificatePolicy{OID: dotted})
		if err := c.Skip(piEnd - c.Pos()); err != nil {
			return err
		}
	}
	if c.Pos() != end {
		return derasn1.ParseError(end, "CertificatePolicies did not consume its declared length")
	}
	return nil
}

func parseCRLDistributionPoints(cert *Certificate, ext pkix.Extension) error {
	c := derasn1.NewCursor(ext.Value)
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return err
	}
	end := c.Pos() + seqLen
	first := true
	for c.Pos() < end {
		dpSeqLen, err := derasn1.ReadSequenceHeader(c)
		if err != nil {
			return err
		}
		dpEnd := c.Pos() + dpSeqLen
		for c.Pos() < dpEnd {
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
			if first && tag == derasn1.ContextTag(0, true) {
				if uri, ok := firstFullNameURI(content); ok {
					cert.CRLDistributionPoint = &CRLDistributionPoint{URI: uri}
				}
			}
		}
		first = false
	}
	if c.Pos() != end {
		return derasn1.ParseError(end, "CRLDistributionPoints did not consume its declared length")
	}
	return nil
}

func firstFullNameURI(distPointNameContent []byte) (string, bool) {
	c := derasn1.NewCursor(distPointNameContent)
	for c.Pos() < c.Len() {
		tag, err := c.ReadTag()
		if err != nil {
			return "", false
		}
		length, err := c.ReadLength()
		if err != nil {
			return "", false
		}
		content, err := c.ReadN(length)
		if err != nil {
			return "", false
		}
		if tag == derasn1.ContextTag(0, true) { // fullName [0]
			inner := derasn1.NewCursor(content)
			for inner.Pos() < inner.Len() {
				t, err := inner.ReadTag()
				if err != nil {
					return "", false
				}
				l, err := inner.ReadLength()
				if err != nil {
					return "", false
				}
				v, err := inner.ReadN(l)
				if err != nil {
					return "", false
				}
				if t == derasn1.ContextTag(6, false) {
					return string(v), true
				}
			}
		}
	}
	return "", false
}

func parseAuthorityInfoAccess(cert *Certificate, ext pkix.Extension) error {
	c := derasn1.NewCursor(ext.Value)
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return err
	}
	end := c.Pos() + seqLen
	for c.Pos() < end {
		adSeqLen, err := derasn1.ReadSequenceHeader(c)
		if err != nil {
			return err
		}
		adEnd := c.Pos() + adSeqLen
		raw, sum, err := derasn1.ReadOIDBytes(c)
		if err != nil {
			return err
		}
		methodID, ok := oid.Lookup(oid.CertAuthInfoType, sum, raw)
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
		if ok && tag == derasn1.ContextTag(6, false) {
			switch methodID {
			case oid.AuthInfoOCSP:
				cert.AuthorityInfoAccess.OCSPServer = append(cert.AuthorityInfoAccess.OCSPServer, string(content))
			case oid.AuthInfoCAIssuers:
				cert.AuthorityInfoAccess.CAIssuers = append(cert.AuthorityInfoAccess.CAIssuers, string(content))
			}
		}
		if c.Pos() != adEnd {
			return derasn1.ParseError(adEnd, "AccessDescription did not consume its declared length")
		}
	}
	if c.Pos() != end {
		return derasn1.ParseError(end, "AuthorityInfoAccess did not consume its declared length")
	}
	return nil
}
