package x509cert

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go.step.sm/ocsp/derasn1"
	"go.step.sm/ocsp/oid"
	"go.step.sm/ocsp/pkix"
)

func cnName(t *testing.T, cn string) []byte {
	t.Helper()
	oidRaw, err := oid.Bytes(oid.CertNameType, oid.NameCommonName)
	require.NoError(t, err)
	return pkix.EncodeName(nil, []pkix.AttributeTypeAndValue{
		{OIDRaw: oidRaw, NID: oid.NameCommonName, Tag: derasn1.TagUTF8String, Value: []byte(cn)},
	})
}

func rsaSPKI(t *testing.T) []byte {
	t.Helper()
	rsaOID, err := oid.Bytes(oid.KeyType, oid.KeyRSA)
	require.NoError(t, err)
	var pk []byte
	pk = derasn1.EncodeInteger(pk, []byte{0xB2, 0xD0, 0x4F, 0xC3, 0x69, 0xA1})
	pk = derasn1.EncodeInteger(pk, []byte{0x01, 0x00, 0x01})
	var pkSeq []byte
	pkSeq = derasn1.EncodeHeader(pkSeq, derasn1.TagSequence|0x20, len(pk))
	pkSeq = append(pkSeq, pk...)

	var spki []byte
	spki = pkix.EncodeAlgorithmIdentifier(spki, rsaOID, true)
	spki = derasn1.EncodeBitString(spki, pkSeq, 0)
	var out []byte
	out = derasn1.EncodeHeader(out, derasn1.TagSequence|0x20, len(spki))
	return append(out, spki...)
}

// buildCertDER assembles a minimal, self-signed-shaped v3 certificate
// (valid structure, not a real signature) carrying a BasicConstraints
// CA extension and a SubjectKeyIdentifier, sufficient to exercise
// ParseCertificate end to end.
func buildCertDER(t *testing.T, cn string, isCA bool) []byte {
	t.Helper()
	sigOID, err := oid.Bytes(oid.SigType, oid.SigSHA256WithRSA)
	require.NoError(t, err)
	name := cnName(t, cn)
	spki := rsaSPKI(t)

	notBefore := derasn1.DateTime{Year: 2024, Mon: 1, Day: 1, Hour: 0, Min: 0, Sec: 0}
	notAfter := derasn1.DateTime{Year: 2034, Mon: 1, Day: 1, Hour: 0, Min: 0, Sec: 0}
	var validity []byte
	validity = derasn1.EncodeUTCTime(validity, notBefore)
	validity = derasn1.EncodeUTCTime(validity, notAfter)
	var validitySeq []byte
	validitySeq = derasn1.EncodeHeader(validitySeq, derasn1.TagSequence|0x20, len(validity))
	validitySeq = append(validitySeq, validity...)

	skiOID, err := oid.Bytes(oid.CertExtType, oid.ExtSubjectKeyId)
	require.NoError(t, err)
	bcOID, err := oid.Bytes(oid.CertExtType, oid.ExtBasicConstraints)
	require.NoError(t, err)

	var bcValue []byte
	if isCA {
		bcValue = append(bcValue, derasn1.TagBoolean, 0x01, 0xFF)
	}
	var bcSeq []byte
	bcSeq = derasn1.EncodeHeader(bcSeq, derasn1.TagSequence|0x20, len(bcValue))
	bcSeq = append(bcSeq, bcValue...)

	skiValue := derasn1.EncodeOctetString(nil, make([]byte, 20))

	exts := []pkix.Extension{
		{OIDRaw: skiOID, Value: skiValue},
		{OIDRaw: bcOID, Critical: isCA, Value: bcSeq},
	}
	extBlock := pkix.EncodeExtensions(nil, exts)
	var extWrapper []byte
	extWrapper = append(extWrapper, derasn1.ContextTag(3, true))
	extWrapper = derasn1.EncodeLength(extWrapper, len(extBlock))
	extWrapper = append(extWrapper, extBlock...)

	var tbs []byte
	var versionField []byte
	versionField = derasn1.EncodeUint64(versionField, 2)
	var versionWrapper []byte
	versionWrapper = append(versionWrapper, derasn1.ContextTag(0, true))
	versionWrapper = derasn1.EncodeLength(versionWrapper, len(versionField))
	versionWrapper = append(versionWrapper, versionField...)
	tbs = append(tbs, versionWrapper...)
	tbs = derasn1.EncodeInteger(tbs, []byte{0x01})
	tbs = pkix.EncodeAlgorithmIdentifier(tbs, sigOID, true)
	tbs = append(tbs, name...)
	tbs = append(tbs, validitySeq...)
	tbs = append(tbs, name...)
	tbs = append(tbs, spki...)
	tbs = append(tbs, extWrapper...)

	var tbsSeq []byte
	tbsSeq = derasn1.EncodeHeader(tbsSeq, derasn1.TagSequence|0x20, len(tbs))
	tbsSeq = append(tbsSeq, tbs...)

	var cert []byte
	cert = append(cert, tbsSeq...)
	cert = pkix.EncodeAlgorithmIdentifier(cert, sigOID, true)
	cert = derasn1.EncodeBitString(cert, make([]byte, 16), 0)

	var certSeq []byte
	certSeq = derasn1.EncodeHeader(certSeq, derasn1.TagSequence|0x20, len(cert))
	return append(certSeq, cert...)
}

func TestParseCertificateSelfSignedCA(t *testing.T) {
	der := buildCertDER(t, "Test Root CA", true)
	cert, err := ParseCertificate(der)
	require.NoError(t, err)
	require.Equal(t, 2, cert.Version)
	require.Equal(t, "Test Root CA", cert.Subject.String()[len("/CN="):])
	require.True(t, cert.SelfSigned())
	require.True(t, cert.BasicConstraintsValid)
	require.True(t, cert.BasicConstraints.IsCA)
	require.True(t, cert.HasSKI)
	require.Equal(t, oid.KeyRSA, cert.PublicKeyAlgID)
	require.Equal(t, oid.SigSHA256WithRSA, cert.SignatureAlgID)
}

func TestParseCertificateLeafNotCA(t *testing.T) {
	der := buildCertDER(t, "leaf.example.com", false)
	cert, err := ParseCertificate(der)
	require.NoError(t, err)
	require.True(t, cert.BasicConstraintsValid)
	require.False(t, cert.BasicConstraints.IsCA)
}

// TestParseCertificateOCSPNoCheck exercises the id-pkix-ocsp-nocheck
// extension, registered under oid.CertExtType alongside oid.OcspType
// so applyExtensions can actually resolve it.
func TestParseCertificateOCSPNoCheck(t *testing.T) {
	der := buildCertDERWithOCSPNoCheck(t, "ocsp-responder.example.com")
	cert, err := ParseCertificate(der)
	require.NoError(t, err)
	require.True(t, cert.OCSPNoCheck)
}

// buildCertDERWithOCSPNoCheck is a trimmed variant of buildCertDER
// that adds the ocspNoCheck extension instead of BasicConstraints.
func buildCertDERWithOCSPNoCheck(t *testing.T, cn string) []byte {
	t.Helper()
	sigOID, err := oid.Bytes(oid.SigType, oid.SigSHA256WithRSA)
	require.NoError(t, err)
	name := cnName(t, cn)
	spki := rsaSPKI(t)

	notBefore := derasn1.DateTime{Year: 2024, Mon: 1, Day: 1, Hour: 0, Min: 0, Sec: 0}
	notAfter := derasn1.DateTime{Year: 2034, Mon: 1, Day: 1, Hour: 0, Min: 0, Sec: 0}
	var validity []byte
	validity = derasn1.EncodeUTCTime(validity, notBefore)
	validity = derasn1.EncodeUTCTime(validity, notAfter)
	var validitySeq []byte
	validitySeq = derasn1.EncodeHeader(validitySeq, derasn1.TagSequence|0x20, len(validity))
	validitySeq = append(validitySeq, validity...)

	noCheckOID, err := oid.Bytes(oid.CertExtType, oid.ExtOCSPNoCheck)
	require.NoError(t, err)
	exts := []pkix.Extension{
		{OIDRaw: noCheckOID, Value: derasn1.EncodeNull(nil)},
	}
	extBlock := pkix.EncodeExtensions(nil, exts)
	var extWrapper []byte
	extWrapper = append(extWrapper, derasn1.ContextTag(3, true))
	extWrapper = derasn1.EncodeLength(extWrapper, len(extBlock))
	extWrapper = append(extWrapper, extBlock...)

	var tbs []byte
	var versionField []byte
	versionField = derasn1.EncodeUint64(versionField, 2)
	var versionWrapper []byte
	versionWrapper = append(versionWrapper, derasn1.ContextTag(0, true))
	versionWrapper = derasn1.EncodeLength(versionWrapper, len(versionField))
	versionWrapper = append(versionWrapper, versionField...)
	tbs = append(tbs, versionWrapper...)
	tbs = derasn1.EncodeInteger(tbs, []byte{0x01})
	tbs = pkix.EncodeAlgorithmIdentifier(tbs, sigOID, true)
	tbs = append(tbs, name...)
	tbs = append(tbs, validitySeq...)
	tbs = append(tbs, name...)
	tbs = append(tbs, spki...)
	tbs = append(tbs, extWrapper...)

	var tbsSeq []byte
	tbsSeq = derasn1.EncodeHeader(tbsSeq, derasn1.TagSequence|0x20, len(tbs))
	tbsSeq = append(tbsSeq, tbs...)

	var cert []byte
	cert = append(cert, tbsSeq...)
	cert = pkix.EncodeAlgorithmIdentifier(cert, sigOID, true)
	cert = derasn1.EncodeBitString(cert, make([]byte, 16), 0)

	var certSeq []byte
	certSeq = derasn1.EncodeHeader(certSeq, derasn1.TagSequence|0x20, len(cert))
	return append(certSeq, cert...)
}

func TestParseCertificateSignatureOidMismatch(t *testing.T) {
	der := buildCertDER(t, "leaf.example.com", false)
	// corrupt the outer signatureAlgorithm OID's last content byte so
	// it no longer matches the inner tbsCertificate one.
	corrupt := append([]byte(nil), der...)
	sigOID, err := oid.Bytes(oid.SigType, oid.SigSHA256WithRSA)
	require.NoError(t, err)
	idx := -1
	for i := len(corrupt) - 1; i >= 0; i-- {
		if i+len(sigOID) <= len(corrupt) && equalBytes(corrupt[i:i+len(sigOID)], sigOID) {
			idx = i
			break
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	corrupt[idx+len(sigOID)-1] ^= 0xFF
	_, err = ParseCertificate(corrupt)
	require.Error(t, err)
}

func equalBytes(a, b []byte) bool {
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
