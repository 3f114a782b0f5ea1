package crl

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"go.step.sm/ocsp/derasn1"
	"go.step.sm/ocsp/oid"
	"go.step.sm/ocsp/pkix"
)

func issuerName(t *testing.T) []byte {
	t.Helper()
	oidRaw, err := oid.Bytes(oid.CertNameType, oid.NameCommonName)
	require.NoError(t, err)
	return pkix.EncodeName(nil, []pkix.AttributeTypeAndValue{
		{OIDRaw: oidRaw, Tag: derasn1.TagUTF8String, Value: []byte("Test Root CA")},
	})
}

func buildCRLDER(t *testing.T, revoked []RevokedCertificate) []byte {
	t.Helper()
	sigOID, err := oid.Bytes(oid.SigType, oid.SigSHA256WithRSA)
	require.NoError(t, err)
	name := issuerName(t)

	thisUpdate := derasn1.DateTime{Year: 2024, Mon: 1, Day: 1}
	nextUpdate := derasn1.DateTime{Year: 2024, Mon: 2, Day: 1}

	var tbs []byte
	tbs = derasn1.EncodeUint64(tbs, 1) // version v2
	tbs = pkix.EncodeAlgorithmIdentifier(tbs, sigOID, true)
	tbs = append(tbs, name...)
	tbs = derasn1.EncodeUTCTime(tbs, thisUpdate)
	tbs = derasn1.EncodeUTCTime(tbs, nextUpdate)

	if len(revoked) > 0 {
		var revokedBody []byte
		for _, r := range revoked {
			var entry []byte
			entry = derasn1.EncodeBigInt(entry, r.SerialNumber)
			entry = derasn1.EncodeUTCTime(entry, r.RevocationDate)
			var entrySeq []byte
			entrySeq = derasn1.EncodeHeader(entrySeq, derasn1.TagSequence|0x20, len(entry))
			entrySeq = append(entrySeq, entry...)
			revokedBody = append(revokedBody, entrySeq...)
		}
		var revokedSeq []byte
		revokedSeq = derasn1.EncodeHeader(revokedSeq, derasn1.TagSequence|0x20, len(revokedBody))
		revokedSeq = append(revokedSeq, revokedBody...)
		tbs = append(tbs, revokedSeq...)
	}

	var tbsSeq []byte
	tbsSeq = derasn1.EncodeHeader(tbsSeq, derasn1.TagSequence|0x20, len(tbs))
	tbsSeq = append(tbsSeq, tbs...)

	var out []byte
	out = append(out, tbsSeq...)
	out = pkix.EncodeAlgorithmIdentifier(out, sigOID, true)
	out = derasn1.EncodeBitString(out, make([]byte, 16), 0)

	var outSeq []byte
	outSeq = derasn1.EncodeHeader(outSeq, derasn1.TagSequence|0x20, len(out))
	return append(outSeq, out...)
}

func TestParseCertificateListEmpty(t *testing.T) {
	der := buildCRLDER(t, nil)
	list, err := ParseCertificateList(der)
	require.NoError(t, err)
	require.True(t, list.VersionPresent)
	require.Equal(t, 1, list.Version)
	require.Empty(t, list.RevokedCertificates)
	require.True(t, list.NextUpdatePresent)
	require.Equal(t, oid.SigSHA256WithRSA, list.SignatureAlgID)
}

func TestParseCertificateListWithRevoked(t *testing.T) {
	revoked := []RevokedCertificate{
		{SerialNumber: big.NewInt(42), RevocationDate: derasn1.DateTime{Year: 2024, Mon: 1, Day: 15}},
		{SerialNumber: big.NewInt(99), RevocationDate: derasn1.DateTime{Year: 2024, Mon: 1, Day: 20}},
	}
	der := buildCRLDER(t, revoked)
	list, err := ParseCertificateList(der)
	require.NoError(t, err)
	require.Len(t, list.RevokedCertificates, 2)
	require.Equal(t, big.NewInt(42), list.RevokedCertificates[0].SerialNumber)
	require.Equal(t, big.NewInt(99), list.RevokedCertificates[1].SerialNumber)
}

// TestCheckSignatureFromRejectsBadSignature exercises the
// CheckSignatureFrom entry point end to end: it feeds the parsed
// RawTBS/SignatureRaw/OuterSignatureAlgID through to verify, which
// must reject the fixture's zero-filled signature against a real RSA
// key rather than erroring out earlier for an unrelated reason.
func TestCheckSignatureFromRejectsBadSignature(t *testing.T) {
	der := buildCRLDER(t, nil)
	list, err := ParseCertificateList(der)
	require.NoError(t, err)

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
	var spkiSeq []byte
	spkiSeq = derasn1.EncodeHeader(spkiSeq, derasn1.TagSequence|0x20, len(spki))
	spkiSeq = append(spkiSeq, spki...)

	err = list.CheckSignatureFrom(oid.KeyRSA, spkiSeq)
	require.Error(t, err)
}
