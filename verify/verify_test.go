package verify

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"go.step.sm/ocsp/derasn1"
	"go.step.sm/ocsp/edkey"
	"go.step.sm/ocsp/oid"
	"go.step.sm/ocsp/x509cert"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// TestVerifySignatureEd25519RFC8032Vector exercises the Ed25519 branch
// of VerifySignature against RFC 8032 §7.1 TEST 1 (the empty-message
// vector), the one signature this module can check without a live
// signing step.
func TestVerifySignatureEd25519RFC8032Vector(t *testing.T) {
	pubValue := mustHex(t, "d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511")
	sig := mustHex(t, "e5564300c360ac729086e2cc806e828a84877f1eb8e5d974d873e06522490155fb8821590a33bacc61e39701cf9b46bd25bf5f0595bbe24655141438e7a100b")

	spki := edkey.EncodePublicKey(nil, edkey.PublicKey{KeyID: oid.KeyEd25519, Value: pubValue})

	err := VerifySignature(nil, sig, oid.SigEd25519, oid.KeyEd25519, spki)
	require.NoError(t, err)
}

func TestVerifySignatureEd25519BadSignature(t *testing.T) {
	pubValue := mustHex(t, "d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511")
	sig := mustHex(t, "e5564300c360ac729086e2cc806e828a84877f1eb8e5d974d873e06522490155fb8821590a33bacc61e39701cf9b46bd25bf5f0595bbe24655141438e7a1000")

	spki := edkey.EncodePublicKey(nil, edkey.PublicKey{KeyID: oid.KeyEd25519, Value: pubValue})

	err := VerifySignature(nil, sig, oid.SigEd25519, oid.KeyEd25519, spki)
	require.ErrorIs(t, err, ErrConfirmFail)
}

func TestVerifySignatureWrongKeyAlgorithm(t *testing.T) {
	pubValue := mustHex(t, "d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511")
	spki := edkey.EncodePublicKey(nil, edkey.PublicKey{KeyID: oid.KeyEd25519, Value: pubValue})
	sig := make([]byte, 64)

	err := VerifySignature(nil, sig, oid.SigEd25519, oid.KeyRSA, spki)
	require.Error(t, err)
}

func TestPathLengthPolicyAbsent(t *testing.T) {
	remaining, present, err := PathLengthPolicy(Signer{}, false)
	require.NoError(t, err)
	require.False(t, present)
	require.Equal(t, 0, remaining)
}

func TestPathLengthPolicyExhaustedRejectsIntermediate(t *testing.T) {
	parent := Signer{MaxPathLenPresent: true, MaxPathLen: 0}
	_, _, err := PathLengthPolicy(parent, false)
	require.ErrorIs(t, err, ErrPathLengthInvalid)
}

func TestPathLengthPolicyExhaustedAllowsLeaf(t *testing.T) {
	parent := Signer{MaxPathLenPresent: true, MaxPathLen: 0}
	remaining, present, err := PathLengthPolicy(parent, true)
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, 0, remaining)
}

func TestPathLengthPolicyDecrements(t *testing.T) {
	parent := Signer{MaxPathLenPresent: true, MaxPathLen: 3}
	remaining, present, err := PathLengthPolicy(parent, false)
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, 2, remaining)
}

func TestDatePolicy(t *testing.T) {
	notBefore := derasn1.DateTime{Year: 2024, Mon: 1, Day: 1}
	notAfter := derasn1.DateTime{Year: 2024, Mon: 12, Day: 31}
	now := derasn1.DateTime{Year: 2024, Mon: 6, Day: 15}

	beforeOK, afterOK := DatePolicy(notBefore, notAfter, now, 0)
	require.True(t, beforeOK)
	require.True(t, afterOK)

	expired := derasn1.DateTime{Year: 2025, Mon: 1, Day: 1}
	_, afterOK = DatePolicy(notBefore, notAfter, expired, 0)
	require.False(t, afterOK)

	notYet := derasn1.DateTime{Year: 2023, Mon: 1, Day: 1}
	beforeOK, _ = DatePolicy(notBefore, notAfter, notYet, 0)
	require.False(t, beforeOK)
}

func TestCRLKeyUsagePolicy(t *testing.T) {
	signerNoUsageBit := Signer{HasKeyUsage: true, KeyUsage: x509cert.KeyUsageDigitalSignature}
	require.ErrorIs(t, CRLKeyUsagePolicy(signerNoUsageBit, true), ErrCrlSignKeyUsage)

	signerWithBit := Signer{HasKeyUsage: true, KeyUsage: x509cert.KeyUsageCRLSign}
	require.NoError(t, CRLKeyUsagePolicy(signerWithBit, true))

	require.NoError(t, CRLKeyUsagePolicy(signerNoUsageBit, false))

	noKeyUsageAtAll := Signer{}
	require.NoError(t, CRLKeyUsagePolicy(noKeyUsageAtAll, true))
}

func TestOCSPResponderAuthorized(t *testing.T) {
	issuerHash := [20]byte{1, 2, 3}

	// case (a): the issuing CA itself responds
	require.True(t, OCSPResponderAuthorized(issuerHash, issuerHash, true, 0, false))

	// case (b): a delegated responder with id-kp-OCSPSigning
	require.True(t, OCSPResponderAuthorized(issuerHash, issuerHash, false, x509cert.EKUOCSPSigning, false))

	// neither (a) nor (b), and allowAnySigner is false
	otherHash := [20]byte{9, 9, 9}
	require.False(t, OCSPResponderAuthorized(issuerHash, otherHash, false, 0, false))

	// case (c): explicitly permitted
	require.True(t, OCSPResponderAuthorized(issuerHash, otherHash, false, 0, true))
}

type fakeStore struct {
	byKey     map[string]Signer
	byName    map[[20]byte]Signer
	byNameKey map[[20]byte]Signer
}

func (f fakeStore) ByKeyHash(id []byte) (Signer, bool) {
	s, ok := f.byKey[string(id)]
	return s, ok
}

func (f fakeStore) ByNameHash(hash [20]byte) (Signer, bool) {
	s, ok := f.byName[hash]
	return s, ok
}

func (f fakeStore) ByNameAndKey(nameHash [20]byte, _ []byte) (Signer, bool) {
	s, ok := f.byNameKey[nameHash]
	return s, ok
}

func TestFindIssuerByAuthorityKeyID(t *testing.T) {
	aki := []byte{0xAA, 0xBB, 0xCC}
	cert := &x509cert.Certificate{HasAKI: true, AuthorityKeyID: aki}
	store := fakeStore{byKey: map[string]Signer{string(aki): {PubKeyAlgID: oid.KeyRSA}}}

	signer, err := FindIssuer(cert, store)
	require.NoError(t, err)
	require.Equal(t, oid.KeyRSA, signer.PubKeyAlgID)
}

func TestFindIssuerFallsBackToNameHash(t *testing.T) {
	nameHash := [20]byte{1, 2, 3, 4}
	cert := &x509cert.Certificate{IssuerSHA1: nameHash}
	store := fakeStore{byName: map[[20]byte]Signer{nameHash: {PubKeyAlgID: oid.KeyEC}}}

	signer, err := FindIssuer(cert, store)
	require.NoError(t, err)
	require.Equal(t, oid.KeyEC, signer.PubKeyAlgID)
}

func TestFindIssuerNoMatch(t *testing.T) {
	cert := &x509cert.Certificate{}
	store := fakeStore{}

	_, err := FindIssuer(cert, store)
	require.ErrorIs(t, err, ErrNoSigner)
}

func TestCriticalExtensionPolicy(t *testing.T) {
	cert := &x509cert.Certificate{CriticalExtensionUnknown: true}
	require.ErrorIs(t, CriticalExtensionPolicy(cert, ModeStrict), ErrCriticalExtensionUnknown)
	require.NoError(t, CriticalExtensionPolicy(cert, ModeNoVerify))

	clean := &x509cert.Certificate{}
	require.NoError(t, CriticalExtensionPolicy(clean, ModeStrict))
}
