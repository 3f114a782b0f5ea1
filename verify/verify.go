// Package verify implements chain/signature verification: the
// HASH→KEY→DO→CHECK signature pipeline, issuing-chain resolution over
// a caller-supplied signer store, and the path-length/date/critical-
// extension/CRL key-usage/OCSP responder policies applied once a
// signer has been found. No name-constraints policy is applied; the
// NameConstraints that x509cert decodes are not checked here.
package verify

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/md5"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"math/big"

	"github.com/pkg/errors"

	"go.step.sm/ocsp/derasn1"
	"go.step.sm/ocsp/eckey"
	"go.step.sm/ocsp/edkey"
	"go.step.sm/ocsp/internal/xlog"
	"go.step.sm/ocsp/oid"
	"go.step.sm/ocsp/rsakey"
	"go.step.sm/ocsp/x509cert"
)

// Options carries the optional collaborators this package's entry
// points accept; the zero value is always safe to use.
type Options struct {
	// Log receives Debugf/Tracef calls describing which branch of the
	// HASH→KEY→DO→CHECK pipeline or issuer-resolution fallback chain
	// was taken. Left nil, calls are dropped (xlog.Discard).
	Log xlog.Logger
}

func (o Options) log() xlog.Logger {
	if o.Log == nil {
		return xlog.Discard
	}
	return o.Log
}

// ErrConfirmFail is returned when a signature was checked but did not
// match.
var ErrConfirmFail = errors.New("verify: signature does not match")

// ErrUnknownOid is returned when a signature or hash algorithm OID is
// not one this pipeline implements.
var ErrUnknownOid = errors.New("verify: unknown signature algorithm")

func hashForSigAlg(sigAlgID int) (crypto.Hash, bool) {
	switch sigAlgID {
	case oid.SigMD2WithRSA:
		return crypto.Hash(0), false // MD2 is not linked into the stdlib hash registry
	case oid.SigMD5WithRSA:
		return crypto.MD5, true
	case oid.SigSHA1WithRSA, oid.SigSHA1WithECDSA, oid.SigDSAWithSHA1:
		return crypto.SHA1, true
	case oid.SigSHA224WithRSA, oid.SigSHA224WithECDSA:
		return crypto.SHA224, true
	case oid.SigSHA256WithRSA, oid.SigSHA256WithECDSA, oid.SigDSAWithSHA256:
		return crypto.SHA256, true
	case oid.SigSHA384WithRSA, oid.SigSHA384WithECDSA:
		return crypto.SHA384, true
	case oid.SigSHA512WithRSA, oid.SigSHA512WithECDSA:
		return crypto.SHA512, true
	default:
		return crypto.Hash(0), false
	}
}

func computeDigest(h crypto.Hash, data []byte) []byte {
	switch h {
	case crypto.MD5:
		sum := md5.Sum(data)
		return sum[:]
	case crypto.SHA1:
		sum := sha1.Sum(data)
		return sum[:]
	case crypto.SHA224:
		sum := sha256.Sum224(data)
		return sum[:]
	case crypto.SHA256:
		sum := sha256.Sum256(data)
		return sum[:]
	case crypto.SHA384:
		sum := sha512.Sum384(data)
		return sum[:]
	case crypto.SHA512:
		sum := sha512.Sum512(data)
		return sum[:]
	default:
		return nil
	}
}

func curveForID(curveID int) (elliptic.Curve, bool) {
	switch curveID {
	case oid.CurveP224:
		return elliptic.P224(), true
	case oid.CurveP256:
		return elliptic.P256(), true
	case oid.CurveP384:
		return elliptic.P384(), true
	case oid.CurveP521:
		return elliptic.P521(), true
	default:
		return nil, false
	}
}

// readECDSASignature decodes `Ecdsa-Sig-Value ::= SEQUENCE { r, s
// INTEGER }`, the universal encoding for ECDSA and DSA signatures.
func readECDSASignature(sig []byte) (r, s *big.Int, err error) {
	c := derasn1.NewCursor(sig)
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return nil, nil, err
	}
	end := c.Pos() + seqLen
	r, err = derasn1.ReadBigInt(c, true)
	if err != nil {
		return nil, nil, err
	}
	s, err = derasn1.ReadBigInt(c, true)
	if err != nil {
		return nil, nil, err
	}
	if c.Pos() != end {
		return nil, nil, derasn1.ParseError(end, "Ecdsa-Sig-Value did not consume its declared length")
	}
	return r, s, nil
}

// VerifySignature implements the HASH→KEY→DO→CHECK pipeline with a
// discarded log; see VerifySignatureOptions for the logged form.
func VerifySignature(tbs, sig []byte, sigAlgID, pubKeyAlgID int, spkiDER []byte) error {
	return VerifySignatureOptions(tbs, sig, sigAlgID, pubKeyAlgID, spkiDER, Options{})
}

// VerifySignatureOptions implements the HASH→KEY→DO→CHECK pipeline:
// tbs is the exact signed byte region, sig the raw signature value,
// sigAlgID the resolved oid.SigType id, pubKeyAlgID the resolved
// oid.KeyType id, and spkiDER the SubjectPublicKeyInfo DER the key
// packages already know how to parse. opts.Log receives a Debugf call
// naming which KEY branch was taken and a Tracef call when the CHECK
// step fails.
func VerifySignatureOptions(tbs, sig []byte, sigAlgID, pubKeyAlgID int, spkiDER []byte, opts Options) error {
	log := opts.log()
	switch sigAlgID {
	case oid.SigEd25519:
		log.Debugf("verify: KEY branch Ed25519")
		if pubKeyAlgID != oid.KeyEd25519 {
			return errors.Wrap(ErrUnknownOid, "signature algorithm Ed25519 with non-Ed25519 key")
		}
		pub, err := edkey.ParsePublicKey(spkiDER)
		if err != nil {
			return err
		}
		if !ed25519.Verify(ed25519.PublicKey(pub.Value), tbs, sig) {
			log.Tracef("verify: CHECK failed for Ed25519 signature")
			return ErrConfirmFail
		}
		return nil

	case oid.SigSHA1WithECDSA, oid.SigSHA224WithECDSA, oid.SigSHA256WithECDSA,
		oid.SigSHA384WithECDSA, oid.SigSHA512WithECDSA:
		log.Debugf("verify: KEY branch ECDSA, sigAlgID=%d", sigAlgID)
		if pubKeyAlgID != oid.KeyEC {
			return errors.Wrap(ErrUnknownOid, "ECDSA signature with non-EC key")
		}
		h, ok := hashForSigAlg(sigAlgID)
		if !ok {
			return ErrUnknownOid
		}
		pub, err := eckey.ParsePublicKey(spkiDER)
		if err != nil {
			return err
		}
		curve, ok := curveForID(pub.CurveID)
		if !ok {
			return errors.Wrap(ErrUnknownOid, "unresolved EC curve")
		}
		x, y := elliptic.Unmarshal(curve, pub.Point)
		if x == nil {
			return derasn1.ParseError(-1, "EC public key point does not lie on its curve")
		}
		ecdsaPub := &ecdsa.PublicKey{Curve: curve, X: x, Y: y}
		digest := computeDigest(h, tbs)
		r, s, err := readECDSASignature(sig)
		if err != nil {
			return err
		}
		if !ecdsa.Verify(ecdsaPub, digest, r, s) {
			log.Tracef("verify: CHECK failed for ECDSA signature")
			return ErrConfirmFail
		}
		return nil

	case oid.SigDSAWithSHA1, oid.SigDSAWithSHA256:
		return errors.New("verify: DSA signature verification is not implemented (legacy, out of scope)")

	default:
		log.Debugf("verify: KEY branch RSA, sigAlgID=%d", sigAlgID)
		if pubKeyAlgID != oid.KeyRSA {
			return errors.Wrap(ErrUnknownOid, "RSA-family signature with non-RSA key")
		}
		h, ok := hashForSigAlg(sigAlgID)
		if !ok {
			return ErrUnknownOid
		}
		pub, err := rsakey.ParsePublicKey(spkiDER)
		if err != nil {
			return err
		}
		rsaPub := &rsa.PublicKey{N: pub.N, E: int(pub.E.Int64())}
		digest := computeDigest(h, tbs)
		if err := rsa.VerifyPKCS1v15(rsaPub, h, digest, sig); err != nil {
			log.Tracef("verify: CHECK failed for RSA signature")
			return ErrConfirmFail
		}
		return nil
	}
}

// Signer is the X-CA collaborator's return value: the subset of an
// issuing CA's fields verification needs, independent of how the
// caller's store represents a full certificate.
type Signer struct {
	PubKeyAlgID       int
	PubKeyRaw         []byte
	KeyUsage          int
	HasKeyUsage       bool
	IsCA              bool
	MaxPathLen        int
	MaxPathLenPresent bool
	SubjectNameHash   [20]byte
	HasAKI            bool
	AuthorityKeyID    []byte
	HasSKI            bool
	SubjectKeyID      []byte
	ExtKeyUsage       int
}

// SignerStore is the X-CA collaborator: a caller-supplied lookup over
// trusted issuing certificates, keyed the two ways this module
// describes.
type SignerStore interface {
	ByKeyHash(id []byte) (Signer, bool)
	ByNameHash(hash [20]byte) (Signer, bool)
	// ByNameAndKey additionally supports OCSP's subject-name +
	// public-key equality fallback.
	ByNameAndKey(nameHash [20]byte, pubKeyRaw []byte) (Signer, bool)
}

// ErrNoSigner reports that no trusted signer could be resolved for a
// certificate.
var ErrNoSigner = errors.New("verify: no issuing signer found")

// FindIssuer resolves cert's issuing Signer from store with a
// discarded log; see FindIssuerOptions for the logged form.
func FindIssuer(cert *x509cert.Certificate, store SignerStore) (Signer, error) {
	return FindIssuerOptions(cert, store, Options{})
}

// FindIssuerOptions resolves cert's issuing Signer from store, trying
// Authority Key Identifier first, then the SHA-1 hash of the issuer
// Name, then a by-name fallback that is rejected if the fallback match
// carries an AKI that the child's (unresolved) AKI should have
// matched. opts.Log receives a Tracef call naming which of the three
// fallbacks resolved the issuer.
func FindIssuerOptions(cert *x509cert.Certificate, store SignerStore, opts Options) (Signer, error) {
	log := opts.log()
	if cert.HasAKI {
		if s, ok := store.ByKeyHash(cert.AuthorityKeyID); ok {
			log.Tracef("verify: issuer resolved by Authority Key Identifier")
			return s, nil
		}
	}
	if s, ok := store.ByNameHash(cert.IssuerSHA1); ok {
		log.Tracef("verify: issuer resolved by issuer name hash")
		return s, nil
	}
	if s, ok := store.ByNameAndKey(cert.IssuerSHA1, nil); ok {
		if cert.HasAKI && s.HasAKI {
			return Signer{}, errors.Wrap(ErrNoSigner, "by-name fallback match carries a mismatched Authority Key Identifier")
		}
		log.Tracef("verify: issuer resolved by name+key fallback")
		return s, nil
	}
	log.Debugf("verify: no issuer resolved for subject hash %x", cert.IssuerSHA1)
	return Signer{}, ErrNoSigner
}

// ErrPathLengthInvalid reports a basicConstraints pathLenConstraint
// violation.
var ErrPathLengthInvalid = errors.New("verify: PathLengthInvalid")

// PathLengthPolicy enforces this module's path-length rule for a
// non-self-signed CA parent. childIsLeaf distinguishes an end-entity
// certificate (no further pathLen consumption needed) from an
// intermediate CA.
func PathLengthPolicy(parent Signer, childIsLeaf bool) (remainingPathLen int, remainingPathLenPresent bool, err error) {
	if !parent.MaxPathLenPresent {
		return 0, false, nil
	}
	if parent.MaxPathLen == 0 && !childIsLeaf {
		return 0, false, ErrPathLengthInvalid
	}
	if childIsLeaf {
		return parent.MaxPathLen, true, nil
	}
	return parent.MaxPathLen - 1, true, nil
}

// DatePolicy checks notBefore/notAfter against now with an optional
// skew, returning which bound failed. Failures are deferred by the
// caller, not raised immediately, so the rest of the object still
// parses.
func DatePolicy(notBefore, notAfter, now derasn1.DateTime, skewSeconds int) (beforeOK, afterOK bool) {
	beforeOK = derasn1.ValidateDate(notBefore, now, derasn1.Before, skewSeconds)
	afterOK = derasn1.ValidateDate(notAfter, now, derasn1.After, skewSeconds)
	return beforeOK, afterOK
}

// ErrCrlSignKeyUsage reports that the CRL's signer lacks the cRLSign
// key usage bit this module requires unless key-usage checking is
// disabled.
var ErrCrlSignKeyUsage = errors.New("verify: CRL signer lacks the cRLSign key usage bit")

// CRLKeyUsagePolicy requires x509cert.KeyUsageCRLSign in the signer's
// keyUsage unless checkKeyUsage is false. A signer without a keyUsage
// extension (HasKeyUsage false) passes.
func CRLKeyUsagePolicy(signer Signer, checkKeyUsage bool) error {
	if !checkKeyUsage {
		return nil
	}
	if signer.HasKeyUsage && signer.KeyUsage&x509cert.KeyUsageCRLSign == 0 {
		return ErrCrlSignKeyUsage
	}
	return nil
}

// ErrBadResponder reports that an OCSP response's signer did not
// satisfy any of this module's three responder-authorization rules.
var ErrBadResponder = errors.New("verify: BadResponder")

// OCSPResponderAuthorized implements this module's three-way OCSP
// responder check: (a) the issuing CA itself, (b) a delegated
// responder certificate whose ExtendedKeyUsage contains
// id-kp-OCSPSigning and whose issuer equals the responding CA, or (c)
// under allowAnySigner, any CA that can validate the signature (the
// caller is responsible for having already confirmed the signature
// itself; this function only judges authorization, not cryptographic
// validity).
func OCSPResponderAuthorized(issuerSubjectHash [20]byte, responderIssuerHash [20]byte, responderIsCA bool, responderExtKeyUsage int, allowAnySigner bool) bool {
	if responderIssuerHash == issuerSubjectHash && responderIsCA {
		return true
	}
	if responderIssuerHash == issuerSubjectHash && responderExtKeyUsage&x509cert.EKUOCSPSigning != 0 {
		return true
	}
	return allowAnySigner
}

// ErrCriticalExtensionUnknown mirrors x509cert.Certificate's deferred
// flag as a policy error, returned by CriticalExtensionPolicy so
// callers can treat it uniformly with the pipeline's other errors.
var ErrCriticalExtensionUnknown = errors.New("verify: CriticalExtensionUnknown")

// VerifyMode selects how strictly CriticalExtensionPolicy treats a
// certificate's CriticalExtensionUnknown flag.
type VerifyMode int

const (
	ModeStrict VerifyMode = iota
	ModeNoVerify
)

// CriticalExtensionPolicy rejects a certificate carrying a critical
// extension this module did not recognize, unless mode is ModeNoVerify.
func CriticalExtensionPolicy(cert *x509cert.Certificate, mode VerifyMode) error {
	if mode == ModeNoVerify {
		return nil
	}
	if cert.CriticalExtensionUnknown {
		return ErrCriticalExtensionUnknown
	}
	return nil
}
