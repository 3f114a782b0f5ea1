// Package pkcs7 decodes and decrypts the PKCS #8 EncryptedPrivateKeyInfo
// body (also used by PKCS #12 password-based encryption): PBES1 and
// PBES2 parameter parsing, key derivation, and PKCS #5 v1.5 padding
// removal, grounded in the digitorus/pkcs7 EncryptedContentInfo shape.
package pkcs7

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/sha1"
	"crypto/sha256"
	"hash"
	"math/big"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"

	"go.step.sm/ocsp/derasn1"
	"go.step.sm/ocsp/oid"
	"go.step.sm/ocsp/pkix"
)

// EncryptedPrivateKeyInfo is the decoded
// `SEQUENCE { encryptionAlgorithm AlgorithmIdentifier, encryptedData
// OCTET STRING }` wrapper, before the password has been applied.
type EncryptedPrivateKeyInfo struct {
	// SchemeOID identifies a PBEType id (PBES1 variants, or PBES2)
	// resolved from encryptionAlgorithm.
	SchemeOID int

	// PBES1 fields, set when SchemeOID is one of the PBEWithSHA1And*
	// ids.
	Salt       []byte
	Iterations int

	// PBES2 fields, set when SchemeOID is oid.PBES2.
	KDFSalt          []byte
	KDFIterations    int
	KDFKeyLength     int // 0 when absent; derived from the cipher otherwise
	KDFPRF           int // oid.HmacType id, default oid.HmacSHA1
	EncryptionScheme int // oid.BlockType id
	IV               []byte

	EncryptedData []byte
}

// ParseEncryptedPrivateKeyInfo decodes the EncryptedPrivateKeyInfo
// SEQUENCE.
func ParseEncryptedPrivateKeyInfo(der []byte) (*EncryptedPrivateKeyInfo, error) {
	c := derasn1.NewCursor(der)
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return nil, err
	}
	end := c.Pos() + seqLen

	alg, err := pkix.ParseAlgorithmIdentifier(c)
	if err != nil {
		return nil, err
	}
	encryptedData, err := derasn1.ReadOctetString(c)
	if err != nil {
		return nil, err
	}
	if c.Pos() != end {
		return nil, derasn1.ParseError(end, "EncryptedPrivateKeyInfo did not consume its declared length")
	}

	info := &EncryptedPrivateKeyInfo{EncryptedData: encryptedData}

	if schemeID, ok := oid.Lookup(oid.PBEType, alg.OIDSum, alg.OIDRaw); ok && schemeID == oid.PBES2 {
		info.SchemeOID = oid.PBES2
		if err := parsePBES2Params(alg.ParamsRaw, info); err != nil {
			return nil, err
		}
		return info, nil
	}

	schemeID, ok := oid.Lookup(oid.PBEType, alg.OIDSum, alg.OIDRaw)
	if !ok {
		return nil, derasn1.ObjectIdError(c.Pos(), "unrecognised PBE scheme OID")
	}
	info.SchemeOID = schemeID
	if err := parsePBES1Params(alg.ParamsRaw, info); err != nil {
		return nil, err
	}
	return info, nil
}

// parsePBES1Params decodes `{ salt OCTET STRING (SIZE(8)), iterations
// INTEGER }`.
func parsePBES1Params(params []byte, info *EncryptedPrivateKeyInfo) error {
	c := derasn1.NewCursor(params)
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return err
	}
	end := c.Pos() + seqLen
	salt, err := derasn1.ReadOctetString(c)
	if err != nil {
		return err
	}
	iterations, err := derasn1.ReadBigInt(c, true)
	if err != nil {
		return err
	}
	if c.Pos() != end {
		return derasn1.ParseError(end, "PBEParameter did not consume its declared length")
	}
	info.Salt = salt
	info.Iterations = int(iterations.Int64())
	return nil
}

// parsePBES2Params decodes
// `{ keyDerivationFunc AlgorithmIdentifier, encryptionScheme AlgorithmIdentifier }`,
// where keyDerivationFunc's parameters are PBKDF2-params.
func parsePBES2Params(params []byte, info *EncryptedPrivateKeyInfo) error {
	c := derasn1.NewCursor(params)
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return err
	}
	end := c.Pos() + seqLen

	kdfAlg, err := pkix.ParseAlgorithmIdentifier(c)
	if err != nil {
		return err
	}
	kdfID, ok := oid.Lookup(oid.KdfType, kdfAlg.OIDSum, kdfAlg.OIDRaw)
	if !ok || kdfID != oid.KdfPBKDF2 {
		return derasn1.ObjectIdError(c.Pos(), "unsupported PBES2 key derivation function")
	}
	if err := parsePBKDF2Params(kdfAlg.ParamsRaw, info); err != nil {
		return err
	}

	encAlg, err := pkix.ParseAlgorithmIdentifier(c)
	if err != nil {
		return err
	}
	encID, ok := oid.Lookup(oid.BlockType, encAlg.OIDSum, encAlg.OIDRaw)
	if !ok {
		return derasn1.ObjectIdError(c.Pos(), "unsupported PBES2 encryption scheme")
	}
	info.EncryptionScheme = encID
	// encryptionScheme parameters are the IV, a plain OCTET STRING for
	// every CBC scheme this module supports.
	iv, err := derasn1.ReadOctetString(derasn1.NewCursor(encAlg.ParamsRaw))
	if err != nil {
		return err
	}
	info.IV = iv

	if c.Pos() != end {
		return derasn1.ParseError(end, "PBES2-params did not consume its declared length")
	}
	return nil
}

// parsePBKDF2Params decodes
// `{ salt OCTET STRING, iterationCount INTEGER, keyLength INTEGER OPTIONAL, prf AlgorithmIdentifier DEFAULT hmacWithSHA1 }`.
func parsePBKDF2Params(params []byte, info *EncryptedPrivateKeyInfo) error {
	c := derasn1.NewCursor(params)
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return err
	}
	end := c.Pos() + seqLen

	salt, err := derasn1.ReadOctetString(c)
	if err != nil {
		return err
	}
	iterations, err := derasn1.ReadBigInt(c, true)
	if err != nil {
		return err
	}
	info.KDFSalt = salt
	info.KDFIterations = int(iterations.Int64())
	info.KDFPRF = oid.HmacSHA1

	if c.Pos() < end {
		tag, err := c.PeekByte()
		if err != nil {
			return err
		}
		if tag == derasn1.TagInteger {
			keyLen, err := derasn1.ReadBigInt(c, true)
			if err != nil {
				return err
			}
			info.KDFKeyLength = int(keyLen.Int64())
		}
	}

	if c.Pos() < end {
		prfAlg, err := pkix.ParseAlgorithmIdentifier(c)
		if err != nil {
			return err
		}
		prfID, ok := oid.Lookup(oid.HmacType, prfAlg.OIDSum, prfAlg.OIDRaw)
		if !ok {
			return derasn1.ObjectIdError(c.Pos(), "unsupported PBKDF2 PRF")
		}
		info.KDFPRF = prfID
	}

	if c.Pos() != end {
		return derasn1.ParseError(end, "PBKDF2-params did not consume its declared length")
	}
	return nil
}

var ErrUnsupportedScheme = errors.New("pkcs7: unsupported PBE scheme")

// blockSizeFor returns the CBC block size for a oid.BlockType id.
func blockSizeFor(blockID int) (int, error) {
	switch blockID {
	case oid.BlockDESCBC, oid.BlockDESEDE3CBC:
		return des.BlockSize, nil
	case oid.BlockRC2CBC:
		return 8, nil
	case oid.BlockAES128CBC, oid.BlockAES256CBC:
		return 16, nil
	default:
		return 0, ErrUnsupportedScheme
	}
}

func keySizeFor(blockID int) (int, error) {
	switch blockID {
	case oid.BlockDESCBC:
		return 8, nil
	case oid.BlockDESEDE3CBC:
		return 24, nil
	case oid.BlockAES128CBC:
		return 16, nil
	case oid.BlockAES256CBC:
		return 32, nil
	default:
		return 0, ErrUnsupportedScheme
	}
}

func prfHashFor(prfID int) (func() hash.Hash, error) {
	switch prfID {
	case oid.HmacSHA1:
		return sha1.New, nil
	case oid.HmacSHA256:
		return sha256.New, nil
	default:
		return nil, ErrUnsupportedScheme
	}
}

// pbkdf1 implements the RFC 8018 §6.1.1 PBKDF1 derivation underlying
// pbeWithSHA1AndDES-CBC: T_1 = Hash(password||salt), T_i = Hash(T_{i-1})
// for the remaining iterations, DK = T_c truncated to outLen (which
// RFC 8018 requires to be at most the hash's output length — true for
// DES-CBC's 16-byte key+IV against SHA-1's 20-byte output).
func pbkdf1(password, salt []byte, iterations, outLen int) ([]byte, error) {
	if outLen > sha1.Size {
		return nil, errors.New("pkcs7: PBKDF1 cannot derive more bytes than the hash output")
	}
	h := sha1.New()
	h.Write(password)
	h.Write(salt)
	block := h.Sum(nil)
	for i := 1; i < iterations; i++ {
		h.Reset()
		h.Write(block)
		block = h.Sum(nil)
	}
	return block[:outLen], nil
}

func pkcs5UnpadBlockSize(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("pkcs7: ciphertext is not a multiple of the block size")
	}
	last := data[len(data)-1]
	padLen := int(last)
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, errors.New("pkcs7: invalid PKCS #5 padding")
	}
	for _, b := range data[len(data)-padLen:] {
		if b != last {
			return nil, errors.New("pkcs7: invalid PKCS #5 padding")
		}
	}
	return data[:len(data)-padLen], nil
}

// ErrPKCS12KDFUnsupported is returned for the three PBES1 OIDs that
// are actually PKCS #12 Appendix B.2 schemes (a diversifier-driven KDF
// distinct from PBKDF1, with no length ceiling tied to the hash
// output): pbeWithSHAAnd3-KeyTripleDES-CBC, pbeWithSHAAnd40BitRC2-CBC,
// and pbeWithSHAAnd128BitRC4. Only the genuine PKCS #5 PBKDF1 scheme
// (pbeWithSHA1AndDES-CBC, whose 16-byte key+IV fits inside SHA-1's
// 20-byte output) is implemented; the PKCS #12 KDF is intentionally
// left unimplemented rather than hand-derived without a way to check
// it against a known-answer test.
var ErrPKCS12KDFUnsupported = errors.New("pkcs7: PKCS #12 Appendix B key derivation is not implemented")

// Decrypt applies the password to info, deriving the key (and IV, for
// PBES1) per the scheme, decrypting in a freshly allocated buffer, and
// peeling PKCS #5 v1.5 padding. The returned bytes are the DER of the
// underlying PrivateKeyInfo.
func Decrypt(info *EncryptedPrivateKeyInfo, password []byte) ([]byte, error) {
	switch info.SchemeOID {
	case oid.PBEWithSHA1AndDESCBC:
		return decryptPBES1DES(info, password)
	case oid.PBEWithSHA1And3KeyTripleDESCBC, oid.PBEWithSHA1And40BitRC2, oid.PBEWithSHA1AndRC4_128:
		return nil, ErrPKCS12KDFUnsupported
	case oid.PBES2:
		return decryptPBES2(info, password)
	default:
		return nil, ErrUnsupportedScheme
	}
}

func decryptPBES1DES(info *EncryptedPrivateKeyInfo, password []byte) ([]byte, error) {
	derived, err := pbkdf1(password, info.Salt, info.Iterations, des.BlockSize+des.BlockSize)
	if err != nil {
		return nil, err
	}
	key := derived[:des.BlockSize]
	iv := derived[des.BlockSize:]

	block, err := des.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(info.EncryptedData)%des.BlockSize != 0 {
		return nil, errors.New("pkcs7: ciphertext is not a multiple of the block size")
	}
	out := make([]byte, len(info.EncryptedData))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, info.EncryptedData)
	return pkcs5UnpadBlockSize(out, des.BlockSize)
}

func decryptPBES2(info *EncryptedPrivateKeyInfo, password []byte) ([]byte, error) {
	keyLen, err := keySizeFor(info.EncryptionScheme)
	if err != nil {
		return nil, err
	}
	if info.KDFKeyLength != 0 {
		keyLen = info.KDFKeyLength
	}
	prfHash, err := prfHashFor(info.KDFPRF)
	if err != nil {
		return nil, err
	}
	key := pbkdf2.Key(password, info.KDFSalt, info.KDFIterations, keyLen, prfHash)

	var block cipher.Block
	switch info.EncryptionScheme {
	case oid.BlockDESCBC:
		block, err = des.NewCipher(key)
	case oid.BlockDESEDE3CBC:
		block, err = des.NewTripleDESCipher(key)
	case oid.BlockAES128CBC, oid.BlockAES256CBC:
		block, err = aes.NewCipher(key)
	default:
		return nil, ErrUnsupportedScheme
	}
	if err != nil {
		return nil, err
	}

	blockSize, err := blockSizeFor(info.EncryptionScheme)
	if err != nil {
		return nil, err
	}
	if len(info.EncryptedData)%blockSize != 0 {
		return nil, errors.New("pkcs7: ciphertext is not a multiple of the block size")
	}
	out := make([]byte, len(info.EncryptedData))
	cipher.NewCBCDecrypter(block, info.IV).CryptBlocks(out, info.EncryptedData)
	return pkcs5UnpadBlockSize(out, blockSize)
}

// EncryptPBES2 builds a fresh EncryptedPrivateKeyInfo DER encoding the
// given PrivateKeyInfo DER under password, using PBKDF2 plus the
// requested block cipher. Counterpart to Decrypt/decryptPBES2, used by
// callers that need to write, not just read, PKCS #8 encrypted keys.
func EncryptPBES2(privateKeyInfoDER, password []byte, blockID int, saltLen, iterations int, rnd func([]byte) error) ([]byte, error) {
	keyLen, err := keySizeFor(blockID)
	if err != nil {
		return nil, err
	}
	blockSize, err := blockSizeFor(blockID)
	if err != nil {
		return nil, err
	}

	salt := make([]byte, saltLen)
	if err := rnd(salt); err != nil {
		return nil, err
	}
	iv := make([]byte, blockSize)
	if err := rnd(iv); err != nil {
		return nil, err
	}

	key := pbkdf2.Key(password, salt, iterations, keyLen, sha1.New)

	var block cipher.Block
	switch blockID {
	case oid.BlockDESCBC:
		block, err = des.NewCipher(key)
	case oid.BlockDESEDE3CBC:
		block, err = des.NewTripleDESCipher(key)
	case oid.BlockAES128CBC, oid.BlockAES256CBC:
		block, err = aes.NewCipher(key)
	default:
		return nil, ErrUnsupportedScheme
	}
	if err != nil {
		return nil, err
	}

	padLen := blockSize - len(privateKeyInfoDER)%blockSize
	padded := make([]byte, len(privateKeyInfoDER)+padLen)
	copy(padded, privateKeyInfoDER)
	for i := len(privateKeyInfoDER); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}

	encrypted := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(encrypted, padded)

	return encodePBES2(encrypted, salt, iv, iterations, keyLen, blockID)
}

func encodePBES2(encrypted, salt, iv []byte, iterations, keyLen, blockID int) ([]byte, error) {
	pbkdf2OID, err := oid.Bytes(oid.KdfType, oid.KdfPBKDF2)
	if err != nil {
		return nil, err
	}
	blockOID, err := oid.Bytes(oid.BlockType, blockID)
	if err != nil {
		return nil, err
	}
	pbes2OID, err := oid.Bytes(oid.PBEType, oid.PBES2)
	if err != nil {
		return nil, err
	}

	var pbkdf2Params []byte
	pbkdf2Params = derasn1.EncodeOctetString(pbkdf2Params, salt)
	pbkdf2Params = derasn1.EncodeBigInt(pbkdf2Params, big.NewInt(int64(iterations)))
	pbkdf2Params = derasn1.EncodeBigInt(pbkdf2Params, big.NewInt(int64(keyLen)))
	var pbkdf2ParamsSeq []byte
	pbkdf2ParamsSeq = derasn1.EncodeHeader(pbkdf2ParamsSeq, derasn1.TagSequence|0x20, len(pbkdf2Params))
	pbkdf2ParamsSeq = append(pbkdf2ParamsSeq, pbkdf2Params...)

	var kdfAlg []byte
	kdfAlg = pkix.EncodeAlgorithmIdentifierWithParams(kdfAlg, pbkdf2OID, pbkdf2ParamsSeq)

	var encParams []byte
	encParams = derasn1.EncodeOctetString(encParams, iv)
	var encAlg []byte
	encAlg = pkix.EncodeAlgorithmIdentifierWithParams(encAlg, blockOID, encParams)

	var pbes2Params []byte
	pbes2Params = append(pbes2Params, kdfAlg...)
	pbes2Params = append(pbes2Params, encAlg...)
	var pbes2ParamsSeq []byte
	pbes2ParamsSeq = derasn1.EncodeHeader(pbes2ParamsSeq, derasn1.TagSequence|0x20, len(pbes2Params))
	pbes2ParamsSeq = append(pbes2ParamsSeq, pbes2Params...)

	var outerAlg []byte
	outerAlg = pkix.EncodeAlgorithmIdentifierWithParams(outerAlg, pbes2OID, pbes2ParamsSeq)

	var body []byte
	body = append(body, outerAlg...)
	body = derasn1.EncodeOctetString(body, encrypted)

	var out []byte
	out = derasn1.EncodeHeader(out, derasn1.TagSequence|0x20, len(body))
	return append(out, body...), nil
}
