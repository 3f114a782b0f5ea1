package pkcs7

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/sha1"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"

	"go.step.sm/ocsp/derasn1"
	"go.step.sm/ocsp/oid"
	"go.step.sm/ocsp/pkix"
)

func buildPBES1DER(t *testing.T, salt []byte, iterations int, encrypted []byte) []byte {
	t.Helper()
	schemeOID, err := oid.Bytes(oid.PBEType, oid.PBEWithSHA1AndDESCBC)
	require.NoError(t, err)

	var params []byte
	params = derasn1.EncodeOctetString(params, salt)
	params = derasn1.EncodeBigInt(params, big.NewInt(int64(iterations)))
	var paramsSeq []byte
	paramsSeq = derasn1.EncodeHeader(paramsSeq, derasn1.TagSequence|0x20, len(params))
	paramsSeq = append(paramsSeq, params...)

	var alg []byte
	alg = pkix.EncodeAlgorithmIdentifierWithParams(alg, schemeOID, paramsSeq)

	var body []byte
	body = append(body, alg...)
	body = derasn1.EncodeOctetString(body, encrypted)

	var out []byte
	out = derasn1.EncodeHeader(out, derasn1.TagSequence|0x20, len(body))
	return append(out, body...)
}

func TestParseEncryptedPrivateKeyInfoPBES1(t *testing.T) {
	salt := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	der := buildPBES1DER(t, salt, 2048, []byte{0, 1, 2, 3, 4, 5, 6, 7})

	info, err := ParseEncryptedPrivateKeyInfo(der)
	require.NoError(t, err)
	require.Equal(t, oid.PBEWithSHA1AndDESCBC, info.SchemeOID)
	require.Equal(t, salt, info.Salt)
	require.Equal(t, 2048, info.Iterations)
}

func TestDecryptPBES1DESRoundTrip(t *testing.T) {
	salt := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x11, 0x22}
	iterations := 1000
	password := []byte("correct horse battery staple")

	plaintext := []byte("PrivateKeyInfo-placeholder-DER-bytes")
	padLen := des.BlockSize - len(plaintext)%des.BlockSize
	padded := append(append([]byte{}, plaintext...), make([]byte, padLen)...)
	for i := len(plaintext); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}

	derived, err := pbkdf1(password, salt, iterations, des.BlockSize+des.BlockSize)
	require.NoError(t, err)
	key := derived[:des.BlockSize]
	iv := derived[des.BlockSize:]

	block, err := des.NewCipher(key)
	require.NoError(t, err)
	encrypted := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(encrypted, padded)

	der := buildPBES1DER(t, salt, iterations, encrypted)
	info, err := ParseEncryptedPrivateKeyInfo(der)
	require.NoError(t, err)

	decrypted, err := Decrypt(info, password)
	require.NoError(t, err)
	require.Equal(t, plaintext, decrypted)
}

func TestDecryptPBES1WrongPassword(t *testing.T) {
	salt := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	iterations := 1000
	password := []byte("right password")

	plaintext := []byte("12345678") // exactly one DES block, pads to two
	padLen := des.BlockSize - len(plaintext)%des.BlockSize
	padded := append(append([]byte{}, plaintext...), make([]byte, padLen)...)
	for i := len(plaintext); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}

	derived, err := pbkdf1(password, salt, iterations, des.BlockSize+des.BlockSize)
	require.NoError(t, err)
	block, err := des.NewCipher(derived[:des.BlockSize])
	require.NoError(t, err)
	encrypted := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, derived[des.BlockSize:]).CryptBlocks(encrypted, padded)

	der := buildPBES1DER(t, salt, iterations, encrypted)
	info, err := ParseEncryptedPrivateKeyInfo(der)
	require.NoError(t, err)

	_, err = Decrypt(info, []byte("wrong password"))
	require.Error(t, err)
}

func TestDecryptPKCS12SchemesUnimplemented(t *testing.T) {
	for _, id := range []int{oid.PBEWithSHA1And3KeyTripleDESCBC, oid.PBEWithSHA1And40BitRC2, oid.PBEWithSHA1AndRC4_128} {
		info := &EncryptedPrivateKeyInfo{SchemeOID: id}
		_, err := Decrypt(info, []byte("password"))
		require.ErrorIs(t, err, ErrPKCS12KDFUnsupported)
	}
}

func buildPBES2DER(t *testing.T, salt, iv []byte, iterations int, encrypted []byte) []byte {
	t.Helper()
	pbkdf2OID, err := oid.Bytes(oid.KdfType, oid.KdfPBKDF2)
	require.NoError(t, err)
	blockOID, err := oid.Bytes(oid.BlockType, oid.BlockAES128CBC)
	require.NoError(t, err)
	pbes2OID, err := oid.Bytes(oid.PBEType, oid.PBES2)
	require.NoError(t, err)

	var kdfParams []byte
	kdfParams = derasn1.EncodeOctetString(kdfParams, salt)
	kdfParams = derasn1.EncodeBigInt(kdfParams, big.NewInt(int64(iterations)))
	var kdfParamsSeq []byte
	kdfParamsSeq = derasn1.EncodeHeader(kdfParamsSeq, derasn1.TagSequence|0x20, len(kdfParams))
	kdfParamsSeq = append(kdfParamsSeq, kdfParams...)

	var kdfAlg []byte
	kdfAlg = pkix.EncodeAlgorithmIdentifierWithParams(kdfAlg, pbkdf2OID, kdfParamsSeq)

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
	return append(out, body...)
}

func TestDecryptPBES2AES128RoundTrip(t *testing.T) {
	salt := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	iv := make([]byte, 16)
	for i := range iv {
		iv[i] = byte(i)
	}
	iterations := 2048
	password := []byte("hunter2")

	plaintext := []byte("0123456789abcdef0123456789") // pads to multiple of 16
	padLen := 16 - len(plaintext)%16
	padded := append(append([]byte{}, plaintext...), make([]byte, padLen)...)
	for i := len(plaintext); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}

	key := derivePBKDF2ForTest(password, salt, iterations, 16)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	encrypted := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(encrypted, padded)

	der := buildPBES2DER(t, salt, iv, iterations, encrypted)
	info, err := ParseEncryptedPrivateKeyInfo(der)
	require.NoError(t, err)
	require.Equal(t, oid.PBES2, info.SchemeOID)
	require.Equal(t, oid.BlockAES128CBC, info.EncryptionScheme)
	require.Equal(t, oid.HmacSHA1, info.KDFPRF)

	decrypted, err := Decrypt(info, password)
	require.NoError(t, err)
	require.Equal(t, plaintext, decrypted)
}

func TestEncryptPBES2DecryptRoundTrip(t *testing.T) {
	password := []byte("s3cret")
	plaintext := []byte("the quick brown fox jumps over the lazy dog")

	var callCount int
	fakeRnd := func(buf []byte) error {
		for i := range buf {
			buf[i] = byte(i + callCount)
		}
		callCount++
		return nil
	}

	der, err := EncryptPBES2(plaintext, password, oid.BlockAES128CBC, 12, 1000, fakeRnd)
	require.NoError(t, err)

	info, err := ParseEncryptedPrivateKeyInfo(der)
	require.NoError(t, err)

	decrypted, err := Decrypt(info, password)
	require.NoError(t, err)
	require.Equal(t, plaintext, decrypted)
}

// derivePBKDF2ForTest derives the AES-128 key the same way decryptPBES2
// does (PBKDF2 with HMAC-SHA1, the scheme's DEFAULT prf), so the fixture
// ciphertext in TestDecryptPBES2AES128RoundTrip matches what Decrypt expects.
func derivePBKDF2ForTest(password, salt []byte, iterations, keyLen int) []byte {
	return pbkdf2.Key(password, salt, iterations, keyLen, sha1.New)
}
