package pkix

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go.step.sm/ocsp/derasn1"
)

func buildCNOnlyName(cn string) []byte {
	var atv []byte
	atv = derasn1.EncodeOIDBytes(atv, []byte{0x55, 0x04, 0x03}) // commonName
	atv = derasn1.EncodeHeader(atv, derasn1.TagUTF8String, len(cn))
	atv = append(atv, cn...)
	var seq []byte
	seq = derasn1.EncodeHeader(seq, derasn1.TagSequence|0x20, len(atv))
	seq = append(seq, atv...)
	var set []byte
	set = derasn1.EncodeHeader(set, derasn1.TagSet|0x20, len(seq))
	set = append(set, seq...)
	var name []byte
	name = derasn1.EncodeHeader(name, derasn1.TagSequence|0x20, len(set))
	return append(name, set...)
}

func TestParseNameSingleCN(t *testing.T) {
	der := buildCNOnlyName("example.com")
	c := derasn1.NewCursor(der)
	n, err := ParseName(c)
	require.NoError(t, err)
	require.Equal(t, c.Len(), c.Pos())
	require.Len(t, n.RDNs, 1)
	require.Equal(t, "example.com", string(n.RDNs[0].Value))
	require.Equal(t, "/CN=example.com", n.String())
	require.Equal(t, der, n.Raw)
}

func TestNameStringTruncates(t *testing.T) {
	n := Name{RDNs: []AttributeTypeAndValue{
		{NID: 0, Value: []byte(repeatA(300))},
	}}
	s := n.String()
	require.LessOrEqual(t, len(s), asnNameMax)
}

func repeatA(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return b
}
