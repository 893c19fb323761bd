package fetcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPart struct {
	PartNumber string `xml:"PartNumber"`
	Make       string `xml:"Make"`
}

func TestDecodeElements(t *testing.T) {
	body := `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ExactPartLookupResponse xmlns="http://b2b.marcone.com/">
      <ExactPartLookupResult>
        <PartInformation_v2><PartNumber>WR55X10025</PartNumber><Make>GEH</Make></PartInformation_v2>
        <PartInformation_v2><PartNumber>WR55X10026</PartNumber><Make>GEH</Make></PartInformation_v2>
      </ExactPartLookupResult>
    </ExactPartLookupResponse>
  </soap:Body>
</soap:Envelope>`

	parts, err := DecodeElements[testPart](strings.NewReader(body), "PartInformation_v2")
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, "WR55X10025", parts[0].PartNumber)
	assert.Equal(t, "GEH", parts[1].Make)
}

func TestDecodeElements_NoMatches(t *testing.T) {
	parts, err := DecodeElements[testPart](strings.NewReader("<root><other/></root>"), "PartInformation_v2")
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestDecodeElements_Charset(t *testing.T) {
	body := "<?xml version=\"1.0\" encoding=\"windows-1252\"?><r><PartInformation_v2><PartNumber>caf\xe9</PartNumber></PartInformation_v2></r>"

	parts, err := DecodeElements[testPart](strings.NewReader(body), "PartInformation_v2")
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "café", parts[0].PartNumber)
}

func TestDecodeElements_Malformed(t *testing.T) {
	_, err := DecodeElements[testPart](strings.NewReader("<r><PartInformation_v2>"), "PartInformation_v2")
	require.Error(t, err)
}
