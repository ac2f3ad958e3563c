package ingress

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"strings"
)

// metadataItem is one shairport-sync metadata <item>. type and code are four
// character codes, written either plainly or as eight hex digits; data may
// be base64 encoded.
type metadataItem struct {
	XMLName  xml.Name `xml:"item"`
	AttrType string   `xml:"type,attr"`
	Type     string   `xml:"type"`
	Code     string   `xml:"code"`
	Data     struct {
		Encoding string `xml:"encoding,attr"`
		Value    string `xml:",chardata"`
	} `xml:"data"`
}

// item is a decoded metadata item.
type item struct {
	typ  string
	code string
	data string
}

// parseItem decodes a single <item> fragment.
func parseItem(payload []byte) (item, error) {
	var m metadataItem
	if err := xml.Unmarshal(payload, &m); err != nil {
		return item{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	typ := m.Type
	if typ == "" {
		typ = m.AttrType
	}
	it := item{
		typ:  fourCC(typ),
		code: fourCC(m.Code),
		data: strings.TrimSpace(m.Data.Value),
	}
	if it.typ == "" || it.code == "" {
		return item{}, fmt.Errorf("%w: item without type or code", ErrMalformed)
	}
	if m.Data.Encoding == "base64" && it.data != "" {
		b, err := base64.StdEncoding.DecodeString(it.data)
		if err != nil {
			return item{}, fmt.Errorf("%w: item data: %v", ErrMalformed, err)
		}
		it.data = strings.TrimSpace(string(b))
	}
	return it, nil
}

// fourCC normalizes a code given as "core" or "636f7265".
func fourCC(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 8 {
		if b, err := hex.DecodeString(s); err == nil {
			return string(b)
		}
	}
	return s
}
