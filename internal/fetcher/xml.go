package fetcher

import (
	"encoding/xml"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// NewXMLDecoder returns a decoder that understands any charset named in the
// XML prolog (utf-16, windows-1252, ...).
func NewXMLDecoder(r io.Reader) *xml.Decoder {
	d := xml.NewDecoder(r)
	d.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "xml: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}
	return d
}

// DecodeElements decodes every element whose local name matches, at any
// depth, ignoring namespaces. It is how SOAP bodies are unpacked without
// modelling the envelope.
func DecodeElements[T any](r io.Reader, localName string) ([]T, error) {
	d := NewXMLDecoder(r)

	var out []T
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "xml: read token")
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != localName {
			continue
		}

		var item T
		if err := d.DecodeElement(&item, &se); err != nil {
			return nil, eris.Wrapf(err, "xml: decode %s", localName)
		}
		out = append(out, item)
	}
}
