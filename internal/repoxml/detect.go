package repoxml

import (
	"bytes"
	"encoding/xml"
	"strconv"
)

// DetectVersion scans the buffer for a root-level element whose local name
// matches RootElement and extracts the schema version from its namespace
// declaration. It returns 0 when the document is unparsable, no such root
// exists, or the namespace does not match the repository pattern.
//
// This is the sole heuristic standing between a valid document and
// arbitrary garbage, so it tolerates malformed input of every kind and
// never returns an error: any decoding failure maps to 0.
func DetectVersion(data []byte) int {
	dec := xml.NewDecoder(bytes.NewReader(data))

	for {
		tok, err := dec.Token()
		if err != nil {
			// EOF or a syntax error before a recognizable root was found.
			return 0
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		// The decoder strips any prefix into Name.Space, so Local is the
		// prefix-free element name regardless of how the document spells it.
		if se.Name.Local == RootElement {
			if v := versionFromStart(se); v > 0 {
				return v
			}
		}

		// Only root-level elements are candidates; skip the whole subtree.
		if err := dec.Skip(); err != nil {
			return 0
		}
	}
}

// versionFromStart extracts the version from a start element's resolved
// namespace or from a literal xmlns/xmlns:prefix attribute. The attribute
// fallback covers documents whose namespace the decoder could not resolve.
func versionFromStart(se xml.StartElement) int {
	if v := versionFromURI(se.Name.Space); v > 0 {
		return v
	}

	for _, a := range se.Attr {
		isDefaultNS := a.Name.Space == "" && a.Name.Local == "xmlns"
		isPrefixedNS := a.Name.Space == "xmlns"
		if isDefaultNS || isPrefixedNS {
			if v := versionFromURI(a.Value); v > 0 {
				return v
			}
		}
	}

	return 0
}

func versionFromURI(uri string) int {
	m := nsPattern.FindStringSubmatch(uri)
	if m == nil {
		return 0
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return v
}
