package repoxml

import "encoding/xml"

// compatibleElements are the self-update-capable elements the probe is
// willing to lift out of a future-schema document. The whole point of the
// probe is keeping the upgrade path alive, so only the tooling elements
// qualify.
var compatibleElements = []string{ElemTool, ElemPlatformTool}

// ProbeNewerSchema attempts to extract a backward-compatible subset from a
// document whose declared schema version is newer than LatestVersion. It
// returns a minimal synthetic document containing only the recognized
// tooling elements, rewritten into the newest supported namespace, or nil
// when no such subset exists.
//
// The resulting document deliberately bypasses schema validation: it is
// built from a hand-picked, trusted-shape subset only.
func ProbeNewerSchema(data []byte) *Document {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil
	}

	nsURI := NamespaceURI(LatestVersion)

	var subset []*Element
	for _, el := range doc.Elements {
		if el.Name.Local != RootElement {
			continue
		}
		for _, child := range el.Children {
			if isCompatibleElement(child.Name.Local) {
				subset = append(subset, rewriteNamespace(child, nsURI))
			}
		}
		break
	}

	if len(subset) == 0 {
		return nil
	}

	root := &Element{
		Name:     xml.Name{Space: nsURI, Local: RootElement},
		Children: subset,
	}
	return &Document{Elements: []*Element{root}}
}

func isCompatibleElement(local string) bool {
	for _, name := range compatibleElements {
		if name == local {
			return true
		}
	}
	return false
}

// rewriteNamespace deep-copies an element subtree into the given namespace.
func rewriteNamespace(el *Element, nsURI string) *Element {
	out := &Element{
		Name: xml.Name{Space: nsURI, Local: el.Name.Local},
		Attr: append([]xml.Attr(nil), el.Attr...),
		Text: el.Text,
		Line: el.Line,
		Col:  el.Col,
	}
	for _, child := range el.Children {
		out.Children = append(out.Children, rewriteNamespace(child, nsURI))
	}
	return out
}
