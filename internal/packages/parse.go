package packages

import (
	"go.uber.org/zap"

	"github.com/sdkforge/repo-resolver/internal/repoxml"
)

// Parse walks a validated (or probed) repository document and constructs
// the package descriptors it declares.
//
// The walk takes two passes over the root's direct children: the first
// collects every license block into the LicenseMap so packages may
// reference licenses regardless of declaration order, the second
// dispatches each element to its variant constructor. A construction
// failure skips that element with a diagnostic; one bad entry never aborts
// the parse.
//
// The returned slice is sorted by the package total order and is never
// nil. Parse has no side effects beyond its return value.
func Parse(doc *repoxml.Document, schemaURI string, trust Trust, sourceURL string, log *zap.SugaredLogger) []*Package {
	pkgs := []*Package{}

	root := doc.Root(schemaURI, repoxml.RootElement)
	if root == nil {
		log.Warnf("Document has no <%s> root in namespace %s", repoxml.RootElement, schemaURI)
		return pkgs
	}

	licenses := LicenseMap{}
	for _, child := range root.Children {
		if child.Name.Space != schemaURI || child.Name.Local != repoxml.ElemLicense {
			continue
		}
		if id := child.AttrValue(repoxml.AttrID); id != "" {
			licenses[id] = child.TextContent()
		}
	}

	for _, child := range root.Children {
		if child.Name.Space != schemaURI || child.Name.Local == repoxml.ElemLicense {
			continue
		}

		p, err := New(child, schemaURI, licenses, trust, sourceURL)
		if err != nil {
			log.Warnf("Ignoring invalid <%s> element: %v", child.Name.Local, err)
			continue
		}
		if p == nil {
			// Not constructible from this trust level, or not a package
			// element at all.
			continue
		}

		log.Debugf("Found %s", p.ShortDescription())
		pkgs = append(pkgs, p)
	}

	Sort(pkgs)
	return pkgs
}
