// Package packages defines the installable package descriptors parsed from
// a repository index document, the trust-gated factory that constructs
// them, and their deterministic ordering.
package packages

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sdkforge/repo-resolver/internal/repoxml"
)

// Type identifies a package variant. The set is closed: dispatch happens by
// element name through New, never by open-ended subtyping.
type Type string

// Package variants, named after their repository elements.
const (
	TypePlatform     Type = repoxml.ElemPlatform
	TypePlatformTool Type = repoxml.ElemPlatformTool
	TypeTool         Type = repoxml.ElemTool
	TypeDoc          Type = repoxml.ElemDoc
	TypeSample       Type = repoxml.ElemSample
	TypeAddon        Type = repoxml.ElemAddon
	TypeExtra        Type = repoxml.ElemExtra
)

// Trust is a source's trust level. Only internal sources may contribute
// core platform-type packages; add-on sources are restricted to the add-on
// and extra variants so third parties can never masquerade as shipping
// core components.
type Trust string

const (
	// TrustInternal marks a trusted, internal source.
	TrustInternal Trust = "internal"

	// TrustAddon marks a third-party or user-added source.
	TrustAddon Trust = "addon"
)

// typeOrder defines the variant precedence used by the total order:
// platforms sort before tooling, tooling before documentation and samples,
// add-ons and extras last.
var typeOrder = map[Type]int{
	TypePlatform:     0,
	TypePlatformTool: 1,
	TypeTool:         2,
	TypeDoc:          3,
	TypeSample:       4,
	TypeAddon:        5,
	TypeExtra:        6,
}

// LicenseMap resolves shared license ids to license bodies. It is scoped to
// a single parse and never serialized on its own.
type LicenseMap map[string]string

// Package is one installable unit described by a source's index document.
// Packages are immutable once constructed.
type Package struct {
	Type        Type   `json:"type"`
	Name        string `json:"name,omitempty"`
	Vendor      string `json:"vendor,omitempty"`
	Path        string `json:"path,omitempty"`
	APILevel    int    `json:"apiLevel,omitempty"`
	Codename    string `json:"codename,omitempty"`
	Revision    int    `json:"revision"`
	Description string `json:"description,omitempty"`
	LicenseID   string `json:"licenseId,omitempty"`

	// License is the resolved license body for LicenseID. It is transient
	// parse state, never persisted.
	License string `json:"-"`

	// SourceURL is a back-reference to the originating source.
	SourceURL string `json:"sourceUrl,omitempty"`
}

// ShortDescription returns the one-line, user-visible summary.
func (p *Package) ShortDescription() string {
	switch p.Type {
	case TypePlatform:
		if p.Codename != "" {
			return fmt.Sprintf("SDK Platform %s (preview), revision %d", p.Codename, p.Revision)
		}
		return fmt.Sprintf("SDK Platform, API %d, revision %d", p.APILevel, p.Revision)
	case TypePlatformTool:
		return fmt.Sprintf("SDK Platform-tools, revision %d", p.Revision)
	case TypeTool:
		return fmt.Sprintf("SDK Tools, revision %d", p.Revision)
	case TypeDoc:
		if p.APILevel > 0 {
			return fmt.Sprintf("Documentation for API %d, revision %d", p.APILevel, p.Revision)
		}
		return fmt.Sprintf("Documentation, revision %d", p.Revision)
	case TypeSample:
		return fmt.Sprintf("Samples for API %d, revision %d", p.APILevel, p.Revision)
	case TypeAddon:
		return fmt.Sprintf("%s by %s, revision %d", p.Name, p.Vendor, p.Revision)
	case TypeExtra:
		return fmt.Sprintf("Extra %s (%s), revision %d", p.Path, p.Vendor, p.Revision)
	default:
		return fmt.Sprintf("%s, revision %d", p.Type, p.Revision)
	}
}

// Compare defines the package total order: variant precedence first, then
// API level descending (newest platforms first), then name, then revision
// descending.
func Compare(a, b *Package) int {
	if d := typeOrder[a.Type] - typeOrder[b.Type]; d != 0 {
		return d
	}
	if a.APILevel != b.APILevel {
		return b.APILevel - a.APILevel
	}
	if d := strings.Compare(sortName(a), sortName(b)); d != 0 {
		return d
	}
	return b.Revision - a.Revision
}

// Sort orders packages by the package total order, in place.
func Sort(pkgs []*Package) {
	sort.SliceStable(pkgs, func(i, j int) bool {
		return Compare(pkgs[i], pkgs[j]) < 0
	})
}

func sortName(p *Package) string {
	if p.Name != "" {
		return p.Name
	}
	return p.Path
}

// New constructs the package variant matching the element's local name,
// honoring the source trust level. It returns (nil, nil) when the element
// is not a package element, or when the variant is not constructible from
// the given trust level.
func New(el *repoxml.Element, nsURI string, licenses LicenseMap, trust Trust, sourceURL string) (*Package, error) {
	name := el.Name.Local

	// Add-ons and extras can come from any source, trusted or not.
	switch name {
	case repoxml.ElemAddon:
		return newAddon(el, nsURI, licenses, sourceURL)
	case repoxml.ElemExtra:
		return newExtra(el, nsURI, licenses, sourceURL)
	}

	// Everything else is a core component, loadable only from internal
	// sources, never from user-added ones.
	if trust != TrustInternal {
		return nil, nil
	}

	switch name {
	case repoxml.ElemPlatform:
		return newPlatform(el, nsURI, licenses, sourceURL)
	case repoxml.ElemPlatformTool:
		return newCommon(TypePlatformTool, el, nsURI, licenses, sourceURL)
	case repoxml.ElemTool:
		return newCommon(TypeTool, el, nsURI, licenses, sourceURL)
	case repoxml.ElemDoc:
		return newDoc(el, nsURI, licenses, sourceURL)
	case repoxml.ElemSample:
		return newSample(el, nsURI, licenses, sourceURL)
	}

	return nil, nil
}

// newCommon builds the fields shared by every variant.
func newCommon(t Type, el *repoxml.Element, nsURI string, licenses LicenseMap, sourceURL string) (*Package, error) {
	rev, err := intChild(el, nsURI, repoxml.ElemRevision)
	if err != nil {
		return nil, err
	}

	p := &Package{
		Type:        t,
		Revision:    rev,
		Description: el.ChildText(nsURI, repoxml.ElemDescription),
		SourceURL:   sourceURL,
	}

	if ul := el.Child(nsURI, repoxml.ElemUsesLicense); ul != nil {
		p.LicenseID = ul.AttrValue(repoxml.AttrRef)
		p.License = licenses[p.LicenseID]
	}

	return p, nil
}

func newPlatform(el *repoxml.Element, nsURI string, licenses LicenseMap, sourceURL string) (*Package, error) {
	p, err := newCommon(TypePlatform, el, nsURI, licenses, sourceURL)
	if err != nil {
		return nil, err
	}
	p.Name = el.ChildText(nsURI, repoxml.ElemName)
	p.Codename = el.ChildText(nsURI, repoxml.ElemCodename)

	if p.Codename == "" {
		p.APILevel, err = intChild(el, nsURI, repoxml.ElemAPILevel)
		if err != nil {
			return nil, err
		}
	} else if s := el.ChildText(nsURI, repoxml.ElemAPILevel); s != "" {
		// Previews may carry a provisional API level.
		if p.APILevel, err = intChild(el, nsURI, repoxml.ElemAPILevel); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func newDoc(el *repoxml.Element, nsURI string, licenses LicenseMap, sourceURL string) (*Package, error) {
	p, err := newCommon(TypeDoc, el, nsURI, licenses, sourceURL)
	if err != nil {
		return nil, err
	}
	if s := el.ChildText(nsURI, repoxml.ElemAPILevel); s != "" {
		if p.APILevel, err = intChild(el, nsURI, repoxml.ElemAPILevel); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func newSample(el *repoxml.Element, nsURI string, licenses LicenseMap, sourceURL string) (*Package, error) {
	p, err := newCommon(TypeSample, el, nsURI, licenses, sourceURL)
	if err != nil {
		return nil, err
	}
	if p.APILevel, err = intChild(el, nsURI, repoxml.ElemAPILevel); err != nil {
		return nil, err
	}
	return p, nil
}

func newAddon(el *repoxml.Element, nsURI string, licenses LicenseMap, sourceURL string) (*Package, error) {
	p, err := newCommon(TypeAddon, el, nsURI, licenses, sourceURL)
	if err != nil {
		return nil, err
	}

	p.Name = el.ChildText(nsURI, repoxml.ElemName)
	p.Vendor = el.ChildText(nsURI, repoxml.ElemVendor)
	if p.Name == "" {
		return nil, fmt.Errorf("missing <%s>", repoxml.ElemName)
	}
	if p.Vendor == "" {
		return nil, fmt.Errorf("missing <%s>", repoxml.ElemVendor)
	}

	if s := el.ChildText(nsURI, repoxml.ElemAPILevel); s != "" {
		if p.APILevel, err = intChild(el, nsURI, repoxml.ElemAPILevel); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func newExtra(el *repoxml.Element, nsURI string, licenses LicenseMap, sourceURL string) (*Package, error) {
	p, err := newCommon(TypeExtra, el, nsURI, licenses, sourceURL)
	if err != nil {
		return nil, err
	}

	p.Vendor = el.ChildText(nsURI, repoxml.ElemVendor)
	p.Path = el.ChildText(nsURI, repoxml.ElemPath)
	if p.Vendor == "" {
		return nil, fmt.Errorf("missing <%s>", repoxml.ElemVendor)
	}
	if p.Path == "" {
		return nil, fmt.Errorf("missing <%s>", repoxml.ElemPath)
	}

	return p, nil
}

// intChild parses the named child as a non-negative integer.
func intChild(el *repoxml.Element, nsURI, name string) (int, error) {
	s := el.ChildText(nsURI, name)
	if s == "" {
		return 0, fmt.Errorf("missing <%s>", name)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid <%s> value %q", name, s)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid <%s> value %d", name, v)
	}
	return v, nil
}
