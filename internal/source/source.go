package source

import (
	"fmt"
	"strings"

	"github.com/sdkforge/repo-resolver/internal/packages"
	"github.com/sdkforge/repo-resolver/internal/repoxml"
)

// Source is one remote package-index endpoint. Identity is the URL: two
// sources with the same URL are the same source. The mutable fields
// (packages, description, fetch error, and the URL rewrite after a
// successful fallback) are written only by Loader.Load, which must not be
// invoked concurrently on the same instance.
type Source struct {
	url    string
	uiName string
	trust  packages.Trust

	pkgs        []*packages.Package
	description string
	fetchError  string
}

// New creates a source for the given URL. A URL naming a directory
// (trailing separator) has the canonical index filename appended, so the
// resource actually fetched is obvious to the user. uiName may be empty.
func New(url, uiName string, trust packages.Trust) *Source {
	if strings.HasSuffix(url, "/") {
		url += repoxml.IndexFilename
	}
	s := &Source{
		url:    url,
		uiName: uiName,
		trust:  trust,
	}
	s.description = s.defaultDescription()
	return s
}

// URL returns the index document URL for this source.
func (s *Source) URL() string {
	return s.url
}

// UIName returns the user-visible name. May be empty.
func (s *Source) UIName() string {
	return s.uiName
}

// Trust returns the source's trust level.
func (s *Source) Trust() packages.Trust {
	return s.trust
}

// Packages returns the packages found by the last successful load, or nil
// when the source has never been loaded successfully.
func (s *Source) Packages() []*packages.Package {
	return s.pkgs
}

// ClearPackages drops the loaded package list. Packages returns nil until
// the next successful load.
func (s *Source) ClearPackages() {
	s.pkgs = nil
}

// Description returns the long, multi-line description of the source.
func (s *Source) Description() string {
	return s.description
}

// ShortDescription returns the one-line label for the source.
func (s *Source) ShortDescription() string {
	if s.uiName != "" {
		return s.uiName
	}
	return s.url
}

// FetchError returns the error message from the last load, or "" when the
// last load succeeded.
func (s *Source) FetchError() string {
	return s.fetchError
}

func (s *Source) defaultDescription() string {
	if s.trust == packages.TrustAddon {
		desc := ""
		if s.uiName != "" {
			desc += "Add-on Provider: " + s.uiName + "\n"
		}
		return desc + "Add-on URL: " + s.url
	}
	return fmt.Sprintf("SDK Source: %s", s.url)
}

// apply publishes a finished load outcome onto the source. The package
// list is assigned only when the outcome carries one; a failed load leaves
// previously known packages untouched.
func (s *Source) apply(out *Outcome) {
	s.description = out.Description
	s.fetchError = out.Error
	if out.Packages != nil {
		s.pkgs = out.Packages
		s.url = out.URL
	}
}
