package repoxml

import (
	"fmt"
	"regexp"
)

const (
	// RootElement is the local name of the repository document's root element.
	RootElement = "sdk-repository"

	// IndexFilename is the canonical index filename appended to directory URLs.
	IndexFilename = "repository.xml"

	// LatestVersion is the newest schema version this engine can validate.
	LatestVersion = 2

	// namespaceBase is the common prefix of all repository schema namespaces.
	// The trailing path segment carries the schema version.
	namespaceBase = "http://schemas.sdkforge.dev/sdk/repository"
)

// Element local names understood by the repository schemas.
const (
	// ElemLicense is a shared license text block, referenced by id.
	ElemLicense = "license"

	// ElemPlatform describes an installable SDK platform.
	ElemPlatform = "platform"

	// ElemPlatformTool describes platform-specific tooling.
	ElemPlatformTool = "platform-tool"

	// ElemTool describes the self-updating SDK tooling package.
	ElemTool = "tool"

	// ElemDoc describes an offline documentation package.
	ElemDoc = "doc"

	// ElemSample describes a sample code package.
	ElemSample = "sample"

	// ElemAddon describes a third-party add-on package.
	ElemAddon = "add-on"

	// ElemExtra describes an extra, vendor-supplied component.
	ElemExtra = "extra"
)

// Child element and attribute names shared by package elements.
const (
	ElemRevision    = "revision"
	ElemDescription = "description"
	ElemUsesLicense = "uses-license"
	ElemAPILevel    = "api-level"
	ElemCodename    = "codename"
	ElemName        = "name"
	ElemVendor      = "vendor"
	ElemPath        = "path"

	AttrID  = "id"
	AttrRef = "ref"
)

// nsPattern matches a repository namespace URI and captures the version.
var nsPattern = regexp.MustCompile(`^http://schemas\.sdkforge\.dev/sdk/repository/([1-9][0-9]*)$`)

// NamespaceURI returns the namespace URI for the given schema version.
// It doubles as the canonical schema URI reported on successful validation.
func NamespaceURI(version int) string {
	return fmt.Sprintf("%s/%d", namespaceBase, version)
}
