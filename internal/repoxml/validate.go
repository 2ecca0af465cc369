package repoxml

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.yaml
var schemaFS embed.FS

// UnavailableError reports that no schema definition could be loaded for a
// version. This is an environment/packaging problem, distinct from a
// document failing validation.
type UnavailableError struct {
	Version int
	Err     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("no schema definition available for version %d: %v", e.Version, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// InvalidDocumentError reports that a document failed schema validation.
// Line and Col are 0 when no position is known.
type InvalidDocumentError struct {
	Line int
	Col  int
	Msg  string
}

func (e *InvalidDocumentError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d:%d: %s", e.Line, e.Col, e.Msg)
	}
	return e.Msg
}

// schemaDef is the embedded definition of one schema version's vocabulary.
type schemaDef struct {
	Root      string                `yaml:"root"`
	Namespace string                `yaml:"namespace"`
	Elements  map[string]elementDef `yaml:"elements"`
}

type elementDef struct {
	Attributes map[string]attrDef `yaml:"attributes"`
	Children   []string           `yaml:"children"`
	Required   []string           `yaml:"required"`
}

type attrDef struct {
	Required bool `yaml:"required"`
}

// Validator validates repository documents against the schema definitions
// bound to each supported version. The zero value is not usable; construct
// one with NewValidator. Validators are safe for concurrent use: the
// embedded definitions are read-only.
type Validator struct {
	fsys fs.FS
}

// NewValidator returns a Validator backed by the embedded schema set.
func NewValidator() *Validator {
	return &Validator{fsys: schemaFS}
}

// NewValidatorFromFS returns a Validator reading schema definitions from an
// alternate filesystem. Used by tests to simulate missing definitions.
func NewValidatorFromFS(fsys fs.FS) *Validator {
	return &Validator{fsys: fsys}
}

// Validate checks the buffer against the schema definition for version.
// On success it returns the canonical schema URI registered for that
// version. Failures are distinguishable by type: *UnavailableError means
// the environment has no definition for the version, *InvalidDocumentError
// means the document does not conform.
func (v *Validator) Validate(data []byte, version int) (string, error) {
	def, err := v.loadSchema(version)
	if err != nil {
		return "", &UnavailableError{Version: version, Err: err}
	}

	doc, err := ParseDocument(data)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			return "", &InvalidDocumentError{Line: pe.Line, Col: pe.Col, Msg: pe.Err.Error()}
		}
		return "", &InvalidDocumentError{Msg: err.Error()}
	}

	root := doc.Root(def.Namespace, def.Root)
	if root == nil {
		return "", &InvalidDocumentError{
			Msg: fmt.Sprintf("no <%s> root element declared in namespace %s", def.Root, def.Namespace),
		}
	}

	for _, child := range root.Children {
		if child.Name.Space != def.Namespace {
			// Foreign-namespace elements are not ours to judge.
			continue
		}
		if err := validateElement(child, def); err != nil {
			return "", err
		}
	}

	return def.Namespace, nil
}

// validateElement checks one direct child of the root against its
// definition: it must be a known element, carry its required attributes,
// use only declared children, and have all required children present.
func validateElement(el *Element, def *schemaDef) error {
	ed, ok := def.Elements[el.Name.Local]
	if !ok {
		return &InvalidDocumentError{
			Line: el.Line, Col: el.Col,
			Msg: fmt.Sprintf("unexpected element <%s>", el.Name.Local),
		}
	}

	for name, ad := range ed.Attributes {
		if ad.Required && el.AttrValue(name) == "" {
			return &InvalidDocumentError{
				Line: el.Line, Col: el.Col,
				Msg: fmt.Sprintf("element <%s> is missing required attribute %q", el.Name.Local, name),
			}
		}
	}

	for _, child := range el.Children {
		if child.Name.Space != def.Namespace {
			continue
		}
		if !slices.Contains(ed.Children, child.Name.Local) {
			return &InvalidDocumentError{
				Line: child.Line, Col: child.Col,
				Msg: fmt.Sprintf("unexpected element <%s> inside <%s>", child.Name.Local, el.Name.Local),
			}
		}
	}

	for _, required := range ed.Required {
		if el.Child(def.Namespace, required) == nil {
			return &InvalidDocumentError{
				Line: el.Line, Col: el.Col,
				Msg: fmt.Sprintf("element <%s> is missing required child <%s>", el.Name.Local, required),
			}
		}
	}

	return nil
}

func (v *Validator) loadSchema(version int) (*schemaDef, error) {
	raw, err := fs.ReadFile(v.fsys, fmt.Sprintf("schemas/sdk-repository-%d.yaml", version))
	if err != nil {
		return nil, err
	}

	var def schemaDef
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("malformed schema definition: %w", err)
	}
	if def.Root == "" || def.Namespace == "" {
		return nil, fmt.Errorf("incomplete schema definition for version %d", version)
	}

	return &def, nil
}
