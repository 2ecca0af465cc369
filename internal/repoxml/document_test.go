package repoxml

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument([]byte(validV2Doc))
	require.NoError(t, err)

	nsURI := NamespaceURI(2)
	root := doc.Root(nsURI, RootElement)
	require.NotNil(t, root)
	require.Len(t, root.Children, 3)

	license := root.Child(nsURI, ElemLicense)
	require.NotNil(t, license)
	assert.Equal(t, "license-main", license.AttrValue(AttrID))
	assert.Equal(t, "Terms and conditions apply.", license.TextContent())

	platform := root.Child(nsURI, ElemPlatform)
	require.NotNil(t, platform)
	assert.Equal(t, "34", platform.ChildText(nsURI, ElemAPILevel))
	assert.Equal(t, "2", platform.ChildText(nsURI, ElemRevision))

	usesLicense := platform.Child(nsURI, ElemUsesLicense)
	require.NotNil(t, usesLicense)
	assert.Equal(t, "license-main", usesLicense.AttrValue(AttrRef))
}

func TestParseDocumentPositions(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument([]byte(validV2Doc))
	require.NoError(t, err)

	root := doc.Elements[0]
	assert.Equal(t, 1, root.Line)

	platform := root.Child(NamespaceURI(2), ElemPlatform)
	require.NotNil(t, platform)
	assert.Equal(t, 3, platform.Line)
	assert.Equal(t, 3, platform.Col)
}

func TestParseDocumentErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty", doc: ""},
		{name: "truncated", doc: "<sdk-repository><tool>"},
		{name: "mismatched tags", doc: "<a><b></a></b>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseDocument([]byte(tt.doc))
			require.Error(t, err)

			var pe *ParseError
			assert.True(t, errors.As(err, &pe))
		})
	}
}
