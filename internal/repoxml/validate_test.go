package repoxml

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validV2Doc = `<sdk:sdk-repository xmlns:sdk="http://schemas.sdkforge.dev/sdk/repository/2">
  <sdk:license id="license-main">Terms and conditions apply.</sdk:license>
  <sdk:platform>
    <sdk:api-level>34</sdk:api-level>
    <sdk:revision>2</sdk:revision>
    <sdk:uses-license ref="license-main"/>
  </sdk:platform>
  <sdk:tool>
    <sdk:revision>7</sdk:revision>
  </sdk:tool>
</sdk:sdk-repository>`

func TestValidatorValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		doc         string
		version     int
		expectedURI string
		errContains string
	}{
		{
			name:        "valid version 2 document",
			doc:         validV2Doc,
			version:     2,
			expectedURI: "http://schemas.sdkforge.dev/sdk/repository/2",
		},
		{
			name: "valid version 1 document",
			doc: `<sdk-repository xmlns="http://schemas.sdkforge.dev/sdk/repository/1">
  <tool><revision>3</revision></tool>
</sdk-repository>`,
			version:     1,
			expectedURI: "http://schemas.sdkforge.dev/sdk/repository/1",
		},
		{
			name: "preview platform with codename and no api-level",
			doc: `<sdk-repository xmlns="http://schemas.sdkforge.dev/sdk/repository/2">
  <platform><codename>Quartz</codename><revision>1</revision></platform>
</sdk-repository>`,
			version:     2,
			expectedURI: "http://schemas.sdkforge.dev/sdk/repository/2",
		},
		{
			name: "sample element is not in version 1",
			doc: `<sdk-repository xmlns="http://schemas.sdkforge.dev/sdk/repository/1">
  <sample><revision>1</revision><api-level>34</api-level></sample>
</sdk-repository>`,
			version:     1,
			errContains: "unexpected element <sample>",
		},
		{
			name: "license missing id attribute",
			doc: `<sdk-repository xmlns="http://schemas.sdkforge.dev/sdk/repository/2">
  <license>body</license>
</sdk-repository>`,
			version:     2,
			errContains: `missing required attribute "id"`,
		},
		{
			name: "platform missing revision",
			doc: `<sdk-repository xmlns="http://schemas.sdkforge.dev/sdk/repository/2">
  <platform><api-level>34</api-level></platform>
</sdk-repository>`,
			version:     2,
			errContains: "missing required child <revision>",
		},
		{
			name: "undeclared child element",
			doc: `<sdk-repository xmlns="http://schemas.sdkforge.dev/sdk/repository/2">
  <tool><revision>1</revision><checksum>abc</checksum></tool>
</sdk-repository>`,
			version:     2,
			errContains: "unexpected element <checksum> inside <tool>",
		},
		{
			name:        "root in wrong namespace",
			doc:         `<sdk-repository xmlns="http://example.com/other"/>`,
			version:     2,
			errContains: "no <sdk-repository> root element",
		},
		{
			name:        "malformed xml",
			doc:         `<sdk-repository xmlns="http://schemas.sdkforge.dev/sdk/repository/2"><tool>`,
			version:     2,
			errContains: "line",
		},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			uri, err := v.Validate([]byte(tt.doc), tt.version)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.ErrorContains(t, err, tt.errContains)

				var invalid *InvalidDocumentError
				assert.ErrorAs(t, err, &invalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedURI, uri)
		})
	}
}

func TestValidatorValidateReportsPosition(t *testing.T) {
	t.Parallel()

	doc := `<sdk-repository xmlns="http://schemas.sdkforge.dev/sdk/repository/2">
  <bogus/>
</sdk-repository>`

	_, err := NewValidator().Validate([]byte(doc), 2)
	var invalid *InvalidDocumentError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 2, invalid.Line)
	assert.Greater(t, invalid.Col, 1)
}

func TestValidatorUnavailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{
			name: "definition missing entirely",
			fsys: fstest.MapFS{},
		},
		{
			name: "definition unparsable",
			fsys: fstest.MapFS{
				"schemas/sdk-repository-2.yaml": &fstest.MapFile{Data: []byte("root: [")},
			},
		},
		{
			name: "definition incomplete",
			fsys: fstest.MapFS{
				"schemas/sdk-repository-2.yaml": &fstest.MapFile{Data: []byte("root: sdk-repository")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := NewValidatorFromFS(tt.fsys)
			_, err := v.Validate([]byte(validV2Doc), 2)

			var unavailable *UnavailableError
			require.ErrorAs(t, err, &unavailable)
			assert.Equal(t, 2, unavailable.Version)

			// The two failure modes must never be conflated.
			var invalid *InvalidDocumentError
			assert.False(t, errors.As(err, &invalid))
		})
	}
}

func TestValidatorEmbeddedSchemasLoad(t *testing.T) {
	t.Parallel()

	v := NewValidator()
	for version := 1; version <= LatestVersion; version++ {
		def, err := v.loadSchema(version)
		require.NoError(t, err, "version %d", version)
		assert.Equal(t, RootElement, def.Root)
		assert.Equal(t, NamespaceURI(version), def.Namespace)
		assert.NotEmpty(t, def.Elements)
	}
}
