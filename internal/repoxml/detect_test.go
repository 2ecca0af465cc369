package repoxml

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		doc      string
		expected int
	}{
		{
			name: "default namespace",
			doc: `<sdk-repository xmlns="http://schemas.sdkforge.dev/sdk/repository/1">
</sdk-repository>`,
			expected: 1,
		},
		{
			name: "prefixed namespace",
			doc: `<sdk:sdk-repository xmlns:sdk="http://schemas.sdkforge.dev/sdk/repository/2">
</sdk:sdk-repository>`,
			expected: 2,
		},
		{
			name: "attribute order does not matter",
			doc: `<sdk:sdk-repository foo="bar" xmlns:other="http://example.com/unrelated" ` +
				`xmlns:sdk="http://schemas.sdkforge.dev/sdk/repository/2">` +
				`</sdk:sdk-repository>`,
			expected: 2,
		},
		{
			name: "version newer than supported is still reported",
			doc: `<sdk-repository xmlns="http://schemas.sdkforge.dev/sdk/repository/42">
</sdk-repository>`,
			expected: 42,
		},
		{
			name:     "missing namespace declaration",
			doc:      `<sdk-repository></sdk-repository>`,
			expected: 0,
		},
		{
			name: "unrelated namespace",
			doc: `<sdk-repository xmlns="http://example.com/something/else">
</sdk-repository>`,
			expected: 0,
		},
		{
			name: "wrong root element name",
			doc: `<catalog xmlns="http://schemas.sdkforge.dev/sdk/repository/1">
</catalog>`,
			expected: 0,
		},
		{
			name:     "version zero is not a valid version",
			doc:      `<sdk-repository xmlns="http://schemas.sdkforge.dev/sdk/repository/0"/>`,
			expected: 0,
		},
		{
			name:     "namespace with trailing garbage",
			doc:      `<sdk-repository xmlns="http://schemas.sdkforge.dev/sdk/repository/1/extra"/>`,
			expected: 0,
		},
		{
			name:     "arbitrary html",
			doc:      `<html><body><p>not found</p></body></html>`,
			expected: 0,
		},
		{
			name:     "not xml at all",
			doc:      `{"servers": []}`,
			expected: 0,
		},
		{
			name:     "empty input",
			doc:      ``,
			expected: 0,
		},
		{
			name:     "truncated document",
			doc:      `<sdk-repository xmlns="http://schemas.sdkforge.dev/sdk/repo`,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, DetectVersion([]byte(tt.doc)))
		})
	}
}

func TestDetectVersionAllSupportedVersions(t *testing.T) {
	t.Parallel()

	for v := 1; v <= LatestVersion; v++ {
		doc := fmt.Sprintf(`<r:sdk-repository xmlns:r=%q></r:sdk-repository>`, NamespaceURI(v))
		assert.Equal(t, v, DetectVersion([]byte(doc)), "version %d", v)
	}
}
