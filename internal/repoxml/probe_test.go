package repoxml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeNewerSchemaExtractsToolingSubset(t *testing.T) {
	t.Parallel()

	doc := `<sdk:sdk-repository xmlns:sdk="http://schemas.sdkforge.dev/sdk/repository/9">
  <sdk:platform>
    <sdk:api-level>99</sdk:api-level>
    <sdk:revision>1</sdk:revision>
    <sdk:new-fangled-field>x</sdk:new-fangled-field>
  </sdk:platform>
  <sdk:tool>
    <sdk:revision>12</sdk:revision>
  </sdk:tool>
  <sdk:platform-tool>
    <sdk:revision>4</sdk:revision>
  </sdk:platform-tool>
</sdk:sdk-repository>`

	probed := ProbeNewerSchema([]byte(doc))
	require.NotNil(t, probed)

	nsURI := NamespaceURI(LatestVersion)
	root := probed.Root(nsURI, RootElement)
	require.NotNil(t, root, "probed root must live in the newest supported namespace")

	// Only the recognized subset survives, never the full document.
	require.Len(t, root.Children, 2)
	assert.Equal(t, ElemTool, root.Children[0].Name.Local)
	assert.Equal(t, ElemPlatformTool, root.Children[1].Name.Local)

	// Child elements are rewritten into the supported namespace too.
	assert.Equal(t, "12", root.Children[0].ChildText(nsURI, ElemRevision))
	assert.Equal(t, "4", root.Children[1].ChildText(nsURI, ElemRevision))
}

func TestProbeNewerSchemaNoSubset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "future document without tooling elements",
			doc: `<sdk-repository xmlns="http://schemas.sdkforge.dev/sdk/repository/9">
  <platform><api-level>99</api-level><revision>1</revision></platform>
</sdk-repository>`,
		},
		{
			name: "wrong root element",
			doc:  `<catalog><tool><revision>1</revision></tool></catalog>`,
		},
		{
			name: "unparsable document",
			doc:  `<sdk-repository><tool>`,
		},
		{
			name: "empty input",
			doc:  ``,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Nil(t, ProbeNewerSchema([]byte(tt.doc)))
		})
	}
}
