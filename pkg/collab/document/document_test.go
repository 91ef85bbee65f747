package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/collab-duplicator/pkg/collab"
)

func mentionBlock(blockID, pageID string) *Block {
	return &Block{
		Type: "paragraph",
		Data: map[string]interface{}{
			"delta": []interface{}{
				map[string]interface{}{
					"insert": "a page",
					"attributes": map[string]interface{}{
						"mention": map[string]interface{}{
							"type":    "page",
							"page_id": pageID,
						},
					},
				},
			},
		},
	}
}

func TestLoadSetsBlockIDFromMapKey(t *testing.T) {
	enc, err := collab.Encode(struct {
		Blocks map[string]*Block `json:"blocks"`
		Meta   Meta               `json:"meta"`
	}{Blocks: map[string]*Block{"b1": {Type: "paragraph", Data: map[string]interface{}{}}}})
	require.NoError(t, err)

	d, err := Load(enc)
	require.NoError(t, err)
	assert.Equal(t, "b1", d.Blocks["b1"].ID)
}

func TestPageMentionsFindsAndRewrites(t *testing.T) {
	d := &Data{Blocks: map[string]*Block{"b1": mentionBlock("b1", "old-page")}}

	refs := d.PageMentions()
	require.Len(t, refs, 1)
	assert.Equal(t, "old-page", refs[0].PageID)

	refs[0].Rewrite("new-page")
	refs = d.PageMentions()
	require.Len(t, refs, 1)
	assert.Equal(t, "new-page", refs[0].PageID)
}

func TestDatabaseBlocksFiltersByType(t *testing.T) {
	d := &Data{Blocks: map[string]*Block{
		"b1": {Type: "paragraph", Data: map[string]interface{}{}},
		"b2": {Type: "grid", Data: map[string]interface{}{"view_id": "v1", "parent_id": "p1"}},
	}}
	blocks := d.DatabaseBlocks()
	require.Len(t, blocks, 1)
	assert.Equal(t, "b2", blocks[0].ID)
}

func TestSetViewAndParentRequiresExistingKeys(t *testing.T) {
	b := &Block{Type: "grid", Data: map[string]interface{}{}}
	assert.Error(t, b.SetViewAndParent("v", "p"))

	b = &Block{Type: "grid", Data: map[string]interface{}{"view_id": "old-v", "parent_id": "old-p"}}
	require.NoError(t, b.SetViewAndParent("new-v", "new-p"))
	assert.Equal(t, "new-v", b.Data["view_id"])
	assert.Equal(t, "new-p", b.Data["parent_id"])
}

func TestRewriteTextMapMentionsUsesOnlyExistingMappings(t *testing.T) {
	entry := []interface{}{
		map[string]interface{}{
			"insert": "x",
			"attributes": map[string]interface{}{
				"mention": map[string]interface{}{"type": "page", "page_id": "known"},
			},
		},
	}
	enc, err := collab.Encode(entry)
	require.NoError(t, err)

	d := &Data{Meta: Meta{TextMap: map[string]string{"t1": string(enc.Data)}}}

	errs := d.RewriteTextMapMentions(func(oldID string) (string, bool) {
		if oldID == "known" {
			return "known-new", true
		}
		return "", false
	})
	assert.Empty(t, errs)
	assert.Contains(t, d.Meta.TextMap["t1"], "known-new")
}

func TestRewriteTextMapMentionsSkipsMalformedJSON(t *testing.T) {
	d := &Data{Meta: Meta{TextMap: map[string]string{"bad": "not json"}}}
	errs := d.RewriteTextMapMentions(func(string) (string, bool) { return "", false })
	assert.Len(t, errs, 1)
	assert.Equal(t, "not json", d.Meta.TextMap["bad"])
}
