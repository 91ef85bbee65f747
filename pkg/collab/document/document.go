// Package document models the block/delta shape of a Document collab, as
// described in the published-collab wire formats: blocks keyed by block id,
// each carrying a "delta" array whose entries may hold a page-mention
// attribute, plus a meta.text_map of stringified delta arrays.
package document

import (
	"encoding/json"
	"fmt"

	"github.com/kasuganosora/collab-duplicator/pkg/collab"
)

// Block is one node of the document tree. ty distinguishes plain text blocks
// from embedded-database blocks ("grid", "board", "calendar").
type Block struct {
	ID   string                 `json:"-"`
	Type string                 `json:"ty"`
	Data map[string]interface{} `json:"data"`
}

// Meta carries the document's auxiliary maps.
type Meta struct {
	TextMap map[string]string `json:"text_map,omitempty"`
}

// Data is the full decoded document_data contract.
type Data struct {
	Blocks map[string]*Block `json:"blocks"`
	Meta   Meta               `json:"meta"`
}

// Load decodes an encoded Document collab into its document_data shape.
func Load(enc collab.EncodedV1) (*Data, error) {
	var raw struct {
		Blocks map[string]*Block `json:"blocks"`
		Meta   Meta               `json:"meta"`
	}
	if err := collab.Decode(enc, &raw); err != nil {
		return nil, fmt.Errorf("document: load: %w", err)
	}
	if raw.Blocks == nil {
		raw.Blocks = map[string]*Block{}
	}
	for id, b := range raw.Blocks {
		b.ID = id
		if b.Data == nil {
			b.Data = map[string]interface{}{}
		}
	}
	return &Data{Blocks: raw.Blocks, Meta: raw.Meta}, nil
}

// Encode re-serialises the document_data, preserving the CRDT state the way
// the caller left it (block ids come from the map keys).
func (d *Data) Encode() (collab.EncodedV1, error) {
	return collab.Encode(struct {
		Blocks map[string]*Block `json:"blocks"`
		Meta   Meta               `json:"meta"`
	}{Blocks: d.Blocks, Meta: d.Meta})
}

// MentionRef points at one page_id occurrence inside a block's delta array,
// letting callers rewrite it in place without re-walking the tree.
type MentionRef struct {
	PageID string
	set    func(string)
}

// Rewrite replaces the referenced page_id with newID.
func (m *MentionRef) Rewrite(newID string) {
	m.set(newID)
}

// PageMentions enumerates every `{"attributes":{"mention":{"type":"page",
// "page_id": ...}}}` entry under every block's delta array.
func (d *Data) PageMentions() []*MentionRef {
	var refs []*MentionRef
	for _, block := range d.Blocks {
		refs = append(refs, mentionsInDelta(block.Data)...)
	}
	return refs
}

func mentionsInDelta(data map[string]interface{}) []*MentionRef {
	deltaRaw, ok := data["delta"]
	if !ok {
		return nil
	}
	deltaArr, ok := deltaRaw.([]interface{})
	if !ok {
		return nil
	}
	var refs []*MentionRef
	for _, entry := range deltaArr {
		entryMap, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		if ref := mentionInEntry(entryMap); ref != nil {
			refs = append(refs, ref)
		}
	}
	return refs
}

func mentionInEntry(entry map[string]interface{}) *MentionRef {
	attrs, ok := entry["attributes"].(map[string]interface{})
	if !ok {
		return nil
	}
	mention, ok := attrs["mention"].(map[string]interface{})
	if !ok {
		return nil
	}
	if t, _ := mention["type"].(string); t != "page" {
		return nil
	}
	pageID, ok := mention["page_id"].(string)
	if !ok {
		return nil
	}
	m := mention
	return &MentionRef{
		PageID: pageID,
		set:    func(v string) { m["page_id"] = v },
	}
}

// DatabaseBlocks returns every block embedding a database view ("grid",
// "board" or "calendar").
func (d *Data) DatabaseBlocks() []*Block {
	var blocks []*Block
	for _, b := range d.Blocks {
		switch b.Type {
		case "grid", "board", "calendar":
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// ViewID reads data.view_id off an embedded-database block.
func (b *Block) ViewID() (string, error) {
	raw, ok := b.Data["view_id"]
	if !ok {
		return "", fmt.Errorf("view_id not found in block data")
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("view_id not a string")
	}
	return s, nil
}

// SetViewAndParent rewrites data.view_id and data.parent_id on an
// embedded-database block after its database has been duplicated.
func (b *Block) SetViewAndParent(viewID, parentID string) error {
	if _, ok := b.Data["view_id"]; !ok {
		return fmt.Errorf("view_id not found in block data")
	}
	if _, ok := b.Data["parent_id"]; !ok {
		return fmt.Errorf("parent_id not found in block data")
	}
	b.Data["view_id"] = viewID
	b.Data["parent_id"] = parentID
	return nil
}

// RewriteTextMapMentions rewrites page mentions inside meta.text_map using
// only the mappings lookup already knows about — no recursion happens here.
// A text_map value that fails to parse is reported but does not abort the
// caller; the document is still usable, just with that one entry untouched.
func (d *Data) RewriteTextMapMentions(lookup func(oldID string) (newID string, ok bool)) []error {
	var errs []error
	for key, val := range d.Meta.TextMap {
		var arr []interface{}
		if err := json.Unmarshal([]byte(val), &arr); err != nil {
			errs = append(errs, fmt.Errorf("text_map[%s]: parse: %w", key, err))
			continue
		}
		for _, entry := range arr {
			entryMap, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			ref := mentionInEntry(entryMap)
			if ref == nil {
				continue
			}
			if newID, ok := lookup(ref.PageID); ok {
				ref.Rewrite(newID)
			}
		}
		out, err := json.Marshal(arr)
		if err != nil {
			errs = append(errs, fmt.Errorf("text_map[%s]: re-encode: %w", key, err))
			continue
		}
		d.Meta.TextMap[key] = string(out)
	}
	return errs
}
