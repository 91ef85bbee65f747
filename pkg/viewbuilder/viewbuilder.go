// Package viewbuilder implements the single view-from-metadata helper
// (spec §4.6) shared by docrewriter and dbrewriter: turning a published
// view's display metadata into a fresh destination-folder View.
package viewbuilder

import (
	"golang.org/x/text/unicode/norm"

	"github.com/kasuganosora/collab-duplicator/pkg/collab/folder"
	"github.com/kasuganosora/collab-duplicator/pkg/publishmeta"
)

// FromMetadata builds a View for newViewID from a published view's info.
// ParentViewID is left empty — every caller fills it in once the parent is
// known, since that varies with where the view was discovered.
func FromMetadata(newViewID string, info publishmeta.ViewInfo, layout folder.ViewLayout, tsNow, duplicatorUID int64) *folder.View {
	return &folder.View{
		ID:             newViewID,
		ParentViewID:   "",
		Name:           norm.NFC.String(info.Name),
		Desc:           "",
		Children:       nil,
		CreatedAt:      tsNow,
		CreatedBy:      duplicatorUID,
		LastEditedTime: tsNow,
		LastEditedBy:   duplicatorUID,
		IsFavorite:     false,
		Layout:         layout,
		Icon:           info.Icon,
		Extra:          norm.NFC.String(info.Extra),
	}
}
