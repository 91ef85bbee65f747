package duprun

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kasuganosora/collab-duplicator/pkg/collab/folder"
)

func TestAddViewAppendsInOrder(t *testing.T) {
	s := &State{}
	a := &folder.View{ID: "a"}
	b := &folder.View{ID: "b"}

	s.AddView(a)
	s.AddView(b)

	assert.Equal(t, []*folder.View{a, b}, s.ViewsToAdd)
}
