package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkfinder/internal/model"
)

func float64Ptr(v float64) *float64 {
	return &v
}

func testCatalog() []model.Facility {
	return []model.Facility{
		{ID: "C1", Address: "123 Main St", Lat: float64Ptr(1.30), Lng: float64Ptr(103.80)},
		{ID: "C2", Address: "456 Orchard Road", Lat: float64Ptr(1.304), Lng: float64Ptr(103.832)},
		{ID: "C3", Address: "789 Main Avenue"},
		{ID: "C4", Address: "BLK 12 MAIN STREET", Lat: float64Ptr(1.28), Lng: float64Ptr(103.85)},
	}
}

func TestCatalogIndex_Search(t *testing.T) {
	idx := NewCatalogIndex(testCatalog())

	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "Case-insensitive substring keeps catalog order", text: "main", want: []string{"C1", "C3", "C4"}},
		{name: "Upper-case query", text: "ORCHARD", want: []string{"C2"}},
		{name: "Digits", text: "12", want: []string{"C1", "C4"}},
		{name: "No match", text: "Jurong", want: []string{}},
		{name: "Empty text yields nothing", text: "", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.Search(tt.text)
			ids := make([]string, 0, len(got))
			for _, f := range got {
				ids = append(ids, f.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestCatalogIndex_SearchMatchesPredicateExactly(t *testing.T) {
	catalog := testCatalog()
	idx := NewCatalogIndex(catalog)

	for _, text := range []string{"a", "St", "main s", "road", "1", " ", "zzz"} {
		var want []model.Facility
		for _, f := range catalog {
			if strings.Contains(strings.ToLower(f.Address), strings.ToLower(text)) {
				want = append(want, f)
			}
		}
		got := idx.Search(text)
		if len(want) == 0 {
			assert.Empty(t, got, "text %q", text)
			continue
		}
		assert.Equal(t, want, got, "text %q", text)
	}
}

func TestCatalogIndex_FindFirst(t *testing.T) {
	idx := NewCatalogIndex(testCatalog())

	f, ok := idx.FindFirst("main")
	require.True(t, ok)
	assert.Equal(t, "C1", f.ID)

	f, ok = idx.FindFirst("789 main avenue")
	require.True(t, ok)
	assert.Equal(t, "C3", f.ID)
	_, hasCoords := f.Point()
	assert.False(t, hasCoords)

	_, ok = idx.FindFirst("Nowhere Lane")
	assert.False(t, ok)

	_, ok = idx.FindFirst("")
	assert.False(t, ok)
}

func TestCatalogIndex_CopiesInput(t *testing.T) {
	records := testCatalog()
	idx := NewCatalogIndex(records)
	records[0].Address = "changed"

	f, ok := idx.FindFirst("123 Main St")
	require.True(t, ok)
	assert.Equal(t, "C1", f.ID)
	assert.Equal(t, 4, idx.Len())
}
