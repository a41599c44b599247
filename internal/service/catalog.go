package service

import (
	"parkfinder/internal/model"
	"parkfinder/internal/utils"
)

// CatalogIndex is the static, in-memory list of facilities.
// It is immutable after construction and safe for concurrent reads.
type CatalogIndex struct {
	facilities []model.Facility
}

// NewCatalogIndex copies records into a new index, keeping their order
func NewCatalogIndex(records []model.Facility) *CatalogIndex {
	facilities := make([]model.Facility, len(records))
	copy(facilities, records)
	return &CatalogIndex{facilities: facilities}
}

// Len returns the number of catalog entries
func (c *CatalogIndex) Len() int {
	return len(c.facilities)
}

// Search returns every facility whose address contains text, ignoring case,
// in catalog order. Empty text yields no results.
func (c *CatalogIndex) Search(text string) []model.Facility {
	results := []model.Facility{}
	for _, f := range c.facilities {
		if utils.MatchAddress(text, f.Address) {
			results = append(results, f)
		}
	}
	return results
}

// FindFirst returns the first catalog-order facility matching text
func (c *CatalogIndex) FindFirst(text string) (model.Facility, bool) {
	for _, f := range c.facilities {
		if utils.MatchAddress(text, f.Address) {
			return f, true
		}
	}
	return model.Facility{}, false
}
