// Package colmap describes reversible column renames applied when entity
// records cross the JSON boundary.
package colmap

import (
	"fmt"
)

// ColMap maps an original column name to a new one
type ColMap struct {
	Orig string
	New  string
}

// ToNew returns the rename from the original to the new column name
func (c ColMap) ToNew() map[string]string {
	return map[string]string{c.Orig: c.New}
}

// ToOrig returns the rename from the new to the original column name
func (c ColMap) ToOrig() map[string]string {
	return map[string]string{c.New: c.Orig}
}

// Reverse returns the mapper renaming in the opposite direction
func (c ColMap) Reverse() ColMap {
	return ColMap{Orig: c.New, New: c.Orig}
}

// ColsMapper is an ordered collection of ColMap whose new names are unique
type ColsMapper struct {
	maps []ColMap
}

// NewColsMapper returns a ColsMapper, it fails when two mappers share the same
// new column name
func NewColsMapper(maps ...ColMap) (*ColsMapper, error) {

	seen := make(map[string]struct{}, len(maps))

	for _, m := range maps {
		if _, ok := seen[m.New]; ok {
			return nil, fmt.Errorf("duplicate new column name %q in column mappers", m.New)
		}
		seen[m.New] = struct{}{}
	}

	return &ColsMapper{maps: append([]ColMap(nil), maps...)}, nil
}

// Maps returns a copy of the mappers in order
func (c *ColsMapper) Maps() []ColMap {
	return append([]ColMap(nil), c.maps...)
}

// ToNews merges the forward renames of all mappers
func (c *ColsMapper) ToNews() map[string]string {

	out := make(map[string]string, len(c.maps))

	for _, m := range c.maps {
		out[m.Orig] = m.New
	}

	return out
}

// ToOrigs merges the reverse renames of all mappers
func (c *ColsMapper) ToOrigs() map[string]string {

	out := make(map[string]string, len(c.maps))

	for _, m := range c.maps {
		out[m.New] = m.Orig
	}

	return out
}

// Entity mappers renaming the COCO "id" field to the table index name
var (
	Category   = ColMap{Orig: "id", New: "category_id"}
	Image      = ColMap{Orig: "id", New: "image_id"}
	Annotation = ColMap{Orig: "id", New: "annotation_id"}
	License    = ColMap{Orig: "id", New: "license_id"}
)

// COCO returns the mappers for the four COCO entities
func COCO() *ColsMapper {
	// new names are distinct so construction cannot fail
	return &ColsMapper{maps: []ColMap{Category, Image, Annotation, License}}
}
