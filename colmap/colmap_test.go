package colmap

import (
	"testing"
)

func TestColMapDirections(t *testing.T) {

	m := ColMap{Orig: "id", New: "image_id"}

	if got := m.ToNew()["id"]; got != "image_id" {
		t.Errorf("Expected id to map to image_id, got %q", got)
	}

	if got := m.ToOrig()["image_id"]; got != "id" {
		t.Errorf("Expected image_id to map back to id, got %q", got)
	}

	if r := m.Reverse(); r.Orig != "image_id" || r.New != "id" {
		t.Errorf("Expected reversed mapper, got %+v", r)
	}
}

func TestNewColsMapperRejectsDuplicates(t *testing.T) {

	_, err := NewColsMapper(
		ColMap{Orig: "a", New: "x"},
		ColMap{Orig: "b", New: "x"},
	)

	if err == nil {
		t.Fatal("Expected error for duplicate new names, got nil")
	}
}

func TestCOCOMappers(t *testing.T) {

	origs := COCO().ToOrigs()

	for _, name := range []string{"category_id", "image_id", "annotation_id", "license_id"} {
		if origs[name] != "id" {
			t.Errorf("Expected %s to map back to id, got %q", name, origs[name])
		}
	}

	if len(COCO().Maps()) != 4 {
		t.Errorf("Expected 4 mappers, got %d", len(COCO().Maps()))
	}
}
