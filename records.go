package cocohelper

import (
	"sort"

	"github.com/swdee/go-cocohelper/segmentation"
	"github.com/swdee/go-cocohelper/table"
)

// Image is a COCO image record
type Image struct {
	ID        int64  `json:"id"`
	FileName  string `json:"file_name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	LicenseID *int64 `json:"license_id,omitempty"`
}

// Annotation is a COCO annotation record
type Annotation struct {
	ID           int64                     `json:"id"`
	ImageID      int64                     `json:"image_id"`
	CategoryID   int64                     `json:"category_id"`
	BBox         BBox                      `json:"bbox"`
	Area         float64                   `json:"area"`
	Segmentation segmentation.Segmentation `json:"segmentation"`
	IsCrowd      int                       `json:"iscrowd"`
}

// BBox is a bounding box in x, y, width, height order
type BBox [4]float64

// X returns the left edge
func (b BBox) X() float64 { return b[0] }

// Y returns the top edge
func (b BBox) Y() float64 { return b[1] }

// W returns the width
func (b BBox) W() float64 { return b[2] }

// H returns the height
func (b BBox) H() float64 { return b[3] }

// Area returns width times height
func (b BBox) Area() float64 { return b[2] * b[3] }

// Category is a COCO category record
type Category struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory"`
}

// License is a COCO license record
type License struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Document is a whole COCO dataset as typed records
type Document struct {
	Info        Info         `json:"info"`
	Licenses    []License    `json:"licenses"`
	Categories  []Category   `json:"categories"`
	Images      []Image      `json:"images"`
	Annotations []Annotation `json:"annotations"`
}

// record column names as found in the COCO json file
var (
	imageColumns      = []string{"id", "file_name", "width", "height"}
	annotationColumns = []string{"id", "image_id", "category_id", "bbox", "area", "segmentation", "iscrowd"}
	categoryColumns   = []string{"id", "name", "supercategory"}
	licenseColumns    = []string{"id", "name", "url"}
)

func imageRow(img Image) table.Row {

	r := table.Row{
		"id":        img.ID,
		"file_name": img.FileName,
		"width":     int64(img.Width),
		"height":    int64(img.Height),
	}

	if img.LicenseID != nil {
		r["license_id"] = *img.LicenseID
	}

	return r
}

func annotationRow(a Annotation) table.Row {
	return table.Row{
		"id":           a.ID,
		"image_id":     a.ImageID,
		"category_id":  a.CategoryID,
		"bbox":         []float64{a.BBox[0], a.BBox[1], a.BBox[2], a.BBox[3]},
		"area":         a.Area,
		"segmentation": a.Segmentation,
		"iscrowd":      int64(a.IsCrowd),
	}
}

func categoryRow(c Category) table.Row {
	return table.Row{"id": c.ID, "name": c.Name, "supercategory": c.Supercategory}
}

func licenseRow(l License) table.Row {
	return table.Row{"id": l.ID, "name": l.Name, "url": l.URL}
}

func asInt64(v any) int64 {
	n, _ := table.ToInt(v)
	return n
}

func asFloat(v any) float64 {
	f, _ := table.ToFloat(v)
	return f
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBBox(v any) BBox {

	var b BBox

	switch x := v.(type) {
	case BBox:
		return x
	case []float64:
		copy(b[:], x)
	case []any:
		for i := 0; i < len(x) && i < 4; i++ {
			b[i] = asFloat(x[i])
		}
	}

	return b
}

func imageFromRow(r table.Row) Image {

	img := Image{
		ID:       asInt64(r["image_id"]),
		FileName: asString(r["file_name"]),
		Width:    int(asInt64(r["width"])),
		Height:   int(asInt64(r["height"])),
	}

	if id, ok := table.ToInt(r["license_id"]); ok {
		img.LicenseID = &id
	}

	return img
}

func annotationFromRow(r table.Row) Annotation {

	seg, _ := segmentation.FromValue(r["segmentation"])

	return Annotation{
		ID:           asInt64(r["annotation_id"]),
		ImageID:      asInt64(r["image_id"]),
		CategoryID:   asInt64(r["category_id"]),
		BBox:         asBBox(r["bbox"]),
		Area:         asFloat(r["area"]),
		Segmentation: seg,
		IsCrowd:      int(asInt64(r["iscrowd"])),
	}
}

func categoryFromRow(r table.Row) Category {
	return Category{
		ID:            asInt64(r["category_id"]),
		Name:          asString(r["name"]),
		Supercategory: asString(r["supercategory"]),
	}
}

func licenseFromRow(r table.Row) License {
	return License{
		ID:   asInt64(r["license_id"]),
		Name: asString(r["name"]),
		URL:  asString(r["url"]),
	}
}

// normalizeRecord converts decoded json values to the in-memory cell types
func normalizeRecord(rec map[string]any) (table.Row, error) {

	r := make(table.Row, len(rec))

	for k, v := range rec {
		switch k {
		case "segmentation":
			seg, err := segmentation.FromValue(v)
			if err != nil {
				return nil, err
			}
			r[k] = seg
		case "bbox":
			if list, ok := v.([]any); ok {
				b := make([]float64, len(list))
				for i := range list {
					b[i] = asFloat(list[i])
				}
				r[k] = b
				continue
			}
			r[k] = v
		default:
			r[k] = table.Normalize(v)
		}
	}

	return r, nil
}

// recordColumns returns the base columns followed by any extra field found in
// the records in sorted order
func recordColumns(base []string, records []table.Row) []string {

	known := make(map[string]struct{}, len(base))

	for _, c := range base {
		known[c] = struct{}{}
	}

	var extra []string

	for _, r := range records {
		for k := range r {
			if _, ok := known[k]; !ok {
				known[k] = struct{}{}
				extra = append(extra, k)
			}
		}
	}

	sort.Strings(extra)

	return append(append([]string(nil), base...), extra...)
}
