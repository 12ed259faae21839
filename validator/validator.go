// Package validator checks that a COCO document and its directory tree are
// well formed.
package validator

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/swdee/go-cocohelper/internal/logging"
	"github.com/swdee/go-cocohelper/segmentation"
	"github.com/swdee/go-cocohelper/table"
)

// Check names a single validation rule
type Check string

const (
	CheckDatasetTree           Check = "dataset_tree"
	CheckMandatoryKeys         Check = "mandatory_keys"
	CheckCategoryKeys          Check = "category_keys"
	CheckImageKeys             Check = "image_keys"
	CheckAnnotationKeys        Check = "annotation_keys"
	CheckCategoryIDsUnique     Check = "category_ids_unique"
	CheckLicenseIDsUnique      Check = "license_ids_unique"
	CheckImageIDsUnique        Check = "image_ids_unique"
	CheckAnnotationIDsUnique   Check = "annotation_ids_unique"
	CheckAnnotationImageIDs    Check = "annotation_image_ids"
	CheckAnnotationCategoryIDs Check = "annotation_category_ids"
)

// Checks lists every check in the order they run
var Checks = []Check{
	CheckDatasetTree,
	CheckMandatoryKeys,
	CheckCategoryKeys,
	CheckImageKeys,
	CheckAnnotationKeys,
	CheckCategoryIDsUnique,
	CheckLicenseIDsUnique,
	CheckImageIDsUnique,
	CheckAnnotationIDsUnique,
	CheckAnnotationImageIDs,
	CheckAnnotationCategoryIDs,
}

// AnnotationDir is the directory a dataset root must contain
const AnnotationDir = "annotations"

// Report counts the failures of every check, a check with zero failures passed
type Report struct {
	Failures map[Check]int
}

// Valid reports whether every check passed
func (r Report) Valid() bool {

	for _, n := range r.Failures {
		if n > 0 {
			return false
		}
	}

	return true
}

// Failed returns the names of the checks that failed in sorted order
func (r Report) Failed() []Check {

	var out []Check

	for c, n := range r.Failures {
		if n > 0 {
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// Validator checks a COCO document decoded as generic json values and the
// dataset directory it belongs to
type Validator struct {
	doc map[string]any
	dir string
}

// New returns a Validator for the document stored under datasetDir
func New(doc map[string]any, datasetDir string) *Validator {
	return &Validator{doc: doc, dir: datasetDir}
}

// Validate runs every check and counts the failing records of each one
func (v *Validator) Validate() Report {

	rep := Report{Failures: make(map[Check]int, len(Checks))}

	for _, c := range Checks {
		rep.Failures[c] = 0
	}

	if !v.hasDatasetTree() {
		rep.Failures[CheckDatasetTree]++
	}

	for _, k := range []string{"images", "annotations", "categories"} {
		if _, ok := v.doc[k]; !ok {
			rep.Failures[CheckMandatoryKeys]++
		}
	}

	cats := records(v.doc["categories"])
	imgs := records(v.doc["images"])
	anns := records(v.doc["annotations"])
	lics := records(v.doc["licenses"])

	for _, c := range cats {
		if !v.validCategory(c) {
			rep.Failures[CheckCategoryKeys]++
		}
	}

	for _, img := range imgs {
		if !validImage(img) {
			rep.Failures[CheckImageKeys]++
		}
	}

	for _, a := range anns {
		if !validAnnotation(a) {
			rep.Failures[CheckAnnotationKeys]++
		}
	}

	rep.Failures[CheckCategoryIDsUnique] = duplicates(cats, "id")
	rep.Failures[CheckLicenseIDsUnique] = duplicates(lics, "id")
	rep.Failures[CheckImageIDsUnique] = duplicates(imgs, "id")
	rep.Failures[CheckAnnotationIDsUnique] = duplicates(anns, "id")
	rep.Failures[CheckAnnotationImageIDs] = dangling(anns, "image_id", imgs)
	rep.Failures[CheckAnnotationCategoryIDs] = dangling(anns, "category_id", cats)

	for _, c := range Checks {
		if n := rep.Failures[c]; n > 0 {
			logging.Logger().Error("COCO dataset validation failed", "check", string(c), "failures", n)
		}
	}

	return rep
}

// ValidateDataset reports whether every check passed
func (v *Validator) ValidateDataset() bool {
	return v.Validate().Valid()
}

// ValidateDir checks the directory tree of the dataset, the annotation file
// name must have a .json extension
func (v *Validator) ValidateDir(jsonName string) (bool, error) {

	if !strings.HasSuffix(jsonName, ".json") {
		return false, fmt.Errorf("annotation file name %q must end with the extension .json", jsonName)
	}

	if !v.hasDatasetTree() {
		logging.Logger().Error("folders are not organised as expected by a COCO dataset", "dir", v.dir)
		return false, nil
	}

	return true, nil
}

func (v *Validator) hasDatasetTree() bool {

	st, err := os.Stat(filepath.Join(v.dir, AnnotationDir))

	return err == nil && st.IsDir()
}

func (v *Validator) validCategory(c map[string]any) bool {

	for _, k := range []string{"id", "name"} {
		if _, ok := c[k]; !ok {
			return false
		}
	}

	if _, ok := c["supercategory"]; !ok {
		logging.Logger().Warn("category is missing the recommended key supercategory", "id", c["id"])
	} else if !isString(c["supercategory"]) {
		return false
	}

	return isInt(c["id"]) && isString(c["name"])
}

func validImage(img map[string]any) bool {

	for _, k := range []string{"id", "width", "height", "file_name"} {
		if _, ok := img[k]; !ok {
			return false
		}
	}

	return isInt(img["id"]) && isInt(img["width"]) && isInt(img["height"]) && isString(img["file_name"])
}

func validAnnotation(a map[string]any) bool {

	for _, k := range []string{"id", "image_id", "category_id", "segmentation", "area", "bbox", "iscrowd"} {
		if _, ok := a[k]; !ok {
			return false
		}
	}

	if !isInt(a["id"]) || !isInt(a["image_id"]) || !isInt(a["category_id"]) {
		return false
	}

	if _, ok := table.ToFloat(a["area"]); !ok {
		return false
	}

	if !isList(a["bbox"]) || !isSegmentation(a["segmentation"]) {
		return false
	}

	crowd, ok := table.ToInt(a["iscrowd"])

	return ok && (crowd == 0 || crowd == 1)
}

// records accepts the entity list as decoded from json or as built in memory
func records(v any) []map[string]any {

	switch x := v.(type) {
	case []map[string]any:
		return x
	case []table.Row:
		out := make([]map[string]any, len(x))
		for i, r := range x {
			out[i] = r
		}
		return out
	case []any:
		out := make([]map[string]any, 0, len(x))
		for _, item := range x {
			switch r := item.(type) {
			case map[string]any:
				out = append(out, r)
			case table.Row:
				out = append(out, r)
			default:
				// keep a placeholder so the record fails its key checks
				out = append(out, map[string]any{})
			}
		}
		return out
	}

	return nil
}

// duplicates counts the records whose key value was already seen
func duplicates(recs []map[string]any, key string) int {

	seen := make(map[any]struct{}, len(recs))
	n := 0

	for _, r := range recs {
		k := table.Normalize(r[key])
		if !table.IsScalar(k) {
			n++
			continue
		}
		if _, ok := seen[k]; ok {
			n++
			continue
		}
		seen[k] = struct{}{}
	}

	return n
}

// dangling counts the records whose fk value is not the id of a target record
func dangling(recs []map[string]any, fk string, targets []map[string]any) int {

	ids := make(map[any]struct{}, len(targets))

	for _, t := range targets {
		if k := table.Normalize(t["id"]); table.IsScalar(k) {
			ids[k] = struct{}{}
		}
	}

	n := 0

	for _, r := range recs {
		k := table.Normalize(r[fk])
		if !table.IsScalar(k) {
			n++
			continue
		}
		if _, ok := ids[k]; !ok {
			n++
		}
	}

	return n
}

// isInt accepts integer typed values and integer json tokens only, 3.0 is
// not an id
func isInt(v any) bool {

	switch x := v.(type) {
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return true
	case uint:
		return uint64(x) <= math.MaxInt64
	case uint64:
		return x <= math.MaxInt64
	case interface{ Int64() (int64, error) }:
		_, err := x.Int64()
		return err == nil
	}

	return false
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func isList(v any) bool {

	switch v.(type) {
	case []any, []float64, []int, []int64:
		return true
	}

	return false
}

func isSegmentation(v any) bool {

	switch v.(type) {
	case segmentation.Segmentation, []any, map[string]any, string:
		return true
	}

	return false
}
