package cocohelper

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/swdee/go-cocohelper/internal/logging"
	"github.com/swdee/go-cocohelper/table"
	"github.com/swdee/go-cocohelper/validator"
)

// Load reads the dataset stored under dir using the layout in opts.Paths
func Load(dir string, opts Options) (*Dataset, error) {

	opts.Root = dir
	opts.Paths = opts.Paths.withDefaults()

	return loadFile(opts.Paths.AnnotationFile(dir), opts)
}

// LoadJSON reads a COCO annotation file.  The dataset root is the parent of
// the directory holding the file and the layout follows the file location.
func LoadJSON(file string, opts Options) (*Dataset, error) {

	annDir := filepath.Dir(file)

	opts.Root = filepath.Dir(annDir)
	opts.Paths.AnnFile = filepath.Base(file)
	opts.Paths.AnnDir = filepath.Base(annDir) + "/"

	return loadFile(file, opts)
}

func loadFile(file string, opts Options) (*Dataset, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening annotation file: %w", err)
	}

	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()

	var raw map[string]any

	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("error decoding annotation file %s: %w", file, err)
	}

	return LoadData(raw, opts)
}

// LoadData creates a Dataset from a decoded COCO document
func LoadData(raw map[string]any, opts Options) (*Dataset, error) {

	if opts.Validate {
		root := opts.Root
		if root == "" {
			root = "./"
		}
		if rep := validator.New(raw, root).Validate(); !rep.Valid() {
			return nil, &ValidationError{Report: rep}
		}
	}

	var recs [4][]table.Row

	for i, key := range []string{"images", "annotations", "categories", "licenses"} {

		list, ok := raw[key].([]any)

		if !ok && raw[key] != nil {
			return nil, fmt.Errorf("error loading %s: expected a list, got %T", key, raw[key])
		}

		for j, item := range list {
			rec, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("error loading %s: entry %d is not an object", key, j)
			}
			r, err := normalizeRecord(rec)
			if err != nil {
				return nil, fmt.Errorf("error loading %s entry %d: %w", key, j, err)
			}
			recs[i] = append(recs[i], r)
		}
	}

	info := NewInfo()

	if m, ok := raw["info"].(map[string]any); ok {
		info = infoFromMap(m)
	}

	validate := opts.Validate
	opts.Validate = false

	d, err := fromRecords(recs[0], recs[1], recs[2], recs[3], info, opts)

	if err != nil {
		return nil, err
	}

	d.validate = validate

	return d, nil
}

func infoFromMap(m map[string]any) Info {

	info := Info{
		Description: asString(m["description"]),
		Contributor: asString(m["contributor"]),
		DateCreated: asString(m["date_created"]),
		URL:         asString(m["url"]),
		Version:     asString(m["version"]),
		Year:        int(asInt64(m["year"])),
	}

	if list, ok := m["merged_infos"].([]any); ok {
		for _, item := range list {
			if sub, ok := item.(map[string]any); ok {
				info.MergedInfos = append(info.MergedInfos, infoFromMap(sub))
			}
		}
	}

	return info
}

// JSONDocument returns the dataset as the generic COCO json document
func (d *Dataset) JSONDocument() map[string]any {
	return map[string]any{
		"info":        d.info,
		"licenses":    records(d.lics),
		"categories":  records(d.cats),
		"images":      records(d.imgs),
		"annotations": records(d.anns),
	}
}

func records(t *table.Table) []any {

	rows := t.Records()
	out := make([]any, len(rows))

	for i, r := range rows {
		out[i] = map[string]any(r)
	}

	return out
}

// WriteAnnotationsFile writes the COCO json document to path
func (d *Dataset) WriteAnnotationsFile(path string) error {

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating annotation directory: %w", err)
	}

	data, err := json.MarshalIndent(d.JSONDocument(), "", "  ")

	if err != nil {
		return fmt.Errorf("error encoding annotations: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing annotation file: %w", err)
	}

	return nil
}

// Save writes the annotation file of the dataset below dir, an empty dir
// saves to the dataset root.  Image files are not copied.
func (d *Dataset) Save(dir string) error {

	if dir == "" {
		dir = d.root
	}

	if filepath.Clean(dir) != filepath.Clean(d.root) {
		logging.Logger().Warn("copying images on save is not implemented, only annotations are written",
			"root", d.root, "dir", dir)
	}

	return d.WriteAnnotationsFile(d.paths.AnnotationFile(dir))
}
