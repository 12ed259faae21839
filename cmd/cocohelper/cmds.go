package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/swdee/go-cocohelper"
	"github.com/swdee/go-cocohelper/adapter"
	"github.com/swdee/go-cocohelper/filter"
	"github.com/swdee/go-cocohelper/splitter"
	"github.com/swdee/go-cocohelper/stats"
	"github.com/swdee/go-cocohelper/transform"
	"gopkg.in/yaml.v3"
)

func fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	os.Exit(1)
}

func baseSansExt(fname string) string {
	base := filepath.Base(fname)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Represents the state used when processing a command.
type Action struct {
	cmd    *cobra.Command
	quiet  bool
	cfg    *Config
	log    *slog.Logger
	closer io.Closer
	start  time.Time
}

func newAction(cmd *cobra.Command) *Action {
	result := &Action{cmd: cmd, start: time.Now()}
	result.quiet = result.getBool("quiet")
	cfg, err := result.loadConfig()
	if err != nil {
		fatal("%s", err)
	}
	result.cfg = cfg
	result.log, result.closer, err = buildLogger(cfg, os.Stderr)
	if err != nil {
		fatal("%s", err)
	}
	cocohelper.SetLogger(result.log)
	return result
}

func (a *Action) getBool(name string) bool {
	result, _ := a.cmd.Flags().GetBool(name)
	return result
}

func (a *Action) getInt(name string) int {
	result, _ := a.cmd.Flags().GetInt(name)
	return result
}

func (a *Action) getInt64(name string) int64 {
	result, _ := a.cmd.Flags().GetInt64(name)
	return result
}

func (a *Action) getFloat64(name string) float64 {
	result, _ := a.cmd.Flags().GetFloat64(name)
	return result
}

func (a *Action) getFloat64Slice(name string) []float64 {
	result, _ := a.cmd.Flags().GetFloat64Slice(name)
	return result
}

func (a *Action) getInt64Slice(name string) []int64 {
	result, _ := a.cmd.Flags().GetInt64Slice(name)
	return result
}

func (a *Action) getString(name string) string {
	result, _ := a.cmd.Flags().GetString(name)
	return result
}

func (a *Action) getStringArray(name string) []string {
	result, _ := a.cmd.Flags().GetStringArray(name)
	return result
}

func (a *Action) changed(name string) bool {
	f := a.cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

// loadConfig reads the config file and applies the flag overrides
func (a *Action) loadConfig() (*Config, error) {
	cfg, err := loadConfig(a.getString("config"))
	if err != nil {
		return nil, err
	}
	overrides := []struct {
		flag  string
		value *string
	}{
		{"log-level", &cfg.Log.Level},
		{"log-file", &cfg.Log.Path},
		{"ann-dir", &cfg.Paths.AnnDir},
		{"ann-file", &cfg.Paths.AnnFile},
		{"img-dir", &cfg.Paths.ImgDir},
		{"mode", &cfg.Segmentation.Mode},
	}
	for _, o := range overrides {
		if a.changed(o.flag) {
			*o.value = a.getString(o.flag)
		}
	}
	if _, err := cfg.mode(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func showJSON(w io.Writer, v interface{}) error {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}

func showYAML(w io.Writer, v interface{}) error {
	e := yaml.NewEncoder(w)
	e.SetIndent(2)
	if err := e.Encode(v); err != nil {
		return err
	}
	return e.Close()
}

func (a *Action) showValue(v interface{}) {
	if v == nil {
		return
	}
	switch vv := v.(type) {
	case string:
		fmt.Println(strings.TrimRight(vv, "\r\n"))
		return
	}
	if a.getString("format") == "yaml" {
		showYAML(os.Stdout, v)
		return
	}
	// json has no NaN, statistics of constant sizes fall back to yaml
	if err := showJSON(os.Stdout, v); err != nil {
		a.log.Warn("json output failed, showing yaml", "error", err)
		showYAML(os.Stdout, v)
	}
}

func (a *Action) Append(format string, args ...interface{}) *Action {
	if a.quiet {
		return a
	}
	fmt.Printf(format, args...)
	return a
}

// Show the action banner message.
func (a *Action) Start(format string, args ...interface{}) *Action {
	if a.quiet {
		return a
	}
	fmt.Printf("%s .. ", fmt.Sprintf(format, args...))
	return a
}

// Update the action banner and exit.
func (a *Action) Exit(result interface{}, err error) {
	delta := time.Since(a.start).Seconds()
	if err != nil {
		a.Append("(%.1fs)\n", delta)
		a.log.Error("command failed", "command", a.cmd.Name(), "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		a.closer.Close()
		os.Exit(1)
	}
	a.Append("Ok (%.1fs)\n", delta)
	a.showValue(result)
	a.closer.Close()
	os.Exit(0)
}

func (a *Action) load(dir string) (*cocohelper.Dataset, error) {
	d, err := cocohelper.Load(dir, cocohelper.Options{
		Paths:    a.cfg.paths(),
		Validate: a.getBool("validate"),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "load dataset %s failed", dir)
	}
	return d, nil
}

func (a *Action) save(d *cocohelper.Dataset, dir string) error {
	return errors.Wrapf(d.Save(dir), "save dataset to %s failed", dir)
}

// rng seeds a generator from --seed, a random seed is logged so the run can
// be repeated
func (a *Action) rng() *rand.Rand {
	seed := a.getInt64("seed")
	if !a.changed("seed") {
		seed = time.Now().UnixNano()
	}
	a.log.Info("random seed", "seed", seed)
	return rand.New(rand.NewSource(seed))
}

//
// Info
//

type categoryCount struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Annotations int    `json:"annotations" yaml:"annotations"`
}

type summary struct {
	Info        cocohelper.Info `json:"info" yaml:"info"`
	Images      int             `json:"images" yaml:"images"`
	Unlabelled  int             `json:"unlabelled_images" yaml:"unlabelled_images"`
	Annotations int             `json:"annotations" yaml:"annotations"`
	Licenses    int             `json:"licenses" yaml:"licenses"`
	Categories  []categoryCount `json:"categories" yaml:"categories"`
}

func summarize(d *cocohelper.Dataset) summary {
	counts := map[int64]int{}
	for _, ann := range d.Annotations() {
		counts[ann.CategoryID]++
	}
	s := summary{
		Info:        d.Info(),
		Images:      d.Imgs().Len(),
		Unlabelled:  d.UnlabelledImgs().Len(),
		Annotations: d.Anns().Len(),
		Licenses:    d.LicensesTable().Len(),
	}
	for _, c := range d.Categories() {
		s.Categories = append(s.Categories, categoryCount{ID: c.ID, Name: c.Name, Annotations: counts[c.ID]})
	}
	return s
}

func (a *Action) runInfo(args []string) (interface{}, error) {
	d, err := a.load(args[0])
	if err != nil {
		return nil, err
	}
	return summarize(d), nil
}

func info(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	action.Start("Reading dataset %s", args[0])
	action.Exit(action.runInfo(args))
}

//
// Validate
//

func (a *Action) runValidate(args []string) (interface{}, error) {
	d, err := cocohelper.Load(args[0], cocohelper.Options{Paths: a.cfg.paths()})
	if err != nil {
		return nil, errors.Wrapf(err, "load dataset %s failed", args[0])
	}
	rep := d.Validate()
	if !rep.Valid() {
		return nil, errors.Wrap(&cocohelper.ValidationError{Report: rep}, args[0])
	}
	return rep.Failures, nil
}

func validate(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	action.Start("Validating dataset %s", args[0])
	action.Exit(action.runValidate(args))
}

//
// Stats
//

type datasetStats struct {
	Images         int                `json:"images" yaml:"images"`
	Annotations    int                `json:"annotations" yaml:"annotations"`
	Categories     int                `json:"categories" yaml:"categories"`
	ImageSizes     stats.ImageSizes   `json:"image_sizes" yaml:"image_sizes"`
	CategoryRatios map[string]float64 `json:"category_ratios" yaml:"category_ratios"`
	OptimalSize    *stats.Size        `json:"optimal_size,omitempty" yaml:"optimal_size,omitempty"`
}

func (a *Action) runStats(args []string) (interface{}, error) {
	d, err := a.load(args[0])
	if err != nil {
		return nil, err
	}
	s := stats.New(d)
	res := datasetStats{
		Images:      s.NumImgs(),
		Annotations: s.NumAnns(),
		Categories:  s.NumCats(),
	}
	if res.ImageSizes, err = s.ImageSizeStats(); err != nil {
		return nil, errors.Wrap(err, "image size stats failed")
	}
	if res.CategoryRatios, err = s.CategoryNameRatios(); err != nil {
		return nil, errors.Wrap(err, "category ratios failed")
	}
	if pixels := a.getInt("pixels"); pixels > 0 {
		h, w, err := s.OptimalImageSize(stats.Statistic(a.getString("statistic")), pixels)
		if err != nil {
			return nil, errors.Wrap(err, "optimal image size failed")
		}
		res.OptimalSize = &stats.Size{Height: float64(h), Width: float64(w)}
	}
	return res, nil
}

func showStats(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	action.Start("Computing statistics of %s", args[0])
	action.Exit(action.runStats(args))
}

//
// Filter
//

// selectors builds the dataset selectors from the flags that were set
func (a *Action) selectors() (cocohelper.Selectors, error) {
	var sel cocohelper.Selectors
	if a.changed("img-id") {
		sel.ImgIDs = a.getInt64Slice("img-id")
	}
	if a.changed("img-name") {
		sel.ImgNames = a.getStringArray("img-name")
	}
	if a.changed("cat-id") {
		sel.CatIDs = a.getInt64Slice("cat-id")
	}
	if a.changed("cat-name") {
		sel.CatNames = a.getStringArray("cat-name")
	}
	if a.changed("supercat-name") {
		sel.SupercatNames = a.getStringArray("supercat-name")
	}
	if a.changed("ann-id") {
		sel.AnnIDs = a.getInt64Slice("ann-id")
	}
	if a.changed("crowd") {
		crowd := a.getBool("crowd")
		sel.IsCrowd = &crowd
	}
	if a.changed("area-min") || a.changed("area-max") {
		rng := &filter.Range{Min: 0, Max: math.Inf(1)}
		if a.changed("area-min") {
			rng.Min = a.getFloat64("area-min")
		}
		if a.changed("area-max") {
			rng.Max = a.getFloat64("area-max")
		}
		if rng.Min > rng.Max {
			return sel, errors.Errorf("area-min %v is greater than area-max %v", rng.Min, rng.Max)
		}
		sel.AreaRange = rng
	}
	if a.getBool("or") {
		sel.Composition = filter.ComposeOr
	}
	sel.Invert = a.getBool("invert")
	return sel, nil
}

func (a *Action) runFilter(args []string) (interface{}, error) {
	d, err := a.load(args[0])
	if err != nil {
		return nil, err
	}
	sel, err := a.selectors()
	if err != nil {
		return nil, err
	}
	res, err := d.Filter(cocohelper.FilterOptions{Selectors: sel, KeepOrphans: a.getBool("keep-orphans")})
	if err != nil {
		return nil, errors.Wrap(err, "filter failed")
	}
	if err := a.save(res, args[1]); err != nil {
		return nil, err
	}
	return summarize(res), nil
}

func filterDataset(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	action.Start("Filtering dataset %s", args[0])
	action.Exit(action.runFilter(args))
}

//
// Merge
//

func (a *Action) runMerge(args []string) (interface{}, error) {
	var datasets []*cocohelper.Dataset
	for _, dir := range args[1:] {
		d, err := a.load(dir)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, d)
	}
	res, err := cocohelper.Merge(datasets, !a.getBool("keep-duplicates"))
	if err != nil {
		return nil, errors.Wrap(err, "merge failed")
	}
	if err := a.save(res, args[0]); err != nil {
		return nil, err
	}
	return summarize(res), nil
}

func merge(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	action.Start("Merging %d datasets", len(args)-1)
	action.Exit(action.runMerge(args))
}

//
// Split
//

// splitNames names the n splits, the common names are used up to three
func splitNames(n int) []string {
	if n <= 3 {
		return []string{"train", "val", "test"}[:n]
	}
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("split-%d", i)
	}
	return names
}

func (a *Action) runSplit(args []string) (interface{}, error) {
	d, err := a.load(args[0])
	if err != nil {
		return nil, err
	}
	out := args[1]
	stratified := a.getBool("stratified")
	result := map[string]int{}

	if folds := a.getInt("folds"); folds > 0 {
		k, err := splitter.NewKFold(a.rng(), folds, stratified)
		if err != nil {
			return nil, err
		}
		fs, err := k.Folds(d)
		if err != nil {
			return nil, errors.Wrap(err, "k-fold split failed")
		}
		for i, f := range fs {
			dir := filepath.Join(out, fmt.Sprintf("fold-%d", i))
			if err := a.save(f.Train, filepath.Join(dir, "train")); err != nil {
				return nil, err
			}
			if err := a.save(f.Validation, filepath.Join(dir, "val")); err != nil {
				return nil, err
			}
			result[fmt.Sprintf("fold-%d/train", i)] = f.Train.Imgs().Len()
			result[fmt.Sprintf("fold-%d/val", i)] = f.Validation.Imgs().Len()
		}
		return result, nil
	}

	var s splitter.Splitter
	props := a.getFloat64Slice("proportions")
	if stratified {
		s, err = splitter.NewStratified(a.rng(), props...)
	} else {
		s, err = splitter.NewProportional(a.rng(), props...)
	}
	if err != nil {
		return nil, err
	}
	splits, err := s.Split(d)
	if err != nil {
		return nil, errors.Wrap(err, "split failed")
	}
	for i, name := range splitNames(len(splits)) {
		if err := a.save(splits[i], filepath.Join(out, name)); err != nil {
			return nil, err
		}
		result[name] = splits[i].Imgs().Len()
	}
	return result, nil
}

func split(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	action.Start("Splitting dataset %s", args[0])
	action.Exit(action.runSplit(args))
}

//
// Convert
//

// transforms builds the image transforms requested by the flags
func (a *Action) transforms() (transform.Compose, error) {
	var tfs transform.Compose
	if a.getBool("flip-h") || a.getBool("flip-v") {
		tfs = append(tfs, transform.Flip{Horizontal: a.getBool("flip-h"), Vertical: a.getBool("flip-v")})
	}
	if a.changed("width") || a.changed("height") {
		var r cocohelper.Transform
		var err error
		if a.getBool("letterbox") {
			r, err = transform.NewLetterbox(a.getInt("width"), a.getInt("height"))
		} else {
			r, err = transform.NewResize(a.getInt("width"), a.getInt("height"))
		}
		if err != nil {
			return nil, err
		}
		tfs = append(tfs, r)
	}
	return tfs, nil
}

func (a *Action) runConvert(args []string) (interface{}, error) {
	d, err := a.load(args[0])
	if err != nil {
		return nil, err
	}
	out := args[1]
	tfs, err := a.transforms()
	if err != nil {
		return nil, err
	}
	if len(tfs) > 0 {
		if d, err = d.TransformDataset(tfs, out, nil); err != nil {
			return nil, errors.Wrap(err, "transform failed")
		}
	}
	mode, err := a.cfg.mode()
	if err != nil {
		return nil, err
	}
	res, err := d.ConvertSegmentations(mode, a.cfg.polygonOptions())
	if err != nil {
		return nil, errors.Wrap(err, "segmentation conversion failed")
	}
	if err := a.save(res, out); err != nil {
		return nil, err
	}
	return summarize(res), nil
}

func convert(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	action.Start("Converting dataset %s", args[0])
	action.Exit(action.runConvert(args))
}

//
// Export masks
//

type maskExport struct {
	Dir     string `json:"dir" yaml:"dir"`
	Masks   int    `json:"masks" yaml:"masks"`
	Scaling int    `json:"scaling" yaml:"scaling"`
}

func (a *Action) runMasks(args []string) (interface{}, error) {
	d, err := a.load(args[0])
	if err != nil {
		return nil, err
	}
	scaling := a.getInt("scaling")
	if err := d.ExportLabelMasks(args[1], scaling, nil); err != nil {
		return nil, errors.Wrap(err, "label mask export failed")
	}
	return maskExport{Dir: args[1], Masks: len(d.Images()), Scaling: scaling}, nil
}

func masks(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	action.Start("Exporting label masks of %s", args[0])
	action.Exit(action.runMasks(args))
}

//
// Import masks
//

// maskEntries pairs every image in imgDir with the masks in maskDir whose name
// starts with the image name
func maskEntries(imgDir, maskDir string) ([]adapter.Entry, error) {
	files, err := os.ReadDir(imgDir)
	if err != nil {
		return nil, errors.Wrap(err, "read image directory failed")
	}
	var entries []adapter.Entry
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		masks, err := filepath.Glob(filepath.Join(maskDir, baseSansExt(f.Name())+"*"))
		if err != nil {
			return nil, errors.Wrap(err, "glob masks failed")
		}
		if len(masks) == 0 {
			continue
		}
		sort.Strings(masks)
		entries = append(entries, adapter.Entry{Image: filepath.Join(imgDir, f.Name()), Masks: masks})
	}
	if len(entries) == 0 {
		return nil, errors.Errorf("no image in %s has a mask in %s", imgDir, maskDir)
	}
	return entries, nil
}

// labelCategories maps mask value i+1 to the category on line i of the labels
// file
func labelCategories(fname string) (map[uint8]cocohelper.Category, error) {
	cats, err := cocohelper.LoadLabels(fname)
	if err != nil {
		return nil, errors.Wrapf(err, "load labels %s failed", fname)
	}
	if len(cats) == 0 || len(cats) > math.MaxUint8 {
		return nil, errors.Errorf("labels file %s must name between 1 and %d categories, got %d",
			fname, math.MaxUint8, len(cats))
	}
	out := make(map[uint8]cocohelper.Category, len(cats))
	for i, c := range cats {
		out[uint8(i+1)] = c
	}
	return out, nil
}

func (a *Action) runImportMasks(args []string) (interface{}, error) {
	entries, err := maskEntries(args[0], args[1])
	if err != nil {
		return nil, err
	}
	cats, err := labelCategories(a.getString("labels"))
	if err != nil {
		return nil, err
	}
	mode, err := a.cfg.mode()
	if err != nil {
		return nil, err
	}
	polygon := a.cfg.polygonOptions()
	ad := adapter.NewBinaryMaskAdapter(entries, cats, adapter.BinaryMaskOptions{
		Mode:    mode,
		Polygon: &polygon,
	})
	out := args[2]
	d, err := adapter.NewImporter(ad).Create(adapter.CreateOptions{
		OutDir:     out,
		Paths:      a.cfg.paths(),
		SaveImages: !a.getBool("no-images"),
		IDs:        adapter.NewIDGenerator(a.getInt64("first-id")),
		Validate:   a.getBool("validate"),
	})
	if err != nil {
		return nil, errors.Wrap(err, "import failed")
	}
	if err := a.save(d, ""); err != nil {
		return nil, err
	}
	return summarize(d), nil
}

func importMasks(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	action.Start("Importing masks from %s", args[1])
	action.Exit(action.runImportMasks(args))
}
