package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-cocohelper"
	"github.com/swdee/go-cocohelper/segmentation"
	"github.com/swdee/go-cocohelper/stats"
	"github.com/swdee/go-cocohelper/transform"
)

const fixtureDir = "../../testdata/coco"

// testAction builds the action of the named command with the given flags
func testAction(t *testing.T, name string, flags ...string) *Action {

	t.Helper()

	cmd, _, err := newRoot().Find([]string{name})
	require.NoError(t, err)
	require.NoError(t, cmd.ParseFlags(flags))

	a := &Action{cmd: cmd, start: time.Now(), log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	a.cfg, err = a.loadConfig()
	require.NoError(t, err)

	return a
}

func writeFile(t *testing.T, name, content string) string {

	t.Helper()

	fname := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(fname, []byte(content), 0o644))

	return fname
}

func TestLoadConfigDefaults(t *testing.T) {

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	assert.Equal(t, cocohelper.DefaultPaths(), cfg.paths())

	mode, err := cfg.mode()
	require.NoError(t, err)
	assert.Equal(t, segmentation.ModePolygon, mode)
}

func TestLoadConfigFile(t *testing.T) {

	fname := writeFile(t, "config.yaml", `
log:
  level: debug
paths:
  ann_file: train.json
segmentation:
  mode: RLE
  compression_factor: 2
`)

	cfg, err := loadConfig(fname)
	require.NoError(t, err)

	level, err := cfg.level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	assert.Equal(t, "train.json", cfg.Paths.AnnFile)
	// keys missing from the file keep their defaults
	assert.Equal(t, cocohelper.DefaultPaths().ImgDir, cfg.Paths.ImgDir)
	assert.Equal(t, segmentation.DefaultPolygonOptions().SimplifyTolerance, cfg.polygonOptions().SimplifyTolerance)
	assert.Equal(t, 2.0, cfg.polygonOptions().CompressionFactor)

	mode, err := cfg.mode()
	require.NoError(t, err)
	assert.Equal(t, segmentation.ModeRLE, mode)
}

func TestLoadConfigErrors(t *testing.T) {

	tests := []struct {
		name    string
		content string
	}{
		{"level", "log:\n  level: loud\n"},
		{"mode", "segmentation:\n  mode: mesh\n"},
		{"syntax", "log: [\n"},
	}

	for _, tc := range tests {
		_, err := loadConfig(writeFile(t, "config.yaml", tc.content))
		assert.Error(t, err, tc.name)
	}

	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFlagsOverrideConfig(t *testing.T) {

	fname := writeFile(t, "config.yaml", "paths:\n  ann_file: train.json\n  img_dir: pictures/\n")

	a := testAction(t, "info", "--config", fname, "--ann-file", "val.json", "--mode", "cRLE")

	assert.Equal(t, "val.json", a.cfg.Paths.AnnFile)
	assert.Equal(t, "pictures/", a.cfg.Paths.ImgDir)
	assert.Equal(t, "cRLE", a.cfg.Segmentation.Mode)

	cmd, _, err := newRoot().Find([]string{"info"})
	require.NoError(t, err)
	require.NoError(t, cmd.ParseFlags([]string{"--mode", "mesh"}))

	_, err = (&Action{cmd: cmd}).loadConfig()
	assert.Error(t, err)
}

func TestBuildLogger(t *testing.T) {

	cfg := defaultConfig()
	cfg.Log.Path = filepath.Join(t.TempDir(), "logs", "cocohelper.log")

	var buf bytes.Buffer

	log, closer, err := buildLogger(cfg, &buf)
	require.NoError(t, err)

	log.Info("hello")
	log.Debug("hidden")
	require.NoError(t, closer.Close())

	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "run_id=")
	assert.NotContains(t, buf.String(), "hidden")

	data, err := os.ReadFile(cfg.Log.Path)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(data))

	cfg.Log.Level = "loud"
	_, _, err = buildLogger(cfg, &buf)
	assert.Error(t, err)
}

func TestSelectors(t *testing.T) {

	a := testAction(t, "filter", "--cat-name", "circle", "--cat-name", "square",
		"--img-id", "1,2", "--area-min", "4", "--crowd=false", "--or", "--invert")

	sel, err := a.selectors()
	require.NoError(t, err)

	assert.Equal(t, []string{"circle", "square"}, sel.CatNames)
	assert.Equal(t, []int64{1, 2}, sel.ImgIDs)
	assert.Nil(t, sel.CatIDs)
	assert.Nil(t, sel.AnnIDs)
	require.NotNil(t, sel.IsCrowd)
	assert.False(t, *sel.IsCrowd)
	require.NotNil(t, sel.AreaRange)
	assert.Equal(t, 4.0, sel.AreaRange.Min)
	assert.True(t, math.IsInf(sel.AreaRange.Max, 1))
	assert.True(t, sel.Invert)

	a = testAction(t, "filter", "--area-min", "10", "--area-max", "5")
	_, err = a.selectors()
	assert.Error(t, err)

	a = testAction(t, "filter")
	sel, err = a.selectors()
	require.NoError(t, err)
	assert.Nil(t, sel.IsCrowd)
	assert.Nil(t, sel.AreaRange)
}

func TestRunInfo(t *testing.T) {

	res, err := testAction(t, "info").runInfo([]string{fixtureDir})
	require.NoError(t, err)

	s := res.(summary)
	assert.Equal(t, 14, s.Images)
	assert.Equal(t, 46, s.Annotations)
	assert.Equal(t, []categoryCount{
		{ID: 0, Name: "circle", Annotations: 23},
		{ID: 1, Name: "square", Annotations: 22},
		{ID: 2, Name: "triangle", Annotations: 1},
	}, s.Categories)

	_, err = testAction(t, "info").runInfo([]string{t.TempDir()})
	assert.Error(t, err)
}

func TestRunValidate(t *testing.T) {

	res, err := testAction(t, "validate").runValidate([]string{fixtureDir})
	require.NoError(t, err)
	assert.NotEmpty(t, res)
}

func TestRunStats(t *testing.T) {

	res, err := testAction(t, "stats", "--pixels", "1", "--statistic", "mean").runStats([]string{fixtureDir})
	require.NoError(t, err)

	s := res.(datasetStats)
	assert.Equal(t, 14, s.Images)
	assert.Equal(t, stats.Size{Height: 48, Width: 64}, s.ImageSizes.Mean)
	assert.Equal(t, &stats.Size{Height: 48, Width: 64}, s.OptimalSize)
	assert.InDelta(t, 23.0/46, s.CategoryRatios["circle"], 1e-9)

	_, err = testAction(t, "stats", "--pixels", "10", "--statistic", "max").runStats([]string{fixtureDir})
	assert.Error(t, err)
}

func TestRunFilter(t *testing.T) {

	out := t.TempDir()

	res, err := testAction(t, "filter", "--cat-id", "2").runFilter([]string{fixtureDir, out})
	require.NoError(t, err)

	s := res.(summary)
	assert.Equal(t, 1, s.Images)
	assert.Equal(t, 1, s.Annotations)
	assert.Equal(t, []categoryCount{{ID: 2, Name: "triangle", Annotations: 1}}, s.Categories)
	assert.FileExists(t, filepath.Join(out, "annotations", "coco.json"))
}

func TestRunMerge(t *testing.T) {

	out := t.TempDir()

	res, err := testAction(t, "merge").runMerge([]string{out, fixtureDir, fixtureDir})
	require.NoError(t, err)
	assert.Equal(t, 14, res.(summary).Images)
	assert.Equal(t, 46, res.(summary).Annotations)

	res, err = testAction(t, "merge", "--keep-duplicates").runMerge([]string{out, fixtureDir, fixtureDir})
	require.NoError(t, err)
	assert.Equal(t, 28, res.(summary).Images)

	back, err := cocohelper.Load(out, cocohelper.Options{})
	require.NoError(t, err)
	assert.Equal(t, 28, back.Imgs().Len())
}

func TestSplitNames(t *testing.T) {
	assert.Equal(t, []string{"train", "val"}, splitNames(2))
	assert.Equal(t, []string{"train", "val", "test"}, splitNames(3))
	assert.Equal(t, []string{"split-0", "split-1", "split-2", "split-3"}, splitNames(4))
}

func TestRunSplit(t *testing.T) {

	out := t.TempDir()

	res, err := testAction(t, "split", "--proportions", "0.7,0.3", "--seed", "42").runSplit([]string{fixtureDir, out})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"train": 10, "val": 4}, res)
	assert.FileExists(t, filepath.Join(out, "train", "annotations", "coco.json"))
	assert.FileExists(t, filepath.Join(out, "val", "annotations", "coco.json"))

	_, err = testAction(t, "split", "--proportions", "1").runSplit([]string{fixtureDir, out})
	assert.Error(t, err)
}

func TestRunSplitFolds(t *testing.T) {

	out := t.TempDir()

	res, err := testAction(t, "split", "--folds", "2", "--seed", "1").runSplit([]string{fixtureDir, out})
	require.NoError(t, err)

	sizes := res.(map[string]int)
	require.Len(t, sizes, 4)

	for i := 0; i < 2; i++ {
		train := sizes[fmt.Sprintf("fold-%d/train", i)]
		val := sizes[fmt.Sprintf("fold-%d/val", i)]
		assert.Equal(t, 14, train+val)
	}

	assert.FileExists(t, filepath.Join(out, "fold-1", "val", "annotations", "coco.json"))
}

func TestRunConvert(t *testing.T) {

	out := t.TempDir()

	_, err := testAction(t, "convert", "--mode", "RLE").runConvert([]string{fixtureDir, out})
	require.NoError(t, err)

	back, err := cocohelper.Load(out, cocohelper.Options{})
	require.NoError(t, err)

	for _, a := range back.Annotations() {
		if !a.Segmentation.IsEmpty() {
			assert.Equal(t, segmentation.ModeRLE, a.Segmentation.Mode, "annotation %d", a.ID)
		}
	}
}

func TestRunConvertTransforms(t *testing.T) {

	out := t.TempDir()

	a := testAction(t, "convert", "--width", "32", "--height", "24", "--flip-h")

	tfs, err := a.transforms()
	require.NoError(t, err)
	assert.Len(t, tfs, 2)

	res, err := a.runConvert([]string{fixtureDir, out})
	require.NoError(t, err)
	assert.Equal(t, 14, res.(summary).Images)

	back, err := cocohelper.Load(out, cocohelper.Options{})
	require.NoError(t, err)

	for _, img := range back.Images() {
		assert.Equal(t, 32, img.Width)
		assert.Equal(t, 24, img.Height)
	}

	assert.FileExists(t, filepath.Join(out, "images", "img_00.png"))

	_, err = testAction(t, "convert", "--width", "32").transforms()
	assert.Error(t, err)

	tfs, err = testAction(t, "convert", "--width", "32", "--height", "32", "--letterbox").transforms()
	require.NoError(t, err)
	require.Len(t, tfs, 1)
	assert.IsType(t, &transform.Letterbox{}, tfs[0])
}

func writePNG(t *testing.T, fname string, img image.Image) {

	t.Helper()

	f, err := os.Create(fname)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, png.Encode(f, img))
}

func TestRunImportMasks(t *testing.T) {

	root := t.TempDir()
	imgDir := filepath.Join(root, "images")
	maskDir := filepath.Join(root, "masks")
	out := filepath.Join(root, "out")

	require.NoError(t, os.MkdirAll(imgDir, 0o755))
	require.NoError(t, os.MkdirAll(maskDir, 0o755))

	rgb := image.NewRGBA(image.Rect(0, 0, 30, 20))
	mask := image.NewGray(image.Rect(0, 0, 30, 20))

	for y := 2; y < 7; y++ {
		for x := 2; x < 7; x++ {
			mask.SetGray(x, y, color.Gray{Y: 1})
		}
	}

	for y := 10; y < 15; y++ {
		for x := 20; x < 25; x++ {
			mask.SetGray(x, y, color.Gray{Y: 2})
		}
	}

	writePNG(t, filepath.Join(imgDir, "a.png"), rgb)
	writePNG(t, filepath.Join(imgDir, "b.png"), rgb)
	writePNG(t, filepath.Join(maskDir, "a_mask.png"), mask)

	labels := writeFile(t, "labels.txt", "circle,shape\nsquare,shape\n")

	entries, err := maskEntries(imgDir, maskDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{filepath.Join(maskDir, "a_mask.png")}, entries[0].Masks)

	res, err := testAction(t, "import-masks", "--labels", labels, "--first-id", "10").
		runImportMasks([]string{imgDir, maskDir, out})
	require.NoError(t, err)

	s := res.(summary)
	assert.Equal(t, 1, s.Images)
	assert.Equal(t, 2, s.Annotations)
	assert.Equal(t, []categoryCount{
		{ID: 0, Name: "circle", Annotations: 1},
		{ID: 1, Name: "square", Annotations: 1},
	}, s.Categories)

	assert.FileExists(t, filepath.Join(out, "images", "a.png"))

	back, err := cocohelper.Load(out, cocohelper.Options{})
	require.NoError(t, err)

	ids := []int64{}
	for _, a := range back.Annotations() {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []int64{10, 11}, ids)

	_, err = maskEntries(imgDir, t.TempDir())
	assert.Error(t, err)
}

func TestLabelCategories(t *testing.T) {

	cats, err := labelCategories(writeFile(t, "labels.txt", "circle\n\nsquare,shape\n"))
	require.NoError(t, err)

	assert.Equal(t, map[uint8]cocohelper.Category{
		1: {ID: 0, Name: "circle"},
		2: {ID: 1, Name: "square", Supercategory: "shape"},
	}, cats)

	_, err = labelCategories(writeFile(t, "empty.txt", "\n"))
	assert.Error(t, err)
}

func TestRunMasks(t *testing.T) {

	out := t.TempDir()

	res, err := testAction(t, "masks", "--scaling", "80").runMasks([]string{fixtureDir, out})
	require.NoError(t, err)
	assert.Equal(t, maskExport{Dir: out, Masks: 14, Scaling: 80}, res)

	f, err := os.Open(filepath.Join(out, "img_00"+cocohelper.LabelMaskSuffix))
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)

	gray, ok := img.(*image.Gray)
	require.True(t, ok, "got %T", img)
	assert.Equal(t, uint8(80), gray.GrayAt(30, 1).Y)
	assert.Equal(t, uint8(160), gray.GrayAt(40, 6).Y)
	assert.Equal(t, uint8(0), gray.GrayAt(0, 47).Y)

	_, err = testAction(t, "masks", "--scaling", "90").runMasks([]string{fixtureDir, t.TempDir()})
	assert.ErrorIs(t, err, cocohelper.ErrUsage)
}
