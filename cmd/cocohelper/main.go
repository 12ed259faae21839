// Command cocohelper inspects, validates and reshapes COCO datasets.
package main

import (
	"github.com/spf13/cobra"
	"github.com/swdee/go-cocohelper/stats"
)

func addCommands(root *cobra.Command) {
	var cmd *cobra.Command

	// Inspection

	cmd = &cobra.Command{
		Use:   "info dir",
		Short: "Summarize a dataset",
		Args:  cobra.ExactArgs(1),
		Run:   info}
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "validate dir",
		Short: "Run every validation check on a dataset",
		Args:  cobra.ExactArgs(1),
		Run:   validate}
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "stats dir",
		Short: "Compute image size and category statistics",
		Args:  cobra.ExactArgs(1),
		Run:   showStats}
	cmd.Flags().String("statistic", string(stats.Median), "image size statistic for the optimal size, 'mean', 'median' or 'mode'")
	cmd.Flags().Int("pixels", 0, "pixel count of the optimal image size, 0 skips it")
	root.AddCommand(cmd)

	// Reshaping

	cmd = &cobra.Command{
		Use:   "filter dir out",
		Short: "Keep the images, categories and annotations matching the selectors",
		Args:  cobra.ExactArgs(2),
		Run:   filterDataset}
	cmd.Flags().Int64Slice("img-id", nil, "image ids")
	cmd.Flags().StringArray("img-name", nil, "image file names")
	cmd.Flags().Int64Slice("cat-id", nil, "category ids")
	cmd.Flags().StringArray("cat-name", nil, "category names")
	cmd.Flags().StringArray("supercat-name", nil, "supercategory names")
	cmd.Flags().Int64Slice("ann-id", nil, "annotation ids")
	cmd.Flags().Float64("area-min", 0, "minimum annotation area")
	cmd.Flags().Float64("area-max", 0, "maximum annotation area")
	cmd.Flags().Bool("crowd", false, "keep crowd (true) or non crowd (false) annotations")
	cmd.Flags().Bool("or", false, "combine the selectors with OR instead of AND")
	cmd.Flags().Bool("invert", false, "keep what the selectors would remove")
	cmd.Flags().Bool("keep-orphans", false, "filter each table on its own")
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "merge out dir dir...",
		Short: "Merge datasets into one",
		Args:  cobra.MinimumNArgs(3),
		Run:   merge}
	cmd.Flags().Bool("keep-duplicates", false, "keep duplicate rows of the merged dataset")
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "split dir out",
		Short: "Split a dataset by proportions or into k folds",
		Args:  cobra.ExactArgs(2),
		Run:   split}
	cmd.Flags().Float64Slice("proportions", []float64{0.8, 0.2}, "relative size of every split")
	cmd.Flags().Bool("stratified", false, "keep the category distribution in every split")
	cmd.Flags().Int("folds", 0, "number of k-fold folds, overrides proportions")
	cmd.Flags().Int64("seed", 0, "random seed (default: time based)")
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "convert dir out",
		Short: "Transform the images and re-encode the segmentations",
		Args:  cobra.ExactArgs(2),
		Run:   convert}
	cmd.Flags().Int("width", 0, "resize width")
	cmd.Flags().Int("height", 0, "resize height")
	cmd.Flags().Bool("letterbox", false, "keep the aspect ratio when resizing and pad the border")
	cmd.Flags().Bool("flip-h", false, "flip horizontally")
	cmd.Flags().Bool("flip-v", false, "flip vertically")
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "masks dir out",
		Short: "Write a grayscale label mask for every image",
		Args:  cobra.ExactArgs(2),
		Run:   masks}
	cmd.Flags().Int("scaling", 1, "multiply every label value to make the masks visible")
	root.AddCommand(cmd)

	// Import

	cmd = &cobra.Command{
		Use:   "import-masks images masks out",
		Short: "Create a dataset from images annotated with label masks",
		Args:  cobra.ExactArgs(3),
		Run:   importMasks}
	cmd.Flags().String("labels", "", "text file naming the category of every mask value (required)")
	cmd.MarkFlagRequired("labels")
	cmd.Flags().Bool("no-images", false, "do not copy the images below out")
	cmd.Flags().Int64("first-id", 1, "first annotation id")
	root.AddCommand(cmd)
}

func newRoot() *cobra.Command {
	var root = &cobra.Command{Use: "cocohelper"}
	root.PersistentFlags().String("config", "", "yaml config file")
	root.PersistentFlags().String("log-level", "", "log level (default: info)")
	root.PersistentFlags().String("log-file", "", "rotated log file")
	root.PersistentFlags().String("ann-dir", "", "annotation directory below the dataset root")
	root.PersistentFlags().String("ann-file", "", "annotation file name")
	root.PersistentFlags().String("img-dir", "", "image directory below the dataset root")
	root.PersistentFlags().String("mode", "", "segmentation mode, 'polygon', 'RLE' or 'cRLE'")
	root.PersistentFlags().Bool("validate", false, "validate every dataset")
	root.PersistentFlags().BoolP("quiet", "q", false, "silence status output")
	root.PersistentFlags().String("format", "json", "format results, 'json' or 'yaml'")
	addCommands(root)
	return root
}

func main() {
	newRoot().Execute()
}
