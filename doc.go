/*
go-cocohelper provides an in-memory model of COCO image datasets.  A Dataset
holds the image, annotation, category and license tables of a COCO annotation
file and offers joins, filtering, duplicate removal and merging on top of them.
Every operation returns a new Dataset and leaves the original unchanged.

Segmentations are decoded into a tagged union of polygon, RLE and compressed
RLE encodings and can be converted between modes through the segmentation
package, which uses OpenCV via GoCV for contour extraction and rasterisation.

The splitter, transform, stats, adapter and render subpackages build on the
Dataset to split datasets into folds, augment images with their annotations,
report statistics, import label masks and draw annotations.

See the cmd/cocohelper command for example usage.
*/
package cocohelper
