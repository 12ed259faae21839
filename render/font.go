package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Alignment of a label along the top edge of its box
type Alignment int

const (
	Left   Alignment = 1
	Center Alignment = 2
	Right  Alignment = 3
)

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Padding to place around text
	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int
	// Alignment of the text label to the bounding box
	Alignment Alignment
}

// DefaultFont returns default font settings
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.4,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		LeftPad:   3,
		RightPad:  3,
		TopPad:    3,
		BottomPad: 4,
		Alignment: Left,
	}
}

// label is text to draw on a filled background once every shape is drawn
type label struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// place positions text above the horizontal span [left, right] with its
// baseline resting on top
func (f Font) place(text string, left, right, top int, clr color.RGBA, lineThickness int) label {

	size := gocv.GetTextSize(text, f.Face, f.Scale, f.Thickness)

	var centerX int

	switch f.Alignment {
	case Center:
		centerX = (left + right) / 2
	case Right:
		centerX = right - size.X/2 - f.RightPad + lineThickness/2
	default:
		centerX = left + size.X/2 + f.LeftPad - lineThickness/2
	}

	return label{
		rect: image.Rect(centerX-size.X/2-f.LeftPad, top-size.Y-f.TopPad-f.BottomPad,
			centerX+size.X/2+f.RightPad, top),
		clr:     clr,
		text:    text,
		textPos: image.Pt(centerX-size.X/2, top-f.BottomPad),
	}
}

// drawLabels renders the labels so they are the top most layer
func drawLabels(img *gocv.Mat, f Font, labels []label) {
	for _, l := range labels {
		gocv.Rectangle(img, l.rect, l.clr, -1)
		gocv.PutTextWithParams(img, l.text, l.textPos, f.Face, f.Scale, f.Color, f.Thickness,
			f.LineType, false)
	}
}
