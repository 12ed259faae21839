package segmentation

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// EncodeRLE run length encodes the non-zero pixels of the mask scanning column
// by column.  The first count is always a background run and may be zero.
func EncodeRLE(m Mask) RLE {

	counts := make([]int, 0, 8)
	last := false
	run := 0

	for x := 0; x < m.Width; x++ {
		for y := 0; y < m.Height; y++ {
			fg := m.At(x, y) != 0
			if fg != last {
				counts = append(counts, run)
				run = 0
				last = fg
			}
			run++
		}
	}

	counts = append(counts, run)

	return RLE{Counts: counts, Size: [2]int{m.Height, m.Width}}
}

// DecodeRLE expands an RLE into a binary mask with foreground value 1
func DecodeRLE(r RLE) (Mask, error) {

	h, w := r.Height(), r.Width()

	if h < 0 || w < 0 {
		return Mask{}, fmt.Errorf("%w: negative RLE size %v", ErrFormat, r.Size)
	}

	m := NewMask(h, w)
	total := h * w
	pos := 0
	fg := false

	for _, c := range r.Counts {
		if c < 0 || pos+c > total {
			return Mask{}, fmt.Errorf("%w: RLE counts exceed mask size %dx%d", ErrFormat, h, w)
		}
		if fg {
			for p := pos; p < pos+c; p++ {
				// p walks the mask in column-major order
				m.Set(p/h, p%h, 1)
			}
		}
		pos += c
		fg = !fg
	}

	return m, nil
}

// countsToString writes RLE counts in the compact COCO string form.  Counts
// from the third onwards are stored as the difference to the count two places
// before, each value is split into 5 bit groups with a continuation flag.
func countsToString(cnts []int) []byte {

	var out []byte

	for i := range cnts {

		x := int64(cnts[i])

		if i > 2 {
			x -= int64(cnts[i-2])
		}

		more := true

		for more {
			c := x & 0x1f
			x >>= 5

			if c&0x10 != 0 {
				more = x != -1
			} else {
				more = x != 0
			}

			if more {
				c |= 0x20
			}

			out = append(out, byte(c+48))
		}
	}

	return out
}

// countsFromString parses the compact COCO counts string
func countsFromString(s []byte) ([]int, error) {

	var cnts []int
	p := 0

	for p < len(s) {

		var x int64
		k := 0
		more := true

		for more {
			if p >= len(s) {
				return nil, fmt.Errorf("%w: truncated RLE counts string", ErrFormat)
			}

			c := int64(s[p]) - 48
			x |= (c & 0x1f) << (5 * k)
			more = c&0x20 != 0
			p++
			k++

			if !more && c&0x10 != 0 {
				x |= -1 << (5 * k)
			}
		}

		if len(cnts) > 2 {
			x += int64(cnts[len(cnts)-2])
		}

		cnts = append(cnts, int(x))
	}

	return cnts, nil
}

// EncodeCompressedRLE encodes the mask as compact RLE counts, zlib compressed
// at best compression and base64 encoded
func EncodeCompressedRLE(m Mask) (string, error) {

	raw := countsToString(EncodeRLE(m).Counts)

	var buf bytes.Buffer

	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)

	if err != nil {
		return "", fmt.Errorf("error creating zlib writer: %w", err)
	}

	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("error compressing RLE counts: %w", err)
	}

	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("error closing zlib writer: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeCompressedRLE reverses EncodeCompressedRLE.  The size of the mask is
// not part of the string so it must be supplied.
func DecodeCompressedRLE(s string, height, width int) (Mask, error) {

	data, err := base64.StdEncoding.DecodeString(s)

	if err != nil {
		return Mask{}, fmt.Errorf("%w: error decoding base64: %v", ErrFormat, err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(data))

	if err != nil {
		return Mask{}, fmt.Errorf("%w: error opening zlib stream: %v", ErrFormat, err)
	}

	defer zr.Close()

	raw, err := io.ReadAll(zr)

	if err != nil {
		return Mask{}, fmt.Errorf("%w: error decompressing RLE counts: %v", ErrFormat, err)
	}

	cnts, err := countsFromString(raw)

	if err != nil {
		return Mask{}, err
	}

	return DecodeRLE(RLE{Counts: cnts, Size: [2]int{height, width}})
}
