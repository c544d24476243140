package export

import (
	"image"
	"image/color"

	"github.com/soniakeys/quant/median"
)

const (
	paletteSize = 256
	// 5 bits per channel.
	lookupBits = 5
	lookupSize = 1 << (3 * lookupBits)
)

// quantize maps img onto an adaptive median cut palette. quality is the
// pixel sampling stride used to build the palette, so lower values look at
// more pixels.
func quantize(img *image.RGBA, quality int) *image.Paletted {
	if quality < 1 {
		quality = 1
	}

	quantized := median.Quantizer(paletteSize).Quantize(make(color.Palette, 0, paletteSize), sample(img, quality))
	if len(quantized) == 0 {
		quantized = append(quantized, color.RGBA{A: 0xff})
	}
	palette := make(color.Palette, len(quantized))
	entries := make([]color.RGBA, len(quantized))
	for i, c := range quantized {
		entries[i] = color.RGBAModel.Convert(c).(color.RGBA)
		palette[i] = entries[i]
	}

	bounds := img.Bounds()
	out := image.NewPaletted(bounds, palette)

	lookup := make([]int16, lookupSize)
	for i := range lookup {
		lookup[i] = -1
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		src := img.Pix[img.PixOffset(bounds.Min.X, y):]
		dst := out.Pix[out.PixOffset(bounds.Min.X, y):]
		for x := 0; x < bounds.Dx(); x++ {
			r, g, b := src[4*x], src[4*x+1], src[4*x+2]
			key := lookupKey(r, g, b)
			idx := lookup[key]
			if idx < 0 {
				idx = int16(nearest(entries, r, g, b))
				lookup[key] = idx
			}
			dst[x] = uint8(idx)
		}
	}
	return out
}

// sample packs every stride-th pixel of img into a one-row opaque image.
func sample(img *image.RGBA, stride int) *image.RGBA {
	bounds := img.Bounds()
	n := bounds.Dx() * bounds.Dy()
	count := (n + stride - 1) / stride
	if count == 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}
	out := image.NewRGBA(image.Rect(0, 0, count, 1))
	w := bounds.Dx()
	for i, j := 0, 0; i < n; i, j = i+stride, j+1 {
		off := img.PixOffset(bounds.Min.X+i%w, bounds.Min.Y+i/w)
		copy(out.Pix[4*j:4*j+3], img.Pix[off:off+3])
		out.Pix[4*j+3] = 0xff
	}
	return out
}

func lookupKey(r, g, b uint8) int {
	const shift = 8 - lookupBits
	return int(r>>shift)<<(2*lookupBits) | int(g>>shift)<<lookupBits | int(b>>shift)
}

func nearest(p []color.RGBA, r, g, b uint8) int {
	best, bestDist := 0, -1
	for i, pc := range p {
		dr := int(pc.R) - int(r)
		dg := int(pc.G) - int(g)
		db := int(pc.B) - int(b)
		d := dr*dr + dg*dg + db*db
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
			if d == 0 {
				break
			}
		}
	}
	return best
}
