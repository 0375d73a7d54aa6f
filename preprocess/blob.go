// Package preprocess builds network input tensors from images.
package preprocess

import (
	"image"
	"image/draw"
	"math"

	"github.com/nfnt/resize"
	"gorgonia.org/tensor"
)

// Params controls how a frame is turned into an input blob. The zero value
// is not usable: Size must be set before inference, and Scale should
// normally be 1 or a normalization factor such as 1/255.
type Params struct {
	// Scale is the multiplier applied to every pixel after mean subtraction.
	Scale float64
	// Size is the target width/height of the network input.
	Size image.Point
	// Mean holds per-channel values subtracted from pixels before scaling.
	// Only the first three channels are used.
	Mean [4]float64
	// SwapRB swaps the first and third channels of the blob.
	SwapRB bool
	// Crop selects an aspect-preserving resize plus center crop instead of a
	// plain resize to Size.
	Crop bool
}

// Blob converts img into a 1x3xHxW float32 tensor: resize to Params.Size,
// subtract the per-channel mean, multiply by the scale, and lay the channels
// out planar (NCHW).
func Blob(img image.Image, p Params) *tensor.Dense {
	w, h := p.Size.X, p.Size.Y
	if p.Crop {
		img = resizeWithCrop(img, w, h)
	} else {
		img = resize.Resize(uint(w), uint(h), img, resize.Bilinear)
	}

	data := make([]float32, 3*w*h)
	planes := [3][]float32{
		data[0 : w*h],
		data[w*h : 2*w*h],
		data[2*w*h : 3*w*h],
	}

	i := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			px := [3]float64{float64(r >> 8), float64(g >> 8), float64(b >> 8)}
			if p.SwapRB {
				px[0], px[2] = px[2], px[0]
			}
			for c := 0; c < 3; c++ {
				planes[c][i] = float32((px[c] - p.Mean[c]) * p.Scale)
			}
			i++
		}
	}

	return tensor.New(tensor.WithShape(1, 3, h, w), tensor.WithBacking(data))
}

// resizeWithCrop scales the image preserving aspect ratio until both
// dimensions cover the target, then crops the overflow around the center.
func resizeWithCrop(img image.Image, w, h int) image.Image {
	srcW := img.Bounds().Dx()
	srcH := img.Bounds().Dy()
	scale := math.Max(float64(w)/float64(srcW), float64(h)/float64(srcH))
	resizedW := int(float64(srcW)*scale + 0.5)
	resizedH := int(float64(srcH)*scale + 0.5)

	resized := resize.Resize(uint(resizedW), uint(resizedH), img, resize.Bilinear)

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), resized, image.Pt((resizedW-w)/2, (resizedH-h)/2), draw.Src)
	return out
}
