// Package gcif is the root codec driver of §4.7: it ties the filter
// catalog, tile planner, residual engine, chaos model, entropy bank, LZ
// finder, and monochrome sub-engine into a single encode/decode API over
// a flat RGBA8 pixel buffer.
//
// Grounded on how deepteams-webp's top-level webp package wraps
// internal/lossless: Image mirrors that package's preference for a flat
// pixel buffer in the core (internal/lossless operates on []uint32 ARGB,
// not image.Image) with image.Image interop pushed to bridge helpers at
// the boundary.
package gcif

import "image"

// Image is a flat RGBA8 row-major pixel buffer, the in-memory
// representation the codec driver operates on directly.
type Image struct {
	Width, Height int
	Pix           []byte // len == Width*Height*4
}

// At returns the RGBA pixel at (x, y).
func (img Image) At(x, y int) [4]byte {
	i := (y*img.Width + x) * 4
	return [4]byte{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
}

// ToImage bridges to image.NRGBA for callers that want image.Image
// interop.
func (img Image) ToImage() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		srcOff := y * img.Width * 4
		dstOff := out.PixOffset(0, y)
		copy(out.Pix[dstOff:dstOff+img.Width*4], img.Pix[srcOff:srcOff+img.Width*4])
	}
	return out
}

// FromImage builds an Image from an image.NRGBA source.
func FromImage(src *image.NRGBA) Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := Image{Width: w, Height: h, Pix: make([]byte, w*h*4)}
	for y := 0; y < h; y++ {
		srcOff := src.PixOffset(b.Min.X, b.Min.Y+y)
		dstOff := y * w * 4
		copy(out.Pix[dstOff:dstOff+w*4], src.Pix[srcOff:srcOff+w*4])
	}
	return out
}

func pixSlice(img Image) [][4]byte {
	out := make([][4]byte, img.Width*img.Height)
	for i := range out {
		off := i * 4
		out[i] = [4]byte{img.Pix[off], img.Pix[off+1], img.Pix[off+2], img.Pix[off+3]}
	}
	return out
}

func fromPixSlice(pix [][4]byte, width, height int) Image {
	out := Image{Width: width, Height: height, Pix: make([]byte, width*height*4)}
	for i, p := range pix {
		off := i * 4
		out.Pix[off], out.Pix[off+1], out.Pix[off+2], out.Pix[off+3] = p[0], p[1], p[2], p[3]
	}
	return out
}
