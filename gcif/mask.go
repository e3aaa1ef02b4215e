package gcif

// Mask is the external dominant-color mask collaborator named in §1: it
// reports which pixels are pre-classified as masked and the single
// reconstructed color those pixels decode to regardless of the residual
// stream. *maskstore.Store satisfies this interface.
type Mask interface {
	Width() int
	Height() int
	IsMasked(x, y int) bool
	Color() [4]byte
}
