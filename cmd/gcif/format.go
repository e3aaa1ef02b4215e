package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/siddharths2710/gcif/gcif"
	"github.com/siddharths2710/gcif/internal/maskstore"
)

// spriteMagic tags a single encoded sprite file. The container wraps the
// core bit-stream with just enough framing to carry an optional mask
// payload alongside it; the core bit-stream itself (§6) stays untouched.
var spriteMagic = [4]byte{'G', 'C', 'F', '1'}

const (
	flagHasMask = 1 << 0
)

// encodeSprite writes img (optionally masked) as one framed sprite file.
func encodeSprite(w io.Writer, img gcif.Image, mask *maskstore.Store, knobs gcif.Knobs) error {
	enc, err := gcif.NewEncoder(img, wrapMask(mask), knobs)
	if err != nil {
		return err
	}
	var body bytes.Buffer
	if err := enc.Write(&body); err != nil {
		return err
	}

	var hdr bytes.Buffer
	hdr.Write(spriteMagic[:])
	var flags byte
	if mask != nil {
		flags |= flagHasMask
	}
	hdr.WriteByte(flags)
	if mask != nil {
		payload := mask.Encode()
		binary.Write(&hdr, binary.LittleEndian, uint32(len(payload)))
		hdr.Write(payload)
	}

	if _, err := w.Write(hdr.Bytes()); err != nil {
		return err
	}
	_, err = w.Write(body.Bytes())
	return err
}

// decodeSprite reads a file produced by encodeSprite and decodes it.
func decodeSprite(r io.Reader, knobs gcif.Knobs) (gcif.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return gcif.Image{}, err
	}
	if len(data) < 5 || [4]byte(data[:4]) != spriteMagic {
		return gcif.Image{}, fmt.Errorf("gcif: not a sprite file (bad magic)")
	}
	flags := data[4]
	pos := 5

	var mask *maskstore.Store
	if flags&flagHasMask != 0 {
		if len(data) < pos+4 {
			return gcif.Image{}, fmt.Errorf("gcif: truncated mask length")
		}
		n := int(binary.LittleEndian.Uint32(data[pos:]))
		pos += 4
		if len(data) < pos+n {
			return gcif.Image{}, fmt.Errorf("gcif: truncated mask payload")
		}
		mask, err = maskstore.Decode(data[pos : pos+n])
		if err != nil {
			return gcif.Image{}, fmt.Errorf("gcif: decoding mask payload: %w", err)
		}
		pos += n
	}

	dec := gcif.NewDecoder(wrapMask(mask), knobs)
	return dec.Read(bytes.NewReader(data[pos:]))
}

// wrapMask returns nil through the gcif.Mask interface when mask is a nil
// *maskstore.Store; a non-nil typed nil stored in an interface value would
// otherwise compare != nil and break gcif.NewEncoder's mask-dimension check.
func wrapMask(mask *maskstore.Store) gcif.Mask {
	if mask == nil {
		return nil
	}
	return mask
}
