package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"
)

// archiveMagic tags a bundle of sprite files (an atlas) packed together.
// Only the directory header is zstd-compressed; the per-sprite bodies
// already carry their own static-Huffman entropy coding, and running a
// general-purpose compressor over that stream a second time would just
// spend cycles failing to find redundancy (Design Note 4's O(1)-decode
// intent assumes one entropy pass, not two).
var archiveMagic = [4]byte{'G', 'P', 'A', 'K'}

type dirEntry struct {
	name         string
	offset, size uint64
}

func runPack(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("pack: usage: gcif pack <output.gpak> <sprite1.gcf> [sprite2.gcf ...]")
	}
	outPath, inputs := args[0], args[1:]
	sort.Strings(inputs)

	var body bytes.Buffer
	entries := make([]dirEntry, 0, len(inputs))
	for _, in := range inputs {
		data, err := os.ReadFile(in)
		if err != nil {
			return fmt.Errorf("pack: %w", err)
		}
		entries = append(entries, dirEntry{
			name:   filepath.Base(in),
			offset: uint64(body.Len()),
			size:   uint64(len(data)),
		})
		body.Write(data)
	}

	var rawDir bytes.Buffer
	binary.Write(&rawDir, binary.LittleEndian, uint32(len(entries)))
	for _, e := range entries {
		binary.Write(&rawDir, binary.LittleEndian, uint16(len(e.name)))
		rawDir.WriteString(e.name)
		binary.Write(&rawDir, binary.LittleEndian, e.offset)
		binary.Write(&rawDir, binary.LittleEndian, e.size)
	}

	zenc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("pack: %w", err)
	}
	compressedDir := zenc.EncodeAll(rawDir.Bytes(), nil)
	zenc.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	out.Write(archiveMagic[:])
	binary.Write(out, binary.LittleEndian, uint32(rawDir.Len()))
	binary.Write(out, binary.LittleEndian, uint32(len(compressedDir)))
	out.Write(compressedDir)
	_, err = out.Write(body.Bytes())
	if err != nil {
		return fmt.Errorf("pack: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Packed %d sprites into %s\n", len(entries), outPath)
	return nil
}

// openArchiveEntry reads name's bytes out of the .gpak archive at path.
func openArchiveEntry(path, name string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil || magic != archiveMagic {
		return nil, fmt.Errorf("gcif: not a pack archive (bad magic)")
	}
	var rawLen, compLen uint32
	if err := binary.Read(f, binary.LittleEndian, &rawLen); err != nil {
		return nil, err
	}
	if err := binary.Read(f, binary.LittleEndian, &compLen); err != nil {
		return nil, err
	}
	compressedDir := make([]byte, compLen)
	if _, err := io.ReadFull(f, compressedDir); err != nil {
		return nil, err
	}
	bodyStart, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	zdec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer zdec.Close()
	rawDir, err := zdec.DecodeAll(compressedDir, make([]byte, 0, rawLen))
	if err != nil {
		return nil, fmt.Errorf("gcif: decompressing archive directory: %w", err)
	}

	entries, err := parseDir(rawDir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.name != name {
			continue
		}
		data := make([]byte, e.size)
		if _, err := f.ReadAt(data, bodyStart+int64(e.offset)); err != nil {
			return nil, err
		}
		return data, nil
	}
	return nil, fmt.Errorf("gcif: archive has no entry %q", name)
}

func listArchive(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil || magic != archiveMagic {
		return nil, fmt.Errorf("gcif: not a pack archive (bad magic)")
	}
	var rawLen, compLen uint32
	if err := binary.Read(f, binary.LittleEndian, &rawLen); err != nil {
		return nil, err
	}
	if err := binary.Read(f, binary.LittleEndian, &compLen); err != nil {
		return nil, err
	}
	compressedDir := make([]byte, compLen)
	if _, err := io.ReadFull(f, compressedDir); err != nil {
		return nil, err
	}

	zdec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer zdec.Close()
	rawDir, err := zdec.DecodeAll(compressedDir, make([]byte, 0, rawLen))
	if err != nil {
		return nil, fmt.Errorf("gcif: decompressing archive directory: %w", err)
	}

	entries, err := parseDir(rawDir)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names, nil
}

func parseDir(raw []byte) ([]dirEntry, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("gcif: truncated archive directory")
	}
	count := binary.LittleEndian.Uint32(raw)
	raw = raw[4:]
	entries := make([]dirEntry, count)
	for i := range entries {
		if len(raw) < 2 {
			return nil, fmt.Errorf("gcif: truncated archive directory")
		}
		nameLen := int(binary.LittleEndian.Uint16(raw))
		raw = raw[2:]
		if len(raw) < nameLen+16 {
			return nil, fmt.Errorf("gcif: truncated archive directory")
		}
		entries[i].name = string(raw[:nameLen])
		raw = raw[nameLen:]
		entries[i].offset = binary.LittleEndian.Uint64(raw)
		raw = raw[8:]
		entries[i].size = binary.LittleEndian.Uint64(raw)
		raw = raw[8:]
	}
	return entries, nil
}

func runList(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("list: usage: gcif list <archive.gpak>")
	}
	names, err := listArchive(args[0])
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}
