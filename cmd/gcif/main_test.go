package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// binaryPath holds the path to the compiled gcif binary. Set in TestMain.
var binaryPath string

func TestMain(m *testing.M) {
	tmp, err := os.MkdirTemp("", "gcif-test-bin-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmp)

	binaryPath = filepath.Join(tmp, "gcif")
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = rootDir()
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		binaryPath = ""
		os.Exit(m.Run())
	}

	os.Exit(m.Run())
}

func rootDir() string {
	dir, err := filepath.Abs(".")
	if err != nil {
		panic(err)
	}
	return dir
}

func skipIfNoBinary(t *testing.T) {
	t.Helper()
	if binaryPath == "" {
		t.Skip("gcif binary not built; skipping")
	}
}

func runGcif(t *testing.T, stdin []byte, args ...string) (stdout, stderr []byte, err error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err = cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

// createTestPNG writes a small opaque gradient PNG, with one fully
// transparent corner pixel to exercise automask.
func createTestPNG(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if x == 0 && y == 0 {
				img.SetNRGBA(x, y, color.NRGBA{})
				continue
			}
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 32), G: uint8(y * 32), B: 128, A: 255})
		}
	}
	path := filepath.Join(dir, "input.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating test PNG: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		t.Fatalf("encoding test PNG: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing test PNG: %v", err)
	}
	return path
}

func assertSpriteMagic(t *testing.T, data []byte) {
	t.Helper()
	if len(data) < 5 || string(data[:4]) != "GCF1" {
		t.Fatalf("expected GCF1 magic, got %q", string(data[:min(4, len(data))]))
	}
}

// --- enc/dec round trip ---

func TestEnc_PNGToSprite(t *testing.T) {
	skipIfNoBinary(t)
	dir := t.TempDir()
	pngPath := createTestPNG(t, dir)
	outPath := filepath.Join(dir, "output.gcf")

	_, stderr, err := runGcif(t, nil, "enc", "-o", outPath, pngPath)
	if err != nil {
		t.Fatalf("enc failed: %v\nstderr: %s", err, stderr)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	assertSpriteMagic(t, data)
}

func TestDec_SpriteToPNG(t *testing.T) {
	skipIfNoBinary(t)
	dir := t.TempDir()
	pngPath := createTestPNG(t, dir)
	spritePath := filepath.Join(dir, "test.gcf")

	if _, stderr, err := runGcif(t, nil, "enc", "-o", spritePath, pngPath); err != nil {
		t.Fatalf("enc setup failed: %v\nstderr: %s", err, stderr)
	}

	outPNG := filepath.Join(dir, "decoded.png")
	if _, stderr, err := runGcif(t, nil, "dec", "-o", outPNG, spritePath); err != nil {
		t.Fatalf("dec failed: %v\nstderr: %s", err, stderr)
	}

	f, err := os.Open(outPNG)
	if err != nil {
		t.Fatalf("opening decoded PNG: %v", err)
	}
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decoding PNG config: %v", err)
	}
	if cfg.Width != 8 || cfg.Height != 8 {
		t.Errorf("decoded dimensions = %dx%d, want 8x8", cfg.Width, cfg.Height)
	}
}

func TestDec_PixelExactRoundTrip(t *testing.T) {
	skipIfNoBinary(t)
	dir := t.TempDir()
	pngPath := createTestPNG(t, dir)
	spritePath := filepath.Join(dir, "test.gcf")

	if _, _, err := runGcif(t, nil, "enc", "-o", spritePath, pngPath); err != nil {
		t.Fatalf("enc setup failed: %v", err)
	}
	outPNG := filepath.Join(dir, "decoded.png")
	if _, _, err := runGcif(t, nil, "dec", "-o", outPNG, spritePath); err != nil {
		t.Fatalf("dec failed: %v", err)
	}

	wantFile, err := os.Open(pngPath)
	if err != nil {
		t.Fatalf("opening source PNG: %v", err)
	}
	defer wantFile.Close()
	want, err := png.Decode(wantFile)
	if err != nil {
		t.Fatalf("decoding source PNG: %v", err)
	}

	gotFile, err := os.Open(outPNG)
	if err != nil {
		t.Fatalf("opening decoded PNG: %v", err)
	}
	defer gotFile.Close()
	got, err := png.Decode(gotFile)
	if err != nil {
		t.Fatalf("decoding output PNG: %v", err)
	}

	b := want.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			wr, wg, wb, wa := want.At(x, y).RGBA()
			gr, gg, gb, ga := got.At(x, y).RGBA()
			if wr != gr || wg != gg || wb != gb || wa != ga {
				t.Fatalf("pixel (%d,%d) mismatch: want %v got %v", x, y, want.At(x, y), got.At(x, y))
			}
		}
	}
}

func TestEnc_StdinStdout(t *testing.T) {
	skipIfNoBinary(t)
	dir := t.TempDir()
	pngPath := createTestPNG(t, dir)

	pngData, err := os.ReadFile(pngPath)
	if err != nil {
		t.Fatalf("reading test PNG: %v", err)
	}

	stdout, stderr, err := runGcif(t, pngData, "enc", "-o", "-", "-")
	if err != nil {
		t.Fatalf("enc stdin/stdout failed: %v\nstderr: %s", err, stderr)
	}
	assertSpriteMagic(t, stdout)
}

func TestEnc_NoAutomask(t *testing.T) {
	skipIfNoBinary(t)
	dir := t.TempDir()
	pngPath := createTestPNG(t, dir)
	outPath := filepath.Join(dir, "output.gcf")

	_, stderr, err := runGcif(t, nil, "enc", "-automask=false", "-o", outPath, pngPath)
	if err != nil {
		t.Fatalf("enc -automask=false failed: %v\nstderr: %s", err, stderr)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	// flagHasMask must be clear in byte 4 when automask is disabled.
	if data[4]&1 != 0 {
		t.Errorf("expected no mask flag with -automask=false")
	}
}

func TestEnc_MissingInput(t *testing.T) {
	skipIfNoBinary(t)
	if _, _, err := runGcif(t, nil, "enc"); err == nil {
		t.Fatal("expected non-zero exit for missing input, got nil")
	}
}

func TestDec_MissingInput(t *testing.T) {
	skipIfNoBinary(t)
	if _, _, err := runGcif(t, nil, "dec"); err == nil {
		t.Fatal("expected non-zero exit for missing input, got nil")
	}
}

// --- preview ---

func TestPreview_Upscale(t *testing.T) {
	skipIfNoBinary(t)
	dir := t.TempDir()
	pngPath := createTestPNG(t, dir)
	spritePath := filepath.Join(dir, "test.gcf")
	if _, _, err := runGcif(t, nil, "enc", "-o", spritePath, pngPath); err != nil {
		t.Fatalf("enc setup failed: %v", err)
	}

	previewPath := filepath.Join(dir, "preview.png")
	if _, stderr, err := runGcif(t, nil, "preview", "-scale", "3", "-o", previewPath, spritePath); err != nil {
		t.Fatalf("preview failed: %v\nstderr: %s", err, stderr)
	}

	f, err := os.Open(previewPath)
	if err != nil {
		t.Fatalf("opening preview PNG: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decoding preview PNG config: %v", err)
	}
	if cfg.Width != 24 || cfg.Height != 24 {
		t.Errorf("preview dimensions = %dx%d, want 24x24", cfg.Width, cfg.Height)
	}
}

// --- pack/list ---

func TestPackAndList(t *testing.T) {
	skipIfNoBinary(t)
	dir := t.TempDir()
	pngPath := createTestPNG(t, dir)

	sprite1 := filepath.Join(dir, "a.gcf")
	sprite2 := filepath.Join(dir, "b.gcf")
	if _, _, err := runGcif(t, nil, "enc", "-o", sprite1, pngPath); err != nil {
		t.Fatalf("enc a failed: %v", err)
	}
	if _, _, err := runGcif(t, nil, "enc", "-o", sprite2, pngPath); err != nil {
		t.Fatalf("enc b failed: %v", err)
	}

	archivePath := filepath.Join(dir, "atlas.gpak")
	if _, stderr, err := runGcif(t, nil, "pack", archivePath, sprite1, sprite2); err != nil {
		t.Fatalf("pack failed: %v\nstderr: %s", err, stderr)
	}

	stdout, stderr, err := runGcif(t, nil, "list", archivePath)
	if err != nil {
		t.Fatalf("list failed: %v\nstderr: %s", err, stderr)
	}
	out := string(stdout)
	if !bytes.Contains(stdout, []byte("a.gcf")) || !bytes.Contains(stdout, []byte("b.gcf")) {
		t.Fatalf("list output missing expected entries: %s", out)
	}

	decPath := filepath.Join(dir, "from_archive.png")
	if _, stderr, err := runGcif(t, nil, "dec", "-archive", archivePath, "-o", decPath, "a.gcf"); err != nil {
		t.Fatalf("dec -archive failed: %v\nstderr: %s", err, stderr)
	}
	f, err := os.Open(decPath)
	if err != nil {
		t.Fatalf("opening decoded archive entry: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decoding archive entry PNG config: %v", err)
	}
	if cfg.Width != 8 || cfg.Height != 8 {
		t.Errorf("archive entry dimensions = %dx%d, want 8x8", cfg.Width, cfg.Height)
	}
}

// --- error cases ---

func TestUnknownCommand(t *testing.T) {
	skipIfNoBinary(t)
	if _, _, err := runGcif(t, nil, "badcmd"); err == nil {
		t.Fatal("expected non-zero exit for unknown command, got nil")
	}
}

func TestNoArgs(t *testing.T) {
	skipIfNoBinary(t)
	if _, _, err := runGcif(t, nil); err == nil {
		t.Fatal("expected non-zero exit for no arguments, got nil")
	}
}

func TestHelp(t *testing.T) {
	skipIfNoBinary(t)
	_, stderr, err := runGcif(t, nil, "-h")
	if err != nil {
		t.Fatalf("expected zero exit for -h, got: %v", err)
	}
	out := string(stderr)
	if !bytes.Contains([]byte(out), []byte("gcif enc")) {
		t.Errorf("expected usage text mentioning 'gcif enc', got: %s", out)
	}
}
