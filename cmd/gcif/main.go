// Command gcif encodes and decodes sprite artwork with the content-
// generated RGBA codec from package gcif.
//
// Usage:
//
//	gcif enc [options] <input.png>        PNG → .gcf sprite (use "-" for stdin)
//	gcif dec [options] <input.gcf>         .gcf → PNG (use "-" for stdin, -o - for stdout)
//	gcif preview [options] <input.gcf>     .gcf → upscaled PNG preview
//	gcif pack <out.gpak> <sprite.gcf>...   bundle sprites into one archive
//	gcif list <archive.gpak>               list an archive's sprite names
package main

import (
	"bytes"
	"flag"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"

	"github.com/siddharths2710/gcif/gcif"
	"github.com/siddharths2710/gcif/internal/maskstore"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "enc":
		err = runEnc(os.Args[2:])
	case "dec":
		err = runDec(os.Args[2:])
	case "preview":
		err = runPreview(os.Args[2:])
	case "pack":
		err = runPack(os.Args[2:])
	case "list":
		err = runList(os.Args[2:])
	case "-h", "-help", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "gcif: unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "gcif: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage:
  gcif enc [options] <input.png>        Encode PNG to a .gcf sprite
  gcif dec [options] <input.gcf>        Decode a .gcf sprite to PNG
  gcif preview [options] <input.gcf>    Decode and write an upscaled PNG preview
  gcif pack <out.gpak> <sprite.gcf>...  Bundle sprites into one archive
  gcif list <archive.gpak>              List an archive's sprite names

Use "-" as input to read from stdin, "-o -" to write to stdout.

Run "gcif <command> -h" for command-specific options.
`)
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func knobsFromFlags(fs *flag.FlagSet) *gcif.Knobs {
	knobs := gcif.DefaultKnobs()
	fs.BoolVar(&knobs.LZEnable, "lz", knobs.LZEnable, "enable the pixel-copy subsystem")
	fs.IntVar(&knobs.MinBits, "minbits", knobs.MinBits, "minimum tile-edge exponent")
	fs.IntVar(&knobs.MaxBits, "maxbits", knobs.MaxBits, "maximum tile-edge exponent")
	return &knobs
}

// --- enc ---

func runEnc(args []string) error {
	fs := flag.NewFlagSet("enc", flag.ContinueOnError)
	automask := fs.Bool("automask", true, "derive a mask from fully transparent pixels")
	output := fs.String("o", "", `output path (default: <input>.gcf, "-" for stdout)`)
	knobs := knobsFromFlags(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("enc: missing input file\nUsage: gcif enc [options] <input.png>")
	}
	inputPath := fs.Arg(0)

	in, err := openInput(inputPath)
	if err != nil {
		return err
	}
	src, err := png.Decode(in)
	in.Close()
	if err != nil {
		return fmt.Errorf("enc: decoding PNG: %w", err)
	}

	nrgba := toNRGBA(src)
	img := gcif.FromImage(nrgba)

	var mask *maskstore.Store
	if *automask {
		mask = deriveTransparencyMask(img)
	}

	outputPath := *output
	if outputPath == "" {
		outputPath = defaultOutputPath(inputPath, ".gcf")
	}

	var out io.Writer = os.Stdout
	var f *os.File
	if outputPath != "-" {
		f, err = os.Create(outputPath)
		if err != nil {
			return err
		}
		out = f
	}

	if err := encodeSprite(out, img, mask, *knobs); err != nil {
		if f != nil {
			f.Close()
			os.Remove(outputPath)
		}
		return fmt.Errorf("enc: %w", err)
	}
	if f != nil {
		if err := f.Close(); err != nil {
			os.Remove(outputPath)
			return err
		}
		fi, _ := os.Stat(outputPath)
		fmt.Fprintf(os.Stderr, "Encoded %s → %s (%d bytes)\n", inputPath, outputPath, fi.Size())
	}
	return nil
}

// deriveTransparencyMask marks every fully transparent pixel as masked,
// the common case for a sprite cut out of a larger canvas: the mask
// producer itself is out of this core's scope (§1), so the CLI supplies
// the simplest possible classifier rather than none at all.
func deriveTransparencyMask(img gcif.Image) *maskstore.Store {
	store := maskstore.New(img.Width, img.Height, [4]byte{0, 0, 0, 0})
	any := false
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			if img.At(x, y)[3] == 0 {
				store.SetMasked(x, y, true)
				any = true
			}
		}
	}
	if !any {
		return nil
	}
	return store
}

// --- dec ---

func runDec(args []string) error {
	fs := flag.NewFlagSet("dec", flag.ContinueOnError)
	archive := fs.String("archive", "", "read <input> as an entry name inside this .gpak archive")
	output := fs.String("o", "", `output path (default: <input>.png, "-" for stdout)`)
	knobs := knobsFromFlags(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("dec: missing input file\nUsage: gcif dec [options] <input.gcf>")
	}
	inputPath := fs.Arg(0)

	img, err := readSprite(inputPath, *archive, *knobs)
	if err != nil {
		return fmt.Errorf("dec: %w", err)
	}

	return writePNG(img.ToImage(), *output, inputPath)
}

func readSprite(inputPath, archive string, knobs gcif.Knobs) (gcif.Image, error) {
	if archive != "" {
		data, err := openArchiveEntry(archive, inputPath)
		if err != nil {
			return gcif.Image{}, err
		}
		return decodeSprite(bytes.NewReader(data), knobs)
	}
	in, err := openInput(inputPath)
	if err != nil {
		return gcif.Image{}, err
	}
	defer in.Close()
	return decodeSprite(in, knobs)
}

func writePNG(img image.Image, outputPath, inputPath string) error {
	if outputPath == "-" {
		return png.Encode(os.Stdout, img)
	}
	if outputPath == "" {
		outputPath = defaultOutputPath(inputPath, ".png")
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		os.Remove(outputPath)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(outputPath)
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", outputPath)
	return nil
}

// --- preview ---

func runPreview(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	archive := fs.String("archive", "", "read <input> as an entry name inside this .gpak archive")
	scale := fs.Int("scale", 4, "integer upscale factor")
	output := fs.String("o", "", `output path (default: <input>.preview.png, "-" for stdout)`)
	knobs := knobsFromFlags(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("preview: missing input file\nUsage: gcif preview [options] <input.gcf>")
	}
	factor := *scale
	if factor < 1 {
		return fmt.Errorf("preview: -scale must be >= 1")
	}
	inputPath := fs.Arg(0)

	img, err := readSprite(inputPath, *archive, *knobs)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}

	src := img.ToImage()
	dstRect := image.Rect(0, 0, img.Width*factor, img.Height*factor)
	dst := image.NewNRGBA(dstRect)
	xdraw.NearestNeighbor.Scale(dst, dstRect, src, src.Bounds(), draw.Over, nil)

	outputPath := *output
	if outputPath == "" {
		outputPath = defaultOutputPath(inputPath, ".preview.png")
	}
	return writePNG(dst, outputPath, inputPath)
}

// --- shared helpers ---

func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n
	}
	b := src.Bounds()
	out := image.NewNRGBA(b)
	draw.Draw(out, b, src, b.Min, draw.Src)
	return out
}

func defaultOutputPath(inputPath, ext string) string {
	if inputPath == "-" {
		return "output" + ext
	}
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return base + ext
}
