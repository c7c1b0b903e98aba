package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"time"

	"github.com/gogpu/gg"
	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ============================================================
// Export formats
// ============================================================

type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
	FormatPDF  Format = "pdf"
)

var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat разбирает имя формата; пустая строка означает PNG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "bmp":
		return FormatBMP, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatBMP:
		return "image/bmp"
	case FormatTIFF:
		return "image/tiff"
	case FormatPDF:
		return "application/pdf"
	}
	return "image/png"
}

// Filename возвращает имя файла экспорта с отметкой времени.
func Filename(t time.Time, f Format) string {
	return fmt.Sprintf("mandala-%d.%s", t.UnixMilli(), f.Ext())
}

// ============================================================
// Background & composition
// ============================================================

const (
	BackgroundInner = "#1a1a2e"
	BackgroundOuter = "#0a0a0f"
	jpegQuality     = 92
)

// Background рисует радиальный градиент от центра (радиус width/2) к краям.
func Background(width, height int) (*image.RGBA, error) {
	dc := gg.NewContext(width, height)
	defer func() {
		_ = dc.Close()
	}()

	cx, cy := float64(width)/2, float64(height)/2
	gradient := gg.NewRadialGradientBrush(cx, cy, 0, float64(width)/2).
		AddColorStop(0, gg.Hex(BackgroundInner)).
		AddColorStop(1, gg.Hex(BackgroundOuter))

	dc.SetFillBrush(gradient)
	dc.DrawRectangle(0, 0, float64(width), float64(height))
	if err := dc.Fill(); err != nil {
		return nil, fmt.Errorf("fill background: %w", err)
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(out, out.Bounds(), dc.Image(), image.Point{}, draw.Src)
	return out, nil
}

// Compose кладёт копию растра поверх фона. Живой растр не меняется.
func Compose(c *Canvas) (*image.RGBA, error) {
	bg, err := Background(c.Width(), c.Height())
	if err != nil {
		return nil, err
	}
	draw.Draw(bg, bg.Bounds(), c.Snapshot(), image.Point{}, draw.Over)
	return bg, nil
}

// ============================================================
// Encoding
// ============================================================

// Export собирает изображение с фоном и кодирует его в нужный формат.
func Export(w io.Writer, c *Canvas, f Format) error {
	img, err := Compose(c)
	if err != nil {
		return err
	}
	return Encode(w, img, f)
}

// EncodeLive отдаёт живой растр без фона в PNG (для экрана).
func EncodeLive(w io.Writer, c *Canvas) error {
	return png.Encode(w, c.Snapshot())
}

func Encode(w io.Writer, img image.Image, f Format) error {
	var err error
	switch f {
	case FormatPNG:
		err = png.Encode(w, img)
	case FormatJPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	case FormatBMP:
		err = bmp.Encode(w, img)
	case FormatTIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case FormatPDF:
		err = encodePDF(w, img)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", f, err)
	}
	return nil
}

// encodePDF кладёт PNG на страницу размером с изображение (1px = 1pt).
func encodePDF(w io.Writer, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}

	width := float64(img.Bounds().Dx())
	height := float64(img.Bounds().Dy())

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("mandala", opts, &buf)
	pdf.ImageOptions("mandala", 0, 0, width, height, false, opts, 0, "")

	return pdf.Output(w)
}
