package services

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"net/http"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"wardrobeapi/models"
)

// MaxImageDimension bounds uploads before they are stored or sent to Gemini.
const MaxImageDimension = 1536

const cropPadding = 0.05

var allowedUploadMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

type ImageProcessor struct {
	MaxDimension int
	JPEGQuality  int
}

func NewImageProcessor() ImageProcessor {
	return ImageProcessor{MaxDimension: MaxImageDimension, JPEGQuality: 90}
}

// CropRect converts a percentage bounding box into pixels, grows it by 5% of
// its size on every side and clamps it to the image.
func CropRect(width, height int, box models.BoundingBox) image.Rectangle {
	x := box.XMin / 100 * float64(width)
	y := box.YMin / 100 * float64(height)
	w := (box.XMax - box.XMin) / 100 * float64(width)
	h := (box.YMax - box.YMin) / 100 * float64(height)

	px := math.Max(0, x-w*cropPadding)
	py := math.Max(0, y-h*cropPadding)
	pw := math.Min(float64(width)-px, w*(1+cropPadding*2))
	ph := math.Min(float64(height)-py, h*(1+cropPadding*2))

	x0, y0 := int(math.Floor(px)), int(math.Floor(py))
	return image.Rect(x0, y0, x0+int(math.Round(pw)), y0+int(math.Round(ph))).Intersect(image.Rect(0, 0, width, height))
}

// Crop cuts the garment out of the source photo and returns it as a png.
func (p ImageProcessor) Crop(source models.ImageData, box models.BoundingBox) (models.ImageData, error) {
	if err := box.Validate(); err != nil {
		return "", err
	}
	raw, err := source.Bytes()
	if err != nil {
		return "", err
	}
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}
	bounds := img.Bounds()
	rect := CropRect(bounds.Dx(), bounds.Dy(), box).Add(bounds.Min)
	if rect.Empty() {
		return "", fmt.Errorf("bounding box %+v selects no pixels", box)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Crop(img, rect), imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode image to png: %w", err)
	}
	return models.NewImageData("image/png", buf.Bytes()), nil
}

// Normalize checks an uploaded image by sniffing its bytes and downscales it
// when it exceeds MaxDimension. Images within bounds are returned unchanged.
func (p ImageProcessor) Normalize(upload models.ImageData) (models.ImageData, error) {
	raw, err := upload.Bytes()
	if err != nil {
		return "", err
	}
	detected := http.DetectContentType(raw)
	if !allowedUploadMIME[detected] {
		return "", fmt.Errorf("%w: unsupported image format %s", models.ErrMalformedImage, detected)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrMalformedImage, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= p.maxDimension() && bounds.Dy() <= p.maxDimension() {
		return models.NewImageData(detected, raw), nil
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Downscale(img, p.maxDimension()), &jpeg.Options{Quality: p.quality()}); err != nil {
		return "", fmt.Errorf("encoding JPEG: %w", err)
	}
	return models.NewImageData("image/jpeg", buf.Bytes()), nil
}

func (p ImageProcessor) maxDimension() int {
	if p.MaxDimension <= 0 {
		return MaxImageDimension
	}
	return p.MaxDimension
}

func (p ImageProcessor) quality() int {
	if p.JPEGQuality <= 0 {
		return 90
	}
	return p.JPEGQuality
}

// Downscale resizes img so neither side exceeds maxDim, keeping the aspect ratio.
func Downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}
	newW = max(newW, 1)
	newH = max(newH, 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
