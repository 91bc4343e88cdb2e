package output

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/ges-coastal/coastal-monitor/internal/raster"
	"github.com/paulmach/orb"
)

// pixelScale enlarges coarse rasters so outlines stay readable.
const pixelScale = 4

type colorFunc func(float64) color.RGBA

func renderRaster(r *raster.Raster, colorOf colorFunc, outline orb.MultiPolygon) *gg.Context {
	width, height := r.Grid.Width*pixelScale, r.Grid.Height*pixelScale
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, colorOf(r.At(x/pixelScale, y/pixelScale)))
		}
	}

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.DrawImage(img, 0, 0)

	if len(outline) > 0 {
		drawOutline(dc, r.Grid, outline)
	}
	return dc
}

// drawOutline strokes every ring of mp in pixel space of grid. Only north-up
// grids are supported.
func drawOutline(dc *gg.Context, grid raster.Grid, mp orb.MultiPolygon) {
	gt := grid.GeoTransform
	toPixel := func(p orb.Point) (float64, float64) {
		return (p.Lon() - gt[0]) / gt[1] * pixelScale, (p.Lat() - gt[3]) / gt[5] * pixelScale
	}
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	for _, polygon := range mp {
		for _, ring := range polygon {
			for i, p := range ring {
				x, y := toPixel(p)
				if i == 0 {
					dc.MoveTo(x, y)
				} else {
					dc.LineTo(x, y)
				}
			}
			dc.ClosePath()
		}
	}
	dc.Stroke()
}

// CreateIndexImage renders r with palette and the band outline as a PNG.
func CreateIndexImage(r *raster.Raster, palette Palette, outline orb.MultiPolygon, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create result folder: %w", err)
	}
	dc := renderRaster(r, palette.ColorAt, outline)
	if err := dc.SavePNG(outputPath); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}

// CreateClassImage renders a class raster with a legend of the class shares.
func CreateClassImage(classes *raster.Raster, shares []float64, outline orb.MultiPolygon, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create result folder: %w", err)
	}
	mapImage := renderRaster(classes, classColor, outline).Image()
	width, height := mapImage.Bounds().Dx(), mapImage.Bounds().Dy()

	legendSpacing := 20
	legendHeight := len(ClassColors)*legendSpacing + 10
	dc := gg.NewContext(max(width, 160), height+legendHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.DrawImage(mapImage, 0, 0)

	legendX := 10
	for i, c := range ClassColors {
		y := height + 10 + i*legendSpacing

		dc.SetRGB(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255)
		dc.DrawRectangle(float64(legendX), float64(y), 15, 15)
		dc.Fill()

		dc.SetRGB(0, 0, 0)
		dc.DrawRectangle(float64(legendX), float64(y), 15, 15)
		dc.SetLineWidth(1)
		dc.Stroke()

		label := fmt.Sprintf("Class %d", i+1)
		if i < len(shares) {
			label = fmt.Sprintf("Class %d  %.1f%%", i+1, shares[i])
		}
		dc.DrawStringAnchored(label, float64(legendX+20), float64(y+7), 0, 0.5)
	}

	if err := dc.SavePNG(outputPath); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}
