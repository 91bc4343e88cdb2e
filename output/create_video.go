package output

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/ges-coastal/coastal-monitor/internal/raster"
	"github.com/icza/mjpeg"
	"github.com/paulmach/orb"
)

// CreateVideo renders one frame per raster with palette and writes them as
// an MJPEG AVI at fps frames per second. The date of each layer is printed
// in the corner.
func CreateVideo(frames []*raster.Raster, palette Palette, outline orb.MultiPolygon, outputPath string, fps int32) (string, error) {
	if len(frames) == 0 {
		return "", fmt.Errorf("no frames for %s", outputPath)
	}
	if !strings.HasSuffix(outputPath, ".avi") {
		outputPath += ".avi"
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create result folder: %w", err)
	}

	width := int32(frames[0].Grid.Width * pixelScale)
	height := int32(frames[0].Grid.Height * pixelScale)
	writer, err := mjpeg.New(outputPath, width, height, fps)
	if err != nil {
		return "", err
	}

	for _, frame := range frames {
		if !frame.Grid.Equal(frames[0].Grid) {
			writer.Close()
			return "", fmt.Errorf("%w: frame %s", raster.ErrGridMismatch, frame.Time.Format("2006-01-02"))
		}
		dc := renderRaster(frame, palette.ColorAt, outline)
		dc.SetRGB(0, 0, 0)
		dc.DrawString(frame.Time.Format("2006-01-02"), 4, 14)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, dc.Image(), &jpeg.Options{Quality: 100}); err != nil {
			writer.Close()
			return "", err
		}
		if err := writer.AddFrame(buf.Bytes()); err != nil {
			writer.Close()
			return "", err
		}
	}
	return outputPath, writer.Close()
}
