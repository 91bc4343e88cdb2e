package raster

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/airbusgeo/godal"
)

// FileNoData is the nodata value written to GeoTIFF files; NaN is kept in memory.
const FileNoData = -9999.0

var registerOnce sync.Once

func registerDrivers() {
	registerOnce.Do(godal.RegisterAll)
}

func openDataset(path string) (*godal.Dataset, error) {
	registerDrivers()
	return godal.Open(path, godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			return nil
		}
		return fmt.Errorf("gdal error %d: %s", code, msg)
	}))
}

// ReadGeoTIFF reads the named bands of a GeoTIFF. Bands are matched on their
// description; when names is empty every band is read and keyed by its
// description, or "b<n>" when it has none.
func ReadGeoTIFF(path string, names ...string) (Grid, map[string][]float64, error) {
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}

	grid, order, data, err := readBands(path, func(name string) bool {
		return len(wanted) == 0 || wanted[name]
	})
	if err != nil {
		return Grid{}, nil, err
	}

	bands := make(map[string][]float64, len(order))
	for i, name := range order {
		bands[name] = data[i]
	}
	for name := range wanted {
		if _, ok := bands[name]; !ok {
			return Grid{}, nil, fmt.Errorf("%w: %q in %s", ErrMissingBand, name, path)
		}
	}
	return grid, bands, nil
}

// ReadBands reads every band of a GeoTIFF in file order.
func ReadBands(path string) (Grid, [][]float64, error) {
	grid, _, data, err := readBands(path, func(string) bool { return true })
	return grid, data, err
}

func readBands(path string, want func(name string) bool) (Grid, []string, [][]float64, error) {
	ds, err := openDataset(path)
	if err != nil {
		return Grid{}, nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer ds.Close()

	structure := ds.Structure()
	gt, err := ds.GeoTransform()
	if err != nil {
		return Grid{}, nil, nil, fmt.Errorf("failed to get GeoTransform of %s: %w", path, err)
	}
	grid := Grid{
		Width:        structure.SizeX,
		Height:       structure.SizeY,
		GeoTransform: gt,
		EPSG:         datasetEPSG(ds),
	}

	var names []string
	var bands [][]float64
	for i, band := range ds.Bands() {
		name := band.Description()
		if name == "" {
			name = "b" + strconv.Itoa(i+1)
		}
		if !want(name) {
			continue
		}
		data := make([]float64, grid.Size())
		if err := band.Read(0, 0, data, grid.Width, grid.Height); err != nil {
			return Grid{}, nil, nil, fmt.Errorf("failed to read band %s of %s: %w", name, path, err)
		}
		if nodata, ok := band.NoData(); ok {
			for j, v := range data {
				if v == nodata {
					data[j] = NoData
				}
			}
		}
		names = append(names, name)
		bands = append(bands, data)
	}
	return grid, names, bands, nil
}

func datasetEPSG(ds *godal.Dataset) int {
	sr := ds.SpatialRef()
	if sr == nil {
		return 4326
	}
	defer sr.Close()
	code, err := strconv.Atoi(sr.AuthorityCode(""))
	if err != nil {
		return 4326
	}
	return code
}

// WriteGeoTIFF writes one band per raster, all on the grid of the first one.
func WriteGeoTIFF(path string, names []string, rasters ...*Raster) error {
	if len(rasters) == 0 {
		return fmt.Errorf("no rasters to write to %s", path)
	}
	if len(names) != len(rasters) {
		return fmt.Errorf("got %d band names for %d rasters", len(names), len(rasters))
	}
	grid := rasters[0].Grid
	for i, r := range rasters[1:] {
		if !r.Grid.Equal(grid) {
			return fmt.Errorf("%w: band %s", ErrGridMismatch, names[i+1])
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}

	registerDrivers()
	ds, err := godal.Create(godal.GTiff, path, len(rasters), godal.Float64, grid.Width, grid.Height,
		godal.CreationOption("TILED=YES", "COMPRESS=DEFLATE"))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := writeDataset(ds, grid, names, rasters); err != nil {
		ds.Close()
		return err
	}
	return ds.Close()
}

func writeDataset(ds *godal.Dataset, grid Grid, names []string, rasters []*Raster) error {
	if err := ds.SetGeoTransform(grid.GeoTransform); err != nil {
		return fmt.Errorf("failed to set GeoTransform: %w", err)
	}
	epsg := grid.EPSG
	if epsg == 0 {
		epsg = 4326
	}
	sr, err := godal.NewSpatialRefFromEPSG(epsg)
	if err != nil {
		return fmt.Errorf("failed to create spatial reference EPSG:%d: %w", epsg, err)
	}
	defer sr.Close()
	if err := ds.SetSpatialRef(sr); err != nil {
		return fmt.Errorf("failed to set spatial reference: %w", err)
	}

	for i, band := range ds.Bands() {
		data := make([]float64, len(rasters[i].Values))
		for j, v := range rasters[i].Values {
			if IsNoData(v) {
				v = FileNoData
			}
			data[j] = v
		}
		if err := band.SetNoData(FileNoData); err != nil {
			return fmt.Errorf("failed to set nodata on band %s: %w", names[i], err)
		}
		if err := band.SetDescription(names[i]); err != nil {
			return fmt.Errorf("failed to name band %s: %w", names[i], err)
		}
		if err := band.Write(0, 0, data, grid.Width, grid.Height); err != nil {
			return fmt.Errorf("failed to write band %s: %w", names[i], err)
		}
	}
	return nil
}

// ReadGrid reads only the georeferencing of a GeoTIFF.
func ReadGrid(path string) (Grid, error) {
	ds, err := openDataset(path)
	if err != nil {
		return Grid{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer ds.Close()

	gt, err := ds.GeoTransform()
	if err != nil {
		return Grid{}, fmt.Errorf("failed to get GeoTransform of %s: %w", path, err)
	}
	structure := ds.Structure()
	return Grid{Width: structure.SizeX, Height: structure.SizeY, GeoTransform: gt, EPSG: datasetEPSG(ds)}, nil
}
