package region

import (
	"fmt"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
)

const lonLatProj4 = "+proj=longlat +datum=WGS84 +no_defs"

// Polygon materialises the band geometry with GDAL: the base region is
// buffered by -Width in an azimuthal equidistant projection centred on the
// region and subtracted from itself.
func (b CoastalBand) Polygon() (orb.MultiPolygon, error) {
	if b.Width == 0 {
		return b.Base.Polygons(), nil
	}

	data, err := wkb.Marshal(b.Base.polygons)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s as WKB: %w", b.Base.Name, err)
	}

	lonlat, err := godal.NewSpatialRefFromProj4(lonLatProj4)
	if err != nil {
		return nil, err
	}
	defer lonlat.Close()

	center := b.Base.Bound().Center()
	local, err := godal.NewSpatialRefFromProj4(fmt.Sprintf(
		"+proj=aeqd +lat_0=%f +lon_0=%f +datum=WGS84 +units=m +no_defs", center.Lat(), center.Lon()))
	if err != nil {
		return nil, err
	}
	defer local.Close()

	base, err := godal.NewGeometryFromWKB(data, lonlat)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s into GDAL: %w", b.Base.Name, err)
	}
	defer base.Close()
	if err := base.Reproject(local); err != nil {
		return nil, fmt.Errorf("failed to reproject %s: %w", b.Base.Name, err)
	}

	shrunk, err := base.Buffer(-b.Width, 16)
	if err != nil {
		return nil, fmt.Errorf("failed to buffer %s: %w", b.Base.Name, err)
	}
	defer shrunk.Close()

	band, err := base.Difference(shrunk)
	if err != nil {
		return nil, fmt.Errorf("failed to subtract shrunk %s: %w", b.Base.Name, err)
	}
	defer band.Close()
	if err := band.Reproject(lonlat); err != nil {
		return nil, fmt.Errorf("failed to reproject band of %s: %w", b.Base.Name, err)
	}

	out, err := band.WKB()
	if err != nil {
		return nil, err
	}
	g, err := wkb.Unmarshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode band of %s: %w", b.Base.Name, err)
	}
	switch g := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{g}, nil
	case orb.MultiPolygon:
		return g, nil
	case orb.Collection:
		var mp orb.MultiPolygon
		for _, part := range g {
			switch part := part.(type) {
			case orb.Polygon:
				mp = append(mp, part)
			case orb.MultiPolygon:
				mp = append(mp, part...)
			}
		}
		return mp, nil
	default:
		return nil, fmt.Errorf("%w: band of %s is %T", ErrNotPolygonal, b.Base.Name, g)
	}
}
