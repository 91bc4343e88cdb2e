package region

import (
	"fmt"
	"os"
	"sort"

	"github.com/ges-coastal/coastal-monitor/internal/utils"
	"github.com/paulmach/orb/geojson"
)

// DefaultNameProperty is the feature property holding the country name in
// the LSIB boundary dataset.
const DefaultNameProperty = "country_na"

// Resolver looks countries up in a reference boundary dataset. It is
// read-only after construction and safe for concurrent use.
type Resolver struct {
	regions    map[string][]Region
	names      []string
	duplicates []string
}

func LoadResolver(path, nameProperty string) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read country boundaries: %w", err)
	}
	return NewResolver(data, nameProperty)
}

// NewResolver parses a GeoJSON FeatureCollection. Names that occur on more
// than one feature are kept but reported by Duplicates and refused by Region.
func NewResolver(data []byte, nameProperty string) (*Resolver, error) {
	if nameProperty == "" {
		nameProperty = DefaultNameProperty
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse country boundaries: %w", err)
	}

	r := &Resolver{regions: make(map[string][]Region)}
	for i, feature := range fc.Features {
		name := feature.Properties.MustString(nameProperty, "")
		if name == "" {
			utils.Log.WithField("feature", i).Warnf("boundary feature has no %s property, skipping", nameProperty)
			continue
		}
		if feature.Geometry == nil {
			utils.Log.WithField("country", name).Warn("boundary feature has no geometry, skipping")
			continue
		}
		region, err := NewRegion(name, feature.Geometry)
		if err != nil {
			return nil, err
		}
		r.regions[name] = append(r.regions[name], region)
	}

	for name, regions := range r.regions {
		r.names = append(r.names, name)
		if len(regions) > 1 {
			r.duplicates = append(r.duplicates, name)
		}
	}
	sort.Strings(r.names)
	sort.Strings(r.duplicates)

	if len(r.duplicates) > 0 {
		utils.Log.WithField("names", r.duplicates).Warn("country boundary dataset has ambiguous names")
	}
	return r, nil
}

// Countries returns the sorted unique country names.
func (r *Resolver) Countries() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *Resolver) Duplicates() []string {
	out := make([]string, len(r.duplicates))
	copy(out, r.duplicates)
	return out
}

func (r *Resolver) Region(country string) (Region, error) {
	regions := r.regions[country]
	switch len(regions) {
	case 0:
		return Region{}, fmt.Errorf("%w: %q", ErrNotFound, country)
	case 1:
		return regions[0], nil
	default:
		return Region{}, fmt.Errorf("%w: %q has %d entries", ErrAmbiguous, country, len(regions))
	}
}

// Resolve returns the country region and its coastal band of bufferKm.
func (r *Resolver) Resolve(country string, bufferKm float64) (Region, CoastalBand, error) {
	base, err := r.Region(country)
	if err != nil {
		return Region{}, CoastalBand{}, err
	}
	band, err := NewCoastalBand(base, bufferKm)
	if err != nil {
		return Region{}, CoastalBand{}, err
	}
	return base, band, nil
}
