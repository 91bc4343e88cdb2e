package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/ges-coastal/coastal-monitor/internal/raster"
)

// Memory is an in-process backend holding fully loaded layers.
type Memory struct {
	mu     sync.RWMutex
	layers map[string]*raster.Layer
}

func NewMemory(layers ...*raster.Layer) *Memory {
	m := &Memory{layers: make(map[string]*raster.Layer)}
	m.Add(layers...)
	return m
}

func (m *Memory) Add(layers ...*raster.Layer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range layers {
		m.layers[l.ID] = l
	}
}

func (m *Memory) Query(ctx context.Context, q Query) ([]Handle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var handles []Handle
	for id, l := range m.layers {
		if l.Source != q.Source || l.Time.Before(q.Start) || !l.Time.Before(q.End) {
			continue
		}
		footprint := l.Grid.Bound()
		if !footprint.Intersects(q.Bound) {
			continue
		}
		handles = append(handles, Handle{ID: id, Source: l.Source, Time: l.Time, Footprint: footprint})
	}
	return handles, nil
}

func (m *Memory) Read(ctx context.Context, h Handle, bands ...string) (*raster.Layer, error) {
	m.mu.RLock()
	l, ok := m.layers[h.ID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("layer %s not found", h.ID)
	}

	out := &raster.Layer{ID: l.ID, Source: l.Source, Time: l.Time, Grid: l.Grid, Bands: make(map[string][]float64)}
	if len(bands) == 0 {
		bands = l.BandNames()
	}
	for _, name := range bands {
		if values, ok := l.Bands[name]; ok {
			out.Bands[name] = append([]float64(nil), values...)
		}
	}
	return out, nil
}
