// Package wards maps municipal wards to their administrative zones.
package wards

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultDirectory []byte

type directoryFile struct {
	Version string `yaml:"version"`
	Zones   []struct {
		ID        int    `yaml:"id"`
		Name      string `yaml:"name"`
		Wards     []int  `yaml:"wards"`
		WardRange []int  `yaml:"ward_range"`
	} `yaml:"zones"`
}

// Zone is one administrative zone.
type Zone struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Wards []int  `json:"wards"`
}

// Directory is an immutable ward→zone lookup.
type Directory struct {
	version string
	zones   []Zone
	zoneOf  map[int]int
}

// Default returns the embedded directory.
func Default() (*Directory, error) {
	return Parse(defaultDirectory)
}

// Load reads a directory from path, or the embedded default when path is empty.
func Load(path string) (*Directory, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ward directory: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML directory. A ward may belong to only one
// zone.
func Parse(raw []byte) (*Directory, error) {
	var file directoryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode ward directory: %w", err)
	}
	if len(file.Zones) == 0 {
		return nil, fmt.Errorf("ward directory has no zones")
	}

	d := &Directory{version: file.Version, zoneOf: make(map[int]int)}
	for _, z := range file.Zones {
		if z.ID <= 0 {
			return nil, fmt.Errorf("zone %q: id must be positive", z.Name)
		}
		wards := append([]int(nil), z.Wards...)
		if len(z.WardRange) > 0 {
			if len(z.WardRange) != 2 || z.WardRange[0] > z.WardRange[1] {
				return nil, fmt.Errorf("zone %d: ward_range must be [first, last]", z.ID)
			}
			for w := z.WardRange[0]; w <= z.WardRange[1]; w++ {
				wards = append(wards, w)
			}
		}
		for _, w := range wards {
			if w <= 0 {
				return nil, fmt.Errorf("zone %d: ward ids must be positive", z.ID)
			}
			if other, dup := d.zoneOf[w]; dup {
				return nil, fmt.Errorf("ward %d listed in zones %d and %d", w, other, z.ID)
			}
			d.zoneOf[w] = z.ID
		}
		sort.Ints(wards)
		d.zones = append(d.zones, Zone{ID: z.ID, Name: z.Name, Wards: wards})
	}
	return d, nil
}

// ZoneOf returns the zone containing ward.
func (d *Directory) ZoneOf(wardID int) (int, bool) {
	zone, ok := d.zoneOf[wardID]
	return zone, ok
}

// Version identifies the loaded directory.
func (d *Directory) Version() string {
	return d.version
}

// Zones returns a copy of all zones.
func (d *Directory) Zones() []Zone {
	out := make([]Zone, len(d.zones))
	copy(out, d.zones)
	return out
}
