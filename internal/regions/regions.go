package regions

import (
	"errors"
	"fmt"
	"image"

	"github.com/dudu/glowmirror/internal/detector"
)

// ErrInvalidLandmarkSet is returned when a landmark set does not match the
// topology the region table was authored for
var ErrInvalidLandmarkSet = errors.New("invalid landmark set")

// Name identifies a semantic face region
type Name string

const (
	Lips         Name = "lips"
	LeftEye      Name = "left_eye"
	RightEye     Name = "right_eye"
	LeftEyebrow  Name = "left_eyebrow"
	RightEyebrow Name = "right_eyebrow"
	Cheeks       Name = "cheeks"
)

// Names lists every region in a stable order
var Names = []Name{Lips, LeftEye, RightEye, LeftEyebrow, RightEyebrow, Cheeks}

// Table maps a region to the ordered landmark indices tracing its boundary
type Table map[Name][]int

// RegionSet holds the projected polygon for each region
type RegionSet map[Name][]image.Point

// DefaultTable returns the shipped face-mesh index lists. Duplicate indices
// and the non-simple cheek path are kept as authored.
func DefaultTable() Table {
	return Table{
		LeftEye:      {33, 7, 163, 144, 145, 153, 154, 155, 133, 173, 157, 158, 159, 160, 161, 246},
		RightEye:     {362, 382, 381, 380, 374, 373, 390, 249, 263, 466, 388, 387, 386, 385, 384, 398},
		LeftEyebrow:  {46, 53, 52, 51, 48, 115, 131, 134, 102, 49, 220, 305},
		RightEyebrow: {276, 283, 282, 281, 278, 344, 360, 363, 331, 279, 440, 75},
		Cheeks:       {116, 117, 118, 119, 120, 121, 126, 142, 36, 205, 206, 207, 213, 192, 147, 187, 207, 213, 192, 147, 187, 207, 213, 192},
		Lips:         {61, 84, 17, 314, 405, 320, 307, 375, 321, 308, 324, 318, 78, 95, 88, 178, 87, 14, 317, 402, 318, 324, 308},
	}
}

// Clone returns a deep copy of the table
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for name, idx := range t {
		out[name] = append([]int(nil), idx...)
	}
	return out
}

// Mapper projects a landmark set onto named region polygons. It is immutable
// after construction and safe for concurrent use.
type Mapper struct {
	table    Table
	topology int
}

// NewMapper validates every index against the topology size
func NewMapper(table Table, topology int) (*Mapper, error) {
	if topology <= 0 {
		return nil, fmt.Errorf("topology must be positive, got %d", topology)
	}

	for name, indices := range table {
		for _, i := range indices {
			if i < 0 || i >= topology {
				return nil, fmt.Errorf("region %s: index %d outside topology of %d points", name, i, topology)
			}
		}
	}

	return &Mapper{table: table.Clone(), topology: topology}, nil
}

// Topology returns the landmark count the mapper expects
func (m *Mapper) Topology() int {
	return m.topology
}

// Table returns a copy of the active region table
func (m *Mapper) Table() Table {
	return m.table.Clone()
}

// Map projects each region's index list onto landmarks, preserving order and
// duplicates
func (m *Mapper) Map(landmarks detector.LandmarkSet) (RegionSet, error) {
	if len(landmarks) != m.topology {
		return nil, fmt.Errorf("%w: got %d points, expected %d", ErrInvalidLandmarkSet, len(landmarks), m.topology)
	}

	set := make(RegionSet, len(m.table))
	for name, indices := range m.table {
		points := make([]image.Point, len(indices))
		for i, idx := range indices {
			points[i] = landmarks[idx]
		}
		set[name] = points
	}

	return set, nil
}

// Intersections reports which regions of the table trace a self-intersecting
// boundary for the given landmarks
func (m *Mapper) Intersections(landmarks detector.LandmarkSet) ([]Name, error) {
	set, err := m.Map(landmarks)
	if err != nil {
		return nil, err
	}
	return Intersections(set), nil
}

// Intersections lists, in Names order, the regions of an already mapped set
// whose boundary self-intersects. Regions not in Names are ignored.
func Intersections(set RegionSet) []Name {
	var names []Name
	for _, name := range Names {
		if SelfIntersects(set[name]) {
			names = append(names, name)
		}
	}
	return names
}
