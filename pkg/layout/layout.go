// Package layout parses the plaintext object placement manifests that sit
// next to each stage archive (the "_3.txt" files).
//
// A manifest is split into rooms by the literal STG marker. Every room starts
// with four header lines followed by tab separated object lines; the second
// field names the model and the rest of the line is a stream of numbers where
// tokens 8-10 hold the rotation in degrees and tokens 11-13 the translation.
// A blank object line ends the room.
package layout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// SectionMarker separates rooms in a manifest.
const SectionMarker = "STG"

// HeaderLines is the number of lines skipped at the top of every room.
const HeaderLines = 4

// Token offsets into the numeric stream after the model path.
const (
	rotationToken    = 8
	translationToken = 11
)

// Parse errors. All of them match ErrParse with errors.Is.
var (
	ErrParse            = errors.New("layout: parse error")
	ErrMissingModelPath = fmt.Errorf("%w: missing model path", ErrParse)
	ErrMissingNumber    = fmt.Errorf("%w: missing numeric token", ErrParse)
	ErrBadNumber        = fmt.Errorf("%w: bad numeric token", ErrParse)
)

// Category selects the directory an object archive lives in.
type Category int

const (
	CategoryModel Category = iota
	CategoryItems
)

func (c Category) String() string {
	if c == CategoryItems {
		return "Items"
	}
	return "Model"
}

var itemPrefixes = []string{"ITM", "FIG"}

// Classify returns the directory category for a model name.
func Classify(name string) Category {
	for _, p := range itemPrefixes {
		if strings.HasPrefix(name, p) {
			return CategoryItems
		}
	}
	return CategoryModel
}

// PlacementRecord is one object occurrence from a manifest, before its
// archive has been fetched.
type PlacementRecord struct {
	Name        string
	Rotation    mgl32.Vec3 // degrees, applied X then Y then Z
	Translation mgl32.Vec3
}

// Category returns the directory category for the record's model.
func (r PlacementRecord) Category() Category {
	return Classify(r.Name)
}

// FetchPath returns the logical asset path, e.g. "zack_and_wiki/Items/ITM_001.brres".
func (r PlacementRecord) FetchPath(base, ext string) string {
	return base + "/" + r.Category().String() + "/" + r.Name + ext
}

// Parse reads every room of a manifest and returns its placement records in
// file order.
func Parse(text string) ([]PlacementRecord, error) {
	rooms := strings.Split(text, SectionMarker)

	var records []PlacementRecord
	// Anything before the first marker is not a room.
	for ri, room := range rooms[1:] {
		lines := strings.Split(room, "\n")
		for li := HeaderLines; li < len(lines); li++ {
			rec, ok, err := parseLine(strings.TrimRight(lines[li], "\r"))
			if err != nil {
				return nil, fmt.Errorf("room %d line %d: %w", ri+1, li+1, err)
			}
			if !ok {
				break
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

// parseLine returns ok=false when the line ends the room.
func parseLine(line string) (PlacementRecord, bool, error) {
	fields := strings.SplitN(line, "\t", 3)
	if len(fields) < 2 {
		if isBlank(line) {
			return PlacementRecord{}, false, nil
		}
		return PlacementRecord{}, false, ErrMissingModelPath
	}

	name := fields[1]
	var rest string
	if len(fields) == 3 {
		rest = fields[2]
	}
	if isBlank(rest) {
		return PlacementRecord{}, false, nil
	}
	if name == "" {
		return PlacementRecord{}, false, ErrMissingModelPath
	}

	rec := PlacementRecord{Name: name}
	for i := 0; i < 3; i++ {
		v, err := Nth(rest, rotationToken+i)
		if err != nil {
			return PlacementRecord{}, false, fmt.Errorf("%s rotation: %w", name, err)
		}
		rec.Rotation[i] = v
	}
	for i := 0; i < 3; i++ {
		v, err := Nth(rest, translationToken+i)
		if err != nil {
			return PlacementRecord{}, false, fmt.Errorf("%s translation: %w", name, err)
		}
		rec.Translation[i] = v
	}
	return rec, true, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
