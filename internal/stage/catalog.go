// Package stage knows the stage catalog and turns a stage description into
// an assembled scene.
package stage

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// GroupID identifies the scene group every catalog entry belongs to.
const (
	GroupID   = "zack_and_wiki"
	GroupName = "Zack & Wiki: Quest for Barbaros' Treasure"
)

// Desc describes one stage.
type Desc struct {
	ID    string
	Name  string
	Group string // header the stage is listed under

	// Alternate stages have no manifest. Their scenery archive is read from
	// the Model directory and placed once at Translation.
	Alternate   bool
	AltID       string // overrides ID when naming the scenery archive
	Translation mgl32.Vec3
}

// Group is a catalog header and the stages listed under it.
type Group struct {
	Name   string
	Stages []Desc
}

type entry struct {
	id, name string
	alt      bool
	altID    string
}

var catalog = []struct {
	name    string
	entries []entry
}{
	{"Tutorial", []entry{
		{id: "STG_00_00", name: "Tutorial"},
		{id: "STG_01_00", name: "Tutorial", alt: true, altID: "SCR_01"},
	}},
	{"Jungle Ruins", []entry{
		{id: "STG_02_00", name: "Pit of Tradgedy"},
		{id: "STG_02_01", name: "Flute of the Growling Goblins"},
		{id: "STG_02_02", name: "Fish One"},
		{id: "STG_02_04", name: "Three Collosi"},
		{id: "STG_02_05", name: "King of the Jungle"},
	}},
	{"Ice World", []entry{
		{id: "STG_03_00", name: "Key Freezing", alt: true},
		{id: "STG_03_01", name: "Keeper of the Ice", alt: true},
		{id: "STG_03_02", name: "Drill", alt: true},
		{id: "STG_03_03", name: "Broken", alt: true},
		{id: "STG_03_04", name: "One I Forgot", alt: true},
		{id: "STG_03_05", name: "Frost Breath", alt: true},
	}},
	{"Volcano", []entry{
		{id: "STG_04_00", name: "Volcano 1"},
		{id: "STG_04_01", name: "Lava"},
		{id: "STG_04_02", name: "Lava 2"},
		{id: "STG_04_03", name: "Lava 3"},
		{id: "STG_04_04", name: "Lava 4"},
		{id: "STG_04_05", name: "Dragon Boss"},
	}},
	{"Airplane", []entry{
		{id: "STG_05_00", name: "Airplane", alt: true, altID: "SCR_05"},
	}},
	{"Creepy Mansion", []entry{
		{id: "STG_06_00", name: "Belltower"},
		{id: "STG_06_01", name: "Stage 6 2"},
		{id: "STG_06_02", name: "Stage 6 3"},
		{id: "STG_06_03", name: "Stage 6 4"},
		{id: "STG_06_04", name: "Stage 6 5"},
		{id: "STG_06_05", name: "Stage 6 6"},
	}},
	{"Boat", []entry{
		{id: "STG_07_00", name: "Kraken Boat", alt: true, altID: "SCR_07"},
		{id: "STG_07_01", name: "Stage 7 2"},
		{id: "STG_07_02", name: "Stage 7 3"},
	}},
	{"Treasure Island", []entry{
		{id: "STG_08_00", name: "Treasure Island", alt: true},
		{id: "STG_08_01", name: "Final Boss", alt: true},
		{id: "STG_08_02", name: "Stage 8 3"},
	}},
	{"?", []entry{
		{id: "STG_09_02", name: "Bookshelf", alt: true, altID: "SCR_09"},
	}},
}

// Catalog returns every stage grouped under its header, in display order.
// The result is a fresh copy.
func Catalog() []Group {
	groups := make([]Group, 0, len(catalog))
	for _, g := range catalog {
		grp := Group{Name: g.name, Stages: make([]Desc, 0, len(g.entries))}
		for _, e := range g.entries {
			grp.Stages = append(grp.Stages, Desc{
				ID:        e.id,
				Name:      e.name,
				Group:     g.name,
				Alternate: e.alt,
				AltID:     e.altID,
			})
		}
		groups = append(groups, grp)
	}
	return groups
}

// All returns every stage in display order without group headers.
func All() []Desc {
	var out []Desc
	for _, g := range Catalog() {
		out = append(out, g.Stages...)
	}
	return out
}

// Find looks a stage up by ID.
func Find(id string) (Desc, bool) {
	for _, d := range All() {
		if d.ID == id {
			return d, true
		}
	}
	return Desc{}, false
}

// StagePath returns the path of the stage's own archive.
func (d Desc) StagePath(base, ext string) string {
	return base + "/Stage/" + d.ID + "_ALL" + ext
}

// ManifestPath returns the path of the stage's placement manifest.
func (d Desc) ManifestPath(base string) string {
	return base + "/Stage/" + d.ID + "_3.txt"
}

// SceneryPath returns the path of the stage's SCR archive. Standard stages
// use it as the fallback for missing objects; alternate stages place it
// directly.
func (d Desc) SceneryPath(base, ext string) string {
	id := d.ID
	if d.Alternate && d.AltID != "" {
		id = d.AltID
	}
	return base + "/Model/SCR" + suffix(id) + "_ALL" + ext
}

// suffix drops the three letter prefix of an ID ("STG_02_00" -> "_02_00").
func suffix(id string) string {
	if len(id) < 3 {
		return ""
	}
	return strings.TrimSpace(id[3:])
}
