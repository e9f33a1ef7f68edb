package offsets

import "fmt"

// ResearchKind selects the upgrade or the tech tables.
type ResearchKind uint8

const (
	Upgrades ResearchKind = iota
	Techs
)

func (k ResearchKind) String() string {
	if k == Techs {
		return "techs"
	}
	return "upgrades"
}

// ResearchPlayers is the number of player rows in every research section.
const ResearchPlayers = 12

// SectionLayout is the id range held by one research section. Rows are player-major,
// one byte per id.
type SectionLayout struct {
	FirstID int
	Count   int
}

var researchLayouts = map[ResearchKind][2]SectionLayout{
	Upgrades: {{FirstID: 0, Count: 46}, {FirstID: 46, Count: 15}},
	Techs:    {{FirstID: 0, Count: 24}, {FirstID: 24, Count: 20}},
}

// Layout returns the layout of section 1 or 2 of kind.
func (k ResearchKind) Layout(section int) (SectionLayout, error) {
	layouts, ok := researchLayouts[k]
	if !ok || section < 1 || section > 2 {
		return SectionLayout{}, fmt.Errorf("no section %d for %s", section, k)
	}
	return layouts[section-1], nil
}

// IDs is the number of ids kind tracks across both sections.
func (k ResearchKind) IDs() int {
	l := researchLayouts[k]
	return l[1].FirstID + l[1].Count
}

// Locate maps an id to its section number and column.
func (k ResearchKind) Locate(id int) (section, column int, err error) {
	for i, l := range researchLayouts[k] {
		if id >= l.FirstID && id < l.FirstID+l.Count {
			return i + 1, id - l.FirstID, nil
		}
	}
	return 0, 0, fmt.Errorf("%s id %d out of range [0,%d)", k, id, k.IDs())
}

// Size is the byte size of a whole section.
func (l SectionLayout) Size() int {
	return ResearchPlayers * l.Count
}
