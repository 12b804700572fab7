package models

import (
	"fmt"
	"strings"
	"sync"
)

// Canonical class names shared by every PPE class set.
const (
	ClassPerson     = "Person"
	ClassHardhat    = "Hardhat"
	ClassSafetyVest = "Safety Vest"
	ClassMask       = "Mask"
	ClassGloves     = "Gloves"

	// NegativePrefix marks a class that confirms the absence of the item
	// named by the rest of the label, e.g. "NO-Hardhat".
	NegativePrefix = "NO-"
)

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int
	// The human-readable label.
	Name string
}

// OutputClassSet ties a class set name to its full list of labels.
type OutputClassSet struct {
	// Class set identifier.
	Name ClassSetName
	// Classes that are supported and mappable.
	Classes []OutputClass
	// nameToIdx for fast lookup by name
	nameToIdx map[string]int
}

// BuildNameIndexMap builds or rebuilds the name->index map.
func (s *OutputClassSet) BuildNameIndexMap() {
	s.nameToIdx = make(map[string]int, len(s.Classes))
	for _, c := range s.Classes {
		s.nameToIdx[c.Name] = c.Index
	}
}

// Len is the number of classes the model emits scores for.
func (s *OutputClassSet) Len() int {
	return len(s.Classes)
}

// Label returns the class name for a model output index.
func (s *OutputClassSet) Label(idx int) (string, error) {
	if idx < 0 || idx >= len(s.Classes) {
		return "", fmt.Errorf("index %d out of range for class set %q", idx, s.Name)
	}
	return s.Classes[idx].Name, nil
}

// ClassManager holds all registered class sets.
type ClassManager struct {
	sets map[ClassSetName]*OutputClassSet
}

// NewClassManager initializes and registers the given sets.
func NewClassManager(allSets ...*OutputClassSet) *ClassManager {
	mgr := &ClassManager{sets: make(map[ClassSetName]*OutputClassSet)}
	for _, set := range allSets {
		set.BuildNameIndexMap()
		mgr.sets[set.Name] = set
	}
	return mgr
}

// DefaultClassManager has every built-in PPE class set registered. It is
// built once and shared.
var DefaultClassManager = sync.OnceValue(func() *ClassManager {
	return NewClassManager(&PPEClasses, &PPECompactClasses)
})

// Set returns a registered class set.
func (m *ClassManager) Set(name ClassSetName) (*OutputClassSet, error) {
	set, ok := m.sets[name]
	if !ok {
		return nil, fmt.Errorf("class set %q not registered", name)
	}
	return set, nil
}

// GetName returns the class name for a given set and index.
func (m *ClassManager) GetName(name ClassSetName, idx int) (string, error) {
	set, err := m.Set(name)
	if err != nil {
		return "", err
	}
	return set.Label(idx)
}

// GetIndex returns the class index for a given set and name.
func (m *ClassManager) GetIndex(name ClassSetName, label string) (int, error) {
	set, err := m.Set(name)
	if err != nil {
		return -1, err
	}
	idx, ok := set.nameToIdx[label]
	if !ok {
		return -1, fmt.Errorf("name %q not found in class set %q", label, name)
	}
	return idx, nil
}

// MapClass maps an index from one set to another, returning the target OutputClass.
func (m *ClassManager) MapClass(from ClassSetName, idx int, to ClassSetName) (OutputClass, error) {
	name, err := m.GetName(from, idx)
	if err != nil {
		return OutputClass{}, err
	}
	toIdx, err := m.GetIndex(to, name)
	if err != nil {
		return OutputClass{}, err
	}
	return OutputClass{Index: toIdx, Name: name}, nil
}

// IsNegative reports whether label is a "NO-" class.
func IsNegative(label string) bool {
	return strings.HasPrefix(label, NegativePrefix) && len(label) > len(NegativePrefix)
}

// PositiveOf strips the negative prefix: "NO-Mask" -> "Mask". Labels that
// are not negative are returned unchanged.
func PositiveOf(label string) string {
	if IsNegative(label) {
		return label[len(NegativePrefix):]
	}
	return label
}

// NegativeOf returns the negative class for an item: "Mask" -> "NO-Mask".
func NegativeOf(item string) string {
	return NegativePrefix + item
}

// Canonical maps a raw detector label onto the canonical vocabulary using
// ProtectiveEquipmentAliases. Unknown labels pass through unchanged.
func Canonical(label string) string {
	if c, ok := ProtectiveEquipmentAliases[label]; ok {
		return c
	}
	return label
}

// ProtectiveEquipmentAliases maps labels emitted by third-party protective
// equipment models onto the canonical names used by the compliance engine.
var ProtectiveEquipmentAliases = map[string]string{
	"person":      ClassPerson,
	"helmet":      ClassHardhat,
	"hardhat":     ClassHardhat,
	"no_helmet":   NegativeOf(ClassHardhat),
	"no-hardhat":  NegativeOf(ClassHardhat),
	"mask":        ClassMask,
	"no_mask":     NegativeOf(ClassMask),
	"vest":        ClassSafetyVest,
	"safety_vest": ClassSafetyVest,
	"no_vest":     NegativeOf(ClassSafetyVest),
	"glove":       ClassGloves,
	"gloves":      ClassGloves,
	"no_glove":    NegativeOf(ClassGloves),
	"goggles":     "Goggles",
	"no_goggles":  "NO-Goggles",
	"shoes":       "Safety Shoes",
	"no_shoes":    "NO-Safety Shoes",
}

// PPEClasses is the 25 class construction-site set: protective equipment,
// its negative classes, people and site vehicles.
var PPEClasses = OutputClassSet{
	Name: ClassSetPPE,
	Classes: []OutputClass{
		{0, "Excavator"},
		{1, ClassGloves},
		{2, ClassHardhat},
		{3, "Ladder"},
		{4, ClassMask},
		{5, "NO-Hardhat"},
		{6, "NO-Mask"},
		{7, "NO-Safety Vest"},
		{8, ClassPerson},
		{9, "SUV"},
		{10, "Safety Cone"},
		{11, ClassSafetyVest},
		{12, "bus"},
		{13, "dump truck"},
		{14, "fire hydrant"},
		{15, "machinery"},
		{16, "mini-van"},
		{17, "sedan"},
		{18, "semi"},
		{19, "trailer"},
		{20, "truck and trailer"},
		{21, "truck"},
		{22, "van"},
		{23, "vehicle"},
		{24, "wheel loader"},
	},
}

// PPECompactClasses is the reduced 10 class set used by smaller models.
var PPECompactClasses = OutputClassSet{
	Name: ClassSetPPECompact,
	Classes: []OutputClass{
		{0, ClassHardhat},
		{1, ClassMask},
		{2, "NO-Hardhat"},
		{3, "NO-Mask"},
		{4, "NO-Safety Vest"},
		{5, ClassPerson},
		{6, "Safety Cone"},
		{7, ClassSafetyVest},
		{8, "machinery"},
		{9, "vehicle"},
	},
}
