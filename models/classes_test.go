package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassSets_IndicesAreDense(t *testing.T) {
	for _, set := range []OutputClassSet{PPEClasses, PPECompactClasses} {
		for i, c := range set.Classes {
			assert.Equal(t, i, c.Index, "class set %s, label %s", set.Name, c.Name)
		}
	}
	assert.Equal(t, 25, PPEClasses.Len())
	assert.Equal(t, 10, PPECompactClasses.Len())
}

func TestClassManager(t *testing.T) {
	mgr := DefaultClassManager()

	name, err := mgr.GetName(ClassSetPPE, 8)
	require.NoError(t, err)
	assert.Equal(t, ClassPerson, name)

	idx, err := mgr.GetIndex(ClassSetPPECompact, ClassSafetyVest)
	require.NoError(t, err)
	assert.Equal(t, 7, idx)

	mapped, err := mgr.MapClass(ClassSetPPE, 2, ClassSetPPECompact)
	require.NoError(t, err)
	assert.Equal(t, OutputClass{Index: 0, Name: ClassHardhat}, mapped)

	// Excavator has no counterpart in the compact set.
	_, err = mgr.MapClass(ClassSetPPE, 0, ClassSetPPECompact)
	assert.Error(t, err)

	_, err = mgr.GetName(ClassSetPPE, 25)
	assert.Error(t, err)

	_, err = mgr.Set("coco")
	assert.Error(t, err)
}

func TestNegativeClasses(t *testing.T) {
	tests := []struct {
		label    string
		negative bool
		positive string
	}{
		{"NO-Hardhat", true, "Hardhat"},
		{"NO-Safety Vest", true, "Safety Vest"},
		{"Hardhat", false, "Hardhat"},
		{"NO-", false, "NO-"},
		{"NOTE", false, "NOTE"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.negative, IsNegative(tt.label))
			assert.Equal(t, tt.positive, PositiveOf(tt.label))
		})
	}

	assert.Equal(t, "NO-Mask", NegativeOf(ClassMask))
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, ClassHardhat, Canonical("helmet"))
	assert.Equal(t, "NO-Hardhat", Canonical("no_helmet"))
	assert.Equal(t, ClassPerson, Canonical("person"))
	assert.Equal(t, "Safety Cone", Canonical("Safety Cone"))
}
