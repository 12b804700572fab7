// Package models - Class vocabularies for protective equipment detectors.
package models

// ClassSetName identifies the label set a detector was trained on.
type ClassSetName string

const (
	// ClassSetPPE is the 25 class construction-site set.
	ClassSetPPE ClassSetName = "ppe"
	// ClassSetPPECompact is the 10 class protective equipment set.
	ClassSetPPECompact ClassSetName = "ppe-compact"
)
