package models

import "strings"

// Placeholder values used when the model answer cannot be read.
const (
	UnidentifiedCommonName     = "Unidentified Bird"
	UnidentifiedScientificName = "Not available"
	UnableToDetermine          = "Unable to determine"
)

// BirdIdentification is the eight-field record describing a bird species.
// JSON names match what the browser renders.
type BirdIdentification struct {
	CommonName         string `json:"commonName"`
	ScientificName     string `json:"scientificName"`
	Habitat            string `json:"habitat"`
	Behavior           string `json:"behavior"`
	MigrationPattern   string `json:"migrationPattern"`
	Diet               string `json:"diet"`
	ConservationStatus string `json:"conservationStatus"`
	InterestingFacts   string `json:"interestingFacts"`
}

// UnidentifiedBird returns the placeholder record substituted when the
// model output is not JSON.
func UnidentifiedBird() BirdIdentification {
	return BirdIdentification{
		CommonName:         UnidentifiedCommonName,
		ScientificName:     UnidentifiedScientificName,
		Habitat:            UnableToDetermine,
		Behavior:           UnableToDetermine,
		MigrationPattern:   UnableToDetermine,
		Diet:               UnableToDetermine,
		ConservationStatus: UnableToDetermine,
		InterestingFacts:   UnableToDetermine,
	}
}

// IsUnidentified reports whether b carries no usable species name.
func (b BirdIdentification) IsUnidentified() bool {
	name := strings.TrimSpace(b.CommonName)
	return name == "" || name == UnidentifiedCommonName
}

// Section is one labeled block of the result card.
type Section struct {
	Title string
	Body  string
}

// Sections returns the result card blocks as two columns, left then right.
func (b BirdIdentification) Sections() [2][]Section {
	return [2][]Section{
		{
			{Title: "Habitat", Body: b.Habitat},
			{Title: "Diet", Body: b.Diet},
			{Title: "Behavior", Body: b.Behavior},
		},
		{
			{Title: "Migration Patterns", Body: b.MigrationPattern},
			{Title: "Conservation Status", Body: b.ConservationStatus},
			{Title: "Interesting Facts", Body: b.InterestingFacts},
		},
	}
}
