package model

// Incident is a single hit from the incident corpus similarity search.
// The search capability returns incidents best-match-first; the engine
// preserves that order and never re-sorts.
type Incident struct {
	ID              string           `json:"id"`
	SimilarityScore float64          `json:"similarity_score"`
	Content         string           `json:"content,omitempty"`
	Category        string           `json:"category,omitempty"`
	Metadata        IncidentMetadata `json:"metadata"`
}

// IncidentMetadata carries the corpus payload fields used for
// caller-supplied constraint filtering.
type IncidentMetadata struct {
	Title        string `json:"title,omitempty"`
	Severity     string `json:"severity,omitempty"`
	Organization string `json:"organization,omitempty"`
	IncidentDate string `json:"incident_date,omitempty"`
	Industry     string `json:"industry,omitempty"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
}

// Evidence is the retriever's derivation for one candidate: a weight in
// [0,1], the count of surviving incidents, and the capped incident list.
type Evidence struct {
	Weight    float64    `json:"weight"`
	Count     int        `json:"count"`
	Incidents []Incident `json:"incidents,omitempty"`
}
