package model

// DataQuality grades how complete a category's data turned out.
type DataQuality string

const (
	QualityNone    DataQuality = "none"
	QualityPartial DataQuality = "partial"
	QualityGood    DataQuality = "good"
)

// Finding is the standardized Tier-1 output for one data category.
// A category with no surviving data still produces a Finding with
// HasData=false; absence of data is itself a reportable fact.
type Finding struct {
	Category           string             `json:"category"`
	SourceIDs          []string           `json:"source_ids,omitempty"`
	HasData            bool               `json:"has_data"`
	DataQuality        DataQuality        `json:"data_quality"`
	KeyFindings        []string           `json:"key_findings,omitempty"`
	RiskFlags          []string           `json:"risk_flags,omitempty"`
	PositiveIndicators []string           `json:"positive_indicators,omitempty"`
	Metrics            map[string]float64 `json:"metrics,omitempty"`
}

// QualityCounts tallies categories per data-quality grade.
type QualityCounts struct {
	Good    int `json:"good"`
	Partial int `json:"partial"`
	None    int `json:"none"`
}

// Summary is the Tier-2 cross-source compilation of all findings.
type Summary struct {
	Findings           []Finding     `json:"findings"`
	KeyFindings        []string      `json:"key_findings,omitempty"`
	RiskFlags          []string      `json:"risk_flags,omitempty"`
	PositiveIndicators []string      `json:"positive_indicators,omitempty"`
	DataQuality        QualityCounts `json:"data_quality_summary"`
}
