package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Risk levels used in reports.
const (
	RiskLow    = "baixo"
	RiskMedium = "medio"
	RiskHigh   = "alto"
)

// Report statuses mirror the contract record's terminal states.
const (
	StatusDone  = "done"
	StatusError = "error"
)

// Clause is one finding in a contract review.
type Clause struct {
	Title          string `json:"title"`
	Risk           string `json:"risk"`
	Explanation    string `json:"explanation"`
	Recommendation string `json:"recommendation,omitempty"`
}

// Report is stored as the contract result. Failed analyses use the same
// shape with Status set to error and Error filled in.
type Report struct {
	Status      string   `json:"status"`
	Summary     string   `json:"summary"`
	Parties     []string `json:"parties"`
	OverallRisk string   `json:"overallRisk"`
	Clauses     []Clause `json:"clauses"`
	Error       string   `json:"error,omitempty"`
}

// ErrorReport describes a failed analysis.
func ErrorReport(message string) *Report {
	return &Report{
		Status:  StatusError,
		Parties: []string{},
		Clauses: []Clause{},
		Error:   message,
	}
}

// Encode serializes the report for storage.
func (r *Report) Encode() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	return string(b), nil
}

// DecodeReport reads a stored report.
func DecodeReport(s string) (*Report, error) {
	var r Report
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

var errNoJSON = errors.New("model reply contains no JSON object")

// ParseReport extracts the JSON report from a model reply, tolerating code
// fences and prose around the object, and normalizes risk levels.
func ParseReport(reply string) (*Report, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, errNoJSON
	}
	var r Report
	if err := json.Unmarshal([]byte(reply[start:end+1]), &r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	if strings.TrimSpace(r.Summary) == "" {
		return nil, errors.New("parse report: summary is empty")
	}
	r.Status = StatusDone
	r.Error = ""
	r.OverallRisk = normalizeRisk(r.OverallRisk)
	if r.Parties == nil {
		r.Parties = []string{}
	}
	if r.Clauses == nil {
		r.Clauses = []Clause{}
	}
	for i := range r.Clauses {
		r.Clauses[i].Risk = normalizeRisk(r.Clauses[i].Risk)
	}
	return &r, nil
}

func normalizeRisk(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "alto", "alta", "high", "grave":
		return RiskHigh
	case "medio", "médio", "media", "média", "medium", "moderado":
		return RiskMedium
	case "baixo", "baixa", "low":
		return RiskLow
	}
	return RiskMedium
}
