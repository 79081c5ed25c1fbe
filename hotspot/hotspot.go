// Package hotspot defines the canonical fraud-withdrawal hotspot record,
// the session store the engine renders from, and the filter pipeline
// applied to it before every redraw.
package hotspot

import (
	"math"
	"strings"
	"time"
)

// Scam type catalog. Feeds normalize free-form labels into these
// buckets; anything unrecognized lands in ScamOther.
const (
	ScamUPIFraud      = "upi_fraud"
	ScamLoanApp       = "loan_app"
	ScamJobScam       = "job_scam"
	ScamInvestment    = "investment"
	ScamImpersonation = "impersonation"
	ScamOther         = "other"
)

// ScamTypes lists the catalog in display order.
var ScamTypes = []string{
	ScamUPIFraud,
	ScamLoanApp,
	ScamJobScam,
	ScamInvestment,
	ScamImpersonation,
	ScamOther,
}

// TimeWindowChoices are the selectable filter window widths in minutes.
var TimeWindowChoices = []int{15, 30, 60, 180, 360, 1440}

// DefaultTimeWindowMinutes is the window applied until the user picks one.
const DefaultTimeWindowMinutes = 60

// Hotspot is one predicted risky-withdrawal location. Records are
// immutable once stored except for DigitalCordon, and live only for the
// session.
type Hotspot struct {
	ID            string  `json:"id"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	RiskScore     float64 `json:"riskScore"`
	TimeWindow    string  `json:"timeWindow,omitempty"`
	ScamType      string  `json:"scamType,omitempty"`
	State         string  `json:"state,omitempty"`
	District      string  `json:"district,omitempty"`
	PoliceStation string  `json:"policeStation,omitempty"`
	ComplaintID   string  `json:"complaintId,omitempty"`
	Amount        float64 `json:"amount,omitempty"`
	DigitalCordon bool    `json:"digitalCordon"`
	Timestamp     string  `json:"timestamp,omitempty"`
	Address       string  `json:"address,omitempty"`

	// At is Timestamp parsed once at ingestion. The zero value means the
	// record's age is unknown; the time-window filter keeps such records.
	At time.Time `json:"-"`
}

// NormalizeScamType maps a free-form label onto the catalog.
func NormalizeScamType(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ScamUPIFraud:
		return ScamUPIFraud
	case ScamLoanApp:
		return ScamLoanApp
	case ScamJobScam:
		return ScamJobScam
	case ScamInvestment:
		return ScamInvestment
	case ScamImpersonation:
		return ScamImpersonation
	default:
		return ScamOther
	}
}

// HasLocation reports whether lat/lon denote a usable position.
// Zero/zero is the upstream "no location" sentinel, and non-finite or
// out-of-range values cannot be projected.
func HasLocation(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Normalize validates and canonicalizes a record in place: it parses a
// present timestamp, clamps the risk score into [0,1], and folds the
// scam type onto the catalog. It reports false when the record cannot be
// used at all: no id, no usable location, or a timestamp that is present
// but malformed. An absent timestamp is valid and means unknown age.
func Normalize(h *Hotspot) bool {
	if h.ID == "" || !HasLocation(h.Lat, h.Lon) {
		return false
	}
	if h.Timestamp != "" {
		at, err := time.Parse(time.RFC3339, h.Timestamp)
		if err != nil {
			return false
		}
		h.At = at
	}
	switch {
	case math.IsNaN(h.RiskScore) || h.RiskScore < 0:
		h.RiskScore = 0
	case h.RiskScore > 1:
		h.RiskScore = 1
	}
	h.ScamType = NormalizeScamType(h.ScamType)
	return true
}
