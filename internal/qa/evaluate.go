package qa

import (
	"fmt"
	"strconv"
	"strings"
)

// Policy holds the tenant-independent thresholds.
type Policy struct {
	MicronLimit        float64
	RequiredPhotoTypes []string
}

func DefaultPolicy() Policy {
	return Policy{MicronLimit: 500, RequiredPhotoTypes: DefaultRequiredPhotoTypes}
}

// Evaluation is derived from a Gate on every read.
type Evaluation struct {
	MicronsPass       bool     `json:"microns_pass"`
	PhotosPass        bool     `json:"photos_pass"`
	MetricsPass       bool     `json:"metrics_pass"`
	OverallPass       bool     `json:"overall_pass"`
	MissingPhotoTypes []string `json:"missing_photo_types,omitempty"`
	MissingMetrics    []string `json:"missing_metrics,omitempty"`
}

// Evaluate is a pure function of g and p.
func (g Gate) Evaluate(p Policy) Evaluation {
	var ev Evaluation

	if m := g.StartupMetrics; m != nil {
		ev.MicronsPass = m.MicronsReading < p.limit()
		if m.TemperatureDifferential == nil {
			ev.MissingMetrics = append(ev.MissingMetrics, "temperature differential")
		}
		if m.AirflowCFM == nil {
			ev.MissingMetrics = append(ev.MissingMetrics, "airflow")
		}
		if len(m.ElectricalReadings) == 0 {
			ev.MissingMetrics = append(ev.MissingMetrics, "electrical readings")
		}
	} else {
		ev.MissingMetrics = []string{"temperature differential", "airflow", "electrical readings"}
	}
	ev.MetricsPass = len(ev.MissingMetrics) == 0

	have := map[string]bool{}
	for _, ph := range g.Photos {
		have[strings.ToLower(strings.TrimSpace(ph.Type))] = true
	}
	for _, want := range g.requiredPhotoTypes(p) {
		if !have[want] {
			ev.MissingPhotoTypes = append(ev.MissingPhotoTypes, want)
		}
	}
	ev.PhotosPass = len(ev.MissingPhotoTypes) == 0

	ev.OverallPass = ev.MicronsPass && ev.PhotosPass && ev.MetricsPass
	return ev
}

// FailureDetail explains a failed evaluation, e.g.
// "microns reading 501 exceeds limit (500); missing required photos: after, equipment".
func (g Gate) FailureDetail(p Policy) string {
	ev := g.Evaluate(p)
	if ev.OverallPass {
		return ""
	}
	var parts []string
	if !ev.MicronsPass {
		if g.StartupMetrics == nil {
			parts = append(parts, "startup metrics missing")
		} else {
			verb := "exceeds"
			if g.StartupMetrics.MicronsReading == p.limit() {
				verb = "is not below"
			}
			parts = append(parts, fmt.Sprintf("microns reading %s %s limit (%s)",
				formatNumber(g.StartupMetrics.MicronsReading), verb, formatNumber(p.limit())))
		}
	}
	if !ev.PhotosPass {
		parts = append(parts, "missing required photos: "+strings.Join(ev.MissingPhotoTypes, ", "))
	}
	if !ev.MetricsPass && g.StartupMetrics != nil {
		parts = append(parts, "incomplete startup metrics: "+strings.Join(ev.MissingMetrics, ", "))
	}
	return strings.Join(parts, "; ")
}

func (g Gate) requiredPhotoTypes(p Policy) []string {
	src := g.RequiredPhotoTypes
	if len(src) == 0 {
		src = p.RequiredPhotoTypes
	}
	if len(src) == 0 {
		src = DefaultRequiredPhotoTypes
	}
	out := make([]string, 0, len(src))
	seen := map[string]bool{}
	for _, t := range src {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func (p Policy) limit() float64 {
	if p.MicronLimit <= 0 {
		return 500
	}
	return p.MicronLimit
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
