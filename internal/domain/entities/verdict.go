package entities

// ProbeResult is one environment probe outcome. A probe that faulted reports
// Signal with a ":fault" suffix on Name.
type ProbeResult struct {
	Name   string
	Signal bool
}

// Verdict is the outcome of one legitimacy evaluation. The tripped signal is
// kept unexported so it can only reach the engine's own diagnostics.
type Verdict struct {
	legitimate bool
	tripped    string
}

// LegitimateVerdict is the verdict reached when every step passed
func LegitimateVerdict() Verdict {
	return Verdict{legitimate: true}
}

// IllegitimateVerdict records the signal that failed the evaluation
func IllegitimateVerdict(tripped string) Verdict {
	return Verdict{tripped: tripped}
}

// Legitimate reports the boolean verdict
func (v Verdict) Legitimate() bool {
	return v.legitimate
}

// Tripped returns the failing signal for in-process diagnostics
func (v Verdict) Tripped() string {
	return v.tripped
}
