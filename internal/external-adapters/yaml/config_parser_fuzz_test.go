package yaml

import (
	"testing"
)

// FuzzConfigParser tests the YAML parser against random/malformed inputs
// to detect crashes, panics, or unexpected behavior.
//
// Run with: go test -fuzz=FuzzConfigParser -fuzztime=30s
func FuzzConfigParser(f *testing.F) {
	f.Add([]byte(fullConfig))
	f.Add([]byte("policy:\n  encryption: channel-aware\n"))
	f.Add([]byte("probes:\n  forbidden_paths:\n    - /etc/apt\n"))

	f.Add([]byte(``))                                    // Empty input
	f.Add([]byte(`{}`))                                  // Empty JSON-style YAML
	f.Add([]byte(`[]`))                                  // Array instead of object
	f.Add([]byte("policy:\n  encryption: [1, 2]\n"))     // Wrong type
	f.Add([]byte("probes:\n  forbidden_paths: nope\n"))  // Scalar instead of list
	f.Add([]byte("logging: {level: info}\nlogging: {}")) // Duplicate keys

	parser := NewConfigParser()

	f.Fuzz(func(_ *testing.T, data []byte) {
		_, _ = parser.Parse(data)
	})
}
