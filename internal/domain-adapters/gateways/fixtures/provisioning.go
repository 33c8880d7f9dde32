package fixtures

import (
	"fmt"
	"strings"
	"time"
)

// Profile describes a synthetic provisioning profile
type Profile struct {
	Name                 string
	TeamID               string // written to the TeamIdentifier array; empty omits it
	EntitlementsTeamID   string
	GetTaskAllow         bool
	ProvisionedDevices   []string
	ProvisionsAllDevices bool
	Expiration           time.Time
}

// Build renders the profile as a CMS-like envelope around an XML plist
func (p Profile) Build() []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<plist version="1.0">` + "\n<dict>\n")
	b.WriteString("\t<key>AppIDName</key>\n\t<string>Moon</string>\n")
	fmt.Fprintf(&b, "\t<key>Name</key>\n\t<string>%s</string>\n", p.Name)
	b.WriteString("\t<key>UUID</key>\n\t<string>6f1e2d3c-4b5a-6978-8a9b-0c1d2e3f4a5b</string>\n")
	b.WriteString("\t<key>TeamName</key>\n\t<string>Moon Labs</string>\n")
	if p.TeamID != "" {
		fmt.Fprintf(&b, "\t<key>TeamIdentifier</key>\n\t<array>\n\t\t<string>%s</string>\n\t</array>\n", p.TeamID)
	}
	b.WriteString("\t<key>Entitlements</key>\n\t<dict>\n")
	if p.EntitlementsTeamID != "" {
		fmt.Fprintf(&b, "\t\t<key>com.apple.developer.team-identifier</key>\n\t\t<string>%s</string>\n", p.EntitlementsTeamID)
	}
	if p.GetTaskAllow {
		b.WriteString("\t\t<key>get-task-allow</key>\n\t\t<true/>\n")
	} else {
		b.WriteString("\t\t<key>get-task-allow</key>\n\t\t<false/>\n")
	}
	b.WriteString("\t</dict>\n")
	if len(p.ProvisionedDevices) > 0 {
		b.WriteString("\t<key>ProvisionedDevices</key>\n\t<array>\n")
		for _, d := range p.ProvisionedDevices {
			fmt.Fprintf(&b, "\t\t<string>%s</string>\n", d)
		}
		b.WriteString("\t</array>\n")
	}
	if p.ProvisionsAllDevices {
		b.WriteString("\t<key>ProvisionsAllDevices</key>\n\t<true/>\n")
	}
	b.WriteString("\t<key>CreationDate</key>\n\t<date>2026-01-01T00:00:00Z</date>\n")
	if !p.Expiration.IsZero() {
		fmt.Fprintf(&b, "\t<key>ExpirationDate</key>\n\t<date>%s</date>\n", p.Expiration.UTC().Format(time.RFC3339))
	}
	b.WriteString("</dict>\n</plist>")

	// a CMS SignedData header and trailer surround the payload in real profiles
	envelope := []byte{0x30, 0x82, 0x1f, 0x00, 0x06, 0x09, 0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x07, 0x02}
	trailer := []byte{0xa0, 0x82, 0x0e, 0x3f, 0x30, 0x82, 0x04, 0x34}
	out := append([]byte{}, envelope...)
	out = append(out, b.String()...)
	return append(out, trailer...)
}

// InfoPlist renders an Info.plist with the given keys
func InfoPlist(bundleID, version, build, name string) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<plist version="1.0">` + "\n<dict>\n")
	write := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&b, "\t<key>%s</key>\n\t<string>%s</string>\n", k, v)
		}
	}
	write("CFBundleIdentifier", bundleID)
	write("CFBundleShortVersionString", version)
	write("CFBundleVersion", build)
	write("CFBundleDisplayName", name)
	write("CFBundleExecutable", "Moon")
	b.WriteString("</dict>\n</plist>\n")
	return []byte(b.String())
}
