// Package mode models the two portfolio presentation modes.
package mode

// Mode selects which sections the landing page leads with.
type Mode string

const (
	Engineering Mode = "engineering"
	Research    Mode = "research"

	// Default is used for missing or unknown values.
	Default = Engineering

	// CookieName is the cookie the selected mode is persisted in.
	CookieName = "portfolio-mode"
)

// Parse maps s to a Mode. Anything other than a known mode is Default.
func Parse(s string) Mode {
	switch Mode(s) {
	case Engineering, Research:
		return Mode(s)
	default:
		return Default
	}
}

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == Engineering {
		return Research
	}
	return Engineering
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == Engineering || m == Research
}

func (m Mode) String() string { return string(m) }
