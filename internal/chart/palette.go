package chart

// FallbackColor is used for parties without a palette entry.
const FallbackColor = "#8c8c8c"

// Palette maps party display names to hex colors.
type Palette map[string]string

// DefaultPalette is the party palette of the 2021 dashboard. The Greens are
// listed under both their short and their official name.
func DefaultPalette() Palette {
	return Palette{
		"CDU":                   "#32302e",
		"SPD":                   "#e3000f",
		"GRÜNE":                 "#64a12d",
		"BÜNDNIS 90/DIE GRÜNEN": "#64a12d",
		"DIE LINKE":             "#b61c3e",
		"FDP":                   "#ffed00",
		"AfD":                   "#009ee0",
		"Sonstige":              "#adb9ca",
		"CSU":                   "#0080c9",
	}
}

// Color returns the color of party, or FallbackColor.
func (p Palette) Color(party string) string {
	if c, ok := p[party]; ok && c != "" {
		return c
	}
	return FallbackColor
}

// Merge returns a copy of p with the entries of o added or replaced.
func (p Palette) Merge(o Palette) Palette {
	out := make(Palette, len(p)+len(o))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range o {
		out[k] = v
	}
	return out
}
