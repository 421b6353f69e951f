package models

// Palette is cycled through for variables added without a colour.
var Palette = [...]string{"green", "orange", "cyan", "yellow", "pink", "blue"}

// DefaultColour picks the palette entry for position i.
func DefaultColour(i int) string {
	return Palette[i%len(Palette)]
}

func pickColour(colour []string, position int) string {
	if len(colour) > 0 && colour[0] != "" {
		return colour[0]
	}
	return DefaultColour(position)
}
