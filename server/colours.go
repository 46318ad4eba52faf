package server

// ANSI colours for the DEV route listing.
const (
	colourGreen  = "\033[32m"
	colourYellow = "\033[33m"
	colourBlue   = "\033[34m"
	colourCyan   = "\033[36m"
	colourGray   = "\033[90m"
	colourReset  = "\033[0m"
)

// methodColors covers the methods the API registers; anything else is gray.
var methodColors = map[string]string{
	"GET":    colourGreen,
	"POST":   colourBlue,
	"PUT":    colourCyan,
	"DELETE": colourYellow,
}
