// Package colors holds the CLI palette.
//
// Colors are disabled automatically when stdout is not a terminal; that
// detection comes from fatih/color. Init overrides it from CLI flags.
package colors

import "github.com/fatih/color"

// Init overrides the auto-detected setting. nil keeps the detected value.
func Init(forceColor *bool) {
	if forceColor != nil {
		color.NoColor = !*forceColor
	}
}

// Enabled reports whether colors are currently on.
func Enabled() bool {
	return !color.NoColor
}

// Sprint is a string formatting func from a palette entry.
type Sprint func(a ...any) string

var (
	Class    Sprint = color.New(color.Bold, color.FgHiMagenta).SprintFunc()
	Selector Sprint = color.New(color.FgHiBlue).SprintFunc()
	Protocol Sprint = color.New(color.FgCyan).SprintFunc()
	Encoding Sprint = color.New(color.Faint, color.FgWhite).SprintFunc()
	Address  Sprint = color.New(color.Faint).SprintFunc()
	Count    Sprint = color.New(color.Bold).SprintFunc()
	Ok       Sprint = color.New(color.FgGreen).SprintFunc()
	Fail     Sprint = color.New(color.Bold, color.FgRed).SprintFunc()
	Warn     Sprint = color.New(color.FgYellow).SprintFunc()
)

// Op colors an ownership event by its kind.
func Op(op string) string {
	switch op {
	case "retain", "push":
		return color.New(color.FgGreen).Sprint(op)
	case "release", "pop":
		return color.New(color.FgYellow).Sprint(op)
	case "dealloc":
		return color.New(color.Bold, color.FgRed).Sprint(op)
	case "autorelease":
		return color.New(color.FgCyan).Sprint(op)
	default:
		return op
	}
}

// Bool renders yes/no.
func Bool(b bool) string {
	if b {
		return Ok("yes")
	}
	return Fail("no")
}
