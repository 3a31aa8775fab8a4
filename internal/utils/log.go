// Package utils holds small CLI output helpers.
package utils

import (
	"sync"

	"github.com/apex/log/handlers/cli"
)

var (
	paddingMu     sync.Mutex
	normalPadding = cli.Default.Padding
)

// Indent returns f wrapped so its record is printed level steps to the right
// of the usual cli handler padding.
func Indent(f func(s string), level int) func(string) {
	return func(s string) {
		paddingMu.Lock()
		defer paddingMu.Unlock()
		cli.Default.Padding = normalPadding * level
		f(s)
		cli.Default.Padding = normalPadding
	}
}
