/*
Copyright © 2018-2023 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/objcrt/internal/colors"
	"github.com/blacktop/objcrt/pkg/dispatch"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(selCmd)
}

// selCmd represents the sel command
var selCmd = &cobra.Command{
	Use:   "sel <name>...",
	Short: "Resolve selectors through the selector cache",
	Example: heredoc.Doc(`
		# Resolve a few selectors on the sim runtime
		❯ objcrt sel --runtime sim length UTF8String stringByAppendingString:`),
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {

		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}

		reg := dispatch.For(rt)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, name := range args {
			sel := reg.Resolve(name)
			// the second resolve must come from the cache
			if again := reg.Resolve(name); again != sel {
				return fmt.Errorf("selector %s resolved to two identities: %#x and %#x", name, uintptr(sel.SEL()), uintptr(again.SEL()))
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", colors.Selector(sel.Name()), colors.Address(fmt.Sprintf("%#x", uintptr(sel.SEL()))), rt.SelectorName(sel.SEL()))
		}
		w.Flush()

		stats := reg.Stats()
		log.WithFields(log.Fields{
			"runtime":       rt.Name(),
			"registrations": humanize.Comma(int64(stats.Registrations)),
			"hits":          humanize.Comma(int64(stats.Hits)),
			"cached":        humanize.Comma(int64(stats.Cached)),
		}).Info("Selector cache")

		return nil
	},
}
