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
	"github.com/blacktop/objcrt/internal/utils"
	"github.com/blacktop/objcrt/pkg/abi/sim"
	"github.com/blacktop/objcrt/pkg/arc"
	"github.com/blacktop/objcrt/pkg/ns"
	"github.com/blacktop/objcrt/pkg/pool"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(poolsCmd)

	poolsCmd.Flags().IntP("depth", "d", 2, "how many pools to nest")
	viper.BindPFlag("pools.depth", poolsCmd.Flags().Lookup("depth"))
}

// nest autoreleases one number per level and hands the innermost one back to
// the caller as an owned handle.
func nest(rt *sim.Runtime, level, depth int) (*arc.R[ns.Number], error) {
	return pool.With(rt, func(p *pool.Pool) (*arc.R[ns.Number], error) {
		n, _ := ns.NumberWithInt64(rt, int64(level))
		s := n.Get().StringValue()
		utils.Indent(log.WithFields(log.Fields{
			"depth":  p.Depth(),
			"number": s.Get().String(),
		}).Debug, p.Depth())("Autoreleased")
		if level+1 < depth {
			return nest(rt, level+1, depth)
		}
		return n.Retain(), nil
	})
}

// poolsCmd represents the pools command
var poolsCmd = &cobra.Command{
	Use:   "pools",
	Short: "Run nested autorelease pools on the sim runtime and print every ownership event",
	Example: heredoc.Doc(`
		❯ objcrt pools --depth 3 --color`),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {

		if _, err := setup(cmd); err != nil {
			return err
		}

		depth := viper.GetInt("pools.depth")
		if depth < 1 {
			return fmt.Errorf("--depth must be at least 1")
		}

		rt := sim.New()
		rt.ResetEvents()

		kept, err := nest(rt, 0, depth)
		if err != nil {
			return err
		}
		log.WithField("value", kept.Get().Int64()).Info("Escaped every pool")
		kept.Release()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, e := range rt.Events() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", colors.Op(string(e.Op)), colors.Class(e.Class), colors.Address(fmt.Sprintf("%#x", uintptr(e.ID))), e.Count)
		}
		w.Flush()

		stats := rt.Stats()
		leaked := stats.Allocs - stats.Deallocs
		ctx := log.WithFields(log.Fields{
			"allocs":       humanize.Comma(int64(stats.Allocs)),
			"retains":      humanize.Comma(int64(stats.Retains)),
			"releases":     humanize.Comma(int64(stats.Releases)),
			"autoreleases": humanize.Comma(int64(stats.Autoreleases)),
			"deallocs":     humanize.Comma(int64(stats.Deallocs)),
		})
		if leaked != 0 {
			ctx.Warn(colors.Warn(fmt.Sprintf("%d objects leaked", leaked)))
			return nil
		}
		ctx.Info(colors.Ok("No leaks"))

		return nil
	},
}
