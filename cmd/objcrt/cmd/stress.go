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
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/objcrt/internal/colors"
	"github.com/blacktop/objcrt/pkg/dispatch"
	"github.com/briandowns/spinner"
	"github.com/caarlos0/ctrlc"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

func init() {
	rootCmd.AddCommand(stressCmd)

	stressCmd.Flags().IntP("goroutines", "g", 16, "concurrent resolvers")
	stressCmd.Flags().IntP("iterations", "n", 10000, "resolutions per goroutine")
	stressCmd.Flags().IntP("selectors", "s", 64, "distinct selector names")
	viper.BindPFlag("stress.goroutines", stressCmd.Flags().Lookup("goroutines"))
	viper.BindPFlag("stress.iterations", stressCmd.Flags().Lookup("iterations"))
	viper.BindPFlag("stress.selectors", stressCmd.Flags().Lookup("selectors"))
}

// stressCmd represents the stress command
var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Resolve selectors from many goroutines and check every one gets the same identity",
	Example: heredoc.Doc(`
		❯ objcrt stress -g 64 -n 100000 -s 8`),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {

		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}

		workers := viper.GetInt("stress.goroutines")
		iterations := viper.GetInt("stress.iterations")
		distinct := viper.GetInt("stress.selectors")
		if workers < 1 || iterations < 1 || distinct < 1 {
			return fmt.Errorf("--goroutines, --iterations and --selectors must be positive")
		}

		names := make([]string, distinct)
		for i := range names {
			names[i] = fmt.Sprintf("objcrtStress%d:", i)
		}

		reg := dispatch.For(rt)
		before := reg.Stats()
		var seen sync.Map // name -> abi.SEL

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s := spinner.New(spinner.CharSets[38], 100*time.Millisecond)
		s.Prefix = color.BlueString("   • Resolving... ")
		s.Start()

		start := time.Now()
		err = ctrlc.Default.Run(ctx, func() error {
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(workers)
			for w := 0; w < workers; w++ {
				w := w
				g.Go(func() error {
					for i := 0; i < iterations; i++ {
						if i%1024 == 0 && gctx.Err() != nil {
							return gctx.Err()
						}
						name := names[(w+i)%distinct]
						sel := reg.Resolve(name).SEL()
						if prev, loaded := seen.LoadOrStore(name, sel); loaded && prev != sel {
							return fmt.Errorf("%s resolved to %v and %v", name, prev, sel)
						}
					}
					return nil
				})
			}
			return g.Wait()
		})
		s.Stop()
		if err != nil {
			if errors.As(err, &ctrlc.ErrorCtrlC{}) {
				log.Warn("Interrupted")
				return nil
			}
			return err
		}
		elapsed := time.Since(start)

		after := reg.Stats()
		total := uint64(workers) * uint64(iterations)
		log.WithFields(log.Fields{
			"runtime":       rt.Name(),
			"resolutions":   humanize.Comma(int64(total)),
			"registrations": humanize.Comma(int64(after.Registrations - before.Registrations)),
			"hits":          humanize.Comma(int64(after.Hits - before.Hits)),
			"elapsed":       elapsed.Round(time.Millisecond),
		}).Info(colors.Ok("Every goroutine saw the same selectors"))

		return nil
	},
}
