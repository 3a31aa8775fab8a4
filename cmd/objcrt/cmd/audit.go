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

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/objcrt/internal/audit"
	"github.com/blacktop/objcrt/internal/colors"
	"github.com/blacktop/objcrt/internal/utils"
	"github.com/blacktop/objcrt/pkg/ns"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringP("arch", "a", "", "Which architecture to use for fat/universal MachO")
	auditCmd.Flags().BoolP("yaml", "y", false, "output as YAML")
	viper.BindPFlag("audit.arch", auditCmd.Flags().Lookup("arch"))
	viper.BindPFlag("audit.yaml", auditCmd.Flags().Lookup("yaml"))
	auditCmd.MarkZshCompPositionalArgumentFile(1)
}

func manifestWants() []audit.Want {
	var wants []audit.Want
	for _, b := range ns.Manifest {
		wants = append(wants, audit.Want{Class: b.Class.Name(), Selectors: b.Selectors()})
	}
	return wants
}

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit <MACHO>",
	Short: "Check the bundled wrappers against a framework's Objective-C metadata",
	Long: `Check every class and selector the bundled wrappers rely on against the
Objective-C metadata of a Mach-O, e.g. a Foundation or CoreFoundation
extracted from the dyld shared cache. Classes the image does not define are
reported as missing. Superclasses are only followed inside the image, so a
selector inherited from another framework also shows up as missing.`,
	Example: heredoc.Doc(`
		# Audit against a Foundation extracted from the shared cache
		❯ objcrt audit ./Foundation --arch arm64e`),
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {

		if _, err := setup(cmd); err != nil {
			return err
		}

		machoPath := args[0]

		log.WithField("image", machoPath).Info("Auditing bindings")
		report, err := audit.File(machoPath, viper.GetString("audit.arch"), manifestWants())
		if err != nil {
			return err
		}

		if viper.GetBool("audit.yaml") {
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(report); err != nil {
				return err
			}
			enc.Close()
		} else {
			for _, f := range report.Findings {
				fmt.Printf("%s %s %s %s\n", colors.Fail("✗"), colors.Class(f.Class), colors.Selector(f.Selector), colors.Warn(f.Problem))
				if f.Detail != "" {
					utils.Indent(log.Warn, 2)(f.Detail)
				}
			}
		}

		ctx := log.WithFields(log.Fields{
			"classes":   report.Classes,
			"selectors": report.Checked,
		})
		if !report.OK() {
			return fmt.Errorf("%d binding problems in %s", len(report.Findings), machoPath)
		}
		ctx.Info(colors.Ok("All bindings satisfied"))

		return nil
	},
}
