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
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/objcrt/internal/colors"
	iobjc "github.com/blacktop/objcrt/internal/objc"
	"github.com/blacktop/objcrt/pkg/abi"
	"github.com/blacktop/objcrt/pkg/dispatch"
	"github.com/blacktop/objcrt/pkg/objc"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type selectorReport struct {
	Name      string `yaml:"name"`
	Responds  bool   `yaml:"responds"`
	Encoding  string `yaml:"encoding,omitempty"`
	Signature string `yaml:"signature,omitempty"`
}

type classReport struct {
	Name       string           `yaml:"name"`
	Runtime    string           `yaml:"runtime"`
	Superclass []string         `yaml:"superclasses,omitempty"`
	Selectors  []selectorReport `yaml:"selectors,omitempty"`
	Native     *iobjc.ClassInfo `yaml:"native,omitempty"`
}

func init() {
	rootCmd.AddCommand(classCmd)

	classCmd.Flags().StringSliceP("sel", "s", nil, "selectors to check (prefix class methods with +)")
	classCmd.Flags().BoolP("yaml", "y", false, "output as YAML")
	classCmd.Flags().BoolP("methods", "m", false, "list the loaded method tables (darwin only)")
	viper.BindPFlag("class.sel", classCmd.Flags().Lookup("sel"))
	viper.BindPFlag("class.yaml", classCmd.Flags().Lookup("yaml"))
	viper.BindPFlag("class.methods", classCmd.Flags().Lookup("methods"))
}

func describeClass(rt abi.Runtime, name string, sels []string) (*classReport, error) {
	cls, ok := objc.Class(name).Lookup(rt)
	if !ok {
		return nil, fmt.Errorf("class %s is not registered with the %s runtime", name, rt.Name())
	}
	r := &classReport{Name: name, Runtime: rt.Name()}
	for super := rt.Superclass(cls); super != 0; super = rt.Superclass(super) {
		r.Superclass = append(r.Superclass, rt.ClassName(super))
	}
	reg := dispatch.For(rt)
	meta := rt.ObjectClass(abi.ID(cls))
	for _, s := range sels {
		on, selName := cls, s
		if strings.HasPrefix(s, "+") {
			on, selName = meta, s[1:]
		}
		sel := reg.Resolve(selName)
		sr := selectorReport{Name: s, Responds: rt.RespondsTo(on, sel.SEL())}
		if enc, ok := rt.MethodEncoding(on, sel.SEL()); ok {
			sr.Encoding = enc
			if sig, err := abi.ParseSignature(enc); err == nil {
				sr.Signature = sig.String()
			} else {
				log.WithError(err).Warnf("Failed to decode %s", s)
			}
		}
		r.Selectors = append(r.Selectors, sr)
	}
	return r, nil
}

// classCmd represents the class command
var classCmd = &cobra.Command{
	Use:   "class <name>",
	Short: "Resolve a class and check what it responds to",
	Example: heredoc.Doc(`
		# Check an instance and a class method
		❯ objcrt class NSString --sel length --sel +stringWithUTF8String:
		# Dump the loaded method tables as YAML (darwin)
		❯ objcrt class NSNumber --methods --yaml`),
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {

		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}

		report, err := describeClass(rt, args[0], viper.GetStringSlice("class.sel"))
		if err != nil {
			return err
		}

		if viper.GetBool("class.methods") {
			info, err := iobjc.Describe(args[0])
			if errors.Is(err, iobjc.ErrUnavailable) {
				log.Warn(err.Error())
			} else if err != nil {
				return errors.Wrapf(err, "failed to describe %s", args[0])
			}
			report.Native = info
		}

		if viper.GetBool("class.yaml") {
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(report)
		}

		fmt.Println(colors.Class(report.Name))
		for i, super := range report.Superclass {
			fmt.Printf("%s╰─ %s\n", strings.Repeat("   ", i), colors.Class(super))
		}
		for _, s := range report.Selectors {
			fmt.Printf("  %s %s", colors.Bool(s.Responds), colors.Selector(s.Name))
			if s.Encoding != "" {
				fmt.Printf(" %s %s", colors.Encoding(s.Encoding), s.Signature)
			}
			fmt.Println()
		}
		if report.Native != nil {
			fmt.Printf("\nimage: %s\nsize:  %d\n", report.Native.Image, report.Native.InstanceSize)
			for _, p := range report.Native.Protocols {
				fmt.Printf("  <%s>\n", colors.Protocol(p))
			}
			for _, m := range report.Native.ClassMethods {
				fmt.Printf("  + %s %s\n", colors.Selector(m.Name), colors.Encoding(m.Types))
			}
			for _, m := range report.Native.Methods {
				fmt.Printf("  - %s %s\n", colors.Selector(m.Name), colors.Encoding(m.Types))
			}
		}

		return nil
	},
}
