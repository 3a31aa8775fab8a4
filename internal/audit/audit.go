// Package audit checks wrapper bindings against the Objective-C metadata of a
// framework binary, so a missing class or selector shows up before a call
// raises at runtime.
package audit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/go-macho"
	"github.com/blacktop/go-macho/types/objc"
	"github.com/blacktop/objcrt/pkg/abi"
	"github.com/pkg/errors"
)

// Want is one class a wrapper binds and the selectors it relies on. Class
// methods are written with a leading "+".
type Want struct {
	Class     string   `yaml:"class"`
	Selectors []string `yaml:"selectors"`
}

// Problem kinds.
const (
	MissingClass    = "missing class"
	MissingSelector = "missing selector"
	BadEncoding     = "unparsable encoding"
)

// Finding is a single mismatch.
type Finding struct {
	Class    string `yaml:"class"`
	Selector string `yaml:"selector,omitempty"`
	Problem  string `yaml:"problem"`
	Detail   string `yaml:"detail,omitempty"`
}

func (f Finding) String() string {
	if f.Selector == "" {
		return fmt.Sprintf("%s: %s", f.Class, f.Problem)
	}
	return fmt.Sprintf("%s %s: %s", f.Class, f.Selector, f.Problem)
}

// Report is the result of auditing one image.
type Report struct {
	Image    string    `yaml:"image"`
	Classes  int       `yaml:"classes"`
	Checked  int       `yaml:"checked"`
	Findings []Finding `yaml:"findings,omitempty"`
}

// OK reports whether every binding was satisfied.
func (r *Report) OK() bool { return len(r.Findings) == 0 }

// Open opens a Mach-O, picking arch out of a universal binary. An empty arch
// takes the first slice. Closing the returned io.Closer releases the file,
// which for a universal binary is the whole fat file, not just the slice.
func Open(path, arch string) (*macho.File, io.Closer, error) {
	path = filepath.Clean(path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("file %s does not exist", path)
	}

	fat, err := macho.OpenFat(path)
	if err != nil && err != macho.ErrNotFat {
		return nil, nil, err
	}
	if err == macho.ErrNotFat {
		m, err := macho.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return m, m, nil
	}

	var names []string
	for _, a := range fat.Arches {
		name := strings.ToLower(a.SubCPU.String(a.CPU))
		if arch == "" || strings.Contains(name, strings.ToLower(arch)) {
			return a.File, fat, nil
		}
		names = append(names, name)
	}
	fat.Close()
	return nil, nil, fmt.Errorf("--arch '%s' not found in: %s", arch, strings.Join(names, ", "))
}

// File audits wants against the Mach-O at path.
func File(path, arch string, wants []Want) (*Report, error) {
	m, closer, err := Open(path, arch)
	if err != nil {
		return nil, errors.Wrapf(err, "audit: failed to open %s", path)
	}
	defer closer.Close()

	if !m.HasObjC() {
		return nil, errors.Errorf("audit: %s has no Objective-C metadata", path)
	}
	classes, err := m.GetObjCClasses()
	if err != nil {
		return nil, errors.Wrap(err, "audit: failed to parse classes")
	}
	r := Check(classes, wants)
	r.Image = path
	return r, nil
}

type methodSet map[string]string // selector -> type encoding

type classIndex struct {
	super    map[string]string
	instance map[string]methodSet
	class    map[string]methodSet
}

func index(classes []objc.Class) *classIndex {
	idx := &classIndex{
		super:    make(map[string]string, len(classes)),
		instance: make(map[string]methodSet, len(classes)),
		class:    make(map[string]methodSet, len(classes)),
	}
	add := func(set methodSet, methods []objc.Method) {
		for _, m := range methods {
			set[m.Name] = m.Types
		}
	}
	for _, c := range classes {
		if _, ok := idx.instance[c.Name]; !ok {
			idx.instance[c.Name] = methodSet{}
			idx.class[c.Name] = methodSet{}
		}
		idx.super[c.Name] = c.SuperClass
		add(idx.instance[c.Name], c.InstanceMethods)
		add(idx.class[c.Name], c.ClassMethods)
	}
	return idx
}

// lookup walks the superclass chain as far as the image defines it.
func (idx *classIndex) lookup(class, sel string) (string, bool) {
	table := idx.instance
	if strings.HasPrefix(sel, "+") {
		table, sel = idx.class, sel[1:]
	}
	seen := map[string]bool{}
	for c := class; c != "" && !seen[c]; c = idx.super[c] {
		seen[c] = true
		if enc, ok := table[c][sel]; ok {
			return enc, true
		}
	}
	return "", false
}

// Check audits wants against already parsed classes. Classes the image does
// not define are reported once; their selectors are not checked.
func Check(classes []objc.Class, wants []Want) *Report {
	idx := index(classes)
	r := &Report{Classes: len(idx.instance)}
	for _, w := range wants {
		if _, ok := idx.instance[w.Class]; !ok {
			r.Findings = append(r.Findings, Finding{Class: w.Class, Problem: MissingClass})
			continue
		}
		for _, sel := range w.Selectors {
			r.Checked++
			enc, ok := idx.lookup(w.Class, sel)
			if !ok {
				r.Findings = append(r.Findings, Finding{Class: w.Class, Selector: sel, Problem: MissingSelector})
				continue
			}
			if enc == "" {
				continue
			}
			if _, err := abi.ParseSignature(enc); err != nil {
				r.Findings = append(r.Findings, Finding{Class: w.Class, Selector: sel, Problem: BadEncoding, Detail: err.Error()})
			}
		}
	}
	sort.SliceStable(r.Findings, func(i, j int) bool {
		if r.Findings[i].Class != r.Findings[j].Class {
			return r.Findings[i].Class < r.Findings[j].Class
		}
		return r.Findings[i].Selector < r.Findings[j].Selector
	})
	log.WithFields(log.Fields{"classes": r.Classes, "checked": r.Checked, "findings": len(r.Findings)}).Debug("audit: done")
	return r
}
