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
	"testing"

	"github.com/blacktop/objcrt/pkg/abi/sim"
)

func TestDescribeClass(t *testing.T) {
	rt := sim.New()
	r, err := describeClass(rt, "NSMutableArray", []string{"addObject:", "+arrayWithObject:", "frobnicate"})
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Superclass) != 2 || r.Superclass[0] != "NSArray" || r.Superclass[1] != "NSObject" {
		t.Errorf("Superclass = %v", r.Superclass)
	}
	want := []bool{true, true, false}
	for i, s := range r.Selectors {
		if s.Responds != want[i] {
			t.Errorf("%s responds = %v, want %v", s.Name, s.Responds, want[i])
		}
	}
	if r.Selectors[0].Signature == "" {
		t.Error("addObject: has no decoded signature")
	}

	if _, err := describeClass(rt, "NSNoSuchClass", nil); err == nil {
		t.Error("expected an error for an unknown class")
	}
}

func TestNestedPoolsDoNotLeak(t *testing.T) {
	rt := sim.New()
	kept, err := nest(rt, 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got := kept.Get().Int64(); got != 2 {
		t.Errorf("innermost value = %d, want 2", got)
	}
	kept.Release()
	if s := rt.Stats(); s.Allocs != s.Deallocs {
		t.Errorf("allocs = %d, deallocs = %d", s.Allocs, s.Deallocs)
	}
}

func TestManifestWants(t *testing.T) {
	wants := manifestWants()
	if len(wants) == 0 {
		t.Fatal("no wants")
	}
	for _, w := range wants {
		if w.Class == "" || len(w.Selectors) == 0 {
			t.Errorf("empty want %+v", w)
		}
	}
}
