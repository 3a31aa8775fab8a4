package audit

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blacktop/go-macho"
	"github.com/blacktop/go-macho/types"
	"github.com/blacktop/go-macho/types/objc"
)

func methods(names ...string) []objc.Method {
	var ms []objc.Method
	for _, n := range names {
		ms = append(ms, objc.Method{Name: n})
	}
	return ms
}

var image = []objc.Class{
	{Name: "NSObject", InstanceMethods: methods("retain", "release", "isEqual:")},
	{Name: "NSString", SuperClass: "NSObject", InstanceMethods: methods("length", "UTF8String"), ClassMethods: methods("stringWithUTF8String:")},
	{Name: "NSMutableString", SuperClass: "NSString", InstanceMethods: methods("appendString:")},
	{Name: "NSBroken", InstanceMethods: []objc.Method{{Name: "frob", Types: "{unterminated"}}},
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name  string
		wants []Want
		want  []Finding
	}{
		{
			name:  "satisfied",
			wants: []Want{{Class: "NSString", Selectors: []string{"length", "UTF8String", "+stringWithUTF8String:"}}},
		},
		{
			name:  "inherited",
			wants: []Want{{Class: "NSMutableString", Selectors: []string{"appendString:", "length", "isEqual:"}}},
		},
		{
			name:  "missing class",
			wants: []Want{{Class: "NSNumber", Selectors: []string{"intValue"}}},
			want:  []Finding{{Class: "NSNumber", Problem: MissingClass}},
		},
		{
			name:  "missing selector",
			wants: []Want{{Class: "NSString", Selectors: []string{"length", "+length", "characterAtIndex:"}}},
			want: []Finding{
				{Class: "NSString", Selector: "+length", Problem: MissingSelector},
				{Class: "NSString", Selector: "characterAtIndex:", Problem: MissingSelector},
			},
		},
		{
			name:  "bad encoding",
			wants: []Want{{Class: "NSBroken", Selectors: []string{"frob"}}},
			want:  []Finding{{Class: "NSBroken", Selector: "frob", Problem: BadEncoding}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Check(image, tt.wants)
			if r.Classes != len(image) {
				t.Errorf("Classes = %d, want %d", r.Classes, len(image))
			}
			if len(r.Findings) != len(tt.want) {
				t.Fatalf("Findings = %v, want %v", r.Findings, tt.want)
			}
			for i, f := range r.Findings {
				if f.Class != tt.want[i].Class || f.Selector != tt.want[i].Selector || f.Problem != tt.want[i].Problem {
					t.Errorf("Findings[%d] = %v, want %v", i, f, tt.want[i])
				}
			}
			if r.OK() != (len(tt.want) == 0) {
				t.Errorf("OK = %v", r.OK())
			}
		})
	}
}

func TestSuperclassCycle(t *testing.T) {
	classes := []objc.Class{
		{Name: "A", SuperClass: "B"},
		{Name: "B", SuperClass: "A"},
	}
	r := Check(classes, []Want{{Class: "A", Selectors: []string{"missing"}}})
	if len(r.Findings) != 1 || r.Findings[0].Problem != MissingSelector {
		t.Errorf("Findings = %v", r.Findings)
	}
}

func TestFileMissing(t *testing.T) {
	if _, err := File("/nonexistent/Foundation", "", nil); err == nil {
		t.Error("expected an error for a missing file")
	}
}

// writeFat writes a universal binary holding one arm64 dylib slice with no
// load commands.
func writeFat(t *testing.T) string {
	t.Helper()
	const sliceOff = 0x1000
	buf := make([]byte, sliceOff+32)
	be, le := binary.BigEndian, binary.LittleEndian
	be.PutUint32(buf[0:], 0xcafebabe)
	be.PutUint32(buf[4:], 1)
	be.PutUint32(buf[8:], 0x0100000c) // arm64
	be.PutUint32(buf[12:], 0)
	be.PutUint32(buf[16:], sliceOff)
	be.PutUint32(buf[20:], 32)
	be.PutUint32(buf[24:], 12)
	le.PutUint32(buf[sliceOff:], 0xfeedfacf)
	le.PutUint32(buf[sliceOff+4:], 0x0100000c)
	le.PutUint32(buf[sliceOff+12:], 6) // MH_DYLIB
	path := filepath.Join(t.TempDir(), "Universal")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func openFDs(t *testing.T) int {
	t.Helper()
	fds, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Skip("no /proc/self/fd")
	}
	return len(fds)
}

func TestOpenUniversalReleasesFile(t *testing.T) {
	path := writeFat(t)
	before := openFDs(t)

	m, closer, err := Open(path, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if m.CPU != types.CPUArm64 {
		t.Errorf("slice CPU = %s, want arm64", m.CPU)
	}
	if _, ok := closer.(*macho.FatFile); !ok {
		t.Errorf("closer is %T, want *macho.FatFile", closer)
	}
	if err := closer.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if got := openFDs(t); got != before {
		t.Errorf("open fds = %d after Close, want %d", got, before)
	}

	if _, _, err := Open(path, "x86_64"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Open with a missing arch = %v", err)
	}
	if got := openFDs(t); got != before {
		t.Errorf("open fds = %d after a missing arch, want %d", got, before)
	}

	if _, err := File(path, "", nil); err == nil || !strings.Contains(err.Error(), "no Objective-C metadata") {
		t.Errorf("File = %v", err)
	}
	if got := openFDs(t); got != before {
		t.Errorf("open fds = %d after File, want %d", got, before)
	}
}
