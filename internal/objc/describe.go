//go:build darwin && cgo

package objc

import (
	"sort"

	"github.com/pkg/errors"
)

func infos(methods []Method) []MethodInfo {
	out := make([]MethodInfo, 0, len(methods))
	for _, m := range methods {
		out = append(out, m.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Describe collects the metadata of the loaded class name.
func Describe(name string) (*ClassInfo, error) {
	cls := GetClass(name)
	if cls == 0 {
		return nil, errors.Errorf("objc: class %s is not loaded", name)
	}
	info := &ClassInfo{
		Name:         cls.Name(),
		Image:        cls.ImageName(),
		InstanceSize: cls.InstanceSize(),
		Methods:      infos(cls.Methods()),
		ClassMethods: infos(cls.Meta().Methods()),
	}
	if super := cls.Super(); super != 0 {
		info.Super = super.Name()
	}
	for _, p := range cls.Protocols() {
		info.Protocols = append(info.Protocols, p.Name())
	}
	sort.Strings(info.Protocols)
	return info, nil
}
