package objc

import "github.com/pkg/errors"

// ErrUnavailable is returned when the binary was built without cgo or for a
// platform with no Objective-C runtime.
var ErrUnavailable = errors.New("objc: runtime introspection needs darwin and cgo")

// MethodInfo is one entry of a method list.
type MethodInfo struct {
	Name  string `yaml:"name"`
	Types string `yaml:"types"`
}

// ClassInfo describes a loaded class.
type ClassInfo struct {
	Name         string       `yaml:"name"`
	Super        string       `yaml:"super,omitempty"`
	Image        string       `yaml:"image,omitempty"`
	InstanceSize int          `yaml:"instance_size"`
	Protocols    []string     `yaml:"protocols,omitempty"`
	ClassMethods []MethodInfo `yaml:"class_methods,omitempty"`
	Methods      []MethodInfo `yaml:"methods,omitempty"`
}
