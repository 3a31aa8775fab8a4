package config

import (
	"github.com/apex/log"
	"github.com/blacktop/objcrt/pkg/abi"
	"github.com/blacktop/objcrt/pkg/abi/native"
	"github.com/blacktop/objcrt/pkg/abi/sim"
	"github.com/blacktop/objcrt/pkg/dispatch"
	"github.com/blacktop/objcrt/pkg/objc"
	"github.com/pkg/errors"
)

// Open selects the runtime backend named by c and applies the dispatch and
// descriptor settings to it. "auto" falls back to the simulated runtime on
// platforms without a native one.
func Open(c *Config) (abi.Runtime, error) {
	var rt abi.Runtime
	switch c.Runtime {
	case RuntimeSim:
		rt = sim.New()
	case RuntimeNative:
		r, err := native.Open()
		if err != nil {
			return nil, errors.Wrap(err, "config: failed to open native runtime")
		}
		rt = r
	default:
		r, err := native.Open()
		switch {
		case errors.Is(err, native.ErrUnsupported):
			log.Debug("config: no native runtime, using sim")
			rt = sim.New()
		case err != nil:
			return nil, errors.Wrap(err, "config: failed to open native runtime")
		default:
			rt = r
		}
	}

	reg := dispatch.For(rt)
	if err := reg.SetVerifyCacheSize(c.Dispatch.VerifyCacheSize); err != nil {
		return nil, errors.Wrapf(err, "config: bad dispatch.verify-cache-size %d", c.Dispatch.VerifyCacheSize)
	}
	reg.SetChecked(c.Dispatch.Checked)
	objc.SetDescribeCacheSize(c.Describe.CacheSize)

	log.WithFields(log.Fields{
		"runtime": rt.Name(),
		"checked": c.Dispatch.Checked,
	}).Debug("config: runtime ready")
	return rt, nil
}
