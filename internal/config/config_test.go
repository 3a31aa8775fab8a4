package config

import (
	"strings"
	"testing"

	"github.com/apex/log"
	"github.com/blacktop/objcrt/pkg/dispatch"
	"github.com/spf13/viper"
)

func load(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(yaml)); err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}
	return Load(v)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		want    Config
		wantErr bool
	}{
		{
			name: "defaults",
			yaml: "{}",
			want: *Default(),
		},
		{
			name: "file",
			yaml: "runtime: sim\ndispatch:\n  checked: true\n  verify-cache-size: 8\ndescribe:\n  cache-size: 4\nlog:\n  level: debug\n",
			want: Config{
				Runtime:  RuntimeSim,
				Dispatch: dispatchConfig{Checked: true, VerifyCacheSize: 8},
				Describe: describeConfig{CacheSize: 4},
				Log:      logConfig{Level: "debug"},
			},
		},
		{
			name: "env overrides file",
			yaml: "runtime: native\n",
			env:  map[string]string{"OBJCRT_RUNTIME": "SIM", "OBJCRT_DISPATCH_CHECKED": "true"},
			want: Config{
				Runtime:  RuntimeSim,
				Dispatch: dispatchConfig{Checked: true, VerifyCacheSize: 1024},
				Describe: describeConfig{CacheSize: 256},
				Log:      logConfig{Level: "info"},
			},
		},
		{
			name:    "unknown runtime",
			yaml:    "runtime: jvm\n",
			wantErr: true,
		},
		{
			name:    "negative cache",
			yaml:    "describe:\n  cache-size: -1\n",
			wantErr: true,
		},
		{
			name:    "bad level",
			yaml:    "log:\n  level: loud\n",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			got, err := load(t, tt.yaml)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if *got != tt.want {
				t.Errorf("Load() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestLogLevel(t *testing.T) {
	c := Default()
	c.Log.Level = "warn"
	if c.LogLevel() != log.WarnLevel {
		t.Errorf("LogLevel() = %v", c.LogLevel())
	}
}

func TestOpenSim(t *testing.T) {
	c := Default()
	c.Runtime = RuntimeSim
	c.Dispatch.Checked = true
	rt, err := Open(c)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if rt.Name() != "sim" {
		t.Errorf("runtime = %s", rt.Name())
	}
	if !dispatch.For(rt).Checked() {
		t.Error("checked mode was not applied")
	}
}

func TestOpenAuto(t *testing.T) {
	rt, err := Open(Default())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if rt == nil {
		t.Fatal("Open() returned no runtime")
	}
}
