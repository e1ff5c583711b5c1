package core

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

// TestParseLogSpec tests log settings string parsing
// Main test items:
// 1. A bare level sets the default, module=level entries set per-module levels
// 2. Numeric level aliases are accepted
// 3. Unknown levels are rejected
func TestParseLogSpec(t *testing.T) {
	cases := []struct {
		spec    string
		def     LogLevel
		modules map[string]LogLevel
		wantErr bool
	}{
		{spec: "", def: LogLevelWarn},
		{spec: "debug", def: LogLevelDebug},
		{spec: "kernel=debug", def: LogLevelWarn, modules: map[string]LogLevel{"kernel": LogLevelDebug}},
		{spec: "kernel=debug,info", def: LogLevelInfo, modules: map[string]LogLevel{"kernel": LogLevelDebug}},
		{spec: "kernel=0,scheduler=3", def: LogLevelWarn, modules: map[string]LogLevel{"kernel": LogLevelDebug, "scheduler": LogLevelError}},
		{spec: " warn , kernel = off ", def: LogLevelWarn, modules: map[string]LogLevel{"kernel": LogLevelOff}},
		{spec: "loud", wantErr: true},
		{spec: "kernel=loud", wantErr: true},
	}

	for _, tc := range cases {
		parsed, err := ParseLogSpec(tc.spec)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseLogSpec(%q) accepted an invalid spec", tc.spec)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLogSpec(%q) error = %v", tc.spec, err)
			continue
		}
		if parsed.Default != tc.def {
			t.Errorf("ParseLogSpec(%q).Default = %v, want %v", tc.spec, parsed.Default, tc.def)
		}
		for m, want := range tc.modules {
			if got := parsed.LevelFor(m); got != want {
				t.Errorf("ParseLogSpec(%q).LevelFor(%s) = %v, want %v", tc.spec, m, got, want)
			}
		}
	}
}

// TestLogSpec_LevelFor tests module level resolution
// Main test items:
// 1. Modules not named in the spec fall back to the default level
func TestLogSpec_LevelFor(t *testing.T) {
	spec := LogSpec{Default: LogLevelError, Modules: map[string]LogLevel{"kernel": LogLevelDebug}}
	if got := spec.LevelFor("kernel"); got != LogLevelDebug {
		t.Errorf("LevelFor(kernel) = %v, want debug", got)
	}
	if got := spec.LevelFor("scheduler"); got != LogLevelError {
		t.Errorf("LevelFor(scheduler) = %v, want the default error", got)
	}
}

// TestApplyLogSettings tests installing the process-wide spec
// Main test items:
// 1. Entries naming unknown modules are dropped with a warning, not fatal
// 2. The installed spec drives ModuleLogger filtering
func TestApplyLogSettings(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() {
		log.SetOutput(orig)
		ApplyLogSettings(nil, "")
	})

	if err := ApplyLogSettings([]string{"kernel", "scheduler"}, "ghost=debug,kernel=info,error"); err != nil {
		t.Fatalf("ApplyLogSettings() error = %v", err)
	}
	if !strings.Contains(buf.String(), "ghost") {
		t.Error("dropping an unknown module produced no warning")
	}

	spec := ActiveLogSpec()
	if got := spec.LevelFor("ghost"); got != LogLevelError {
		t.Errorf("LevelFor(ghost) = %v, want the default after the entry was dropped", got)
	}
	if got := spec.LevelFor("kernel"); got != LogLevelInfo {
		t.Errorf("LevelFor(kernel) = %v, want info", got)
	}

	buf.Reset()
	kernelLog := ModuleLogger("kernel")
	kernelLog.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug line passed an info filter: %q", buf.String())
	}
	kernelLog.Info("visible", F("run_id", "test"))
	out := buf.String()
	if !strings.Contains(out, "[INFO] kernel: visible") || !strings.Contains(out, "run_id: test") {
		t.Errorf("info line = %q, want level, module, message and fields", out)
	}
}
