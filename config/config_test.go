package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/objbridge/metrics"
	"github.com/signadot/objbridge/policy"
	"github.com/signadot/objbridge/reflector"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.MaxDepth != reflector.DefaultMaxDepth {
		t.Errorf("max depth %d", cfg.MaxDepth)
	}
	if cfg.Level() != slog.LevelInfo {
		t.Errorf("level %v", cfg.Level())
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
maxDepth: 5
recursive: true
rules:
- 'Kind != "property" || !ReadOnly'
log:
  level: debug
  format: json
metrics:
  enabled: true
  namespace: bridge
metricsAddr: localhost:9100
`))
	if err != nil {
		t.Fatal(err)
	}
	want := &Config{
		MaxDepth:  5,
		Recursive: true,
		Rules:     []string{`Kind != "property" || !ReadOnly`},
		Log:       Log{Level: "debug", Format: "json"},
		Metrics:   metrics.Config{Enabled: true, Namespace: "bridge"},

		MetricsAddr: "localhost:9100",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("recursive: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxDepth != reflector.DefaultMaxDepth || cfg.Log.Format != "text" || cfg.Metrics.Namespace != "objbridge" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		msg  string
	}{
		{"unknown key", "maxDepthh: 3\n", "failed to parse"},
		{"negative depth", "maxDepth: -1\n", "MaxDepth"},
		{"level", "log:\n  level: loud\n", "Level"},
		{"format", "log:\n  format: xml\n", "Format"},
		{"empty rule", "rules: ['']\n", "Rules[0]"},
		{"bad rule", "rules: ['Name ==']\n", "invalid rule"},
		{"non-bool rule", "rules: ['Name']\n", "invalid rule"},
		{"namespace", "metrics:\n  namespace: \"é\"\n", "Namespace"},
		{"addr", "metricsAddr: nowhere\n", "MetricsAddr"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.in))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.msg) {
				t.Errorf("error %q does not mention %q", err, tc.msg)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "objbridge.yaml")
	if err := os.WriteFile(p, []byte("maxDepth: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxDepth != 3 {
		t.Errorf("max depth %d", cfg.MaxDepth)
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("loaded a missing file")
	}
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Format = "json"
	var buf bytes.Buffer
	l := cfg.Logger(&buf)
	l.Debug("hidden")
	l.Info("shown", "k", 1)
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not one JSON record: %q", buf.String())
	}
	if rec["msg"] != "shown" || rec["k"] != 1.0 {
		t.Errorf("record %v", rec)
	}

	cfg.Log = Log{Level: "debug", Format: "text"}
	buf.Reset()
	cfg.Logger(&buf).Debug("trace")
	if got := buf.String(); got != "level=DEBUG msg=trace\n" {
		t.Errorf("text output %q", got)
	}
}

type thing struct {
	A int `bridge:"field=a"`
	B int `bridge:"field=b,deprecated"`
}

func TestPolicyOptions(t *testing.T) {
	cfg := Default()
	cfg.IncludeDeprecated = true
	cfg.Rules = []string{`Name != "a"`}
	p, err := policy.New(cfg.PolicyOptions()...)
	if err != nil {
		t.Fatal(err)
	}
	set, err := p.Eligible(reflect.TypeFor[thing]())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"b"}, set.Names()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestReflectorOptions(t *testing.T) {
	cfg := Default()
	opts, m, err := cfg.ReflectorOptions(nil)
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Error("metrics created while disabled")
	}
	if _, err := reflector.New(opts...); err != nil {
		t.Fatal(err)
	}
	cfg.Metrics.Enabled = true
	if _, m, err = cfg.ReflectorOptions(nil); err != nil || m == nil {
		t.Errorf("metrics %v err %v", m, err)
	}
}
