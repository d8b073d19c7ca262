package pipespec

import (
	"strings"
	"testing"
)

func TestEmbeddedSpecMatchesFallback(t *testing.T) {
	data, err := specFS.ReadFile("ingest_pipeline.yaml")
	if err != nil {
		t.Fatalf("read embedded spec: %v", err)
	}
	rt, err := parseRuntime(data)
	if err != nil {
		t.Fatalf("parse embedded spec: %v", err)
	}
	if len(rt.StageOrder) != len(fallbackStageOrder) {
		t.Fatalf("embedded order has %d stages, fallback %d", len(rt.StageOrder), len(fallbackStageOrder))
	}
	for i, name := range fallbackStageOrder {
		if rt.StageOrder[i] != name {
			t.Fatalf("stage %d is %q, want %q", i, rt.StageOrder[i], name)
		}
	}
}

func TestParseRuntimeDisablesCaption(t *testing.T) {
	yaml := `
pipeline: ingest
version: 1
stages:
  - name: convert
  - name: extract
  - name: segment
  - name: caption
    enabled: false
  - name: tree
  - name: chunk
  - name: embed
  - name: index
`
	rt, err := parseRuntime([]byte(yaml))
	if err != nil {
		t.Fatalf("parseRuntime: %v", err)
	}
	if rt.Enabled[StageCaption] {
		t.Fatal("caption should be disabled")
	}
	for _, name := range rt.StageOrder {
		if name == StageCaption {
			t.Fatal("disabled stage still in order")
		}
	}
	if !rt.Enabled[StageSegment] {
		t.Fatal("segment should stay enabled")
	}
}

func TestParseRuntimeRejectsBadSpecs(t *testing.T) {
	cases := map[string]string{
		"wrong pipeline": `
pipeline: learning_build
stages:
  - name: convert
`,
		"unknown stage": `
pipeline: ingest
stages:
  - name: convert
  - name: summarize
`,
		"duplicate stage": `
pipeline: ingest
stages:
  - name: convert
  - name: convert
`,
		"missing required stage": `
pipeline: ingest
stages:
  - name: convert
  - name: extract
`,
		"required stage disabled": `
pipeline: ingest
stages:
  - name: convert
  - name: extract
  - name: segment
  - name: caption
  - name: tree
  - name: chunk
  - name: embed
  - name: index
    enabled: false
`,
		"stages out of order": `
pipeline: ingest
stages:
  - name: extract
  - name: convert
  - name: segment
  - name: caption
  - name: tree
  - name: chunk
  - name: embed
  - name: index
`,
		"no stages": `
pipeline: ingest
stages: []
`,
	}
	for name, raw := range cases {
		if _, err := parseRuntime([]byte(strings.TrimSpace(raw))); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestStageOrderDefaults(t *testing.T) {
	order := StageOrder(nil)
	if len(order) == 0 {
		t.Fatal("empty stage order")
	}
	if order[0] != StageConvert || order[len(order)-1] != StageIndex {
		t.Fatalf("unexpected order %v", order)
	}
}
