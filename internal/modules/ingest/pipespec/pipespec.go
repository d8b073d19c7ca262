// Package pipespec holds the ingestion stage list. The embedded YAML is the
// shipped default; INGEST_PIPELINE_YAML points at an override file. A missing
// or invalid spec falls back to the compiled order.
package pipespec

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

const (
	pipelineName    = "ingest"
	pipelineYAMLEnv = "INGEST_PIPELINE_YAML"
)

// Stage names, in canonical order.
const (
	StageConvert = "convert"
	StageExtract = "extract"
	StageSegment = "segment"
	StageCaption = "caption"
	StageTree    = "tree"
	StageChunk   = "chunk"
	StageEmbed   = "embed"
	StageIndex   = "index"
)

//go:embed ingest_pipeline.yaml
var specFS embed.FS

var fallbackStageOrder = []string{
	StageConvert,
	StageExtract,
	StageSegment,
	StageCaption,
	StageTree,
	StageChunk,
	StageEmbed,
	StageIndex,
}

// optionalStages may be disabled without breaking the stages after them.
var optionalStages = map[string]bool{
	StageCaption: true,
}

type yamlPipelineSpec struct {
	Pipeline string          `yaml:"pipeline"`
	Version  int             `yaml:"version"`
	Stages   []yamlStageSpec `yaml:"stages"`
}

type yamlStageSpec struct {
	Name    string `yaml:"name"`
	Enabled *bool  `yaml:"enabled"`
}

type pipelineRuntime struct {
	StageOrder []string
	Enabled    map[string]bool
}

var runtimeOnce sync.Once
var runtimeCache *pipelineRuntime
var runtimeErr error

func currentRuntime(log *logger.Logger) *pipelineRuntime {
	runtimeOnce.Do(func() {
		runtimeCache, runtimeErr = loadRuntime()
	})
	if runtimeErr != nil {
		if log != nil {
			log.Warn("ingest: pipeline spec load failed; using fallback", "error", runtimeErr)
		}
		return nil
	}
	return runtimeCache
}

// StageOrder returns the enabled stages in execution order.
func StageOrder(log *logger.Logger) []string {
	if rt := currentRuntime(log); rt != nil && len(rt.StageOrder) > 0 {
		return rt.StageOrder
	}
	return fallbackStageOrder
}

// StageEnabled reports whether the named stage runs. Unknown names are
// disabled.
func StageEnabled(log *logger.Logger, name string) bool {
	if rt := currentRuntime(log); rt != nil {
		return rt.Enabled[name]
	}
	for _, s := range fallbackStageOrder {
		if s == name {
			return true
		}
	}
	return false
}

func loadRuntime() (*pipelineRuntime, error) {
	data, err := readSpec()
	if err != nil {
		return nil, err
	}
	return parseRuntime(data)
}

func readSpec() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(pipelineYAMLEnv)); path != "" {
		return os.ReadFile(path)
	}
	return specFS.ReadFile("ingest_pipeline.yaml")
}

func parseRuntime(data []byte) (*pipelineRuntime, error) {
	var spec yamlPipelineSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	if err := validatePipelineSpec(&spec); err != nil {
		return nil, err
	}

	rt := &pipelineRuntime{Enabled: map[string]bool{}}
	for _, stage := range spec.Stages {
		name := strings.TrimSpace(stage.Name)
		if stage.Enabled != nil && !*stage.Enabled {
			continue
		}
		rt.StageOrder = append(rt.StageOrder, name)
		rt.Enabled[name] = true
	}
	return rt, nil
}

func validatePipelineSpec(spec *yamlPipelineSpec) error {
	if spec == nil {
		return errors.New("missing spec")
	}
	if strings.TrimSpace(spec.Pipeline) != pipelineName {
		return fmt.Errorf("unexpected pipeline: %s", spec.Pipeline)
	}
	if len(spec.Stages) == 0 {
		return errors.New("no stages defined")
	}

	known := map[string]bool{}
	for _, name := range fallbackStageOrder {
		known[name] = true
	}

	seen := map[string]bool{}
	enabled := map[string]bool{}
	var order []string
	for _, stage := range spec.Stages {
		name := strings.TrimSpace(stage.Name)
		if name == "" {
			return errors.New("stage name is required")
		}
		if !known[name] {
			return fmt.Errorf("unknown stage: %s", name)
		}
		if seen[name] {
			return fmt.Errorf("duplicate stage name: %s", name)
		}
		seen[name] = true
		if stage.Enabled != nil && !*stage.Enabled {
			if !optionalStages[name] {
				return fmt.Errorf("stage %s cannot be disabled", name)
			}
			continue
		}
		enabled[name] = true
		order = append(order, name)
	}

	// Enabled stages must keep the canonical relative order and none of the
	// required stages may be missing.
	want := make([]string, 0, len(fallbackStageOrder))
	for _, name := range fallbackStageOrder {
		if optionalStages[name] && !enabled[name] {
			continue
		}
		if !enabled[name] {
			return fmt.Errorf("missing stage: %s", name)
		}
		want = append(want, name)
	}
	if len(order) != len(want) {
		return fmt.Errorf("unexpected stage count: %d", len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			return fmt.Errorf("stage %s out of order", order[i])
		}
	}
	return nil
}
