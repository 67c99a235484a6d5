// Package visual defines the visual-control collaborator: given an action
// description, it produces an executable instruction string for the
// screen-coordinate grounding layer. The grounding model itself lives
// outside this module; the executor here is its instruction front door and
// is treated as always available.
package visual

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Params carries the original action parameters, passed through unchanged
// from the routing layer.
type Params map[string]any

// Executor produces an executable instruction for one visually grounded
// action. It has no failure mode: it always returns an instruction.
type Executor interface {
	Perform(kind string, params Params) string
}

// ScriptExecutor synthesizes grounding instructions as python-style call
// strings, the format the downstream agent runtime executes.
type ScriptExecutor struct {
	logger *zap.Logger
}

// NewScriptExecutor creates the default instruction synthesizer.
func NewScriptExecutor(logger *zap.Logger) *ScriptExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScriptExecutor{
		logger: logger.With(zap.String("component", "visual_executor")),
	}
}

// Perform renders one grounding instruction. Parameters are serialized as
// keyword arguments in stable order so identical actions produce identical
// instructions.
func (e *ScriptExecutor) Perform(kind string, params Params) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys))
	for _, k := range keys {
		args = append(args, fmt.Sprintf("%s=%s", k, pyLiteral(params[k])))
	}

	instruction := fmt.Sprintf("grounding.%s(%s)", kind, strings.Join(args, ", "))
	e.logger.Debug("visual instruction synthesized",
		zap.String("kind", kind),
		zap.String("instruction", instruction))
	return instruction
}

// pyLiteral renders a parameter value as a python literal. Unrepresentable
// values fall back to their JSON encoding quoted as a string.
func pyLiteral(v any) string {
	switch t := v.(type) {
	case string:
		return fmt.Sprintf("%q", t)
	case bool:
		if t {
			return "True"
		}
		return "False"
	case int:
		return fmt.Sprintf("%d", t)
	case int64:
		return fmt.Sprintf("%d", t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case nil:
		return "None"
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%q", fmt.Sprint(t))
		}
		return fmt.Sprintf("%q", string(data))
	}
}
