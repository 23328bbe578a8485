package executor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/haasonsaas/vigil/pkg/models"
)

// placeholderPattern matches ${...} references inside string arguments,
// e.g. "${0.output.count}" for the count field of step 0's output.
var placeholderPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolateArgs resolves ${path} placeholders in string argument values
// against prior step outputs. Unresolvable placeholders are left verbatim
// so failures stay visible instead of silently becoming empty strings.
func interpolateArgs(args map[string]any, prior []models.StepOutput) map[string]any {
	if len(prior) == 0 {
		return args
	}
	for key, value := range args {
		if s, ok := value.(string); ok {
			args[key] = interpolateString(s, prior)
		}
	}
	return args
}

func interpolateString(s string, prior []models.StepOutput) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		path := match[2 : len(match)-1]
		value, ok := resolvePath(path, prior)
		if !ok {
			return match
		}
		return stringify(value)
	})
}

// resolvePath walks "<stepIndex>.<field>.<field>..." through a prior step's
// envelope. The first segment must be a step index; "output", "input", and
// "ok" select envelope sections, anything else descends into output.
func resolvePath(path string, prior []models.StepOutput) (any, bool) {
	segments := strings.Split(path, ".")
	if len(segments) < 2 {
		return nil, false
	}

	index, err := strconv.Atoi(segments[0])
	if err != nil || index < 0 || index >= len(prior) {
		return nil, false
	}
	envelope := prior[index].Envelope

	var current any
	rest := segments[1:]
	switch rest[0] {
	case "output":
		current = mapAny(envelope.Output)
		rest = rest[1:]
	case "input":
		current = mapAny(envelope.Input)
		rest = rest[1:]
	case "ok":
		return envelope.OK, len(rest) == 1
	default:
		current = mapAny(envelope.Output)
	}

	for _, segment := range rest {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func mapAny(m map[string]any) any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// stringify renders a resolved value for inclusion in message content.
// Floats that are whole numbers print without a decimal point, matching
// how counts read in chat.
func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
