package workflow

import (
	"regexp"
	"strings"

	"github.com/dukex/chatflow/pkg/models"
)

// MatchCondition evaluates one condition against the user's text and the session
// variables.
func MatchCondition(c models.Condition, input string, variables map[string]any) bool {
	switch c.Type {
	case models.ConditionTypeKeyword:
		return strings.Contains(strings.ToLower(input), strings.ToLower(c.Value))
	case models.ConditionTypeRegex:
		re, err := regexp.Compile("(?i)" + c.Value)
		if err != nil {
			return false
		}

		return re.MatchString(input)
	case models.ConditionTypeVariable:
		v, ok := variables[c.Value].(bool)

		return ok && v
	default:
		return false
	}
}

// SelectBranch returns the target of the first matching condition in list order, then
// the default target. An empty result means no branch applies.
func SelectBranch(data *models.ConditionData, input string, variables map[string]any) string {
	input = strings.TrimSpace(input)

	for _, c := range data.Conditions {
		if MatchCondition(c, input, variables) {
			return c.TargetNodeID
		}
	}

	return data.DefaultTargetNodeID
}
