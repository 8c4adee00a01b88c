package convert

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ArgumentCountError reports a mismatch between declared parameters and supplied values.
// It is raised before any value is converted.
type ArgumentCountError struct {
	Name  string
	Types []string
	Args  []any
}

func (e *ArgumentCountError) Error() string {
	quantifier := "fewer"
	if len(e.Types) > len(e.Args) {
		quantifier = "more"
	}
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = renderJSON(a)
	}
	return fmt.Sprintf("%s received %s types than arguments: types: [%s], args: [%s]",
		e.Name, quantifier, strings.Join(e.Types, ", "), strings.Join(args, ", "))
}

func renderJSON(v any) string {
	b, err := json.Marshal(jsonValue(v))
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
