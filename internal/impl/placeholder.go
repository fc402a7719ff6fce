package impl

import (
	"regexp"
	"slices"

	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/ir"
)

// PromptKey is the config entry scanned for input placeholders.
const PromptKey = "prompt"

var placeholderPattern = regexp.MustCompile(`\{#input\.([A-Za-z_][A-Za-z0-9_]*)\}`)

// Placeholders returns the parameter names referenced by {#input.<name>}
// in s, in first-seen order.
func Placeholders(s string) []string {
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		if !slices.Contains(names, m[1]) {
			names = append(names, m[1])
		}
	}
	return names
}

// CheckPromptPlaceholders rejects a prompt config entry that references a
// parameter the contract does not declare, or a prompt that is not a string.
func CheckPromptPlaceholders(c ir.FunctionContract, v Variant) error {
	raw, ok := v.Config[PromptKey]
	if !ok {
		return nil
	}
	prompt, ok := raw.(ir.IRString)
	if !ok {
		return errors.Newf("%s must be a string, got %s", PromptKey, ir.TypeName(raw))
	}

	declared := c.ParamNames()
	for _, name := range Placeholders(string(prompt)) {
		if !slices.Contains(declared, name) {
			return errors.Newf("%s references undeclared parameter %q", PromptKey, name)
		}
	}
	return nil
}

// ExpandPlaceholders replaces every {#input.<name>} in s with repl(name).
func ExpandPlaceholders(s string, repl func(name string) string) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(m string) string {
		return repl(placeholderPattern.FindStringSubmatch(m)[1])
	})
}
