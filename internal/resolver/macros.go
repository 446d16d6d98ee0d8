package resolver

import (
	"regexp"
	"strings"
)

const envMacroPrefix = "ENV:"

var macroPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*(?::[^}]*)?)\}`)

// LookupFunc returns the value of an environment variable and whether it is
// visible to the plugin.
type LookupFunc func(name string) (string, bool)

// MapLookup adapts an environment map to a LookupFunc.
func MapLookup(env map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}
}

// MacroContext carries the values substituted into command text.
type MacroContext struct {
	PluginDir  string
	SnippetDir string
	CommandDir string
	Lookup     LookupFunc
}

// SubstituteMacros replaces the supported ${...} tokens in text:
//
//	${PLUGIN_DIR}                         plugin directory
//	${SNIPPET_DIR}                        <plugin>/snippets
//	${CURRENT_DIR} ${COMMAND_DIR} ${CURR_DIR}  directory of the running snippet
//	${ENV:NAME}                           value of NAME, "" if unset or disabled
//
// Unknown tokens are left untouched. Replacement is a single pass, so
// substituted values are never expanded again.
func SubstituteMacros(text string, mc MacroContext) string {
	if !strings.Contains(text, "${") {
		return text
	}
	return macroPattern.ReplaceAllStringFunc(text, func(token string) string {
		name := token[2 : len(token)-1]
		if strings.HasPrefix(name, envMacroPrefix) {
			key := name[len(envMacroPrefix):]
			if key == "" || mc.Lookup == nil {
				return ""
			}
			v, _ := mc.Lookup(key)
			return v
		}
		switch name {
		case "PLUGIN_DIR":
			return mc.PluginDir
		case "SNIPPET_DIR":
			return mc.SnippetDir
		case "CURRENT_DIR", "COMMAND_DIR", "CURR_DIR":
			return mc.CommandDir
		default:
			return token
		}
	})
}
