package config

import (
	"bytes"
	"os"
	"strings"
	"text/template"
)

// ExpandEnv expands environment variable references of the form {{.VAR_NAME}}
// embedded in YAML content before it is parsed. Shell-style ${VAR} and $VAR are
// deliberately left untouched, so masking regexes and literal dollar signs in
// YAML content never collide with the expansion syntax.
//
// Missing variables expand to the empty string; validation should catch
// required fields left empty this way. On any template parse or execution
// error, the original bytes are returned unchanged so the YAML parser can
// either ignore the literal braces or fail with a clearer syntax error.
func ExpandEnv(data []byte) []byte {
	tmpl, err := template.New("config").Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return data
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, envMap()); err != nil {
		return data
	}

	return buf.Bytes()
}

func envMap() map[string]string {
	env := make(map[string]string, len(os.Environ()))
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return env
}
