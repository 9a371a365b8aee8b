// Package i18n resolves translatable label and message keys. A value that
// looks like a dictionary key (ALLCAPS.WITH.DOTS) is looked up; anything
// else passes through verbatim.
package i18n

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var keyRe = regexp.MustCompile(`^[A-Z0-9_]+(\.[A-Z0-9_]+)+$`)

// Translator resolves keys against a flat dictionary.
type Translator struct {
	dict map[string]string
}

// New returns a Translator over the given dictionary. A nil dictionary is
// valid: every value passes through.
func New(dict map[string]string) *Translator {
	return &Translator{dict: dict}
}

// LoadDir reads every {locale}.yaml in dir and returns a Translator for the
// requested locale. Nested YAML maps are flattened with dots.
func LoadDir(dir, locale string) (*Translator, error) {
	b, err := os.ReadFile(filepath.Join(dir, locale+".yaml"))
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", locale, err)
	}
	dict := make(map[string]string)
	flatten("", raw, dict)
	return New(dict), nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch t := v.(type) {
		case map[string]any:
			flatten(key, t, out)
		default:
			out[strings.ToUpper(key)] = fmt.Sprint(t)
		}
	}
}

// Resolve translates v when it matches the key pattern and the dictionary
// knows it. Unknown keys come back unchanged so missing translations stay
// visible instead of becoming empty strings.
func (t *Translator) Resolve(v string) string {
	if t == nil || !keyRe.MatchString(v) {
		return v
	}
	if s, ok := t.dict[v]; ok {
		return s
	}
	return v
}
