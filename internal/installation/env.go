// SPDX-License-Identifier: MPL-2.0

package installation

import (
	"fmt"
	"maps"
	"strings"

	"github.com/magiconair/properties"

	"github.com/univscript/univscript/internal/macro"
)

// EnvVarMap returns base extended with the installation's environment
// blocks: Env first, then EnvUnix or EnvWindows depending on the target.
// Each value is macro-expanded against the variables accumulated so far, so
// earlier keys are visible to later ones. On Unix targets ';' in values is
// replaced by ':' to allow one path-list notation for both OS families.
// base is not modified.
func (r *Resolved) EnvVarMap(base map[string]string) (map[string]string, error) {
	env := maps.Clone(base)
	if env == nil {
		env = make(map[string]string)
	}

	platformName, platformBlock := "env_windows", r.EnvWindows
	if r.IsUnix {
		platformName, platformBlock = "env_unix", r.EnvUnix
	}

	blocks := []struct {
		name string
		text string
	}{
		{"env", r.Env},
		{platformName, platformBlock},
	}

	for _, b := range blocks {
		if err := applyEnvBlock(env, b.text, r.IsUnix); err != nil {
			return nil, fmt.Errorf("runtime %q %s block: %w", r.Name, b.name, err)
		}
	}

	return env, nil
}

// ParseEnvBlock parses a KEY=VALUE block in definition order without
// expanding anything. It returns the keys and the raw values.
func ParseEnvBlock(text string) (keys []string, values map[string]string, err error) {
	values = make(map[string]string)
	if strings.TrimSpace(text) == "" {
		return nil, values, nil
	}

	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	props, err := loader.LoadBytes([]byte(text))
	if err != nil {
		return nil, nil, err
	}

	keys = props.Keys()
	for _, k := range keys {
		v, _ := props.Get(k)
		values[k] = v
	}
	return keys, values, nil
}

func applyEnvBlock(env map[string]string, text string, isUnix bool) error {
	keys, values, err := ParseEnvBlock(text)
	if err != nil {
		return err
	}

	for _, k := range keys {
		v := values[k]
		if isUnix {
			v = strings.ReplaceAll(v, ";", ":")
		}
		env[k] = macro.Expand(v, macro.Map(env))
	}
	return nil
}
