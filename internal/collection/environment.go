package collection

import "sort"

// Activate returns a copy of envs with only the environment id marked active.
// An unknown id leaves every environment inactive.
func Activate(envs []Environment, id string) []Environment {
	out := make([]Environment, len(envs))
	for i, env := range envs {
		env.Active = env.ID == id
		out[i] = env
	}
	return out
}

func ActiveEnvironment(envs []Environment) (Environment, bool) {
	for _, env := range envs {
		if env.Active {
			return env, true
		}
	}
	return Environment{}, false
}

// Enabled returns only the variables that take part in substitution.
func (e Environment) Enabled() []KeyValue {
	out := make([]KeyValue, 0, len(e.Variables))
	for _, v := range e.Variables {
		if v.Active() {
			out = append(out, v)
		}
	}
	return out
}

// NewEnvironment builds an environment from a flat map, sorted by key so the
// result is stable.
func NewEnvironment(name string, values map[string]string) Environment {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vars := make([]KeyValue, 0, len(keys))
	for _, k := range keys {
		vars = append(vars, NewKeyValue(k, values[k]))
	}
	return Environment{ID: NewID(), Name: name, Variables: vars}
}

// EnvMap folds enabled, keyed variables into a map; later duplicates win.
func EnvMap(vars []KeyValue) map[string]string {
	out := make(map[string]string, len(vars))
	for _, v := range vars {
		if !v.Active() {
			continue
		}
		out[v.Key] = v.Value
	}
	return out
}
