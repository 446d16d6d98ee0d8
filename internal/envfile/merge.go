package envfile

import (
	"sort"
	"strings"
)

// ProxyVars are the variables set from the configured proxy URL.
var ProxyVars = []string{"HTTP_PROXY", "HTTPS_PROXY", "http_proxy", "https_proxy"}

// BuildOptions describes how a child environment is assembled.
type BuildOptions struct {
	// Base is the inherited environment in KEY=VALUE form, usually os.Environ().
	Base []string
	// FilterPrefixes drops inherited keys starting with any of these prefixes.
	FilterPrefixes []string
	// Proxy, when non-empty, is exported through ProxyVars.
	Proxy string
	// Entries are the .env assignments.
	Entries []Entry
	// Enabled reports whether an .env key is switched on. Nil disables every key.
	Enabled func(key string) bool
	// FoldCase treats keys case-insensitively, as windows does.
	FoldCase bool
}

// Env is an assembled process environment.
type Env struct {
	foldCase bool
	values   map[string]envVar
}

type envVar struct {
	key   string
	value string
}

// Report summarises what Build changed, for logging.
type Report struct {
	Filtered []string
	Applied  []string
	Removed  []string
}

// Build merges opts into a new environment: inherited variables minus
// filtered prefixes, then the proxy override, then enabled .env entries.
// Disabled .env keys are deleted even when inherited.
func Build(opts BuildOptions) (*Env, Report) {
	env := &Env{foldCase: opts.FoldCase, values: make(map[string]envVar, len(opts.Base))}
	var report Report

	for _, kv := range opts.Base {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		if hasAnyPrefix(key, opts.FilterPrefixes) {
			report.Filtered = append(report.Filtered, key)
			continue
		}
		env.Set(key, value)
	}

	if opts.Proxy != "" {
		for _, key := range ProxyVars {
			env.Set(key, opts.Proxy)
		}
	}

	for _, entry := range opts.Entries {
		if opts.Enabled != nil && opts.Enabled(entry.Key) {
			env.Set(entry.Key, entry.Value)
			report.Applied = append(report.Applied, entry.Key)
			continue
		}
		if _, ok := env.Lookup(entry.Key); ok {
			report.Removed = append(report.Removed, entry.Key)
		}
		env.Delete(entry.Key)
	}

	return env, report
}

func hasAnyPrefix(key string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

func (e *Env) norm(key string) string {
	if e.foldCase {
		return strings.ToUpper(key)
	}
	return key
}

// Set assigns key. With case folding the most recent spelling of the key wins.
func (e *Env) Set(key, value string) {
	e.values[e.norm(key)] = envVar{key: key, value: value}
}

// Delete removes key.
func (e *Env) Delete(key string) {
	delete(e.values, e.norm(key))
}

// Lookup returns the value of key and whether it is present.
func (e *Env) Lookup(key string) (string, bool) {
	v, ok := e.values[e.norm(key)]
	return v.value, ok
}

// Len returns the number of variables.
func (e *Env) Len() int { return len(e.values) }

// Clone returns an independent copy.
func (e *Env) Clone() *Env {
	out := &Env{foldCase: e.foldCase, values: make(map[string]envVar, len(e.values))}
	for k, v := range e.values {
		out.values[k] = v
	}
	return out
}

// Map returns the variables keyed by their original spelling.
func (e *Env) Map() map[string]string {
	out := make(map[string]string, len(e.values))
	for _, v := range e.values {
		out[v.key] = v.value
	}
	return out
}

// Slice returns the variables in KEY=VALUE form sorted by key, ready for
// exec.Cmd.Env.
func (e *Env) Slice() []string {
	keys := make([]string, 0, len(e.values))
	for k := range e.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		v := e.values[k]
		out = append(out, v.key+"="+v.value)
	}
	return out
}
