package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

func (v Validation) String() string {
	if v.OK() {
		return "config ok"
	}
	return "config validation failed:\n- " + joinLines(v.Errors)
}

// NormalizeAndValidate returns a normalized copy of cfg along with hard
// errors (from Validate) and soft warnings.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			if seen[x] {
				continue
			}
			seen[x] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Catalog.Paths = trimList(out.Catalog.Paths)
	out.Store.Backend = strings.ToLower(strings.TrimSpace(out.Store.Backend))
	out.Store.Path = strings.TrimSpace(out.Store.Path)
	out.Log.Level = strings.ToLower(strings.TrimSpace(out.Log.Level))
	out.Log.Format = strings.ToLower(strings.TrimSpace(out.Log.Format))
	if strings.TrimSpace(out.App.DataDir) == "" {
		out.App.DataDir = "."
	}

	if err := Validate(out); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "- "))
			if line == "" || line == "config validation failed:" {
				continue
			}
			res.addErr("%s", line)
		}
	}

	// ---- Warnings ----

	if out.Store.Backend == BackendCSV && !strings.HasSuffix(strings.ToLower(out.Store.Path), ".csv") {
		res.addWarn("store.path %q does not end in .csv while store.backend=csv", out.Store.Path)
	}
	if out.RateLimit.RequestsPerSecond == 0 {
		res.addWarn("rate_limit.requests_per_second is 0; the local API is not rate limited.")
	}
	for _, p := range out.Catalog.Paths {
		if !strings.HasSuffix(strings.ToLower(p), ".csv") {
			res.addWarn("catalog path %q does not look like a CSV file", p)
		}
	}

	return out, res
}
