// Package config provides typed access to compiler option maps loaded
// from YAML or JSON files.
//
// The package wraps a plain map[string]any with accessors that never
// fail: missing keys and type mismatches fall back to the caller's
// default. This keeps option plumbing out of the compiler core, which
// only ever sees a finished planweave.Options value.
//
// Example:
//
//	cfg, err := config.FromFile("planweave.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	plan, rep, err := planweave.Compile(ctx, wf, planweave.FromConfig(cfg))
package config
