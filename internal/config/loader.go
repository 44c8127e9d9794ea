package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"safetyhub/internal/issue"
)

//go:embed schema.cue
var schemaCUE string

// LoadError represents an error that occurred during registry loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across loader and CLI.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeSchema      = "E007" // Registry does not satisfy schema
	ErrCodeSource      = "E101" // Invalid source declaration
	ErrCodeGroup       = "E102" // Invalid group declaration
	ErrCodeResurface   = "E103" // Invalid resurface window
)

// LoadRegistry loads and validates a source registry from a directory of
// CUE files.
//
// The directory's CUE package is unified with the embedded schema before
// decoding, so structural errors carry CUE positions. Semantic errors
// (duplicate ids, dangling group references) are reported by NewRegistry.
func LoadRegistry(dir string) (*Registry, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("registry directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing registry directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := findCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeSchema, Message: fmt.Sprintf("compiling embedded schema: %v", err)}
	}

	unified := value.Unify(schema)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{Code: ErrCodeSchema, Message: fmt.Sprintf("registry does not satisfy schema: %v", err)}
	}

	return CompileRegistry(unified.LookupPath(cue.ParsePath("registry")))
}

// CompileRegistry parses a CUE value holding a registry struct into a
// validated Registry. The value must already satisfy the embedded schema.
func CompileRegistry(v cue.Value) (*Registry, error) {
	if err := v.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: err.Error(), Pos: v.Pos()}
	}
	if !v.Exists() {
		return nil, &LoadError{Code: ErrCodeSchema, Message: "no registry struct found"}
	}

	var sources []Source
	sourcesVal := v.LookupPath(cue.ParsePath("sources"))
	if sourcesVal.Exists() {
		iter, err := sourcesVal.Fields()
		if err != nil {
			return nil, &LoadError{Code: ErrCodeSource, Message: fmt.Sprintf("iterating sources: %v", err), Pos: sourcesVal.Pos()}
		}
		for iter.Next() {
			s, err := compileSource(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			sources = append(sources, s)
		}
	}

	var groups []Group
	groupsVal := v.LookupPath(cue.ParsePath("groups"))
	if groupsVal.Exists() {
		iter, err := groupsVal.Fields()
		if err != nil {
			return nil, &LoadError{Code: ErrCodeGroup, Message: fmt.Sprintf("iterating groups: %v", err), Pos: groupsVal.Pos()}
		}
		for iter.Next() {
			g, err := compileGroup(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			groups = append(groups, g)
		}
	}

	windows := make(map[issue.Severity]Window)
	resurfaceVal := v.LookupPath(cue.ParsePath("resurface"))
	if resurfaceVal.Exists() {
		iter, err := resurfaceVal.Fields()
		if err != nil {
			return nil, &LoadError{Code: ErrCodeResurface, Message: fmt.Sprintf("iterating resurface windows: %v", err), Pos: resurfaceVal.Pos()}
		}
		for iter.Next() {
			sev, w, err := compileWindow(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			windows[sev] = w
		}
	}

	registry, err := NewRegistry(sources, groups, windows)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeSchema, Message: err.Error(), Pos: v.Pos()}
	}
	return registry, nil
}

func compileSource(id string, v cue.Value) (Source, error) {
	pkg, err := v.LookupPath(cue.ParsePath("package")).String()
	if err != nil {
		return Source{}, &LoadError{Code: ErrCodeSource, Message: fmt.Sprintf("source %s: package: %v", id, err), Pos: v.Pos()}
	}
	loggable, err := v.LookupPath(cue.ParsePath("loggable")).Bool()
	if err != nil {
		return Source{}, &LoadError{Code: ErrCodeSource, Message: fmt.Sprintf("source %s: loggable: %v", id, err), Pos: v.Pos()}
	}
	return Source{ID: id, PackageName: pkg, Loggable: loggable}, nil
}

func compileGroup(id string, v cue.Value) (Group, error) {
	g := Group{ID: id}
	sourcesVal := v.LookupPath(cue.ParsePath("sources"))
	iter, err := sourcesVal.List()
	if err != nil {
		return Group{}, &LoadError{Code: ErrCodeGroup, Message: fmt.Sprintf("group %s: sources: %v", id, err), Pos: v.Pos()}
	}
	for iter.Next() {
		sourceID, err := iter.Value().String()
		if err != nil {
			return Group{}, &LoadError{Code: ErrCodeGroup, Message: fmt.Sprintf("group %s: source entry: %v", id, err), Pos: iter.Value().Pos()}
		}
		g.SourceIDs = append(g.SourceIDs, sourceID)
	}
	return g, nil
}

func compileWindow(severityName string, v cue.Value) (issue.Severity, Window, error) {
	sev, err := issue.ParseSeverity(severityName)
	if err != nil {
		return 0, Window{}, &LoadError{Code: ErrCodeResurface, Message: err.Error(), Pos: v.Pos()}
	}
	never, err := v.LookupPath(cue.ParsePath("never")).Bool()
	if err != nil {
		return 0, Window{}, &LoadError{Code: ErrCodeResurface, Message: fmt.Sprintf("severity %s: never: %v", severityName, err), Pos: v.Pos()}
	}
	delayStr, err := v.LookupPath(cue.ParsePath("delay")).String()
	if err != nil {
		return 0, Window{}, &LoadError{Code: ErrCodeResurface, Message: fmt.Sprintf("severity %s: delay: %v", severityName, err), Pos: v.Pos()}
	}
	delay, err := time.ParseDuration(delayStr)
	if err != nil {
		return 0, Window{}, &LoadError{Code: ErrCodeResurface, Message: fmt.Sprintf("severity %s: delay %q: %v", severityName, delayStr, err), Pos: v.Pos()}
	}
	return sev, Window{Delay: delay, Never: never}, nil
}

// findCUEFiles walks the directory and returns all .cue file paths.
func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
