package definition

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE []byte

// Loader compiles popup definitions against the embedded schema.
// A Loader is not safe for concurrent use.
type Loader struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewLoader compiles the #Popup schema.
func NewLoader() (*Loader, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Loader{ctx: ctx, schema: schema.LookupPath(cue.ParsePath("#Popup"))}, nil
}

// Compile parses one CUE source and returns its popups ordered by label.
func (l *Loader) Compile(filename string, src []byte) ([]Definition, []error) {
	v := l.ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, []error{cueError(ErrCodeBuildFailed, "", err)}
	}
	return l.extract(v)
}

// LoadDir compiles every .cue file under dir as one configuration and
// returns its popups. All errors are collected.
func (l *Loader) LoadDir(dir string) ([]Definition, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("definitions directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing definitions directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	merged := l.ctx.CompileString("{}")
	for _, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeReadFailed, Message: err.Error()}}
		}
		v := l.ctx.CompileBytes(src, cue.Filename(path))
		if err := v.Err(); err != nil {
			return nil, []error{cueError(ErrCodeBuildFailed, "", err)}
		}
		merged = merged.Unify(v)
	}
	if err := merged.Err(); err != nil {
		return nil, []error{cueError(ErrCodeBuildFailed, "", err)}
	}
	return l.extract(merged)
}

func (l *Loader) extract(v cue.Value) ([]Definition, []error) {
	popups := v.LookupPath(cue.ParsePath("popup"))
	if !popups.Exists() {
		return nil, nil
	}
	iter, err := popups.Fields()
	if err != nil {
		return nil, []error{cueError(ErrCodeSchema, "", err)}
	}

	var (
		defs []Definition
		errs []error
	)
	seen := make(map[string]string)
	for iter.Next() {
		label := iter.Label()
		def, err := l.decode(label, iter.Value())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if prev, dup := seen[def.ID]; dup {
			errs = append(errs, &LoadError{
				Code:    ErrCodeDuplicateID,
				Popup:   label,
				Message: fmt.Sprintf("id %q already used by %s", def.ID, prev),
				Pos:     iter.Value().Pos(),
			})
			continue
		}
		seen[def.ID] = label
		defs = append(defs, def)
	}

	sort.SliceStable(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs, errs
}

func (l *Loader) decode(label string, raw cue.Value) (Definition, error) {
	v := l.schema.Unify(raw)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Definition{}, cueError(ErrCodeSchema, label, err)
	}

	var def Definition
	if err := v.Decode(&def); err != nil {
		return Definition{}, cueError(ErrCodeSchema, label, err)
	}
	if def.ID == "" {
		def.ID = label
	}
	return def, nil
}

// FindCUEFiles walks dir and returns all .cue file paths in lexical order.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// cueError keeps the first CUE error and its position.
func cueError(code, popup string, err error) *LoadError {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Popup: popup, Message: err.Error()}
	}
	first := errs[0]
	le := &LoadError{Code: code, Popup: popup, Message: first.Error()}
	if pos := cueerrors.Positions(first); len(pos) > 0 {
		le.Pos = pos[0]
	}
	return le
}
