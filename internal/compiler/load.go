package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/pulse/internal/ir"
)

// Package is the set of networks declared by the CUE files of one
// directory, in declaration order.
type Package struct {
	Dir      string
	Files    []string
	Networks []*ir.NetworkSpec
}

// Network returns the network with the given name.
func (p *Package) Network(name string) (*ir.NetworkSpec, bool) {
	for _, n := range p.Networks {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// Names lists the declared network names.
func (p *Package) Names() []string {
	names := make([]string, len(p.Networks))
	for i, n := range p.Networks {
		names[i] = n.Name
	}
	return names
}

// LoadDir loads the CUE package in dir and compiles every struct under the
// top-level "network" field. Compile errors are collected rather than
// returned on the first one; the returned package holds the networks that
// did compile. A nil package means nothing could be loaded.
func LoadDir(dir string) (*Package, []error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("specs directory: %w", err)}
	}
	if !info.IsDir() {
		return nil, []error{fmt.Errorf("not a directory: %s", dir)}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("scan %s: %w", dir, err)}
	}
	if len(files) == 0 {
		return nil, []error{fmt.Errorf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{fmt.Errorf("no CUE instances loaded from %s", dir)}
	}
	if err := instances[0].Err; err != nil {
		return nil, []error{formatCUEError(err)}
	}
	value := cuecontext.New().BuildInstance(instances[0])
	if err := value.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}

	pkg := &Package{Dir: dir, Files: files}
	networks := value.LookupPath(cue.ParsePath("network"))
	if !networks.Exists() {
		return pkg, []error{&CompileError{Field: "network", Message: "no networks declared", Pos: value.Pos()}}
	}
	iter, err := networks.Fields()
	if err != nil {
		return pkg, []error{formatCUEError(err)}
	}

	var errs []error
	for iter.Next() {
		spec, err := CompileNetwork(iter.Value())
		if err != nil {
			errs = append(errs, fmt.Errorf("network %s: %w", iter.Label(), err))
			continue
		}
		pkg.Networks = append(pkg.Networks, spec)
	}
	return pkg, errs
}

// FindCUEFiles walks dir and returns every .cue file below it.
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
