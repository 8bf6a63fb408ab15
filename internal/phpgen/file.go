// Package phpgen is a small structured builder for PHP source files. It
// models one namespace with its imports and a single class, and prints them
// in a stable layout so generated output can be diffed across runs.
package phpgen

import (
	"sort"
	"strconv"
	"strings"
)

// File is a PHP source file declaring one class inside one namespace.
type File struct {
	Namespace string
	Class     *Class
	uses      []Use
}

// Use is an import statement. Alias is empty when the short name is used.
type Use struct {
	Name  string
	Alias string
}

func NewFile(namespace string) *File {
	return &File{Namespace: strings.Trim(namespace, `\`)}
}

// AddClass declares the file's class and returns it. Declaring a class
// before adding imports lets AddUse avoid aliases that clash with it.
func (f *File) AddClass(name string) *Class {
	f.Class = &Class{Name: name}
	return f.Class
}

// AddUse imports fqn and returns the name code should use to refer to it.
// Imports of the file's own namespace are skipped. When the short name
// clashes with the declared class or an existing import, an alias made from
// the parent namespace segment is chosen.
func (f *File) AddUse(fqn string) string {
	fqn = strings.Trim(fqn, `\`)
	if ref, ok := f.lookup(fqn); ok {
		return ref
	}
	if namespaceOf(fqn) == f.Namespace {
		return shortName(fqn)
	}
	alias := ""
	short := shortName(fqn)
	if f.taken(short) {
		alias = shortName(namespaceOf(fqn)) + short
		for i := 2; f.taken(alias); i++ {
			alias = shortName(namespaceOf(fqn)) + short + strconv.Itoa(i)
		}
	}
	f.uses = append(f.uses, Use{Name: fqn, Alias: alias})
	if alias != "" {
		return alias
	}
	return short
}

// AddUseAs imports fqn under an explicit alias.
func (f *File) AddUseAs(fqn, alias string) string {
	fqn = strings.Trim(fqn, `\`)
	if ref, ok := f.lookup(fqn); ok {
		return ref
	}
	f.uses = append(f.uses, Use{Name: fqn, Alias: alias})
	return alias
}

// Uses returns the imports sorted by name.
func (f *File) Uses() []Use {
	out := append([]Use(nil), f.uses...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Simplify returns how a class reference reads inside this file: imported
// names use their alias or short name, same-namespace names their short
// name, and anything else is fully qualified. Built-in type keywords pass
// through untouched.
func (f *File) Simplify(name string) string {
	if name == "" || !strings.Contains(name, `\`) {
		return name
	}
	fqn := strings.Trim(name, `\`)
	if ref, ok := f.lookup(fqn); ok {
		return ref
	}
	if namespaceOf(fqn) == f.Namespace {
		return shortName(fqn)
	}
	return `\` + fqn
}

func (f *File) lookup(fqn string) (string, bool) {
	for _, u := range f.uses {
		if u.Name == fqn {
			if u.Alias != "" {
				return u.Alias, true
			}
			return shortName(fqn), true
		}
	}
	return "", false
}

func (f *File) taken(name string) bool {
	lower := strings.ToLower(name)
	if f.Class != nil && strings.ToLower(f.Class.Name) == lower {
		return true
	}
	for _, u := range f.uses {
		ref := u.Alias
		if ref == "" {
			ref = shortName(u.Name)
		}
		if strings.ToLower(ref) == lower {
			return true
		}
	}
	return false
}

func shortName(fqn string) string {
	if i := strings.LastIndex(fqn, `\`); i >= 0 {
		return fqn[i+1:]
	}
	return fqn
}

func namespaceOf(fqn string) string {
	if i := strings.LastIndex(fqn, `\`); i >= 0 {
		return fqn[:i]
	}
	return ""
}
