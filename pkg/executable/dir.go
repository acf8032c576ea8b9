package executable

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"strings"
	"sync"
	"text/template"

	derrors "github.com/vango-dev/docrender/internal/errors"
)

// Ext is the file extension of template units.
const Ext = ".tmpl"

// Dir resolves units from text/template files named <producer>.tmpl in a
// filesystem. Files are parsed on first use and kept for the life of the Dir.
// The template receives the unit Input as data.
type Dir struct {
	fsys  fs.FS
	funcs template.FuncMap

	mu    sync.Mutex
	units map[string]Unit // nil value records a missing file
}

// NewDir creates a resolver over fsys. funcs are added to every template.
func NewDir(fsys fs.FS, funcs template.FuncMap) *Dir {
	return &Dir{
		fsys:  fsys,
		funcs: funcs,
		units: make(map[string]Unit),
	}
}

// Resolve implements Resolver. A file that exists but does not parse resolves
// to a unit that reports the parse error.
func (d *Dir) Resolve(name string) (Unit, bool) {
	if d == nil || d.fsys == nil || !validName(name) {
		return nil, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if u, ok := d.units[name]; ok {
		return u, u != nil
	}

	u := d.load(name)
	d.units[name] = u
	return u, u != nil
}

func (d *Dir) load(name string) Unit {
	file := name + Ext
	src, err := fs.ReadFile(d.fsys, file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return failed{err: derrors.New("R005").WithDetail(file).Wrap(err)}
	}

	tmpl, err := template.New(file).Funcs(d.funcs).Parse(string(src))
	if err != nil {
		return failed{err: derrors.New("R002").WithDetail(file).Wrap(err)}
	}
	return &templateUnit{tmpl: tmpl}
}

// validName rejects names that would escape the unit directory.
func validName(name string) bool {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return false
	}
	return fs.ValidPath(path.Clean(name))
}

type templateUnit struct {
	tmpl *template.Template
}

func (u *templateUnit) Execute(ctx context.Context, in Input) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := u.tmpl.Execute(&sb, in); err != nil {
		return "", derrors.New("R003").WithDetail(u.tmpl.Name()).Wrap(err)
	}
	return sb.String(), nil
}

type failed struct {
	err error
}

func (f failed) Execute(context.Context, Input) (string, error) {
	return "", f.err
}
