package module

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/docrender/internal/errors"
)

// seedFile is the on-disk shape of a module seed file.
type seedFile struct {
	Modules []seedModule `yaml:"modules"`
}

type seedModule struct {
	ID        int    `yaml:"id"`
	Title     string `yaml:"title"`
	Module    string `yaml:"module"`
	Position  string `yaml:"position"`
	Content   string `yaml:"content"`
	ShowTitle *bool  `yaml:"showtitle"`
	Params    string `yaml:"params"`
	Ordering  int    `yaml:"ordering"`
	Access    int    `yaml:"access"`
	Client    int    `yaml:"client"`
	Published *bool  `yaml:"published"`
	Menus     []int  `yaml:"menus"`
	Style     string `yaml:"style"`
}

// DecodeYAML reads modules from a seed document. showtitle and published
// default to true when omitted.
func DecodeYAML(r io.Reader) ([]*Module, error) {
	var seed seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, errors.New("S002").Wrap(err)
	}

	mods := make([]*Module, 0, len(seed.Modules))
	for _, sm := range seed.Modules {
		m := &Module{
			ID:        sm.ID,
			Title:     sm.Title,
			Module:    sm.Module,
			Position:  sm.Position,
			Content:   sm.Content,
			ShowTitle: true,
			Params:    ParseParams(sm.Params),
			Ordering:  sm.Ordering,
			Access:    sm.Access,
			Client:    sm.Client,
			Published: true,
			Menus:     sm.Menus,
			Style:     sm.Style,
		}
		if sm.ShowTitle != nil {
			m.ShowTitle = *sm.ShowTitle
		}
		if sm.Published != nil {
			m.Published = *sm.Published
		}
		mods = append(mods, m)
	}
	return mods, nil
}

// LoadYAML reads a seed file into a new MemoryStore.
func LoadYAML(path string) (*MemoryStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New("S002").WithDetail(path).Wrap(err)
	}
	defer f.Close()

	mods, err := DecodeYAML(f)
	if err != nil {
		return nil, err
	}
	return NewMemoryStore(mods...), nil
}
