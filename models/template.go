package models

import (
	"github.com/BurntSushi/toml"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/hagall-spatial/quadtree"
)

// SpaceTemplate describes a persistent space created when the server starts.
type SpaceTemplate struct {
	Name     string  `toml:"name"`
	X        float64 `toml:"x"`
	Y        float64 `toml:"y"`
	Width    float64 `toml:"width"`
	Height   float64 `toml:"height"`
	MaxItems int     `toml:"max_items"`
	MaxDepth uint8   `toml:"max_depth"`
}

func (t SpaceTemplate) Bounds() quadtree.Rectangle {
	return quadtree.NewRectangle(t.X, t.Y, t.Width, t.Height)
}

type spaceTemplates struct {
	Spaces []SpaceTemplate `toml:"space"`
}

// LoadSpaceTemplates reads space templates from a TOML file:
//
//	[[space]]
//	name = "lobby"
//	x = 0.0
//	y = 0.0
//	width = 1000.0
//	height = 1000.0
//	max_items = 32
func LoadSpaceTemplates(filename string) ([]SpaceTemplate, error) {
	var templates spaceTemplates
	if _, err := toml.DecodeFile(filename, &templates); err != nil {
		return nil, errors.New("decoding space templates failed").
			WithTag("file_name", filename).
			Wrap(err)
	}
	return templates.Spaces, nil
}

// ParseSpaceTemplates is like LoadSpaceTemplates but reads the templates from
// a string.
func ParseSpaceTemplates(data string) ([]SpaceTemplate, error) {
	var templates spaceTemplates
	if _, err := toml.Decode(data, &templates); err != nil {
		return nil, errors.New("decoding space templates failed").Wrap(err)
	}
	return templates.Spaces, nil
}

// NewFromTemplates creates a persistent space for each template.
func (s *SpaceStore) NewFromTemplates(templates []SpaceTemplate) ([]*Space, error) {
	spaces := make([]*Space, 0, len(templates))

	for _, t := range templates {
		space, err := s.New(t.Bounds(), t.MaxItems, t.MaxDepth)
		if err != nil {
			return spaces, errors.New("creating space from template failed").
				WithTag("name", t.Name).
				Wrap(err)
		}
		space.Name = t.Name
		space.Persist = true
		spaces = append(spaces, space)
	}
	return spaces, nil
}
