// Package demo holds the handlers served by "cinnamon serve" when no other
// application is wired in.
package demo

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/ajaimes/cinnamon/pkg/cinnamon"
)

// Package is the import path handlers in this package are registered under
const Package = "github.com/ajaimes/cinnamon/internal/demo"

// Greeter answers /Greeter/... requests
type Greeter struct {
	cinnamon.Controller
}

func (g *Greeter) Index() *cinnamon.Result {
	return cinnamon.Text("Welcome to Cinnamon. Try /Greeter/hello?name=you&times=2")
}

func (g *Greeter) Hello(name string, times int) *cinnamon.Result {
	if g.Messages().Len() > 0 {
		return cinnamon.Text(g.Messages().Join("", "\n")).WithStatus(400)
	}
	return cinnamon.Text(strings.TrimSpace(strings.Repeat("Hello, "+name+"! ", times)))
}

func (g *Greeter) Page(name string) *cinnamon.Result {
	g.Model()["name"] = name
	return cinnamon.View("greeter/page")
}

// Note is one entry kept in the visitor's session
type Note struct {
	Title    string `param:"title -Required -MaxLength=80" json:"title"`
	Body     string `param:"body" json:"body,omitempty"`
	Priority int    `param:"priority -Min=1 -Max=5 -Default=3" json:"priority"`
	Tag      string `param:"tag" json:"tag,omitempty" validate:"omitempty,alphanum"`
}

// SetTitle trims the title before it is stored
func (n *Note) SetTitle(title string) {
	n.Title = strings.TrimSpace(title)
}

// Notes keeps a per-visitor list of notes in the session
type Notes struct {
	cinnamon.Controller
}

const notesKey = "notes"

func (n *Notes) Index() *cinnamon.Result {
	return cinnamon.JSON(n.stored())
}

func (n *Notes) Add(note Note) (*cinnamon.Result, error) {
	if !n.Messages().IsEmpty() {
		return cinnamon.JSON(n.Messages().Map()).WithStatus(422), nil
	}
	notes := append(n.stored(), note)
	n.Session().Set(notesKey, notes)
	return cinnamon.Redirect("/Notes"), nil
}

func (n *Notes) Clear() *cinnamon.Result {
	n.Session().Invalidate()
	return cinnamon.Redirect("/Notes")
}

func (n *Notes) Archive(year, month int) *cinnamon.Result {
	return cinnamon.Text(fmt.Sprintf("no notes archived for %04d-%02d", year, month))
}

// stored reads the notes back from the session. Values restored from a
// persistent store arrive as decoded JSON rather than []Note.
func (n *Notes) stored() []Note {
	switch v := n.Session().Get(notesKey).(type) {
	case []Note:
		return v
	case []any:
		notes := make([]Note, 0, len(v))
		for _, item := range v {
			m, _ := item.(map[string]any)
			note := Note{}
			note.Title, _ = m["title"].(string)
			note.Body, _ = m["body"].(string)
			note.Tag, _ = m["tag"].(string)
			if p, ok := m["priority"].(float64); ok {
				note.Priority = int(p)
			}
			notes = append(notes, note)
		}
		return notes
	default:
		return []Note{}
	}
}

// Register adds the demo handlers to reg
func Register(reg *cinnamon.Registry) error {
	if _, err := reg.RegisterHandler(func() (any, error) { return &Greeter{}, nil },
		cinnamon.Action("index", (*Greeter).Index),
		cinnamon.Action("hello", (*Greeter).Hello,
			cinnamon.Param("name").Default("world").MaxLength(40).Message("name is too long"),
			cinnamon.Param("times").Default(1).Min(1).Max(5)),
		cinnamon.Action("page", (*Greeter).Page, cinnamon.Param("name").Default("world")),
	); err != nil {
		return errors.Wrap(err, "registering Greeter")
	}

	if _, err := reg.RegisterHandler(func() (any, error) { return &Notes{}, nil },
		cinnamon.Action("index", (*Notes).Index),
		cinnamon.Action("add", (*Notes).Add, cinnamon.Bind()),
		cinnamon.Action("clear", (*Notes).Clear),
		cinnamon.Action("archive", (*Notes).Archive, cinnamon.Param("year"), cinnamon.Param("month")).
			Mapping("/year/month"),
	); err != nil {
		return errors.Wrap(err, "registering Notes")
	}
	return nil
}
