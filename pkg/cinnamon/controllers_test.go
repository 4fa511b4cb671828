package cinnamon

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Users is the handler most dispatch tests run against
type Users struct {
	Controller
}

func (u *Users) Index() *Result {
	return Text("users index")
}

func (u *Users) Show(id int, verbose bool) *Result {
	u.Model()["id"] = id
	return Text(fmt.Sprintf("user %d verbose=%v violations=%d", id, verbose, u.Messages().Len()))
}

func (u *Users) Search(tags []string, filter searchFilter) *Result {
	return Text(fmt.Sprintf("%s|%s|%d", strings.Join(tags, ","), filter.Query, filter.Page))
}

func (u *Users) Archive(year, month int) *Result {
	return Text(fmt.Sprintf("%04d-%02d", year, month))
}

func (u *Users) Fail() (*Result, error) {
	return nil, errors.New("database password is hunter2")
}

func (u *Users) Boom() *Result {
	panic("secret panic detail")
}

func (u *Users) Nothing() *Result {
	return nil
}

func (u *Users) Count() int {
	return 42
}

func (u *Users) Bad() *Result {
	return View("")
}

func (u *Users) Login(name string) *Result {
	u.Session().Set("user", name)
	return Redirect("/Users")
}

func (u *Users) Whoami() *Result {
	return Text(fmt.Sprint(u.Session().Get("user")))
}

func (u *Users) Logout() *Result {
	u.Session().Invalidate()
	return Text("bye")
}

func (u *Users) Greet() *Result {
	u.Messages().AddLocalized("greeting", "Hello")
	return Text(u.Messages().Get("greeting"))
}

type searchFilter struct {
	Query string `param:"q -MinLength=2"`
	Page  int    `param:"page -Min=1"`
}

// Orders has the Handler capability; Plain does not
type Orders struct {
	Controller
}

func (o *Orders) Index() *Result {
	return Text("orders")
}

type Plain struct{}

func (p *Plain) Index() *Result {
	return Text("plain")
}

func userActions() []*ActionSpec {
	return []*ActionSpec{
		Action("index", (*Users).Index),
		Action("show", (*Users).Show, Param("id").Default(7).Max(100), Param("verbose")),
		Action("search", (*Users).Search, Param("tag").Default([]string{"all"}), Bind()),
		Action("archive", (*Users).Archive, Param("year"), Param("month")).Mapping("/year/month"),
		Action("fail", (*Users).Fail),
		Action("boom", (*Users).Boom),
		Action("nothing", (*Users).Nothing),
		Action("count", (*Users).Count),
		Action("bad", (*Users).Bad),
		Action("login", (*Users).Login, Param("name").Default("ana")),
		Action("whoami", (*Users).Whoami),
		Action("logout", (*Users).Logout),
		Action("greet", (*Users).Greet),
	}
}

func newTestRegistry() *Registry {
	reg := NewRegistry()
	reg.MustRegister("app.Users", func() (any, error) { return &Users{}, nil }, userActions()...)
	reg.MustRegister("app.Orders", func() (any, error) { return &Orders{}, nil },
		Action("index", (*Orders).Index))
	reg.MustRegister("app.Plain", func() (any, error) { return &Plain{}, nil })
	reg.MustRegister("app.Broken", func() (any, error) { return nil, errors.New("no database") },
		Action("index", (*Orders).Index))
	reg.MustRegister("app.Nil", func() (any, error) { return (*Orders)(nil), nil },
		Action("index", (*Orders).Index))
	reg.MustRegister("app.Panicky", func() (any, error) { panic("constructor failed") },
		Action("index", (*Orders).Index))
	return reg
}
