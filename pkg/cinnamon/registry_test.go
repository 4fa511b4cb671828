package cinnamon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/ajaimes/cinnamon/internal/errors"
)

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()
	factory := func() (any, error) { return &Orders{}, nil }

	require.NoError(t, reg.Register("app.Orders", factory, Action("index", (*Orders).Index)))

	err := reg.Register("app.Orders", factory)
	require.Error(t, err)
	var ce cerrors.CinnamonError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, cerrors.RegistrationErrorCode, ce.ErrorCode())

	assert.Error(t, reg.Register("", factory))
	assert.Error(t, reg.Register("app.Nope", nil))
	assert.Equal(t, []string{"app.Orders"}, reg.Names())
}

func TestRegistry_RegisterRemembersBindingErrors(t *testing.T) {
	reg := NewRegistry()
	broken := Action("show", (*Users).Show, Param("id"))

	err := reg.Register("app.Users", func() (any, error) { return &Users{}, nil },
		Action("index", (*Users).Index), broken)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNonMatchingAnnotations)
	assert.Equal(t, err.Error(), broken.Err().Error())

	_, err = reg.Resolve("app.Users", "show")
	assert.ErrorIs(t, err, ErrServerError, "a broken action is a server error at dispatch time")

	resolved, err := reg.Resolve("app.Users", "index")
	require.NoError(t, err, "the rest of the handler stays usable")
	assert.Equal(t, "index", resolved.Action.Name())
}

func TestRegistry_RegisterHandler(t *testing.T) {
	reg := NewRegistry()

	name, err := reg.RegisterHandler(func() (any, error) { return &Orders{}, nil },
		Action("index", (*Orders).Index))
	require.NoError(t, err)
	assert.Equal(t, "github.com/ajaimes/cinnamon/pkg/cinnamon.Orders", name)

	_, err = reg.RegisterHandler(func() (any, error) { return &Plain{}, nil })
	assert.Error(t, err, "types without the Handler capability are rejected")

	_, err = reg.RegisterHandler(func() (any, error) { return &Users{}, nil },
		Action("index", (*Orders).Index))
	assert.Error(t, err, "the action receiver must accept the handler")
}

func TestTypeName(t *testing.T) {
	name, err := TypeName(Users{})
	require.NoError(t, err)
	assert.Equal(t, "github.com/ajaimes/cinnamon/pkg/cinnamon.Users", name)

	_, err = TypeName(nil)
	assert.Error(t, err)

	_, err = TypeName(struct{}{})
	assert.Error(t, err)
}

func TestRegistry_Routes(t *testing.T) {
	reg := newTestRegistry()

	var show, count, archive *RouteInfo
	routes := reg.Routes()
	for i := range routes {
		if routes[i].Handler != "app.Users" {
			continue
		}
		switch routes[i].Action {
		case "show":
			show = &routes[i]
		case "count":
			count = &routes[i]
		case "archive":
			archive = &routes[i]
		}
	}

	require.NotNil(t, show)
	assert.True(t, show.Dispatchable)
	assert.Equal(t, []ParameterInfo{
		{Name: "id", Kind: "Int", Type: "int"},
		{Name: "verbose", Kind: "Boolean", Type: "bool"},
	}, show.Parameters)

	require.NotNil(t, count)
	assert.False(t, count.Dispatchable)

	require.NotNil(t, archive)
	assert.Equal(t, "/year/month", archive.Mapping)
}

func TestRegistry_Resolve(t *testing.T) {
	reg := newTestRegistry()

	tests := []struct {
		name    string
		handler string
		action  string
		wantErr error
	}{
		{name: "known action", handler: "app.Users", action: "show"},
		{name: "unknown handler", handler: "app.Missing", action: "index", wantErr: ErrNotFound},
		{name: "unknown action", handler: "app.Users", action: "missing", wantErr: ErrNotFound},
		{name: "action with a non Result return", handler: "app.Users", action: "count", wantErr: ErrNotFound},
		{name: "names are case sensitive", handler: "app.Users", action: "Show", wantErr: ErrNotFound},
		{name: "type without Handler capability", handler: "app.Plain", action: "index", wantErr: ErrNotFound},
		{name: "factory error", handler: "app.Broken", action: "index", wantErr: ErrServerError},
		{name: "factory returns nil", handler: "app.Nil", action: "index", wantErr: ErrServerError},
		{name: "factory panics", handler: "app.Panicky", action: "index", wantErr: ErrServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := reg.Resolve(tt.handler, tt.action)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, resolved)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.handler, resolved.Name)
			assert.Equal(t, tt.action, resolved.Action.Name())
		})
	}
}

func TestRegistry_ResolveBuildsFreshInstances(t *testing.T) {
	reg := newTestRegistry()

	first, err := reg.Resolve("app.Users", "index")
	require.NoError(t, err)
	second, err := reg.Resolve("app.Users", "index")
	require.NoError(t, err)

	assert.NotSame(t, first.Instance, second.Instance)
}

func TestRegistry_FirstMatchingActionWins(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister("app.Users", func() (any, error) { return &Users{}, nil },
		Action("home", (*Users).Count),
		Action("home", (*Users).Index),
		Action("home", (*Users).Whoami),
	)

	resolved, err := reg.Resolve("app.Users", "home")
	require.NoError(t, err)

	res, err := resolved.Action.Invoke(resolved.Instance, nil)
	require.NoError(t, err)
	assert.Equal(t, "users index", string(res.Content()))
}
