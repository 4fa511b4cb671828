package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajaimes/cinnamon/internal/config"
	"github.com/ajaimes/cinnamon/internal/demo"
	"github.com/ajaimes/cinnamon/pkg/cinnamon"
	"github.com/ajaimes/cinnamon/pkg/cinnamon/sqlstore"
)

// execute runs the root command with args and returns its output
func execute(t *testing.T, register func(*cinnamon.Registry) error, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&rootOptions{register: register})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, demo.Register, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)

	out, err = execute(t, demo.Register, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Go version:")
}

func TestRoutesCommand(t *testing.T) {
	t.Run("lists demo handlers", func(t *testing.T) {
		out, err := execute(t, demo.Register, "routes")
		require.NoError(t, err)

		assert.Contains(t, out, "URL")
		assert.Contains(t, out, "/Greeter/hello")
		assert.Contains(t, out, "name string, times int")
		assert.Contains(t, out, "/Notes/archive/{year}/{month}")
		assert.Contains(t, out, demo.Package+".Notes")
		assert.Contains(t, out, "handlers: 2")
	})

	t.Run("slugs and prefix", func(t *testing.T) {
		out, err := execute(t, demo.Register, "routes", "--slugs", "--prefix", "/app")
		require.NoError(t, err)
		assert.Contains(t, out, "/app/greeter/hello")
	})

	t.Run("handlers outside the controller package", func(t *testing.T) {
		out, err := execute(t, demo.Register, "routes", "--controllers", "example.com/other")
		require.NoError(t, err)
		assert.NotContains(t, out, "/Greeter/hello")
	})

	t.Run("compile failures fail the command", func(t *testing.T) {
		out, err := execute(t, func(reg *cinnamon.Registry) error {
			_ = reg.Register(demo.Package+".Broken", func() (any, error) { return &broken{}, nil },
				cinnamon.Action("go", (*broken).Go))
			return nil
		}, "routes")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 actions failed to compile")
		assert.Contains(t, out, "error:")
	})

	t.Run("registration errors", func(t *testing.T) {
		_, err := execute(t, func(*cinnamon.Registry) error { return assert.AnError }, "routes")
		assert.ErrorIs(t, err, assert.AnError)
	})
}

type broken struct {
	cinnamon.Controller
}

func (b *broken) Go(ch chan int) *cinnamon.Result {
	return cinnamon.Text("unreachable")
}

func TestAnalyzeCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains []string
		wantErr  bool
	}{
		{
			name:     "resolvable",
			args:     []string{"/Greeter/hello"},
			contains: []string{"class: Greeter", "method: hello", "✓ resolves to " + demo.Package + ".Greeter.hello"},
		},
		{
			name:     "default method",
			args:     []string{"/Greeter"},
			contains: []string{"method: index"},
		},
		{
			name:     "slugs and positional params",
			args:     []string{"--slugs", "--prefix", "/app", "/app/notes/archive/2024/05"},
			contains: []string{"class: Notes", "params: 2024, 05"},
		},
		{
			name:     "unknown handler",
			args:     []string{"/Nope/x"},
			contains: []string{"✗ resolve:"},
			wantErr:  true,
		},
		{
			name:     "no class",
			args:     []string{"/"},
			contains: []string{"✗ analyze:"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, demo.Register, append([]string{"analyze"}, tt.args...)...)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
		})
	}

	t.Run("requires a path", func(t *testing.T) {
		_, err := execute(t, demo.Register, "analyze")
		assert.Error(t, err)
	})
}

func TestNewWebServer(t *testing.T) {
	tests := map[string]string{
		"echo":    "Echo",
		"gin":     "Gin",
		"fiber":   "Fiber",
		"chi":     "Chi",
		"nethttp": "net/http",
	}
	for adapter, want := range tests {
		t.Run(adapter, func(t *testing.T) {
			web, err := newWebServer(adapter)
			require.NoError(t, err)
			assert.Equal(t, want, web.Name())
		})
	}

	_, err := newWebServer("iris")
	assert.Error(t, err)
}

func TestNewApp(t *testing.T) {
	load := func(t *testing.T, store, dbURL string) *config.Config {
		t.Helper()
		t.Setenv("CINNAMON_SESSION_STORE", store)
		t.Setenv("CINNAMON_SESSION_DB_URL", dbURL)
		t.Setenv("CINNAMON_SERVER_ADAPTER", "nethttp")
		t.Setenv("CINNAMON_CONTROLLER_PACKAGE", demo.Package)
		cfg, err := config.Load("", nil)
		require.NoError(t, err)
		return cfg
	}

	registry := func(t *testing.T) *cinnamon.Registry {
		reg := cinnamon.NewRegistry()
		require.NoError(t, demo.Register(reg))
		return reg
	}

	t.Run("without sessions", func(t *testing.T) {
		a, err := newApp(context.Background(), load(t, "none", ""), registry(t), prometheus.NewRegistry(), prometheus.NewRegistry())
		require.NoError(t, err)
		defer a.Close()
		assert.Empty(t, a.closers)
		assert.Nil(t, a.sweeper)
		assert.Equal(t, "net/http", a.server.Web().Name())
	})

	t.Run("memory sessions", func(t *testing.T) {
		a, err := newApp(context.Background(), load(t, "memory", ""), registry(t), prometheus.NewRegistry(), prometheus.NewRegistry())
		require.NoError(t, err)
		assert.Len(t, a.closers, 1)
		a.Close()
		assert.Empty(t, a.closers)
	})

	t.Run("sql sessions", func(t *testing.T) {
		dbURL := "sqlite://" + filepath.Join(t.TempDir(), "sessions.db")
		a, err := newApp(context.Background(), load(t, "sql", dbURL), registry(t), prometheus.NewRegistry(), prometheus.NewRegistry())
		require.NoError(t, err)
		defer a.Close()
		require.NotNil(t, a.sweeper)
	})

	t.Run("unreachable database", func(t *testing.T) {
		_, err := newApp(context.Background(), load(t, "sql", "mysql://nowhere"), registry(t), prometheus.NewRegistry(), prometheus.NewRegistry())
		assert.Error(t, err)
	})
}

func TestSweepExpired(t *testing.T) {
	db, err := sqlstore.Open("sqlite://" + filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	store, err := sqlstore.New(context.Background(), db)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "old", []byte("{}"), time.Now().Add(-time.Minute)))
	require.NoError(t, store.Save(ctx, "new", []byte("{}"), time.Now().Add(time.Hour)))

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		sweepExpired(ctx, store, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		n, err := store.Count(context.Background())
		return err == nil && n == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"HelloWorld": "hello-world",
		"sayHi":      "say-hi",
		"index":      "index",
		"A":          "a",
	}
	for in, want := range tests {
		assert.Equal(t, want, slugify(in), in)
	}
}
