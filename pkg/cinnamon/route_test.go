package cinnamon

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		useSlugs   bool
		wantClass  string
		wantMethod string
		wantParams []string
		wantErr    bool
	}{
		{
			name:       "class only defaults to index",
			path:       "/Users",
			wantClass:  "Users",
			wantMethod: "index",
		},
		{
			name:       "trailing slash is ignored",
			path:       "/Users/",
			wantClass:  "Users",
			wantMethod: "index",
		},
		{
			name:       "empty method segment with slugs",
			path:       "/user-list//7",
			useSlugs:   true,
			wantClass:  "UserList",
			wantMethod: "index",
			wantParams: []string{"7"},
		},
		{
			name:       "class and method",
			path:       "/Users/show",
			wantClass:  "Users",
			wantMethod: "show",
		},
		{
			name:       "positional params skip empty segments",
			path:       "/Users/show/42//abc",
			wantClass:  "Users",
			wantMethod: "show",
			wantParams: []string{"42", "abc"},
		},
		{
			name:       "slugs convert class and method",
			path:       "/hello-world/say-hi/7",
			useSlugs:   true,
			wantClass:  "HelloWorld",
			wantMethod: "sayHi",
			wantParams: []string{"7"},
		},
		{
			name:       "slugs keep first method part verbatim",
			path:       "/a/Do-it",
			useSlugs:   true,
			wantClass:  "A",
			wantMethod: "DoIt",
		},
		{
			name:       "single character slug",
			path:       "/a/a",
			useSlugs:   true,
			wantClass:  "A",
			wantMethod: "a",
		},
		{
			name:       "slugs disabled leaves tokens verbatim",
			path:       "/hello-world/say-hi",
			wantClass:  "hello-world",
			wantMethod: "say-hi",
		},
		{
			name:       "empty method segment falls back to index",
			path:       "/Users//5",
			wantClass:  "Users",
			wantMethod: "index",
			wantParams: []string{"5"},
		},
		{
			name:    "root path",
			path:    "/",
			wantErr: true,
		},
		{
			name:    "empty path",
			path:    "",
			wantErr: true,
		},
		{
			name:    "no leading slash single segment",
			path:    "Users",
			wantErr: true,
		},
		{
			name:    "empty class segment",
			path:    "//show",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := Analyze(tt.path, tt.useSlugs)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantClass, target.ClassName())
			assert.Equal(t, tt.wantMethod, target.MethodName())
			if tt.wantParams == nil {
				assert.Empty(t, target.Params())
			} else {
				assert.Equal(t, tt.wantParams, target.Params())
			}
		})
	}
}

func TestRouteTargetParamsIsCopy(t *testing.T) {
	target, err := Analyze("/Users/show/1/2", false)
	require.NoError(t, err)

	params := target.Params()
	params[0] = "changed"
	assert.Equal(t, []string{"1", "2"}, target.Params())
	assert.Equal(t, "Users.show", target.String())
}

func TestSlugConversion(t *testing.T) {
	tests := []struct {
		slug       string
		wantClass  string
		wantMethod string
	}{
		{slug: "hello-world", wantClass: "HelloWorld", wantMethod: "helloWorld"},
		{slug: "a", wantClass: "A", wantMethod: "a"},
		{slug: "a-", wantClass: "A", wantMethod: "a"},
		{slug: "-a", wantClass: "A", wantMethod: "A"},
		{slug: "multi-part-name", wantClass: "MultiPartName", wantMethod: "multiPartName"},
		{slug: "émile-zola", wantClass: "ÉmileZola", wantMethod: "émileZola"},
		{slug: "", wantClass: "", wantMethod: ""},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			assert.Equal(t, tt.wantClass, ClassNameFromSlug(tt.slug))
			assert.Equal(t, tt.wantMethod, MethodNameFromSlug(tt.slug))
		})
	}
}

func TestAnalyze_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	token := gen.Identifier()

	properties.Property("non-empty class segment always yields a class and method", prop.ForAll(
		func(class string, useSlugs bool) bool {
			target, err := Analyze("/"+class, useSlugs)
			return err == nil && target.ClassName() != "" && target.MethodName() == DefaultMethodName
		},
		token,
		gen.Bool(),
	))

	properties.Property("positional params keep URL order", prop.ForAll(
		func(class, method string, params []string) bool {
			path := "/" + class + "/" + method + "/" + strings.Join(params, "/")
			target, err := Analyze(path, false)
			if err != nil {
				return false
			}
			got := target.Params()
			if len(got) != len(params) {
				return false
			}
			for i := range params {
				if got[i] != params[i] {
					return false
				}
			}
			return true
		},
		token,
		token,
		gen.SliceOf(token),
	))

	properties.Property("class slug conversion removes dashes", prop.ForAll(
		func(parts []string) bool {
			return !strings.Contains(ClassNameFromSlug(strings.Join(parts, "-")), "-")
		},
		gen.SliceOf(token),
	))

	properties.TestingRun(t)
}
