package cinnamon

import (
	"reflect"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/ajaimes/cinnamon/internal/errors"
)

type signupForm struct {
	Email      string   `param:"email -Required -Message='E-mail is required'" validate:"omitempty,email"`
	Age        int      `param:"age -Min=18 -Max=120"`
	Tags       []string `param:"tags"`
	Newsletter bool     `param:"newsletter"`
	Country    string   `param:"country -Default=ES"`
	Ignored    string

	nickname string `param:"nick"`
	setCalls int
}

func (f *signupForm) SetNickname(v string) {
	f.setCalls++
	f.nickname = "@" + v
}

type failingForm struct {
	Name  string `param:"name"`
	Count int    `param:"count"`
}

func (f *failingForm) SetName(string) error {
	return errors.New("rejected")
}

func (f *failingForm) SetCount(int) {
	panic("setter exploded")
}

type hiddenForm struct {
	secret string `param:"secret"`
}

func compileObjectFor(t *testing.T, sample any) *BindingSpec {
	t.Helper()
	spec, err := compileBinding(Bind(), reflect.TypeOf(sample), cerrors.SourceLocation{Handler: "test"})
	require.NoError(t, err)
	return spec
}

func TestObjectBinder_Populates(t *testing.T) {
	spec := compileObjectFor(t, &signupForm{})
	require.Equal(t, KindObject, spec.Kind)

	params := NewParams(map[string][]string{
		"email":      {"ana@example.com"},
		"age":        {"30"},
		"tags":       {"go", "web"},
		"newsletter": {"true"},
		"nick":       {"ana"},
		"Ignored":    {"x"},
	})
	msgs := NewMessages()

	form := spec.object.bind(params, msgs).Interface().(*signupForm)

	assert.Equal(t, "ana@example.com", form.Email)
	assert.Equal(t, 30, form.Age)
	assert.Equal(t, []string{"go", "web"}, form.Tags)
	assert.True(t, form.Newsletter)
	assert.Equal(t, "@ana", form.nickname, "the setter is preferred")
	assert.Equal(t, 1, form.setCalls)
	assert.Empty(t, form.Country, "absent optional fields keep their zero value")
	assert.Empty(t, form.Ignored)
	assert.True(t, msgs.IsEmpty())
}

func TestObjectBinder_Violations(t *testing.T) {
	spec := compileObjectFor(t, signupForm{})
	params := NewParams(map[string][]string{
		"age": {"12"},
	})
	msgs := NewMessages()

	form := spec.object.bind(params, msgs).Interface().(signupForm)

	assert.Equal(t, 12, form.Age, "out of range values are still set")
	assert.Equal(t, []string{"email", "age"}, msgs.Keys())
	assert.Equal(t, "E-mail is required", msgs.Get("email"))
	assert.Equal(t, DefaultViolationMessage, msgs.Get("age"))
}

func TestObjectBinder_ValidateTags(t *testing.T) {
	spec := compileObjectFor(t, &signupForm{})
	params := NewParams(map[string][]string{
		"email": {"not-an-email"},
		"age":   {"40"},
	})
	msgs := NewMessages()

	spec.object.bind(params, msgs)

	assert.Equal(t, []string{"email"}, msgs.Keys())
	assert.Equal(t, "E-mail is required", msgs.Get("email"))
}

func TestObjectBinder_SetterFailuresAreSwallowed(t *testing.T) {
	spec := compileObjectFor(t, &failingForm{})
	params := NewParams(map[string][]string{
		"name":  {"x"},
		"count": {"3"},
	})
	msgs := NewMessages()

	var form *failingForm
	require.NotPanics(t, func() {
		form = spec.object.bind(params, msgs).Interface().(*failingForm)
	})
	assert.Empty(t, form.Name)
	assert.Zero(t, form.Count)
	assert.True(t, msgs.IsEmpty())
}

func TestObjectBinder_UnexportedWithoutSetter(t *testing.T) {
	_, err := compileBinding(Bind(), reflect.TypeOf(hiddenForm{}), cerrors.SourceLocation{Handler: "test"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SetSecret")
}

func TestObjectBinder_InvalidTag(t *testing.T) {
	type badForm struct {
		Name string `param:"name -Unknown=1"`
	}
	_, err := compileBinding(Bind(), reflect.TypeOf(badForm{}), cerrors.SourceLocation{Handler: "test"})
	require.Error(t, err)

	var ce cerrors.CinnamonError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, cerrors.BindingErrorCode, ce.ErrorCode())
}
