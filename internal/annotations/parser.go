package annotations

import (
	"sort"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	cerrors "github.com/ajaimes/cinnamon/internal/errors"
)

// ParamTag is the parsed form of a `param:"name -Flag=value ..."` tag.
// Values are kept as written; numeric conversion depends on the Go type of
// the bound parameter and happens in the binder.
type ParamTag struct {
	Name      string
	Default   *string
	Min       *string
	Max       *string
	MinLength *int
	MaxLength *int
	Regex     *string
	Required  bool
	Message   *string
	Raw       string
}

// flagList is the participle grammar for the flag section of a tag
type flagList struct {
	Flags []*flag `parser:"@@*"`
}

type flag struct {
	Pos   lexer.Position
	Name  string     `parser:"Dash @Ident"`
	Value *flagValue `parser:"( Equals @@ )?"`
}

type flagValue struct {
	Quoted *string `parser:"  @String"`
	Number *string `parser:"| @Number"`
	Bare   *string `parser:"| @Ident"`
}

func (v *flagValue) raw() string {
	switch {
	case v.Quoted != nil:
		return unquote(*v.Quoted)
	case v.Number != nil:
		return *v.Number
	case v.Bare != nil:
		return *v.Bare
	}
	return ""
}

// Parser parses binding tags
type Parser struct {
	parser *participle.Parser[flagList]
}

// NewParser builds the tag grammar
func NewParser() *Parser {
	lex := lexer.MustSimple([]lexer.SimpleRule{
		{Name: "String", Pattern: `'(\\'|[^'])*'|"(\\"|[^"])*"`},
		{Name: "Number", Pattern: `[-+]?(\d+(\.\d*)?|\.\d+)([eE][-+]?\d+)?`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
		{Name: "Dash", Pattern: `-`},
		{Name: "Equals", Pattern: `=`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	return &Parser{
		parser: participle.MustBuild[flagList](
			participle.Lexer(lex),
			participle.Elide("Whitespace"),
			participle.UseLookahead(2),
		),
	}
}

var defaultParser = NewParser()

// Parse parses a tag with the shared parser
func Parse(tag string) (*ParamTag, error) {
	return defaultParser.Parse(tag)
}

// Parse splits off the parameter name and parses the remaining flags
func (p *Parser) Parse(tag string) (*ParamTag, error) {
	trimmed := strings.TrimSpace(tag)
	if trimmed == "" {
		return nil, cerrors.NewSyntaxError(tag, "binding tag is empty").
			WithSuggestion("start the tag with the request parameter name, e.g. " + Examples[0])
	}

	name, rest := trimmed, ""
	if i := strings.IndexAny(trimmed, " \t"); i >= 0 {
		name, rest = trimmed[:i], strings.TrimSpace(trimmed[i:])
	}
	if strings.HasPrefix(name, "-") {
		return nil, cerrors.NewSyntaxError(tag, "binding tag has no parameter name").
			WithSuggestion("the first word names the request parameter, flags follow it")
	}

	parsed := &ParamTag{Name: name, Raw: tag}
	if rest == "" {
		return parsed, nil
	}

	list, err := p.parser.ParseString("", rest)
	if err != nil {
		return nil, cerrors.WrapParseError(tag, err)
	}

	seen := make(map[string]bool, len(list.Flags))
	for _, f := range list.Flags {
		spec, ok := ParamTagSchema[f.Name]
		if !ok {
			return nil, cerrors.NewSyntaxError(tag, "unknown flag -"+f.Name).
				WithContext("column", f.Pos.Column).
				WithSuggestion("known flags: " + strings.Join(knownFlags(), ", "))
		}
		if seen[f.Name] {
			return nil, cerrors.NewSyntaxError(tag, "flag -"+f.Name+" given more than once")
		}
		seen[f.Name] = true

		value := ""
		if f.Value != nil {
			value = f.Value.raw()
		} else if spec.Type != BoolType {
			return nil, cerrors.NewSyntaxError(tag, "flag -"+f.Name+" needs a value").
				WithSuggestion("write -" + f.Name + "=value")
		} else {
			value = "true"
		}

		if spec.Validator != nil {
			if err := spec.Validator(value); err != nil {
				return nil, cerrors.Wrap(cerrors.SyntaxErrorCode, "flag -"+f.Name, err).
					WithContext("tag", tag)
			}
		}
		parsed.set(f.Name, value)
	}
	return parsed, nil
}

func (t *ParamTag) set(name, value string) {
	v := value
	switch name {
	case "Default":
		t.Default = &v
	case "Min":
		t.Min = &v
	case "Max":
		t.Max = &v
	case "MinLength":
		n, _ := strconv.Atoi(v)
		t.MinLength = &n
	case "MaxLength":
		n, _ := strconv.Atoi(v)
		t.MaxLength = &n
	case "Regex":
		t.Regex = &v
	case "Required":
		t.Required, _ = strconv.ParseBool(v)
	case "Message":
		t.Message = &v
	}
}

func knownFlags() []string {
	names := make([]string, 0, len(ParamTagSchema))
	for name := range ParamTagSchema {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// unquote strips matching single or double quotes and unescapes the quote
// character
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	q := s[0]
	if (q != '\'' && q != '"') || s[len(s)-1] != q {
		return s
	}
	return strings.ReplaceAll(s[1:len(s)-1], `\`+string(q), string(q))
}
