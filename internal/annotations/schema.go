package annotations

import (
	"fmt"
	"regexp"
	"strconv"
)

// ParameterType represents the type of a flag value
type ParameterType int

const (
	StringType ParameterType = iota
	IntType
	BoolType
	NumberType
)

// String returns the string representation of the parameter type
func (pt ParameterType) String() string {
	switch pt {
	case StringType:
		return "string"
	case IntType:
		return "int"
	case BoolType:
		return "bool"
	case NumberType:
		return "number"
	default:
		return "unknown"
	}
}

// ParameterSpec describes one flag accepted in a binding tag
type ParameterSpec struct {
	Type        ParameterType
	Description string
	Validator   func(string) error
}

// ParamTagSchema lists the flags accepted after the parameter name in a
// `param:"..."` tag
var ParamTagSchema = map[string]ParameterSpec{
	"Default": {
		Type:        StringType,
		Description: "value used when the parameter is absent or cannot be parsed",
	},
	"Min": {
		Type:        NumberType,
		Description: "lower bound for numeric parameters (advisory)",
		Validator:   validateNumber,
	},
	"Max": {
		Type:        NumberType,
		Description: "upper bound for numeric parameters (advisory)",
		Validator:   validateNumber,
	},
	"MinLength": {
		Type:        IntType,
		Description: "minimum string length (advisory)",
		Validator:   validateNonNegativeInt,
	},
	"MaxLength": {
		Type:        IntType,
		Description: "maximum string length, -1 for unlimited (advisory)",
		Validator:   validateInt,
	},
	"Regex": {
		Type:        StringType,
		Description: "pattern string values must match (advisory)",
		Validator:   validateRegex,
	},
	"Required": {
		Type:        BoolType,
		Description: "record a message when an object field is absent",
		Validator:   validateBool,
	},
	"Message": {
		Type:        StringType,
		Description: "message recorded on a violation",
	},
}

// Examples shows accepted tag forms, used in error hints
var Examples = []string{
	`param:"id"`,
	`param:"age -Default=18 -Min=18 -Max=120"`,
	`param:"email -MinLength=3 -Regex='^[^@]+@[^@]+$' -Required -Message='Invalid e-mail'"`,
}

func validateNumber(v string) error {
	if _, err := strconv.ParseFloat(v, 64); err != nil {
		return fmt.Errorf("must be a number, got '%s'", v)
	}
	return nil
}

func validateInt(v string) error {
	if _, err := strconv.Atoi(v); err != nil {
		return fmt.Errorf("must be an integer, got '%s'", v)
	}
	return nil
}

func validateNonNegativeInt(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fmt.Errorf("must be a non-negative integer, got '%s'", v)
	}
	return nil
}

func validateBool(v string) error {
	if _, err := strconv.ParseBool(v); err != nil {
		return fmt.Errorf("must be true or false, got '%s'", v)
	}
	return nil
}

func validateRegex(v string) error {
	if _, err := regexp.Compile(v); err != nil {
		return fmt.Errorf("invalid pattern: %v", err)
	}
	return nil
}
