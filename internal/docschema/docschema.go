// Package docschema はAPIに送られた todo ドキュメントを、
// モデルにバインドする前に JSON スキーマで検証します。
package docschema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const deadlineSchema = `{
	"anyOf": [
		{"type": "null"},
		{"const": ""},
		{"type": "string", "format": "date"}
	]
}`

const createSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["display_text"],
	"properties": {
		"owner_name": {"type": "string", "minLength": 1, "maxLength": 255},
		"display_text": {"type": "string", "minLength": 1, "maxLength": 1024},
		"completed": {"type": "boolean"},
		"deadline": ` + deadlineSchema + `
	},
	"additionalProperties": false
}`

const patchSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"minProperties": 1,
	"properties": {
		"display_text": {"type": "string", "minLength": 1, "maxLength": 1024},
		"completed": {"type": "boolean"},
		"deadline": ` + deadlineSchema + `
	},
	"additionalProperties": false
}`

var (
	todoCreate = mustCompile("https://theone.local/schema/todo-create.json", createSchema)
	todoPatch  = mustCompile("https://theone.local/schema/todo-patch.json", patchSchema)
)

// ErrInvalidDocument は検証に失敗したドキュメントのエラーです (ラップして返します)。
var ErrInvalidDocument = errors.New("invalid todo document")

// FieldError はスキーマ違反1件です。
type FieldError struct {
	Path    string
	Message string
}

func (e FieldError) String() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// ValidationError はドキュメント内のすべての違反です。
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidDocument, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidDocument }

// ValidateCreate は作成リクエストのボディを検証します。
func ValidateCreate(raw []byte) error {
	return validate(todoCreate, raw)
}

// ValidatePatch は部分更新リクエストのボディを検証します。
func ValidatePatch(raw []byte) error {
	return validate(todoPatch, raw)
}

func validate(schema *jsonschema.Schema, raw []byte) error {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &ValidationError{Fields: []FieldError{{Message: fmt.Sprintf("malformed JSON: %v", err)}}}
	}
	err := schema.Validate(doc)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	result := &ValidationError{}
	collect(result, ve)
	return result
}

// collect は原因のツリーを末端だけの一覧にします。
func collect(result *ValidationError, ve *jsonschema.ValidationError) {
	if len(ve.Causes) == 0 {
		result.Fields = append(result.Fields, FieldError{
			Path:    strings.TrimPrefix(ve.InstanceLocation, "/"),
			Message: ve.Message,
		})
		return
	}
	for _, cause := range ve.Causes {
		collect(result, cause)
	}
}

func mustCompile(url, src string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.AssertFormat = true
	if err := c.AddResource(url, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("docschema: add %s: %v", url, err))
	}
	return c.MustCompile(url)
}
