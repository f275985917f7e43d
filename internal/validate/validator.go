// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
)

// CodeInvalid is the oops code of every validation failure.
const CodeInvalid = "VALIDATION_FAILED"

// ErrInvalid is matched with errors.Is by callers that only need to know
// the input was rejected.
var ErrInvalid = errors.New("invalid input")

// Validator compiles one schema per form type and caches it.
type Validator struct {
	mu      sync.Mutex
	schemas map[reflect.Type]*jschema.Schema
}

// New creates a Validator.
func New() *Validator {
	return &Validator{schemas: make(map[reflect.Type]*jschema.Schema)}
}

// Decode validates values against the schema of form and, on success,
// fills form. form must be a pointer to a struct.
func (v *Validator) Decode(form any, values url.Values) error {
	doc := DecodeValues(values)
	if err := v.Validate(form, doc); err != nil {
		return err
	}

	// Every property is a validated string at this point.
	raw, err := json.Marshal(doc)
	if err != nil {
		return oops.Code(CodeInvalid).With("form", formName(form)).Wrap(err)
	}
	if err := json.Unmarshal(raw, form); err != nil {
		return oops.Code(CodeInvalid).With("form", formName(form)).Wrap(err)
	}
	return nil
}

// Validate checks doc against the schema of form without filling it.
func (v *Validator) Validate(form any, doc map[string]any) error {
	sch, err := v.schemaFor(form)
	if err != nil {
		return err
	}

	if err := sch.Validate(toInstance(doc)); err != nil {
		var ve *jschema.ValidationError
		fields := []string{}
		if errors.As(err, &ve) {
			fields = failedFields(ve)
		}
		return oops.Code(CodeInvalid).
			With("form", formName(form)).
			With("fields", fields).
			Wrapf(ErrInvalid, "%s", strings.Join(fields, ", "))
	}
	return nil
}

// Fields returns the names of the fields that failed validation, for logs.
func Fields(err error) []string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	fields, _ := oopsErr.Context()["fields"].([]string)
	return fields
}

func (v *Validator) schemaFor(form any) (*jschema.Schema, error) {
	t := reflect.TypeOf(form)
	if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return nil, oops.Code("VALIDATION_BAD_FORM").Errorf("form must be a pointer to a struct, got %T", form)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if sch, ok := v.schemas[t]; ok {
		return sch, nil
	}

	sch, err := compile(form)
	if err != nil {
		return nil, oops.Code("VALIDATION_BAD_FORM").With("form", formName(form)).Wrap(err)
	}
	v.schemas[t] = sch
	return sch, nil
}

// compile reflects a JSON Schema from the form struct and compiles it with
// format assertions switched on, so "format=email" is enforced.
func compile(form any) (*jschema.Schema, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
		Anonymous:      true,
	}
	schemaBytes, err := json.Marshal(r.Reflect(form))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	var schemaData any
	if err := json.Unmarshal(schemaBytes, &schemaData); err != nil {
		return nil, fmt.Errorf("failed to parse schema JSON: %w", err)
	}

	name := formName(form) + ".json"
	c := jschema.NewCompiler()
	c.AssertFormat()
	if err := c.AddResource(name, schemaData); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	return c.Compile(name)
}

// toInstance converts a decoded document into the value shapes the schema
// library expects ([]any and map[string]any only).
func toInstance(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = toInstance(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = toInstance(child)
		}
		return out
	default:
		return val
	}
}

// failedFields walks the error tree and collects top-level property names.
func failedFields(ve *jschema.ValidationError) []string {
	seen := map[string]bool{}
	var walk func(e *jschema.ValidationError)
	walk = func(e *jschema.ValidationError) {
		if len(e.InstanceLocation) > 0 {
			seen[e.InstanceLocation[0]] = true
		}
		switch k := e.ErrorKind.(type) {
		case *kind.Required:
			for _, m := range k.Missing {
				seen[m] = true
			}
		case *kind.AdditionalProperties:
			for _, p := range k.Properties {
				seen[p] = true
			}
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)

	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func formName(form any) string {
	t := reflect.TypeOf(form)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}
	return t.Name()
}
