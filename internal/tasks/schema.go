package tasks

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/ldi/taskgraph/pkg/models"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed tasks.schema.json
var schemaJSON string

const schemaURL = "https://ldi.github.io/taskgraph/tasks.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func taskListSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		if err := compiler.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("failed to add task schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// ValidateJSON checks a JSON task list payload against the embedded schema.
// Schema violations come back as an errors.Join of *ValidationError values.
func ValidateJSON(data []byte) error {
	schema, err := taskListSchema()
	if err != nil {
		return err
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return &ValidationError{Err: fmt.Errorf("invalid json: %w", err)}
	}

	if err := schema.Validate(doc); err != nil {
		return schemaErrors(err)
	}
	return nil
}

// DecodeJSON validates data and decodes it into tasks. Dependency ids may be
// written as strings or integers; integers are kept as their decimal text.
func DecodeJSON(data []byte) ([]models.Task, error) {
	if err := ValidateJSON(data); err != nil {
		return nil, err
	}
	var docs []taskDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, &ValidationError{Err: fmt.Errorf("decode tasks: %w", err)}
	}
	list := make([]models.Task, len(docs))
	for i, doc := range docs {
		list[i] = doc.Task
		list[i].Dependencies = []string(doc.Dependencies)
	}
	return list, nil
}

// taskDocument shadows Task.Dependencies so that ids can be mixed.
type taskDocument struct {
	models.Task
	Dependencies dependencyList `json:"dependencies"`
}

type dependencyList []string

func (d *dependencyList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	deps := make([]string, 0, len(raw))
	for _, item := range raw {
		var id string
		if err := json.Unmarshal(item, &id); err == nil {
			deps = append(deps, id)
			continue
		}
		var n json.Number
		if err := json.Unmarshal(item, &n); err != nil {
			return fmt.Errorf("dependency %s: %w", item, err)
		}
		if _, err := strconv.Atoi(n.String()); err != nil {
			return fmt.Errorf("dependency %s is not an integer", item)
		}
		deps = append(deps, n.String())
	}
	*d = deps
	return nil
}

func schemaErrors(err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return &ValidationError{Err: err}
	}

	var errs []error
	collectSchemaErrors(&errs, ve)
	return errors.Join(errs...)
}

func collectSchemaErrors(errs *[]error, err *jsonschema.ValidationError) {
	if len(err.Causes) == 0 {
		*errs = append(*errs, &ValidationError{
			Path: jsonPointerToPath(err.InstanceLocation),
			Err:  fmt.Errorf("%s", err.Message),
		})
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(errs, cause)
	}
}

// jsonPointerToPath turns "/1/dependencies/0" into "tasks[1].dependencies[0]".
func jsonPointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	path := "tasks"
	for _, part := range strings.Split(ptr, "/") {
		if part == "" {
			continue
		}
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if idx, err := strconv.Atoi(part); err == nil {
			path += fmt.Sprintf("[%d]", idx)
			continue
		}
		path += "." + part
	}
	return path
}
