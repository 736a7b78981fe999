package entities

// PropertyType is the JSON type of a tool parameter.
type PropertyType string

const (
	PropertyString  PropertyType = "string"
	PropertyInteger PropertyType = "integer"
	PropertyNumber  PropertyType = "number"
	PropertyBoolean PropertyType = "boolean"
)

// Property describes one named argument of a tool.
type Property struct {
	Type        PropertyType `json:"type"`
	Description string       `json:"description,omitempty"`
	Enum        []string     `json:"enum,omitempty"`
	Minimum     *float64     `json:"minimum,omitempty"`
	Maximum     *float64     `json:"maximum,omitempty"`
}

// ParameterSchema is the object schema of a tool's arguments.
type ParameterSchema struct {
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// JSONSchema renders the schema as a JSON Schema object.
func (s ParameterSchema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name, p := range s.Properties {
		prop := map[string]any{"type": string(p.Type)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Minimum != nil {
			prop["minimum"] = *p.Minimum
		}
		if p.Maximum != nil {
			prop["maximum"] = *p.Maximum
		}
		props[name] = prop
	}

	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(s.Required) > 0 {
		schema["required"] = s.Required
	}
	return schema
}

// ToolSpec is a tool advertised to the reasoning engine.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterSchema `json:"parameters"`
}

// ToolCall is a request from the reasoning engine to run a named tool.
// RawArguments keeps the engine's text when it could not be decoded into
// Arguments.
type ToolCall struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Arguments    map[string]any `json:"arguments"`
	RawArguments string         `json:"raw_arguments,omitempty"`
}

// ResultKind tags the outcome of running an action.
type ResultKind string

const (
	ResultSucceeded      ResultKind = "succeeded"
	ResultFailed         ResultKind = "failed"
	ResultNotImplemented ResultKind = "not_implemented"
)

// ActionResult is what an action handler reports back.
type ActionResult struct {
	Kind    ResultKind `json:"kind"`
	Value   any        `json:"value,omitempty"`
	Message string     `json:"message,omitempty"`
}

func Succeeded(value any) ActionResult {
	return ActionResult{Kind: ResultSucceeded, Value: value}
}

func Failed(message string) ActionResult {
	return ActionResult{Kind: ResultFailed, Message: message}
}

func NotImplemented(message string) ActionResult {
	return ActionResult{Kind: ResultNotImplemented, Message: message}
}

// ActionInvocation records one executed tool call. Err is set when the call
// never reached a handler (unknown tool, rejected arguments).
type ActionInvocation struct {
	ToolCallID string         `json:"tool_call_id"`
	ToolName   string         `json:"tool_name"`
	Arguments  map[string]any `json:"arguments,omitempty"`
	Result     ActionResult   `json:"result"`
	Err        error          `json:"-"`
}

// Failed reports whether the invocation did not complete successfully.
func (a ActionInvocation) Failed() bool {
	return a.Err != nil || a.Result.Kind != ResultSucceeded
}
