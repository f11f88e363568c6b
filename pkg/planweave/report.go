package planweave

import "fmt"

// Severity classifies a diagnostic. Errors block downstream code
// generation and execution; warnings do not.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Code is a stable diagnostic identifier. Codes never change between
// releases; consumers may match on them.
type Code string

// Structural errors.
const (
	CodeDuplicatePort       Code = "DUPLICATE_PORT"
	CodeUnknownInstance     Code = "UNKNOWN_INSTANCE"
	CodeUnknownPort         Code = "UNKNOWN_PORT"
	CodeMultipleConnections Code = "MULTIPLE_CONNECTIONS_TO_INPUT"
	CodeGraphCycle          Code = "GRAPH_CYCLE"
	CodeScopeContract       Code = "SCOPE_CONTRACT"
	CodeScopeDepthExceeded  Code = "SCOPE_DEPTH_EXCEEDED"
)

// Semantic warnings.
const (
	CodeMultipleExitConnections Code = "MULTIPLE_EXIT_CONNECTIONS"
	CodeObjectTypeMismatch      Code = "OBJECT_TYPE_MISMATCH"
)

// Diagnostic is one validation finding.
type Diagnostic struct {
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	// Instance is the offending instance id, if the finding is tied to one.
	Instance string `json:"instance,omitempty"`
	// Port is the offending port name, if the finding is tied to one.
	Port string `json:"port,omitempty"`
}

// String renders the diagnostic for logs and error text.
func (d Diagnostic) String() string {
	loc := ""
	if d.Instance != "" {
		loc = " at " + d.Instance
		if d.Port != "" {
			loc += "." + d.Port
		}
	}
	return fmt.Sprintf("%s [%s]%s: %s", d.Severity, d.Code, loc, d.Message)
}

// Report is the outcome of validating one workflow. The validator never
// stops at the first problem; a report holds every finding from one pass.
type Report struct {
	Errors   []Diagnostic `json:"errors"`
	Warnings []Diagnostic `json:"warnings"`
}

// HasErrors reports whether any fatal finding was recorded.
func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}

// ByCode returns all findings with the given code, errors first.
func (r *Report) ByCode(code Code) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Errors {
		if d.Code == code {
			out = append(out, d)
		}
	}
	for _, d := range r.Warnings {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

func (r *Report) addError(code Code, instance, port, format string, args ...any) {
	r.Errors = append(r.Errors, Diagnostic{
		Code:     code,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Instance: instance,
		Port:     port,
	})
}

func (r *Report) addWarning(code Code, instance, port, format string, args ...any) {
	r.Warnings = append(r.Warnings, Diagnostic{
		Code:     code,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf(format, args...),
		Instance: instance,
		Port:     port,
	})
}
