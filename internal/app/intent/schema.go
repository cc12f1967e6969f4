package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/PabloGalante/taskchat/internal/domain"
)

// intentSchema is the contract a provider reply must satisfy.
// Only action is required; every other field may be omitted or null.
const intentSchema = `{
  "type": "object",
  "required": ["action"],
  "properties": {
    "action": {"type": "string", "pattern": "(?i)^\\s*(create|read|update|delete|complete)\\s*$"},
    "confidence": {"type": ["number", "null"]},
    "task_id": {"type": ["integer", "null"]},
    "task_title": {"type": ["string", "null"]},
    "new_title": {"type": ["string", "null"]},
    "task_description": {"type": ["string", "null"]},
    "query_filter": {
      "type": ["object", "null"],
      "properties": {
        "is_completed": {"type": ["boolean", "null"]},
        "search_term": {"type": ["string", "null"]}
      }
    },
    "ambiguous": {"type": ["boolean", "null"]},
    "clarification_needed": {"type": ["string", "null"]}
  }
}`

var compiledSchema = mustCompile(intentSchema)

func mustCompile(schema string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("intent: invalid schema: %v", err))
	}
	return s
}

// UnparseableError reports a provider reply that is not a valid intent.
type UnparseableError struct {
	Reason string
}

func (e *UnparseableError) Error() string {
	return "unparseable intent: " + e.Reason
}

type wireQueryFilter struct {
	IsCompleted *bool   `json:"is_completed"`
	SearchTerm  *string `json:"search_term"`
}

type wireIntent struct {
	Action        string           `json:"action"`
	Confidence    *float64         `json:"confidence"`
	TaskID        *int64           `json:"task_id"`
	TaskTitle     *string          `json:"task_title"`
	NewTitle      *string          `json:"new_title"`
	Description   *string          `json:"task_description"`
	QueryFilter   *wireQueryFilter `json:"query_filter"`
	Ambiguous     *bool            `json:"ambiguous"`
	Clarification *string          `json:"clarification_needed"`
}

// Decode validates raw against the intent schema and maps it to a domain
// intent. Field values are not yet range checked; see normalize.
// Any failure is an *UnparseableError.
func Decode(raw string) (domain.Intent, error) {
	data := []byte(stripFences(raw))
	if !json.Valid(data) {
		return domain.Intent{}, &UnparseableError{Reason: "reply is not valid JSON"}
	}

	result, err := compiledSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return domain.Intent{}, &UnparseableError{Reason: err.Error()}
	}
	if !result.Valid() {
		var errs []string
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return domain.Intent{}, &UnparseableError{Reason: strings.Join(errs, "; ")}
	}

	var w wireIntent
	if err := json.Unmarshal(data, &w); err != nil {
		return domain.Intent{}, &UnparseableError{Reason: err.Error()}
	}

	action, ok := domain.ParseAction(w.Action)
	if !ok {
		return domain.Intent{}, &UnparseableError{Reason: fmt.Sprintf("unknown action %q", w.Action)}
	}

	in := domain.Intent{
		Action:        action,
		Confidence:    0.5,
		Title:         deref(w.TaskTitle),
		NewTitle:      deref(w.NewTitle),
		Description:   deref(w.Description),
		Clarification: deref(w.Clarification),
	}
	if w.Confidence != nil {
		in.Confidence = *w.Confidence
	}
	if w.Ambiguous != nil {
		in.Ambiguous = *w.Ambiguous
	}
	if w.TaskID != nil {
		id := domain.TaskID(*w.TaskID)
		in.TaskID = &id
	}
	if w.QueryFilter != nil {
		qf := &domain.QueryFilter{
			IsCompleted: w.QueryFilter.IsCompleted,
			SearchTerm:  deref(w.QueryFilter.SearchTerm),
		}
		if qf.IsCompleted != nil || qf.SearchTerm != "" {
			in.QueryFilter = qf
		}
	}
	return in, nil
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
