// Package reply renders execution results and clarifications as chat text.
// Everything here is pure.
package reply

import (
	"fmt"
	"strings"

	"github.com/PabloGalante/taskchat/internal/domain"
)

const (
	NoTasks         = "You don't have any tasks yet. Would you like to create one?"
	GenericClarify  = "I'm not quite sure what you want to do. Could you rephrase that?"
	GenericApology  = "I encountered an issue. Please try again or rephrase your request."
	fallbackCreate  = "I've added that task to your list."
	fallbackDone    = "I've marked that task as complete."
	fallbackUpdated = "I've updated that task."
)

var createPool = []string{
	"I've added '%s' to your task list.",
	"Got it! I've created a task for '%s'.",
	"Done! '%s' is now on your list.",
	"Perfect! I've added '%s' to your tasks.",
}

var completePool = []string{
	"Great! I've marked '%s' as complete.",
	"Done! '%s' is now marked as complete.",
	"Awesome! I've completed '%s' for you.",
	"Perfect! '%s' is checked off your list.",
}

// errorPhrases maps error keywords to friendly text, checked in order.
var errorPhrases = []struct {
	key  string
	text string
}{
	{"not found", "I couldn't find that task. Could you try describing it differently?"},
	{"multiple", "I found multiple tasks matching that. Could you be more specific?"},
	{"empty", "I need more information. What would you like me to do?"},
}

// Pick selects a template by task id. The choice is stable for a given id.
func Pick(pool []string, id domain.TaskID) string {
	n := int64(len(pool))
	i := int64(id) % n
	if i < 0 {
		i += n
	}
	return pool[i]
}

// Render turns an execution result into the bot's reply.
func Render(res domain.ExecutionResult) string {
	if !res.Success {
		return Failure(res)
	}

	switch res.Action {
	case domain.ActionCreate:
		if res.Task == nil {
			return fallbackCreate
		}
		return fmt.Sprintf(Pick(createPool, res.Task.ID), res.Task.Title)
	case domain.ActionComplete:
		if res.Task == nil {
			return fallbackDone
		}
		return fmt.Sprintf(Pick(completePool, res.Task.ID), res.Task.Title)
	case domain.ActionRead:
		return TaskList(res.Tasks)
	case domain.ActionUpdate:
		if res.Task == nil {
			return fallbackUpdated
		}
		return fmt.Sprintf("I've updated the task to '%s'.", res.Task.Title)
	case domain.ActionDelete:
		title := res.DeletedTitle
		if title == "" {
			title = "that task"
		}
		return fmt.Sprintf("I've deleted '%s' from your task list.", title)
	}

	if res.Message != "" {
		return res.Message
	}
	return "Done!"
}

// TaskList renders a numbered list with a completion glyph per task.
func TaskList(tasks []*domain.Task) string {
	if len(tasks) == 0 {
		return NoTasks
	}

	var b strings.Builder
	noun := "tasks"
	if len(tasks) == 1 {
		noun = "task"
	}
	fmt.Fprintf(&b, "You have %d %s:", len(tasks), noun)
	for i, t := range tasks {
		glyph := "○"
		if t.IsCompleted {
			glyph = "✓"
		}
		fmt.Fprintf(&b, "\n%d. %s %s", i+1, glyph, t.Title)
	}
	return b.String()
}

// Clarification returns the intent's question or a generic prompt.
func Clarification(in domain.Intent) string {
	if in.Clarification != "" {
		return in.Clarification
	}
	return GenericClarify
}

// Failure prefers the result's own message, then a keyword lookup on the error.
func Failure(res domain.ExecutionResult) string {
	if res.Message != "" {
		return res.Message
	}
	return FriendlyError(res.Error)
}

func FriendlyError(errText string) string {
	lower := strings.ToLower(errText)
	for _, p := range errorPhrases {
		if strings.Contains(lower, p.key) {
			return p.text
		}
	}
	return GenericApology
}
