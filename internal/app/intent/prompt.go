package intent

import (
	"strings"

	"github.com/PabloGalante/taskchat/internal/domain"
)

const systemPrompt = `You are a task management assistant. Read the user's message and decide what they want to do with their task list.

Reply with ONE JSON object and nothing else:
{
  "action": "create" | "read" | "update" | "delete" | "complete",
  "confidence": number between 0.0 and 1.0,
  "task_id": integer or null,
  "task_title": string or null,
  "new_title": string or null,
  "task_description": string or null,
  "query_filter": {"is_completed": true | false | null, "search_term": string or null} or null,
  "ambiguous": true | false,
  "clarification_needed": string or null
}

Actions:
- create: the user wants a new task ("add", "create", "new task", "remind me to", "I need to").
  Put the thing to do in task_title. "add a task to buy groceries" -> task_title "buy groceries".
  "remind me to call mom" -> task_title "call mom".
- complete: the user finished something ("mark as done", "complete", "finished", "done with").
  Put the task reference in task_title. "mark buy groceries as done" -> task_title "buy groceries".
- read: the user wants to see tasks ("show", "list", "what tasks", "my tasks").
  "show me incomplete tasks" -> query_filter {"is_completed": false}.
  "show finished tasks" -> query_filter {"is_completed": true}.
  "tasks about milk" -> query_filter {"search_term": "milk"}.
- update: the user wants to change a task ("change", "update", "rename", "edit").
  Put the current reference in task_title and the replacement in new_title.
  "change buy milk to buy almond milk" -> task_title "buy milk", new_title "buy almond milk".
- delete: the user wants a task gone ("delete", "remove", "get rid of").
  "delete the groceries task" -> task_title "groceries".

Use task_id only when the user gives a task number explicitly.
Use the conversation so far to resolve references like "it" or "that one".

Confidence:
- 0.8-1.0 when the action and the task are both clear.
- 0.5-0.7 when the action is clear but the task is vague.
- 0.0-0.4 when you cannot tell what the user wants.

Set ambiguous to true when confidence is below 0.7 or required information is missing,
and put a short, specific question in clarification_needed.`

// BuildPrompt renders the instruction plus the context window and the new message.
func BuildPrompt(userMessage string, window []*domain.Message) domain.Prompt {
	var historyParts []string
	for _, m := range window {
		if m == nil {
			continue
		}
		role := "user"
		if m.Sender == domain.SenderBot {
			role = "assistant"
		}
		historyParts = append(historyParts, role+": "+m.Content)
	}

	var userContent strings.Builder
	if len(historyParts) > 0 {
		userContent.WriteString("Conversation so far:\n")
		userContent.WriteString(strings.Join(historyParts, "\n"))
		userContent.WriteString("\n\n")
	}
	userContent.WriteString("New user message:\n")
	userContent.WriteString(userMessage)

	return domain.Prompt{
		System: systemPrompt,
		User:   userContent.String(),
	}
}
