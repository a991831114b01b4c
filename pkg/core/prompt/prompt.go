// Package prompt holds the prompt library used for generative calls and
// turns computed metrics into deterministic prompt payloads. Templates are
// JSON documents (system prompt plus a text/template user prompt) shipped
// with the binary and optionally overridden from a directory.
package prompt

// PromptTemplate is one reusable prompt with its metadata.
type PromptTemplate struct {
	ID             string           `json:"id"`                   // e.g. "narrative.sales"
	Name           string           `json:"name"`                 // Human-readable name
	Category       string           `json:"category"`             // narrative, reminder
	Description    string           `json:"description"`          // What the prompt is for
	SystemPrompt   string           `json:"system_prompt"`        // System instruction
	UserPromptTmpl string           `json:"user_prompt_template"` // text/template source
	Variables      []PromptVariable `json:"variables"`            // Documented template fields
	Version        string           `json:"version"`
}

// PromptVariable documents one field the user template reads.
type PromptVariable struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Payload is what goes to the generative service.
type Payload struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// IDs of the built-in prompts.
const (
	SalesNarrativeID = "narrative.sales"
	StockNarrativeID = "narrative.stock"
	UploadReminderID = "reminder.upload"
)
