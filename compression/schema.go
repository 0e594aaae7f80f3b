package compression

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Summary is the default structured summary
type Summary struct {
	TaskOverview         string `json:"task_overview" jsonschema:"The user's core request and success criteria. Be concise."`
	CurrentState         string `json:"current_state" jsonschema:"What has been completed so far: files created or modified, outputs produced."`
	ImportantDiscoveries string `json:"important_discoveries" jsonschema:"Technical constraints, decisions and the reasons for them, errors encountered and how they were resolved, approaches that did not work."`
	NextSteps            string `json:"next_steps" jsonschema:"Specific actions needed to complete the task, blockers, and their priority order."`
	ContextToPreserve    string `json:"context_to_preserve" jsonschema:"User preferences, domain details, and promises made to the user."`
}

var summaryMaxLength = map[string]int{
	"task_overview":         300,
	"current_state":         300,
	"important_discoveries": 300,
	"next_steps":            200,
	"context_to_preserve":   300,
}

// SummarySchema returns the JSON schema of Summary with its length limits
func SummarySchema() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[Summary](nil)
	if err != nil {
		return nil, fmt.Errorf("summary schema: %w", err)
	}
	for name, limit := range summaryMaxLength {
		if prop, ok := schema.Properties[name]; ok {
			prop.MaxLength = &limit
		}
	}
	return schema, nil
}
