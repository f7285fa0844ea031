package ai

import (
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/zhouzirui/studio-chat/backend/internal/model/chat"
)

// trimHistory turns the transcript into alternating user/model pairs and
// keeps the most recent limit turns, always starting on a user turn.
// System turns travel as the system instruction, so they are dropped together
// with any model turn that answers no user turn (the acknowledgement after a
// system prompt). A user turn without a reply, left by a failed call, is
// dropped as well.
func trimHistory(turns []chat.Turn, limit int) []chat.Turn {
	paired := make([]chat.Turn, 0, len(turns))
	var pending *chat.Turn
	for i := range turns {
		turn := turns[i]
		if turn.Content == "" {
			continue
		}
		switch turn.Role {
		case chat.RoleUser:
			pending = &turns[i]
		case chat.RoleModel:
			if pending != nil {
				paired = append(paired, *pending, turn)
				pending = nil
			}
		default:
			pending = nil
		}
	}

	if limit > 0 && len(paired) > limit {
		paired = paired[len(paired)-limit:]
	}
	if len(paired) > 0 && paired[0].Role != chat.RoleUser {
		paired = paired[1:]
	}
	return paired
}

func buildGeminiContents(turns []chat.Turn, limit int, message string) []*genai.Content {
	history := trimHistory(turns, limit)

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		role := genai.RoleModel
		if turn.Role == chat.RoleUser {
			role = genai.RoleUser
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	return append(contents, genai.NewContentFromText(message, genai.RoleUser))
}

func buildSchemaMessages(systemPrompt string, turns []chat.Turn, limit int) []*schema.Message {
	history := trimHistory(turns, limit)

	messages := make([]*schema.Message, 0, len(history)+1)
	if systemPrompt != "" {
		messages = append(messages, schema.SystemMessage(systemPrompt))
	}
	for _, turn := range history {
		switch turn.Role {
		case chat.RoleUser:
			messages = append(messages, schema.UserMessage(turn.Content))
		case chat.RoleModel:
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return messages
}
