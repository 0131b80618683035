// Package refine turns a conversation into a polished image-generation prompt
// by asking the language model to answer through a single forced function
// call.
package refine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Minggyul/AI-Image-Craft/internal/chat"
	"github.com/Minggyul/AI-Image-Craft/internal/config"
	"github.com/Minggyul/AI-Image-Craft/internal/llm"
	"github.com/Minggyul/AI-Image-Craft/internal/logger"

	"github.com/sashabaranov/go-openai"
)

// FunctionName is the one capability the model is allowed to invoke.
const FunctionName = "generate_image"

const systemPrompt = "You are a creative assistant that helps generate detailed image prompts in English. " +
	"Convert user descriptions into vivid, specific prompts that work well with image generation. " +
	"Focus on visual details and artistic style. Always use the generate_image function to create the final prompt. " +
	"Respond in English even if the user's input is in a different language."

// ErrEmptyResponse is returned when the model reply carries no message body.
var ErrEmptyResponse = errors.New("refine: model returned an empty response")

var functionSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"prompt": {
			"type": "string",
			"description": "The refined image generation prompt in English"
		}
	},
	"required": ["prompt"]
}`)

// Refiner sends the conversation history to the language model with a fixed
// system instruction and a mandatory generate_image function-call contract.
type Refiner struct {
	client llm.Client
	model  string
}

// New creates a Refiner using the configured model.
func New(client llm.Client, cfg config.OpenAIConfig) *Refiner {
	return &Refiner{client: client, model: cfg.Model}
}

// Refine returns the model's reply for the given history, including the
// function-call directive when present. Errors are terminal for the turn;
// nothing is retried here.
func (r *Refiner) Refine(ctx context.Context, history []chat.Message) (chat.Message, error) {
	request := openai.ChatCompletionRequest{
		Model:    r.model,
		Messages: buildMessages(history),
		Functions: []openai.FunctionDefinition{{
			Name:        FunctionName,
			Description: "Generate an image based on the refined prompt",
			Parameters:  functionSchema,
		}},
		FunctionCall: openai.FunctionCall{Name: FunctionName},
	}

	response, err := r.client.CreateChatCompletion(ctx, request)
	if err != nil {
		logger.L.Error("chat completion failed", "error", err)
		return chat.Message{}, fmt.Errorf("failed to generate image prompt: %w", err)
	}
	if len(response.Choices) == 0 {
		return chat.Message{}, ErrEmptyResponse
	}

	reply := response.Choices[0].Message
	logger.L.Debug("model reply received", "role", reply.Role, "hasFunctionCall", reply.FunctionCall != nil)

	message := chat.Message{
		Role:    chat.Role(reply.Role),
		Content: reply.Content,
	}
	if reply.FunctionCall != nil {
		message.FunctionCall = &chat.FunctionCall{
			Name:      reply.FunctionCall.Name,
			Arguments: reply.FunctionCall.Arguments,
		}
	}
	return message, nil
}

// buildMessages prepends the system instruction and maps conversation roles
// onto the provider's roles. Function-result messages are presented upstream
// as the assistant's own prior content; the model's API has no slot for our
// synthetic function results in a forced-function exchange.
func buildMessages(history []chat.Message) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    providerRole(m.Role),
			Content: m.Content,
		})
	}
	return messages
}

func providerRole(role chat.Role) string {
	switch role {
	case chat.RoleUser:
		return openai.ChatMessageRoleUser
	case chat.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	case chat.RoleSystem:
		return openai.ChatMessageRoleSystem
	case chat.RoleFunction:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
