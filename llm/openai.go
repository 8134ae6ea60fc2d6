package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

const OPENAI_API_URL = "https://api.openai.com/v1"
const OPENAI_API_KEY_ENV_VAR = "OPENAI_API_KEY"

type OpenAIModel struct {
	modelID ChatModelID
	apiKey  string
}

func NewOpenAIChatModel(modelID ChatModelID, apiKey string) ChatModel {
	return &OpenAIModel{modelID: modelID, apiKey: apiKey}
}

// NewOpenAIChatModelFromEnv reads the API key from OPENAI_API_KEY.
func NewOpenAIChatModelFromEnv(modelID ChatModelID) (ChatModel, error) {
	key := os.Getenv(OPENAI_API_KEY_ENV_VAR)
	if key == "" {
		return nil, fmt.Errorf("API key not provided, set %s", OPENAI_API_KEY_ENV_VAR)
	}
	return NewOpenAIChatModel(modelID, key), nil
}

func (m *OpenAIModel) Message(ctx context.Context, messages []*Message, options *MessageOptions) (*Message, error) {
	args := m.buildArgs(messages, options)
	if response, err := apiRequest(ctx, m.apiKey, "/chat/completions", args); err != nil {
		return nil, err
	} else {
		return parseMessageResponse(response)
	}
}

func (m *OpenAIModel) ContextLength() int {
	switch m.modelID {
	case ChatModelGPT4oMini, ChatModelGPT4o:
		return 128000
	default:
		return 128000
	}
}

func (m *OpenAIModel) buildArgs(messages []*Message, options *MessageOptions) map[string]any {
	jsonMessages := []map[string]string{}
	for _, message := range messages {
		jsonMessages = append(jsonMessages, map[string]string{
			"role":    string(message.Role),
			"content": message.Content,
		})
	}
	args := map[string]any{
		"model":    m.modelID,
		"messages": jsonMessages,
	}
	if options != nil {
		if options.MaxTokens > 0 {
			args["max_tokens"] = options.MaxTokens
		}
		if len(options.StopSequences) > 0 {
			args["stop"] = options.StopSequences
		}
		if options.Temperature != 0 {
			args["temperature"] = options.Temperature
		}
	}
	return args
}

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func parseMessageResponse(response map[string]any) (*Message, error) {
	if choices, ok := response["choices"].([]any); !ok {
		return nil, &Error{Message: "invalid response, no choices"}
	} else if len(choices) != 1 {
		return nil, &Error{Message: "invalid response, expected 1 choice"}
	} else if choice, ok := choices[0].(map[string]any); !ok {
		return nil, &Error{Message: "invalid response, choice is not a map"}
	} else if message, ok := choice["message"].(map[string]any); !ok {
		return nil, &Error{Message: "invalid response, message is not a map"}
	} else if content, ok := message["content"].(string); ok {
		return &Message{
			Role:    MessageRole(message["role"].(string)),
			Content: content,
		}, nil
	}
	return nil, &Error{Message: "invalid response, no content"}
}

func apiRequest(ctx context.Context, apiKey string, endpoint string, args map[string]any) (map[string]any, error) {
	if encoded, err := json.Marshal(args); err != nil {
		return nil, err
	} else if request, err := http.NewRequestWithContext(ctx, "POST", OPENAI_API_URL+endpoint, bytes.NewBuffer(encoded)); err != nil {
		return nil, err
	} else {
		request.Header.Set("Content-Type", "application/json; charset=utf-8")
		request.Header.Set("Authorization", "Bearer "+apiKey)
		client := &http.Client{}
		response, err := client.Do(request)
		if err != nil {
			return nil, err
		} else if responseBody, err := io.ReadAll(response.Body); err != nil {
			return nil, err
		} else {
			result := map[string]any{}
			if err := json.Unmarshal(responseBody, &result); err != nil {
				return nil, err
			}
			if err, ok := result["error"].(map[string]any); ok {
				response := Error{Message: "OpenAI error"}
				if value, ok := err["code"].(string); ok {
					response.Code = value
				}
				if value, ok := err["message"].(string); ok {
					response.Message = value
				}
				return nil, &response
			}
			return result, nil
		}
	}
}
