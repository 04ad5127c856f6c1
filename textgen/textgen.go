package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRequest marks a request with no usable message.
	ErrInvalidRequest = errors.New("textgen: invalid request")
	// ErrUpstream wraps every failure of the generation backend.
	ErrUpstream = errors.New("textgen: upstream failure")
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type Request struct {
	Messages []Message `json:"messages"`
	System   string    `json:"system,omitempty"`
}

type Response struct {
	Reply string `json:"reply"`
}

// Completer produces one reply for a conversation.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Normalize trims messages, drops empty ones and maps role aliases. It fails
// when nothing is left to answer.
func Normalize(req Request) (Request, error) {
	out := Request{System: strings.TrimSpace(req.System)}
	for i, m := range req.Messages {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		role, err := normalizeRole(m.Role)
		if err != nil {
			return Request{}, fmt.Errorf("%w: message %d: %v", ErrInvalidRequest, i, err)
		}
		out.Messages = append(out.Messages, Message{Role: role, Text: text})
	}
	if len(out.Messages) == 0 {
		return Request{}, fmt.Errorf("%w: no messages", ErrInvalidRequest)
	}
	if out.Messages[len(out.Messages)-1].Role != RoleUser {
		return Request{}, fmt.Errorf("%w: last message must come from the user", ErrInvalidRequest)
	}
	return out, nil
}

func normalizeRole(role string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "", "user":
		return RoleUser, nil
	case "model", "assistant", "bot":
		return RoleModel, nil
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}
}

// Echo answers with the last user message. It needs no network and is used
// in development and tests.
type Echo struct {
	Prefix string
}

func (e Echo) Complete(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	req, err := Normalize(req)
	if err != nil {
		return Response{}, err
	}
	return Response{Reply: e.Prefix + req.Messages[len(req.Messages)-1].Text}, nil
}
