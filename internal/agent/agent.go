package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/Minggyul/AI-Image-Craft/internal/chat"
	"github.com/Minggyul/AI-Image-Craft/internal/logger"
	"github.com/Minggyul/AI-Image-Craft/internal/refine"
	"github.com/Minggyul/AI-Image-Craft/internal/store"

	"github.com/qmuntal/stateless"
)

// FSM States
type FSMState stateless.State

var (
	StateReceived   FSMState = "Received"
	StateRefining   FSMState = "Refining"
	StateRendering  FSMState = "Rendering"
	StateCommitting FSMState = "Committing"
	StateCommitted  FSMState = "Committed" // Terminal: turn applied to the store
	StateFailed     FSMState = "Failed"    // Terminal: turn aborted, store untouched
)

// FSM Triggers
type FSMTrigger stateless.Trigger

var (
	TriggerTurnStarted     FSMTrigger = "TurnStarted"
	TriggerAccepted        FSMTrigger = "Accepted"
	TriggerRefined         FSMTrigger = "Refined"         // reply without a function call
	TriggerRenderRequested FSMTrigger = "RenderRequested" // reply carries a function call
	TriggerRendered        FSMTrigger = "Rendered"
	TriggerCommitted       FSMTrigger = "Committed"
	TriggerFailed          FSMTrigger = "Failed"
)

// Stage errors; handlers map these onto HTTP statuses.
var (
	ErrRefinement = errors.New("failed to generate image prompt")
	ErrRender     = errors.New("failed to generate or save image")
)

// Refiner converts a message history into the model's reply.
type Refiner interface {
	Refine(ctx context.Context, history []chat.Message) (chat.Message, error)
}

// Renderer converts a text prompt into a stored image, returning its
// reference path.
type Renderer interface {
	Render(ctx context.Context, prompt string) (string, error)
}

// Agent orchestrates one conversation turn: append the user message, refine,
// optionally render, and commit the whole updated list in a single store
// write. The store never observes a half-finished turn.
type Agent struct {
	store    store.Store
	refiner  Refiner
	renderer Renderer
}

// New creates an agent over the given collaborators.
func New(s store.Store, refiner Refiner, renderer Renderer) *Agent {
	return &Agent{store: s, refiner: refiner, renderer: renderer}
}

// functionResult is the serialized content of the synthetic function message
// appended after a successful render.
type functionResult struct {
	ImagePath string `json:"imagePath"`
}

// HandleTurn processes one inbound user message for the conversation and
// returns the committed conversation. On any failure the stored conversation
// is left exactly as it was before the turn.
func (a *Agent) HandleTurn(ctx context.Context, conversationID int, inbound chat.Message) (chat.Conversation, error) {
	// Turn-local pipeline data, shared by the FSM entry actions.
	type turnContext struct {
		working   []chat.Message
		reply     chat.Message
		prompt    string
		committed chat.Conversation
		lastErr   error
	}
	tc := &turnContext{}

	fsm := stateless.NewStateMachine(StateReceived)

	// State: Received
	// Action: validate the inbound message, fetch the conversation, and build
	// the working copy of the message list. No store write happens yet.
	fsm.Configure(StateReceived).
		PermitReentry(TriggerTurnStarted). // firing TurnStarted re-enters Received and runs its entry action
		OnEntry(func(ctx context.Context, _ ...any) error {
			if err := inbound.Validate(); err != nil {
				tc.lastErr = err
				return fsm.FireCtx(ctx, TriggerFailed)
			}
			conv, err := a.store.GetConversation(conversationID)
			if err != nil {
				tc.lastErr = fmt.Errorf("conversation %d: %w", conversationID, err)
				return fsm.FireCtx(ctx, TriggerFailed)
			}
			tc.working = append(slices.Clone(conv.Messages), inbound)
			return fsm.FireCtx(ctx, TriggerAccepted)
		}).
		Permit(TriggerAccepted, StateRefining).
		Permit(TriggerFailed, StateFailed)

	// State: Refining
	// Action: ask the model for its reply and append it to the working list.
	// A reply carrying a function call moves to Rendering; otherwise the turn
	// commits with just the user and assistant messages.
	fsm.Configure(StateRefining).
		OnEntry(func(ctx context.Context, _ ...any) error {
			reply, err := a.refiner.Refine(ctx, tc.working)
			if err != nil {
				tc.lastErr = fmt.Errorf("%w: %w", ErrRefinement, err)
				return fsm.FireCtx(ctx, TriggerFailed)
			}
			tc.reply = reply
			tc.working = append(tc.working, reply)

			if reply.FunctionCall != nil {
				return fsm.FireCtx(ctx, TriggerRenderRequested)
			}
			logger.L.Debug("reply carried no function call, skipping render", "conversation", conversationID)
			return fsm.FireCtx(ctx, TriggerRefined)
		}).
		Permit(TriggerRenderRequested, StateRendering).
		Permit(TriggerRefined, StateCommitting).
		Permit(TriggerFailed, StateFailed)

	// State: Rendering
	// Action: extract the prompt from the function-call arguments, render the
	// image, record it, and append the synthetic function-result message.
	fsm.Configure(StateRendering).
		OnEntry(func(ctx context.Context, _ ...any) error {
			prompt, err := promptFromCall(tc.reply.FunctionCall)
			if err != nil {
				tc.lastErr = fmt.Errorf("%w: %w", ErrRender, err)
				return fsm.FireCtx(ctx, TriggerFailed)
			}
			tc.prompt = prompt

			imagePath, err := a.renderer.Render(ctx, prompt)
			if err != nil {
				tc.lastErr = fmt.Errorf("%w: %w", ErrRender, err)
				return fsm.FireCtx(ctx, TriggerFailed)
			}

			convID := conversationID
			if _, err := a.store.SaveGeneratedImage(prompt, imagePath, &convID); err != nil {
				tc.lastErr = fmt.Errorf("%w: %w", ErrRender, err)
				return fsm.FireCtx(ctx, TriggerFailed)
			}

			content, err := json.Marshal(functionResult{ImagePath: imagePath})
			if err != nil {
				tc.lastErr = fmt.Errorf("%w: %w", ErrRender, err)
				return fsm.FireCtx(ctx, TriggerFailed)
			}
			tc.working = append(tc.working, chat.Message{
				Role:    chat.RoleFunction,
				Name:    refine.FunctionName,
				Content: string(content),
			})
			return fsm.FireCtx(ctx, TriggerRendered)
		}).
		Permit(TriggerRendered, StateCommitting).
		Permit(TriggerFailed, StateFailed)

	// State: Committing
	// Action: the single store write of the turn.
	fsm.Configure(StateCommitting).
		OnEntry(func(ctx context.Context, _ ...any) error {
			conv, err := a.store.UpdateConversationMessages(conversationID, tc.working)
			if err != nil {
				tc.lastErr = fmt.Errorf("conversation %d: %w", conversationID, err)
				return fsm.FireCtx(ctx, TriggerFailed)
			}
			tc.committed = conv
			return fsm.FireCtx(ctx, TriggerCommitted)
		}).
		Permit(TriggerCommitted, StateCommitted).
		Permit(TriggerFailed, StateFailed)

	fsm.Configure(StateCommitted)
	fsm.Configure(StateFailed)

	// Re-entering the initial state kicks off the pipeline; every subsequent
	// transition is fired synchronously from within the entry actions.
	if err := fsm.FireCtx(ctx, TriggerTurnStarted); err != nil {
		if tc.lastErr != nil {
			return chat.Conversation{}, tc.lastErr
		}
		return chat.Conversation{}, fmt.Errorf("turn state machine error: %w", err)
	}

	state, err := fsm.State(ctx)
	if err != nil {
		return chat.Conversation{}, fmt.Errorf("turn state machine error: %w", err)
	}

	switch state {
	case StateCommitted:
		logger.L.Info("turn committed", "conversation", conversationID, "messages", len(tc.committed.Messages))
		return tc.committed, nil
	case StateFailed:
		if tc.lastErr == nil {
			tc.lastErr = errors.New("turn failed without a specific error")
		}
		logger.L.Error("turn failed", "conversation", conversationID, "error", tc.lastErr)
		return chat.Conversation{}, tc.lastErr
	default:
		return chat.Conversation{}, fmt.Errorf("turn ended in an unexpected state: %v", state)
	}
}

// promptFromCall extracts the required prompt field from the function-call
// argument payload.
func promptFromCall(call *chat.FunctionCall) (string, error) {
	var args struct {
		Prompt string `json:"prompt"`
	}
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return "", fmt.Errorf("invalid function arguments: %w", err)
	}
	if args.Prompt == "" {
		return "", errors.New("function arguments are missing the prompt field")
	}
	return args.Prompt, nil
}
