package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	SessionID string `json:"session_id" jsonschema:"the session whose uploaded resumes are searched"`
	Question  string `json:"question" jsonschema:"the recruiter's question"`
	K         int    `json:"k,omitempty" jsonschema:"number of resume chunks to retrieve (default from server config)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
	Warning string   `json:"warning,omitempty"`
}

// ResetInput is the input schema for the reset_session tool.
type ResetInput struct {
	SessionID      string `json:"session_id" jsonschema:"the session to reset"`
	PurgeDocuments bool   `json:"purge_documents,omitempty" jsonschema:"also delete the session's indexed resumes"`
}

// ResetOutput is the output schema for the reset_session tool.
type ResetOutput struct {
	SessionID string `json:"session_id"`
	Purged    bool   `json:"purged"`
}

// HistoryInput is the input schema for the history tool.
type HistoryInput struct {
	SessionID string `json:"session_id" jsonschema:"the session to list"`
}

// TurnOutput is one conversation turn.
type TurnOutput struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HistoryOutput is the output schema for the history tool.
type HistoryOutput struct {
	Turns []TurnOutput `json:"turns"`
	Count int          `json:"count"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question about the resumes uploaded to a session",
	}, s.handleAsk)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reset_session",
		Description: "Clear a session's conversation history, optionally deleting its resumes",
	}, s.handleReset)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "history",
		Description: "List the conversation turns of a session, oldest first",
	}, s.handleHistory)
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, in AskInput) (*mcp.CallToolResult, AskOutput, error) {
	if in.Question == "" {
		return nil, AskOutput{}, fmt.Errorf("question is required")
	}
	ag, err := s.rt.Session(in.SessionID)
	if err != nil {
		return nil, AskOutput{}, err
	}
	defer func() { _ = ag.Close() }()

	res, err := ag.Ask(ctx, in.Question, in.K)
	if err != nil {
		return nil, AskOutput{}, err
	}
	out := AskOutput{Answer: res.Answer, Sources: res.Sources}
	if out.Sources == nil {
		out.Sources = []string{}
	}
	if res.PersistErr != nil {
		out.Warning = "answer was not saved to the conversation history"
	}
	return nil, out, nil
}

func (s *Server) handleReset(ctx context.Context, _ *mcp.CallToolRequest, in ResetInput) (*mcp.CallToolResult, ResetOutput, error) {
	ag, err := s.rt.Session(in.SessionID)
	if err != nil {
		return nil, ResetOutput{}, err
	}
	defer func() { _ = ag.Close() }()

	if in.PurgeDocuments {
		err = ag.ResetSessionPurge(ctx)
	} else {
		err = ag.ResetSession(ctx)
	}
	if err != nil {
		return nil, ResetOutput{}, err
	}
	return nil, ResetOutput{SessionID: in.SessionID, Purged: in.PurgeDocuments || s.rt.PurgeOnReset}, nil
}

func (s *Server) handleHistory(ctx context.Context, _ *mcp.CallToolRequest, in HistoryInput) (*mcp.CallToolResult, HistoryOutput, error) {
	if in.SessionID == "" {
		return nil, HistoryOutput{}, fmt.Errorf("session_id is required")
	}
	turns, err := s.history.History(ctx, in.SessionID)
	if err != nil {
		return nil, HistoryOutput{}, err
	}
	out := HistoryOutput{Turns: make([]TurnOutput, len(turns)), Count: len(turns)}
	for i, t := range turns {
		out.Turns[i] = TurnOutput{Role: string(t.Role), Content: t.Content}
	}
	return nil, out, nil
}
