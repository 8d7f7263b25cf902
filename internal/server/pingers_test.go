package server

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type fakeChatModel struct {
	calls int
	err   error
}

func (m *fakeChatModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage("pong", nil), nil
}

func (m *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

type fakeHealthCheck struct{ err error }

func (h fakeHealthCheck) HealthCheck(context.Context) error { return h.err }

type fakeStorePinger struct{ err error }

func (p fakeStorePinger) Ping(context.Context) error { return p.err }

func TestLLMPinger(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := &fakeChatModel{}
	if err := NewLLMPinger(m, fakeHealthCheck{}, "ollama").Ping(ctx); err != nil {
		t.Errorf("health check path: %v", err)
	}
	if m.calls != 0 {
		t.Error("health check should avoid a generate call")
	}

	if err := NewLLMPinger(m, fakeHealthCheck{err: errors.New("503")}, "ollama").Ping(ctx); err == nil {
		t.Error("expected failing health check to surface")
	}

	if err := NewLLMPinger(m, nil, "ark").Ping(ctx); err != nil || m.calls != 1 {
		t.Errorf("generate probe: err=%v calls=%d", err, m.calls)
	}
	if err := NewLLMPinger(&fakeChatModel{err: errors.New("quota")}, nil, "ark").Ping(ctx); err == nil {
		t.Error("expected generate failure")
	}
}

func TestQdrantAndHistoryPingers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	if err := NewQdrantPinger(fakeStorePinger{}).Ping(ctx); err != nil {
		t.Errorf("qdrant ok: %v", err)
	}
	if err := NewQdrantPinger(fakeStorePinger{err: errors.New("refused")}).Ping(ctx); err == nil {
		t.Error("qdrant down should fail")
	}

	h := &fakeHistory{}
	if err := NewHistoryPinger(h).Ping(ctx); err != nil {
		t.Errorf("history ok: %v", err)
	}
	h.err = errors.New("database is locked")
	if err := NewHistoryPinger(h).Ping(ctx); err == nil {
		t.Error("history failure should surface")
	}
}
