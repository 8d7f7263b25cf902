package chain

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// Generator produces the assistant reply for a rendered prompt. It is called
// once per question; implementations must not retry internally.
type Generator interface {
	Generate(ctx context.Context, messages []*schema.Message) (*schema.Message, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, messages []*schema.Message) (*schema.Message, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, messages []*schema.Message) (*schema.Message, error) {
	return f(ctx, messages)
}

// runnableGenerator runs generation through a compiled Eino graph so globally
// registered callbacks (Langfuse tracing) observe every call.
type runnableGenerator struct {
	runnable compose.Runnable[[]*schema.Message, *schema.Message]
}

// CompileGenerator wraps m in a single-node Eino chain and compiles it.
func CompileGenerator(ctx context.Context, m model.BaseChatModel) (Generator, error) {
	if m == nil {
		return nil, fmt.Errorf("chain: chat model must not be nil")
	}
	r, err := compose.NewChain[[]*schema.Message, *schema.Message]().
		AppendChatModel(m).
		Compile(ctx, compose.WithGraphName("resumeai_answer"))
	if err != nil {
		return nil, fmt.Errorf("chain: compile generator: %w", err)
	}
	return &runnableGenerator{runnable: r}, nil
}

// Generate invokes the compiled chain.
func (g *runnableGenerator) Generate(ctx context.Context, messages []*schema.Message) (*schema.Message, error) {
	return g.runnable.Invoke(ctx, messages)
}
