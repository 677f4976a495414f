// Package agent runs the task assistant: it turns one user message into
// model calls and tool executions, and keeps each user's conversation
// context between turns.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ashutoshrp06/taskmate/internal/config"
	"github.com/ashutoshrp06/taskmate/internal/conversation"
	"github.com/ashutoshrp06/taskmate/internal/llm"
	"github.com/ashutoshrp06/taskmate/internal/search"
	"github.com/ashutoshrp06/taskmate/internal/taskstore"
	"github.com/ashutoshrp06/taskmate/internal/tasktools"
	"github.com/ashutoshrp06/taskmate/internal/tools"
	"github.com/ashutoshrp06/taskmate/internal/types"
	"github.com/ashutoshrp06/taskmate/internal/validator"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// ErrEmptyMessage is returned by HandleMessage for blank input.
var ErrEmptyMessage = validator.ErrEmptyMessage

// DefaultUserID is used by the CLI when no user is given.
const DefaultUserID = "local"

// turnTimeout bounds one interactive turn.
const turnTimeout = 120 * time.Second

// Agent wires the loop to the task store, the tools and the context store.
type Agent struct {
	cfg            *config.Config
	loop           *Loop
	llm            llm.Generator
	registry       *tools.Registry
	conversations  conversation.Store
	tasks          *taskstore.Store
	index          *search.Index
	inputValidator *validator.InputValidator
	userID         string
	stopCleanup    context.CancelFunc
	logger         *zap.Logger
}

// Config holds agent configuration.
type Config struct {
	AppConfig *config.Config
	Logger    *zap.Logger
	// UserID is the user interactive and one-shot queries run as.
	UserID string

	// Generator replaces the configured LLM client.
	Generator llm.Generator
	// Conversations replaces the configured context store.
	Conversations conversation.Store
}

// New creates a new agent with all components initialized.
func New(cfg Config) (*Agent, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.AppConfig == nil {
		cfg.AppConfig = config.DefaultConfig()
	}
	if cfg.UserID == "" {
		cfg.UserID = DefaultUserID
	}
	app := cfg.AppConfig
	logger := cfg.Logger

	tasks, err := taskstore.Open(app.Store.Path, logger.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("failed to open task store: %w", err)
	}

	a := &Agent{
		cfg:            app,
		tasks:          tasks,
		inputValidator: validator.NewInputValidator(0),
		userID:         cfg.UserID,
		logger:         logger,
	}

	// A nil *search.Index must not become a non-nil interface.
	var taskIndex tasktools.TaskIndex
	if app.Qdrant.Enabled {
		if a.index = a.openIndex(); a.index != nil {
			taskIndex = a.index
		}
	}

	toolset := tasktools.New(tasks, taskIndex, logger.Named("tools"))
	a.registry = tools.NewRegistry()
	if err := toolset.Register(a.registry); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	if taskIndex != nil {
		ctx, cancel := context.WithTimeout(context.Background(), app.LLM.Timeout())
		n, err := toolset.Reindex(ctx)
		cancel()
		if err != nil {
			logger.Warn("Initial reindex failed, semantic search may be stale", zap.Error(err))
		} else {
			logger.Info("Indexed tasks", zap.Int("count", n))
		}
	}

	a.conversations = cfg.Conversations
	if a.conversations == nil {
		if a.conversations, err = openConversations(app.Conversation, logger.Named("conversation")); err != nil {
			a.Close()
			return nil, err
		}
	}
	cleanupCtx, stop := context.WithCancel(context.Background())
	a.stopCleanup = stop
	go conversation.RunCleanup(cleanupCtx, a.conversations, app.Conversation.CleanupInterval, logger)

	a.llm = cfg.Generator
	if a.llm == nil {
		if a.llm, err = llm.NewFromConfig(app.LLM, logger.Named("llm")); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.loop = NewLoop(a.llm, llm.NewPromptBuilder(app.Agent.ResponseCharBudget), logger)
	return a, nil
}

// openIndex connects the semantic index. Failure leaves find_tasks on text
// search rather than failing startup.
func (a *Agent) openIndex() *search.Index {
	app := a.cfg
	embedder := search.NewEmbeddingClient(app.Embedding.Endpoint, app.Embedding.Model, app.LLM.Timeout())
	index, err := search.NewIndex(search.IndexConfig{
		Host:       app.Qdrant.Host,
		Port:       app.Qdrant.Port,
		APIKey:     app.Qdrant.APIKey,
		UseTLS:     app.Qdrant.UseTLS,
		Collection: app.Qdrant.Collection,
		Dim:        app.Embedding.Dim,
	}, embedder, a.logger.Named("search"))
	if err != nil {
		a.logger.Warn("Semantic search disabled", zap.Error(err))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := index.EnsureCollection(ctx); err != nil {
		a.logger.Warn("Semantic search disabled", zap.Error(err))
		index.Close()
		return nil
	}
	return index
}

func openConversations(cfg config.ConversationConfig, logger *zap.Logger) (conversation.Store, error) {
	switch cfg.Backend {
	case "memory", "":
		return conversation.NewMemoryStore(cfg.TTL, logger), nil
	case "sqlite":
		s, err := conversation.NewSQLiteStore(cfg.Path, cfg.TTL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open conversation store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown conversation backend %q", cfg.Backend)
	}
}

// HandleMessage runs one turn for userID and persists the context changes
// it made. Errors are returned only for invalid input and store failures;
// model and tool failures are reported in the Result.
func (a *Agent) HandleMessage(ctx context.Context, userID, message string) (Result, error) {
	if err := a.inputValidator.Validate(message); err != nil {
		return Result{}, fmt.Errorf("invalid input: %w", err)
	}
	message = a.inputValidator.Sanitize(message)

	conv, err := a.conversations.Get(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load conversation: %w", err)
	}

	res := a.loop.Run(ctx, Request{
		Message:       message,
		Tools:         a.registry.All(),
		Context:       conv,
		MaxIterations: a.cfg.Agent.MaxIterations,
	})

	if !res.UpdatedContext.IsEmpty() {
		if _, err := a.conversations.Update(ctx, userID, res.UpdatedContext); err != nil {
			return res, fmt.Errorf("failed to save conversation: %w", err)
		}
	}
	return res, nil
}

// ProcessQueryCmd returns a Bubble Tea command that processes a query.
func (a *Agent) ProcessQueryCmd(query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
		defer cancel()

		event, err := a.ProcessQuery(ctx, query)
		if err != nil {
			return types.AgentEvent{
				State: types.StateError,
				Error: err,
			}
		}
		return *event
	}
}

// ProcessQuery processes a query synchronously (for CLI mode).
func (a *Agent) ProcessQuery(ctx context.Context, query string) (*types.AgentEvent, error) {
	res, err := a.HandleMessage(ctx, a.userID, query)
	if err != nil {
		return nil, err
	}
	return &types.AgentEvent{
		State:     types.StateResponding,
		Response:  res.Response,
		Success:   res.Success,
		ToolCalls: res.ToolCalls,
	}, nil
}

// Ping checks if the LLM is reachable.
func (a *Agent) Ping(ctx context.Context) error {
	if p, ok := a.llm.(llm.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("LLM not reachable: %w", err)
		}
		return nil
	}
	if _, err := a.llm.Generate(ctx, "Respond with OK"); err != nil {
		return fmt.Errorf("LLM not reachable: %w", err)
	}
	return nil
}

// ListTools returns available tool information.
func (a *Agent) ListTools() []types.ToolInfo {
	return tools.Info(a.registry.All())
}

// ClearHistory forgets the current user's conversation context.
func (a *Agent) ClearHistory(ctx context.Context) error {
	return a.conversations.Clear(ctx, a.userID)
}

// Close releases agent resources.
func (a *Agent) Close() error {
	if a.stopCleanup != nil {
		a.stopCleanup()
	}
	var errs []error
	if a.conversations != nil {
		errs = append(errs, a.conversations.Close())
	}
	if a.index != nil {
		errs = append(errs, a.index.Close())
	}
	if a.tasks != nil {
		errs = append(errs, a.tasks.Close())
	}
	return errors.Join(errs...)
}

// LLMInfo returns information about the configured LLM.
func (a *Agent) LLMInfo() string {
	return fmt.Sprintf("%s @ %s (%s)", a.cfg.LLM.Model, a.cfg.LLM.Endpoint, a.cfg.LLM.Provider)
}

// UserID returns the user interactive queries run as.
func (a *Agent) UserID() string {
	return a.userID
}
