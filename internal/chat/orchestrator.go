package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/yakoovad/babylog/internal/model"
	"github.com/yakoovad/babylog/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// FallbackMessage is sent instead of an answer when the upstream model fails.
const FallbackMessage = "죄송합니다. 지금은 답변을 드리기 어려워요. 잠시 후 다시 시도해 주세요."

const systemPrompt = `당신은 부모의 육아를 돕는 상담사입니다. 질문과 같은 언어로 따뜻하고 간결하게 답하세요.
아기 정보: 이름 %s, 생후 %d개월 %d일, 성별 %s.
현재 시각: %s.
아기의 기록이 필요한 질문에는 제공된 함수로 실제 기록을 확인한 뒤 답하고, 기록에 없는 내용은 추측하지 마세요.
39도 이상의 고열이 계속되거나 호흡 곤란, 경련, 탈수 증상이 있으면 즉시 병원 진료를 권하세요.`

var errEmptyReply = errors.New("model returned an empty reply")

// Store persists the conversation and per-answer metrics.
type Store interface {
	// RecentMessages returns at most limit messages, oldest first.
	RecentMessages(ctx context.Context, babyID, userID string, limit int) ([]*model.ChatMessage, error)
	SaveMessage(ctx context.Context, msg *model.ChatMessage) error
	SaveMetrics(ctx context.Context, m *model.ChatMetrics) error
}

type Options struct {
	SimpleModel   string
	ComplexModel  string
	MaxToolSteps  int
	SummarizeOver int
	Backoff       Backoff
	Location      *time.Location
}

type Request struct {
	UserID  string
	Baby    *model.Baby
	Message string
}

type Result struct {
	Reply      string
	Complexity Complexity
	History    HistoryDecision
	Model      string
	ToolCalls  int
	Fallback   bool
}

// EmitError wraps a failure to deliver a chunk to the client.
type EmitError struct {
	Err error
}

func (e *EmitError) Error() string {
	return "failed to emit chunk: " + e.Err.Error()
}

// interruptedError marks a stream that failed after chunks were emitted. It has no
// Unwrap so the backoff never replays a partially delivered stream.
type interruptedError struct {
	err error
}

func (e *interruptedError) Error() string {
	return "stream interrupted: " + e.err.Error()
}

type Orchestrator struct {
	model      Model
	store      Store
	tools      *toolbox
	summarizer *Summarizer
	opts       Options
	now        func() time.Time
}

func NewOrchestrator(m Model, store Store, data DataSource, opts Options) *Orchestrator {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Orchestrator{
		model:      m,
		store:      store,
		tools:      &toolbox{data: data, loc: opts.Location},
		summarizer: NewSummarizer(m, opts.SimpleModel, opts.Backoff),
		opts:       opts,
		now:        time.Now,
	}
}

// Answer classifies the message, generates a reply and streams it through emit.
// Upstream failures are answered with FallbackMessage; the returned error is
// non-nil only when the reply could not be delivered or the user message not saved.
func (o *Orchestrator) Answer(ctx context.Context, req Request, emit func(chunk string) error) (*Result, error) {
	start := o.now()
	log := logger.FromContext(ctx).With(zap.String("baby_id", req.Baby.ID))

	res := &Result{
		Complexity: ClassifyComplexity(req.Message),
		History:    SelectHistoryTier(req.Message),
	}
	log.Info("answering chat message",
		zap.String("complexity", string(res.Complexity)),
		zap.Int("history_tier", res.History.Tier),
		zap.Int("history_turns", res.History.Count),
		zap.String("history_reason", res.History.Reason),
	)

	history, err := o.loadHistory(ctx, req, res.History.Count)
	if err != nil {
		log.Warn("failed to load chat history, answering without it", zap.Error(err))
		history = nil
	}

	err = o.store.SaveMessage(ctx, &model.ChatMessage{
		ID:      uuid.NewString(),
		BabyID:  req.Baby.ID,
		UserID:  req.UserID,
		Role:    model.ChatRoleUser,
		Content: req.Message,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to save user message")
	}

	contents := append(history, genai.NewContentFromText(req.Message, genai.RoleUser))
	system := o.systemInstruction(req.Baby)

	var u usage
	var genErr error
	if res.Complexity == Simple {
		res.Model = o.opts.SimpleModel
		res.Reply, genErr = o.streamSimple(ctx, contents, system, &u, emit)
	} else {
		res.Model = o.opts.ComplexModel
		res.Reply, res.ToolCalls, genErr = o.runTools(ctx, req.Baby.ID, contents, system, &u)
		if genErr == nil {
			if err := emit(res.Reply); err != nil {
				genErr = &EmitError{Err: err}
			}
		}
	}

	var emitErr *EmitError
	if errors.As(genErr, &emitErr) {
		return nil, emitErr
	}
	if genErr != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if genErr != nil {
		log.Error("failed to generate chat reply", zap.Error(genErr), zap.String("model", res.Model))
		res.Fallback = true

		fallback := FallbackMessage
		if res.Reply != "" {
			fallback = "\n\n" + FallbackMessage
		}
		if err := emit(fallback); err != nil {
			return nil, &EmitError{Err: err}
		}
		res.Reply += fallback
	}

	err = o.store.SaveMessage(ctx, &model.ChatMessage{
		ID:      uuid.NewString(),
		BabyID:  req.Baby.ID,
		UserID:  req.UserID,
		Role:    model.ChatRoleAssistant,
		Content: res.Reply,
	})
	if err != nil {
		log.Error("failed to save assistant message", zap.Error(err))
	}

	o.recordMetrics(ctx, req, res, u, o.now().Sub(start))
	return res, nil
}

func (o *Orchestrator) recordMetrics(ctx context.Context, req Request, res *Result, u usage, latency time.Duration) {
	err := o.store.SaveMetrics(ctx, &model.ChatMetrics{
		ID:               uuid.NewString(),
		UserID:           req.UserID,
		BabyID:           req.Baby.ID,
		Complexity:       string(res.Complexity),
		HistoryTier:      res.History.Tier,
		HistoryCount:     res.History.Count,
		Model:            res.Model,
		PromptTokens:     u.prompt,
		CompletionTokens: u.completion,
		ToolCalls:        res.ToolCalls,
		Latency:          latency,
		Fallback:         res.Fallback,
	})
	if err != nil {
		logger.FromContext(ctx).Warn("failed to record chat metrics", zap.Error(err))
	}
}

// loadHistory fetches the last turns exchanges. One turn is a user message and its reply.
func (o *Orchestrator) loadHistory(ctx context.Context, req Request, turns int) ([]*genai.Content, error) {
	if turns <= 0 {
		return nil, nil
	}

	msgs, err := o.store.RecentMessages(ctx, req.Baby.ID, req.UserID, turns*2)
	if err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, 0, len(msgs)+1)
	for _, m := range msgs {
		if m.Role == model.ChatRoleAssistant {
			contents = append(contents, genai.NewContentFromText(o.condense(ctx, m.Content), genai.RoleModel))
			continue
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
	}
	return contents, nil
}

func (o *Orchestrator) condense(ctx context.Context, reply string) string {
	limit := o.opts.SummarizeOver
	if limit <= 0 || utf8.RuneCountInString(reply) <= limit {
		return reply
	}
	if s := o.summarizer.Summarize(ctx, reply); s != "" {
		return s
	}
	return truncate(reply, limit)
}

func (o *Orchestrator) systemInstruction(baby *model.Baby) *genai.Content {
	now := o.now().In(o.opts.Location)
	months, days := baby.Age(now)

	gender := "미상"
	switch baby.Gender {
	case model.GenderBoy:
		gender = "남아"
	case model.GenderGirl:
		gender = "여아"
	}

	text := fmt.Sprintf(systemPrompt, baby.Name, months, days, gender, now.Format("2006-01-02 15:04 Mon"))
	return genai.NewContentFromText(text, genai.RoleUser)
}

func (o *Orchestrator) streamSimple(ctx context.Context, contents []*genai.Content, system *genai.Content, u *usage, emit func(string) error) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       genai.Ptr[float32](0.7),
	}

	var sb strings.Builder
	err := o.opts.Backoff.Do(ctx, func() error {
		var last *genai.GenerateContentResponse
		defer func() { u.add(last) }()

		for resp, err := range o.model.Stream(ctx, o.opts.SimpleModel, contents, cfg) {
			if err != nil {
				if sb.Len() > 0 {
					return &interruptedError{err: err}
				}
				return err
			}
			last = resp

			chunk := resp.Text()
			if chunk == "" {
				continue
			}
			if err := emit(chunk); err != nil {
				return &EmitError{Err: err}
			}
			sb.WriteString(chunk)
		}
		return nil
	})
	if err != nil {
		return sb.String(), err
	}
	if sb.Len() == 0 {
		return "", errEmptyReply
	}
	return sb.String(), nil
}

func (o *Orchestrator) runTools(ctx context.Context, babyID string, contents []*genai.Content, system *genai.Content, u *usage) (string, int, error) {
	log := logger.FromContext(ctx)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       genai.Ptr[float32](0.4),
		Tools:             toolDeclarations,
	}

	calls := 0
	for step := 0; step < o.opts.MaxToolSteps; step++ {
		resp, err := o.generate(ctx, contents, cfg)
		if err != nil {
			return "", calls, err
		}
		u.add(resp)

		fcs := resp.FunctionCalls()
		if len(fcs) == 0 {
			text, err := replyText(resp)
			return text, calls, err
		}

		contents = append(contents, resp.Candidates[0].Content)
		parts := make([]*genai.Part, 0, len(fcs))
		for _, fc := range fcs {
			log.Debug("executing chat tool", zap.String("tool", fc.Name), zap.Any("args", fc.Args))
			part := genai.NewPartFromFunctionResponse(fc.Name, o.tools.execute(ctx, babyID, fc))
			part.FunctionResponse.ID = fc.ID
			parts = append(parts, part)
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
		calls += len(fcs)
	}

	// Tool budget spent: force a text answer from what has been gathered.
	final := &genai.GenerateContentConfig{
		SystemInstruction: cfg.SystemInstruction,
		Temperature:       cfg.Temperature,
	}
	resp, err := o.generate(ctx, contents, final)
	if err != nil {
		return "", calls, err
	}
	u.add(resp)

	text, err := replyText(resp)
	return text, calls, err
}

func (o *Orchestrator) generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	err := o.opts.Backoff.Do(ctx, func() error {
		var err error
		resp, err = o.model.Generate(ctx, o.opts.ComplexModel, contents, cfg)
		return err
	})
	return resp, err
}

func replyText(resp *genai.GenerateContentResponse) (string, error) {
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errEmptyReply
	}
	return text, nil
}
