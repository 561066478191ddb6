package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/germanamz/companion/pkg/modeladapter"
	"github.com/germanamz/companion/pkg/modeladapter/usage"
)

// LivePath is the BidiGenerateContent WebSocket endpoint, relative to the base URL.
const LivePath = "/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

// liveReadLimit caps a single server frame. The library default (32 KiB) is
// too small for long model turns.
const liveReadLimit = 4 << 20

var _ modeladapter.Generator = (*Live)(nil)

// Live implements modeladapter.Generator over the Live API. Each call opens
// its own session, sends one turn and closes the session once the model
// reports turnComplete, so nothing is carried between calls.
type Live struct {
	modeladapter.ModelAdapter
}

// NewLive creates a Live adapter. Arguments follow [New].
func NewLive(baseURL, apiKey, model string) (*Live, error) {
	l := &Live{}
	if err := configure(&l.ModelAdapter, baseURL, apiKey, model); err != nil {
		return nil, err
	}

	return l, nil
}

// --- wire types ---

type liveClientMessage struct {
	Setup         *liveSetup         `json:"setup,omitempty"`
	ClientContent *liveClientContent `json:"clientContent,omitempty"`
}

type liveSetup struct {
	Model            string            `json:"model"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type liveClientContent struct {
	Turns        []apiContent `json:"turns"`
	TurnComplete bool         `json:"turnComplete"`
}

type liveServerMessage struct {
	SetupComplete *struct{}          `json:"setupComplete,omitempty"`
	ServerContent *liveServerContent `json:"serverContent,omitempty"`
	UsageMetadata *liveUsageMeta     `json:"usageMetadata,omitempty"`
	GoAway        *liveGoAway        `json:"goAway,omitempty"`
}

type liveServerContent struct {
	ModelTurn    *apiContent `json:"modelTurn,omitempty"`
	TurnComplete bool        `json:"turnComplete"`
	Interrupted  bool        `json:"interrupted"`
}

type liveUsageMeta struct {
	PromptTokenCount   int `json:"promptTokenCount"`
	ResponseTokenCount int `json:"responseTokenCount"`
}

type liveGoAway struct {
	TimeLeft string `json:"timeLeft"`
}

// Generate runs a single-turn Live session and returns the model's text.
func (l *Live) Generate(ctx context.Context, prompt string) (string, error) {
	conn, err := l.DialWS(ctx, LivePath)
	if err != nil {
		return "", fmt.Errorf("gemini live: %w", err)
	}
	defer func() { _ = conn.CloseNow() }()

	conn.SetReadLimit(liveReadLimit)

	text, err := l.exchange(ctx, conn, prompt)
	if err != nil {
		return "", fmt.Errorf("gemini live: %w", err)
	}

	_ = conn.Close(websocket.StatusNormalClosure, "")

	return text, nil
}

func (l *Live) exchange(ctx context.Context, conn *websocket.Conn, prompt string) (string, error) {
	gc := buildGenerationConfig(l.Temperature, l.MaxTokens)
	if gc == nil {
		gc = &generationConfig{}
	}
	gc.ResponseModalities = []string{"TEXT"}

	setup := liveClientMessage{Setup: &liveSetup{
		Model:            "models/" + l.Name,
		GenerationConfig: gc,
	}}
	if err := wsjson.Write(ctx, conn, setup); err != nil {
		return "", fmt.Errorf("send setup: %w", err)
	}

	msg, err := readServerMessage(ctx, conn)
	if err != nil {
		return "", fmt.Errorf("await setup: %w", err)
	}
	if msg.SetupComplete == nil {
		return "", errors.New("await setup: unexpected first message")
	}

	turn := liveClientMessage{ClientContent: &liveClientContent{
		Turns:        []apiContent{userContent(prompt)},
		TurnComplete: true,
	}}
	if err := wsjson.Write(ctx, conn, turn); err != nil {
		return "", fmt.Errorf("send turn: %w", err)
	}

	var sb strings.Builder
	for {
		msg, err := readServerMessage(ctx, conn)
		if err != nil {
			return "", fmt.Errorf("read turn: %w", err)
		}

		if msg.UsageMetadata != nil {
			l.Usage.Add(usage.TokenCount{
				InputTokens:  msg.UsageMetadata.PromptTokenCount,
				OutputTokens: msg.UsageMetadata.ResponseTokenCount,
			})
		}

		if msg.GoAway != nil && sb.Len() == 0 {
			return "", fmt.Errorf("server going away (time left %s)", msg.GoAway.TimeLeft)
		}

		sc := msg.ServerContent
		if sc == nil {
			continue
		}
		if sc.ModelTurn != nil {
			sb.WriteString(joinText(sc.ModelTurn.Parts))
		}
		if sc.Interrupted {
			return "", errors.New("turn interrupted")
		}
		if sc.TurnComplete {
			break
		}
	}

	if sb.Len() == 0 {
		return "", errors.New("turn completed without text")
	}

	return sb.String(), nil
}

// readServerMessage reads one frame. The Live API sends JSON in binary
// frames, so wsjson.Read (text only) cannot be used here.
func readServerMessage(ctx context.Context, conn *websocket.Conn) (liveServerMessage, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return liveServerMessage{}, err
	}

	var msg liveServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return liveServerMessage{}, fmt.Errorf("decode server message: %w", err)
	}

	return msg, nil
}
