package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	elevenLabsWSBaseURL  = "wss://api.elevenlabs.io/v1/text-to-speech"
	providerElevenLabsWS = "elevenlabs_ws"
)

// ElevenLabsWS streams one utterance per websocket connection through the
// stream-input endpoint. It starts playing sooner than the HTTP stream for
// long replies because audio arrives in generation chunks.
type ElevenLabsWS struct {
	config  *Config
	logger  *slog.Logger
	baseURL string
	dialer  websocket.Dialer

	mu   sync.Mutex
	open map[*wsStream]struct{}
	rest *ElevenLabs
}

// NewElevenLabsWS creates a new WebSocket-based ElevenLabs TTS provider.
func NewElevenLabsWS(opts ...Option) (*ElevenLabsWS, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Synthesize and Health go over HTTP.
	h, err := NewElevenLabs(opts...)
	if err != nil {
		return nil, err
	}

	baseURL := cfg.WSBaseURL
	if baseURL == "" {
		baseURL = elevenLabsWSBaseURL
	}

	return &ElevenLabsWS{
		config:  cfg,
		logger:  cfg.Logger.With("component", "tts.elevenlabs_ws"),
		baseURL: strings.TrimRight(baseURL, "/"),
		dialer:  websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		open:    make(map[*wsStream]struct{}),
		rest:    h,
	}, nil
}

// Synthesize collects a full utterance over HTTP.
func (e *ElevenLabsWS) Synthesize(ctx context.Context, voiceID, text string) (*AudioResult, error) {
	return e.rest.Synthesize(ctx, voiceID, text)
}

// Stream dials a connection, sends the text followed by end of stream, and
// returns audio chunks as the server produces them.
func (e *ElevenLabsWS) Stream(ctx context.Context, voiceID, text string) (AudioStream, error) {
	voiceID, err := e.config.voice(voiceID)
	if err != nil {
		return nil, err
	}

	q := url.Values{
		"model_id":      {e.config.ModelID},
		"output_format": {string(e.config.OutputFormat)},
	}
	endpoint := fmt.Sprintf("%s/%s/stream-input?%s", e.baseURL, url.PathEscape(voiceID), q.Encode())

	headers := http.Header{}
	headers.Set("xi-api-key", e.config.APIKey)

	conn, resp, err := e.dialer.DialContext(ctx, endpoint, headers)
	if err != nil {
		if resp != nil {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: err.Error(), Provider: providerElevenLabsWS}
		}
		return nil, WrapError(providerElevenLabsWS, fmt.Errorf("websocket dial: %w", err))
	}

	// Begin of stream carries settings and must contain a single space.
	bos := map[string]interface{}{
		"text": " ",
		"voice_settings": map[string]interface{}{
			"stability":        e.config.VoiceSettings.Stability,
			"similarity_boost": e.config.VoiceSettings.SimilarityBoost,
		},
		"generation_config": map[string]interface{}{
			"chunk_length_schedule": []int{120, 160, 250, 290},
		},
	}
	for _, msg := range []interface{}{
		bos,
		map[string]interface{}{"text": text + " ", "try_trigger_generation": true},
		map[string]interface{}{"text": ""},
	} {
		if err := conn.WriteJSON(msg); err != nil {
			conn.Close()
			return nil, WrapError(providerElevenLabsWS, fmt.Errorf("send text: %w", err))
		}
	}

	s := &wsStream{conn: conn, format: formatFor(e.config.OutputFormat), owner: e}
	s.stop = context.AfterFunc(ctx, func() { conn.Close() })

	e.mu.Lock()
	e.open[s] = struct{}{}
	e.mu.Unlock()

	e.logger.Debug("stream opened", "voice", voiceID, "chars", len(text))
	return s, nil
}

// Health checks the API key over HTTP.
func (e *ElevenLabsWS) Health(ctx context.Context) error {
	return e.rest.Health(ctx)
}

// Close terminates any open streams.
func (e *ElevenLabsWS) Close() error {
	e.mu.Lock()
	streams := make([]*wsStream, 0, len(e.open))
	for s := range e.open {
		streams = append(streams, s)
	}
	e.mu.Unlock()

	for _, s := range streams {
		s.Close()
	}
	return e.rest.Close()
}

func (e *ElevenLabsWS) forget(s *wsStream) {
	e.mu.Lock()
	delete(e.open, s)
	e.mu.Unlock()
}

// ModelID returns the configured model ID.
func (e *ElevenLabsWS) ModelID() string {
	return e.config.ModelID
}

type wsMessage struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// wsStream reads base64 audio frames until the server marks the final one.
type wsStream struct {
	conn   *websocket.Conn
	format AudioFormat
	owner  *ElevenLabsWS
	stop   func() bool

	once sync.Once
	done bool
}

// Read returns the next audio chunk, or nil after the final frame.
func (s *wsStream) Read() ([]byte, error) {
	for !s.done {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.done = true
				return nil, nil
			}
			return nil, WrapError(providerElevenLabsWS, fmt.Errorf("read: %w", err))
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, WrapError(providerElevenLabsWS, fmt.Errorf("decode frame: %w", err))
		}
		if msg.Error != "" {
			return nil, &APIError{Message: msg.Message, Code: msg.Error, Provider: providerElevenLabsWS}
		}
		if msg.IsFinal {
			s.done = true
		}
		if msg.Audio == "" {
			continue
		}
		audio, err := base64.StdEncoding.DecodeString(msg.Audio)
		if err != nil {
			return nil, WrapError(providerElevenLabsWS, fmt.Errorf("decode audio: %w", err))
		}
		return audio, nil
	}
	return nil, nil
}

// Close ends the connection.
func (s *wsStream) Close() error {
	var err error
	s.once.Do(func() {
		s.stop()
		s.owner.forget(s)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}

// Format returns the audio format.
func (s *wsStream) Format() AudioFormat {
	return s.format
}

var _ Provider = (*ElevenLabsWS)(nil)
