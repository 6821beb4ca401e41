package stages

import (
	"encoding/json"
	"os"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rajinisivaram/reactor-core/core"
	"github.com/rajinisivaram/reactor-core/protocol"
)

const defaultSinkPrefetch = 32

// WebSocketSinkConfig holds WebSocket sink configuration
type WebSocketSinkConfig struct {
	Conn     *websocket.Conn
	StreamID string
	Prefetch int // request window; 0 uses the default
	Logger   *zerolog.Logger
}

// WebSocketSink subscribes to a stream and sends each signal to a
// WebSocket connection as a JSON envelope. It requests a bounded window
// up front and tops it up as values are written, so a slow peer
// backpressures the stream instead of buffering without limit.
//
// When the connection fails mid-stream the sink keeps consuming without
// writing, so the upstream can finish its work and release resources.
type WebSocketSink[T any] struct {
	config   WebSocketSinkConfig
	logger   zerolog.Logger
	prefetch int64

	sub      core.Subscription
	consumed int64
	broken   bool

	terminated atomic.Bool
	done       chan struct{}
}

// NewWebSocketSink creates a new WebSocket sink stage
func NewWebSocketSink[T any](config WebSocketSinkConfig) *WebSocketSink[T] {
	prefetch := config.Prefetch
	if prefetch <= 0 {
		prefetch = defaultSinkPrefetch
	}
	var logger zerolog.Logger
	if config.Logger != nil {
		logger = *config.Logger
	} else {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return &WebSocketSink[T]{
		config:   config,
		logger:   logger.With().Str("stage", "websocket_sink").Str("stream_id", config.StreamID).Logger(),
		prefetch: int64(prefetch),
		done:     make(chan struct{}),
	}
}

// Done is closed once the stream has terminated and the terminal envelope
// has been written.
func (ws *WebSocketSink[T]) Done() <-chan struct{} { return ws.done }

func (ws *WebSocketSink[T]) OnSubscribe(s core.Subscription) {
	if ws.sub != nil {
		s.Cancel()
		ws.logger.Warn().Msg("duplicate subscription attempt")
		return
	}
	ws.sub = s
	ws.logger.Info().Int64("prefetch", ws.prefetch).Msg("sink attached")
	s.Request(ws.prefetch)
}

func (ws *WebSocketSink[T]) OnNext(v T) {
	if !ws.broken {
		ws.write(protocol.NewValueMessage(ws.config.StreamID, v))
	}
	ws.consumed++
	// Top up once half the window has been consumed.
	if ws.consumed >= ws.prefetch-(ws.prefetch>>1) {
		n := ws.consumed
		ws.consumed = 0
		ws.sub.Request(n)
	}
}

func (ws *WebSocketSink[T]) OnError(err error) {
	if ws.terminated.Swap(true) {
		return
	}
	ws.logger.Warn().Err(err).Msg("stream failed")
	if !ws.broken {
		ws.write(protocol.NewErrorMessage(ws.config.StreamID, err))
	}
	close(ws.done)
}

func (ws *WebSocketSink[T]) OnComplete() {
	if ws.terminated.Swap(true) {
		return
	}
	ws.logger.Info().Msg("stream complete")
	if !ws.broken {
		ws.write(protocol.NewCompleteMessage(ws.config.StreamID))
	}
	close(ws.done)
}

func (ws *WebSocketSink[T]) write(env protocol.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		ws.logger.Error().Err(err).Str("type", string(env.Type)).Msg("failed to marshal envelope")
		return
	}
	if err := ws.config.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
		ws.logger.Error().Err(err).Str("type", string(env.Type)).Msg("failed to send envelope")
		// Connection closed or failed - keep draining without writing so
		// the stream can finish.
		ws.broken = true
		return
	}
	ws.logger.Debug().Str("type", string(env.Type)).Msg("sent envelope")
}
