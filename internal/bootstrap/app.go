package bootstrap

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/fx"

	"github.com/PreetKumarPanchani/voice-client/internal/capture"
	"github.com/PreetKumarPanchani/voice-client/internal/connection"
	"github.com/PreetKumarPanchani/voice-client/internal/playback"
	"github.com/PreetKumarPanchani/voice-client/internal/protocol"
	"github.com/PreetKumarPanchani/voice-client/internal/session"
	"github.com/PreetKumarPanchani/voice-client/internal/tui"
)

type sendFunc func(cmd protocol.Command) bool

func (f sendFunc) Send(cmd protocol.Command) bool { return f(cmd) }

func NewCaptureContext(lc fx.Lifecycle) (capture.Context, error) {
	ctx, err := capture.NewContext()
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			ctx.Close()
			return nil
		},
	})
	return ctx, nil
}

// NewPlaybackSink builds the output device. The facade owns its shutdown
// through the playback engine.
func NewPlaybackSink() (playback.Sink, error) {
	return playback.NewSink()
}

func NewSessionFacade(cfg *Config, capCtx capture.Context, sink playback.Sink, log *slog.Logger) *session.Facade {
	player := playback.NewEngine(sink, log)

	// The manager is built inside the transport factory below, before the
	// microphone ever sends.
	var mgr *connection.Manager
	mic := capture.NewController(capCtx, sendFunc(func(cmd protocol.Command) bool {
		if mgr == nil {
			return false
		}
		return mgr.Send(cmd)
	}), capture.Config{
		SampleRate: cfg.CaptureSampleRate,
		Window:     cfg.CaptureWindow,
	}, log)

	return session.New(session.Config{EventBuffer: cfg.EventBuffer},
		func(cb connection.Callbacks) session.Transport {
			mgr = connection.NewManager(connection.Config{
				GatewayURL:  cfg.GatewayURL,
				URLStyle:    cfg.URLStyle,
				MaxAttempts: cfg.MaxAttempts,
				Backoff:     cfg.ReconnectDelay,
				Dialer:      &connection.GorillaDialer{HandshakeTimeout: cfg.HandshakeTimeout},
			}, cb, log)
			return mgr
		}, mic, player, log)
}

func StartUI(lc fx.Lifecycle, sh fx.Shutdowner, f *session.Facade, log *slog.Logger) {
	program := tea.NewProgram(tui.NewModel(f), tea.WithAltScreen())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			f.Connect()
			go func() {
				if _, err := program.Run(); err != nil {
					log.Error("ui exited", "error", err)
				}
				_ = sh.Shutdown()
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			program.Quit()
			f.Close()
			return nil
		},
	})
}

func Run() {
	fx.New(
		fx.NopLogger,
		fx.Provide(
			LoadConfig,
			NewLogger,
			NewCaptureContext,
			NewPlaybackSink,
			NewSessionFacade,
		),
		fx.Invoke(StartUI),
	).Run()
}
