package speech

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

// Speaker reads text aloud. Speak must return promptly once ctx is cancelled.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// SpeakerFunc adapts a function to Speaker.
type SpeakerFunc func(ctx context.Context, text string) error

// Speak calls f.
func (f SpeakerFunc) Speak(ctx context.Context, text string) error {
	return f(ctx, text)
}

// Run feeds events into speaker until ctx ends or events is closed. A new
// event interrupts the playback of the previous one.
func Run(ctx context.Context, events <-chan Event, speaker Speaker, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		wg     sync.WaitGroup
		cancel context.CancelFunc = func() {}
	)
	stop := func() {
		cancel()
		wg.Wait()
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			stop()

			var playCtx context.Context
			playCtx, cancel = context.WithCancel(ctx)
			wg.Add(1)
			go func(ev Event) {
				defer wg.Done()
				err := speaker.Speak(playCtx, ev.Text)
				switch {
				case err == nil:
				case errors.Is(playCtx.Err(), context.Canceled):
					logger.Debug("speech interrupted", zap.String("eventID", ev.ID))
				default:
					logger.Warn("speech failed", zap.String("eventID", ev.ID), zap.Error(err))
				}
			}(event)
		}
	}
}

// CommandSpeaker speaks by running an external TTS program such as
// espeak-ng or say, with the text as its last argument.
type CommandSpeaker struct {
	Command string
	Args    []string
}

// NewCommandSpeaker returns a speaker for command.
func NewCommandSpeaker(command string, args ...string) *CommandSpeaker {
	return &CommandSpeaker{Command: command, Args: args}
}

// Speak runs the command and waits for it. Cancelling ctx kills the process.
func (s *CommandSpeaker) Speak(ctx context.Context, text string) error {
	if s.Command == "" {
		return fmt.Errorf("speech command is not configured")
	}

	args := append(append([]string(nil), s.Args...), text)
	cmd := exec.CommandContext(ctx, s.Command, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("run %s: %w (output: %s)", s.Command, err, out)
	}
	return nil
}
