package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	chatModel "github.com/zhouzirui/studio-chat/backend/internal/model/chat"
	"github.com/zhouzirui/studio-chat/backend/internal/service/chat"
)

// repl drives one conversation from line-based input and prints the
// transcript as it grows.
type repl struct {
	conv          *chat.Conversation
	apiKey        string
	systemPrompt  string
	autoSpeak     bool
	speechEnabled bool
	out           io.Writer

	printed int
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := r.conv.Initialize(ctx, r.apiKey, r.systemPrompt); err != nil {
		r.printError(err)
		return err
	}
	r.printTranscript()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(r.out, "> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.out)
				return nil
			}
			line = strings.TrimSpace(l)
		}

		if quit := r.handle(ctx, line); quit {
			return nil
		}
	}
}

// handle executes one input line and reports whether the session should end.
func (r *repl) handle(ctx context.Context, line string) bool {
	command, arg := line, ""
	if i := strings.IndexByte(line, ' '); i >= 0 {
		command, arg = line[:i], strings.TrimSpace(line[i+1:])
	}

	switch command {
	case "":
	case "/quit", "/exit":
		return true
	case "/reset":
		if err := r.conv.Initialize(ctx, r.apiKey, r.systemPrompt); err != nil {
			r.printError(err)
			return false
		}
		r.printed = 0
		fmt.Fprintln(r.out, "-- new session --")
		r.printTranscript()
	case "/image":
		if arg == "" {
			fmt.Fprintln(r.out, "usage: /image <prompt>")
			return false
		}
		if err := r.conv.GenerateImage(ctx, arg); err != nil {
			r.printError(err)
			return false
		}
		if img := r.conv.State().Image; img != nil {
			fmt.Fprintf(r.out, "Image: %dx%d %s, %d bytes\n", img.Width, img.Height, img.Format, img.Size)
		}
	case "/speak":
		if !r.speechEnabled {
			fmt.Fprintln(r.out, "speech disabled: set SPEECH_COMMAND")
			return false
		}
		r.conv.Speak(arg)
	default:
		err := r.conv.SendMessage(ctx, line)
		r.printTranscript()
		if err != nil {
			r.printError(err)
			return false
		}
		if r.autoSpeak {
			if last, ok := r.lastReply(); ok {
				r.conv.Speak(last)
			}
		}
	}
	return false
}

// printTranscript prints the turns added since the last call.
func (r *repl) printTranscript() {
	messages := r.conv.State().Messages
	if r.printed > len(messages) {
		r.printed = 0
	}
	for _, turn := range messages[r.printed:] {
		// 用户输入已经显示在终端上
		if turn.IsUser {
			continue
		}
		fmt.Fprintf(r.out, "%s%s\n", prefix(turn), turn.Content)
	}
	r.printed = len(messages)
}

func (r *repl) lastReply() (string, bool) {
	messages := r.conv.State().Messages
	if len(messages) == 0 {
		return "", false
	}
	last := messages[len(messages)-1]
	if last.Role != chatModel.RoleModel {
		return "", false
	}
	return last.Content, true
}

func (r *repl) printError(err error) {
	message := r.conv.State().LastError
	if message == "" {
		message = err.Error()
	}
	fmt.Fprintln(r.out, message)
}

func prefix(turn chatModel.Turn) string {
	switch turn.Role {
	case chatModel.RoleUser:
		return "User: "
	case chatModel.RoleSystem:
		return "System: "
	default:
		return "AI: "
	}
}
