package chat

import (
	"context"
	"sync"
	"sync/atomic"

	"google.golang.org/genai"

	"github.com/zhouzirui/studio-chat/backend/internal/service/ai"
)

type fakeClient struct {
	mu       sync.Mutex
	reply    string
	err      error
	panicMsg string
	requests []ai.ChatRequest

	imageResp *genai.GenerateContentResponse
	imageErr  error
	prompts   []string

	started chan struct{}
	release chan struct{}

	inFlight    int32
	maxInFlight int32
}

func (f *fakeClient) Reply(ctx context.Context, req ai.ChatRequest) (string, error) {
	current := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&f.maxInFlight)
		if current <= peak || atomic.CompareAndSwapInt32(&f.maxInFlight, peak, current) {
			break
		}
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	reply, err, panicMsg := f.reply, f.err, f.panicMsg
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if panicMsg != "" {
		panic(panicMsg)
	}
	return reply, err
}

func (f *fakeClient) GenerateImage(_ context.Context, prompt string) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.imageResp, f.imageErr
}

func (f *fakeClient) chatRequests() []ai.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ai.ChatRequest(nil), f.requests...)
}

// fakeFactory returns client for every key and counts calls.
type fakeFactory struct {
	client *fakeClient
	err    error
	calls  int32
	keys   []string
	mu     sync.Mutex
}

func (f *fakeFactory) build(_ context.Context, apiKey string) (ai.Client, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.keys = append(f.keys, apiKey)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}
