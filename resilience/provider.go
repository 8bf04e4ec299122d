package resilience

import (
	"context"
	"iter"

	"github.com/casualjim/omnichat/provider"
)

var _ provider.Provider = (*resilientProvider)(nil)

type resilientProvider struct {
	next     provider.Provider
	pipeline *Pipeline
}

// Wrap returns a provider whose GetChat runs through pipeline. StreamChat only
// waits for admission by the limiter.
func Wrap(p provider.Provider, pipeline *Pipeline) provider.Provider {
	return &resilientProvider{next: p, pipeline: pipeline}
}

func (r *resilientProvider) Name() string {
	return r.next.Name()
}

// Unwrap returns the wrapped provider.
func (r *resilientProvider) Unwrap() provider.Provider {
	return r.next
}

func (r *resilientProvider) GetChat(ctx context.Context, req provider.ChatRequest) (*provider.ChatResponse, error) {
	var resp *provider.ChatResponse
	err := r.pipeline.Do(ctx, r.next.Name(), func(ctx context.Context) error {
		var err error
		resp, err = r.next.GetChat(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (r *resilientProvider) StreamChat(ctx context.Context, req provider.ChatRequest) iter.Seq2[provider.ChunkResponse, error] {
	return func(yield func(provider.ChunkResponse, error) bool) {
		if err := r.pipeline.Admit(ctx, r.next.Name()); err != nil {
			yield(provider.ChunkResponse{}, err)
			return
		}
		for chunk, err := range r.next.StreamChat(ctx, req) {
			if !yield(chunk, err) {
				return
			}
		}
	}
}
