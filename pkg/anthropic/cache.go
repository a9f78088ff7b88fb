package anthropic

import (
	"context"

	"github.com/rotisserie/eris"
)

// primerCacheTTL keeps the cached system prompt alive long enough for a full
// batch run over the client portfolio.
const primerCacheTTL = "1h"

// BuildCachedSystemBlocks wraps the extraction instructions in a system block
// with a cache breakpoint. The instructions are identical for every client,
// so one warm request makes the rest of the run hit the prompt cache.
func BuildCachedSystemBlocks(text string) []SystemBlock {
	return []SystemBlock{
		{
			Text: text,
			CacheControl: &CacheControl{
				TTL: primerCacheTTL,
			},
		},
	}
}

// PrimerRequest sends one synchronous message to warm the prompt cache before
// a batch is submitted. The request must carry system blocks built with
// BuildCachedSystemBlocks; the response is a normal extraction response and
// is worth keeping.
func PrimerRequest(ctx context.Context, client Client, req MessageRequest) (*MessageResponse, error) {
	resp, err := client.CreateMessage(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: primer request")
	}
	return resp, nil
}
