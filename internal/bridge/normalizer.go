package bridge

import (
	"log/slog"

	"github.com/af-corp/reqbridge/internal/engine"
	"github.com/af-corp/reqbridge/internal/types"
)

// Normalizer folds engine responses into the host response shape.
type Normalizer struct {
	env Env
}

// NewNormalizer returns a normalizer that looks up status text in env.
func NewNormalizer(env Env) *Normalizer {
	return &Normalizer{env: env}
}

// Normalize builds the host response for resp. args must be the arguments
// the call actually ran with.
func (n *Normalizer) Normalize(resp *engine.Response, args types.RequestArgs) *types.Response {
	if !args.Blocking || resp == nil {
		return types.EmptyResponse()
	}

	out := &types.Response{
		Headers: make(map[string]types.HeaderValue),
		Body:    string(resp.Body),
		Status: types.Status{
			Code:    resp.StatusCode,
			Message: n.env.StatusText(resp.StatusCode),
		},
		Cookies:  []*types.Cookie{},
		Filename: resp.Filename,
	}

	if resp.Headers != nil {
		for _, key := range resp.Headers.Keys() {
			out.Headers[key] = types.NewHeaderValue(resp.Headers.Values(key)...)
		}
		for _, line := range resp.Headers.Values("set-cookie") {
			c, err := types.ParseSetCookie(line)
			if err != nil {
				slog.Debug("skipping malformed cookie", "url", resp.URL, "error", err)
				continue
			}
			out.Cookies = append(out.Cookies, c)
		}
	}

	if limit := args.LimitResponseSize; limit != nil && *limit >= 0 && int64(len(out.Body)) > *limit {
		out.Body = out.Body[:*limit]
	}
	return out
}
