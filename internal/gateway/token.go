package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// tokens are refreshed this long before they expire
const tokenExpiryDelta = 30 * time.Second

// tokenSource caches the client-credentials token. Reset drops the cache after
// the gateway rejects a token that has not expired yet.
type tokenSource struct {
	mu  sync.Mutex
	cfg *clientcredentials.Config
	ctx context.Context
	src oauth2.TokenSource
}

func newTokenSource(tokenURL, clientID, clientSecret string, client *http.Client) *tokenSource {
	if clientID == "" {
		return &tokenSource{}
	}
	return &tokenSource{
		cfg: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		ctx: context.WithValue(context.Background(), oauth2.HTTPClient, client),
	}
}

// Token returns nil when no client credentials are configured.
func (t *tokenSource) Token() (*oauth2.Token, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cfg == nil {
		return nil, nil
	}
	if t.src == nil {
		t.src = oauth2.ReuseTokenSourceWithExpiry(nil, t.cfg.TokenSource(t.ctx), tokenExpiryDelta)
	}
	return t.src.Token()
}

func (t *tokenSource) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.src = nil
}
