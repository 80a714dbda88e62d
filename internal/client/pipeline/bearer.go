package pipeline

import "sync"

// Bearer is the pipeline's default credential source. The session state
// writes it through SetAccessToken/ClearAccessToken; every attempt reads it
// once when building headers.
type Bearer struct {
	mu    sync.RWMutex
	token string
}

func NewBearer() *Bearer {
	return &Bearer{}
}

func (b *Bearer) SetAccessToken(token string) {
	b.mu.Lock()
	b.token = token
	b.mu.Unlock()
}

func (b *Bearer) ClearAccessToken() {
	b.SetAccessToken("")
}

// AccessToken returns the current token, or "" when none is known.
func (b *Bearer) AccessToken() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.token
}
