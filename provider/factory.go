package provider

import (
	"fmt"
	"sync"

	"golang.org/x/oauth2/endpoints"
)

// Preset binds the endpoint triple and default scopes for a named provider.
type Preset struct {
	AuthURL     string
	TokenURL    string
	UserInfoURL string
	Scopes      []string
}

// Built-in presets resolvable by name.
var presets = map[string]Preset{
	"google": {
		AuthURL:     endpoints.Google.AuthURL,
		TokenURL:    endpoints.Google.TokenURL,
		UserInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
		Scopes:      []string{"openid", "email", "profile"},
	},
	"github": {
		AuthURL:     endpoints.GitHub.AuthURL,
		TokenURL:    endpoints.GitHub.TokenURL,
		UserInfoURL: "https://api.github.com/user",
		Scopes:      []string{"read:user", "user:email"},
	},
	"microsoft": {
		AuthURL:     endpoints.Microsoft.AuthURL,
		TokenURL:    endpoints.Microsoft.TokenURL,
		UserInfoURL: "https://graph.microsoft.com/v1.0/me",
		Scopes:      []string{"openid", "email", "profile", "User.Read"},
	},
}

// LookupPreset returns the named preset, reporting whether it exists.
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// OAuthCredentials is the per-deployment half of an OAuth provider: the
// preset supplies the endpoints, these supply the registration.
type OAuthCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Scopes overrides the preset default when non-empty.
	Scopes []string
}

// Factory resolves named providers. Register wires strategies in; Resolve
// hands them out. Safe for concurrent use.
type Factory struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewFactory describes the newfactory operation and its observable behavior.
func NewFactory() *Factory {
	return &Factory{providers: map[string]Provider{}}
}

// Register adds a strategy under its own name, replacing any previous
// registration.
func (f *Factory) Register(p Provider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.providers[p.Name()] = p
}

// RegisterOAuth builds an [OAuth] strategy from a built-in preset and
// registers it. Unknown preset names fail.
func (f *Factory) RegisterOAuth(name string, creds OAuthCredentials, users UserRepository) (*OAuth, error) {
	preset, ok := LookupPreset(name)
	if !ok {
		return nil, fmt.Errorf("provider: no preset for %q", name)
	}
	scopes := creds.Scopes
	if len(scopes) == 0 {
		scopes = preset.Scopes
	}
	p, err := NewOAuth(OAuthConfig{
		Name:         name,
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		AuthURL:      preset.AuthURL,
		TokenURL:     preset.TokenURL,
		UserInfoURL:  preset.UserInfoURL,
		RedirectURL:  creds.RedirectURL,
		Scopes:       scopes,
		Users:        users,
	})
	if err != nil {
		return nil, err
	}
	f.Register(p)
	return p, nil
}

// Resolve returns the strategy registered under name.
//
// Resolve may return an error when input validation, dependency calls, or
// security checks fail.
func (f *Factory) Resolve(name string) (Provider, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider: unknown provider %q", name)
	}
	return p, nil
}

// Names lists the registered strategy names in no particular order.
func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.providers))
	for name := range f.providers {
		names = append(names, name)
	}
	return names
}
