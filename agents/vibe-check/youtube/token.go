package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const readonlyScope = "https://www.googleapis.com/auth/youtube.readonly"

// tokenSaver wraps an oauth2 config so that refreshed tokens are written
// back to tokenFile and survive restarts.
type tokenSaver struct {
	config    *oauth2.Config
	token     *oauth2.Token
	tokenFile string
	mu        sync.Mutex
}

func newTokenSaver(clientID, clientSecret, tokenFile string) (*tokenSaver, error) {
	oauthConfig := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{readonlyScope},
		Endpoint:     google.Endpoint,
	}

	token, err := getToken(tokenFile)
	if err != nil {
		return nil, err
	}

	return &tokenSaver{config: oauthConfig, token: token, tokenFile: tokenFile}, nil
}

// Token implements oauth2.TokenSource, refreshing when needed.
func (ts *tokenSaver) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	newToken, err := ts.config.TokenSource(context.Background(), ts.token).Token()
	if err != nil {
		return nil, err
	}

	if newToken.AccessToken != ts.token.AccessToken {
		slog.Info("youtube token refreshed, saving", "file", ts.tokenFile)
		ts.token = newToken
		if err := saveToken(ts.tokenFile, newToken); err != nil {
			slog.Warn("failed to save refreshed token", "error", err)
		}
	}

	return newToken, nil
}

// getToken loads a stored token. A token with a refresh token is usable
// even when expired; tokenSaver refreshes it on first use.
func getToken(tokenFile string) (*oauth2.Token, error) {
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read OAuth token from %s: %w", tokenFile, err)
	}
	if tok.RefreshToken != "" {
		slog.Info("loaded youtube token", "file", tokenFile, "expires", tok.Expiry)
		return tok, nil
	}
	if tok.Valid() {
		return tok, nil
	}
	return nil, fmt.Errorf("token in %s is expired and has no refresh token", tokenFile)
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("unable to create token directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode oauth token: %w", err)
	}
	return nil
}
