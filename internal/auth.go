package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// GoogleScopes covers Drive file transfer and Sheets range access
var GoogleScopes = []string{drive.DriveScope, sheets.SpreadsheetsScope}

// AuthCodePrompt shows the consent URL to the operator and returns the
// authorization code they paste back
type AuthCodePrompt func(authURL string) (string, error)

// NewGoogleClient returns an HTTP client authorized with the cached token,
// refreshing and re-saving it when needed. Without a cached token the
// consent flow runs through prompt; a nil prompt makes that an error.
func NewGoogleClient(ctx context.Context, credentialsFile, tokenFile string, prompt AuthCodePrompt) (*http.Client, error) {
	secret, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading OAuth client file: %w", err)
	}
	cfg, err := google.ConfigFromJSON(secret, GoogleScopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing OAuth client file: %w", err)
	}

	tok, err := LoadToken(tokenFile)
	if err != nil {
		if prompt == nil {
			return nil, fmt.Errorf("no usable token at %s: %w", tokenFile, err)
		}
		code, err := prompt(cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline))
		if err != nil {
			return nil, fmt.Errorf("reading authorization code: %w", err)
		}
		tok, err = cfg.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("exchanging authorization code: %w", err)
		}
		if err := SaveToken(tokenFile, tok); err != nil {
			return nil, err
		}
	}

	src := cfg.TokenSource(ctx, tok)
	fresh, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}
	if fresh.AccessToken != tok.AccessToken {
		if err := SaveToken(tokenFile, fresh); err != nil {
			return nil, err
		}
	}

	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(fresh, src)), nil
}

// NewGoogleServices builds the Drive and Sheets clients on one HTTP client
func NewGoogleServices(ctx context.Context, client *http.Client) (*drive.Service, *sheets.Service, error) {
	driveSvc, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, nil, fmt.Errorf("drive service: %w", err)
	}
	sheetsSvc, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, nil, fmt.Errorf("sheets service: %w", err)
	}
	return driveSvc, sheetsSvc, nil
}

func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parsing token file: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("token file %s holds no token", path)
	}
	return &tok, nil
}

func SaveToken(path string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling token: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}
