// Package gcp builds authenticated client options for Google Cloud REST APIs.
package gcp

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/teslashibe/go-rotary/internal/httpc"
)

// CloudPlatformScope covers Speech-to-Text and Text-to-Speech.
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Config selects credentials and endpoint for a Google client.
type Config struct {
	// CredentialsFile is a service account JSON file. Empty uses
	// application default credentials.
	CredentialsFile string

	// Endpoint overrides the API base URL.
	Endpoint string

	// Anonymous skips authentication entirely (local fakes).
	Anonymous bool

	// HTTPClient is the base client. Defaults to httpc.Client.
	HTTPClient *http.Client
}

// ClientOptions returns options for a google.golang.org/api service constructor.
func ClientOptions(ctx context.Context, cfg Config) ([]option.ClientOption, error) {
	base := cfg.HTTPClient
	if base == nil {
		base = httpc.Client
	}

	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	if cfg.Anonymous {
		return append(opts, option.WithoutAuthentication(), option.WithHTTPClient(base)), nil
	}

	ts, err := TokenSource(ctx, cfg.CredentialsFile, CloudPlatformScope)
	if err != nil {
		return nil, err
	}
	// oauth2.NewClient takes its base transport from the context.
	authCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	return append(opts, option.WithHTTPClient(oauth2.NewClient(authCtx, ts))), nil
}

// TokenSource loads credentials from file, or discovers application default
// credentials when file is empty. Tokens are cached until they expire.
func TokenSource(ctx context.Context, file string, scopes ...string) (oauth2.TokenSource, error) {
	var (
		creds *google.Credentials
		err   error
	)
	if file != "" {
		data, rerr := os.ReadFile(file)
		if rerr != nil {
			return nil, fmt.Errorf("read google credentials: %w", rerr)
		}
		creds, err = google.CredentialsFromJSON(ctx, data, scopes...)
	} else {
		creds, err = google.FindDefaultCredentials(ctx, scopes...)
	}
	if err != nil {
		return nil, fmt.Errorf("google credentials: %w", err)
	}
	return oauth2.ReuseTokenSource(nil, creds.TokenSource), nil
}
