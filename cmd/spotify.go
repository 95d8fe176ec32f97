package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/vibemix/internal/server"
	"github.com/desertthunder/vibemix/internal/services"
	"github.com/desertthunder/vibemix/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// SpotifyAuth performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server, opens browser for user authorization, and stores the exchanged token
// in the database.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	session, err := r.spotifySession()
	if err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, session)
	if err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Token stored in %s (expires %s)\n\n", r.config.Database.Path, token.Expiry.Format(time.RFC822))
	r.writePlain("You can now use: vibemix generate -e 🌙 -v \"late night drive\"\n")
	return nil
}

// SpotifyStatus reports whether the stored session can still reach Spotify.
func (r *Runner) SpotifyStatus(ctx context.Context, cmd *cli.Command) error {
	session, err := r.spotifySession()
	if err != nil {
		return err
	}
	if !session.IsAuthenticated(ctx) {
		r.writePlain("✗ Not signed in. Run 'vibemix spotify auth'.\n")
		return nil
	}

	userID, err := r.currentUser(ctx)
	if err != nil {
		return err
	}
	r.writePlain("✓ Signed in to Spotify as %s\n", userID)
	return nil
}

// SpotifyLogout deletes the stored session.
func (r *Runner) SpotifyLogout(ctx context.Context, cmd *cli.Command) error {
	session, err := r.spotifySession()
	if err != nil {
		return err
	}
	if err := session.Clear(ctx); err != nil {
		return err
	}
	r.writePlain("✓ Signed out of Spotify\n")
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, session *services.Session) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	oauthHandler := server.NewOAuthHandler(services.SpotifyOAuthConfig(r.config.Credentials.Spotify), state, session, r.logger)
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger))
	router.Handler(oauthHandler)

	srv := server.New(r.config.Server.Addr(), router, r.logger)
	ln, err := srv.Listen()
	if err != nil {
		return nil, err
	}

	serveCtx, stop := context.WithCancel(ctx)
	serverErrors := make(chan error, 1)
	go func() { serverErrors <- srv.Serve(serveCtx, ln) }()
	defer func() {
		stop()
		if err := <-serverErrors; err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := oauthHandler.AuthCodeURL()
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(authTimeout)
	defer timeout.Stop()

	select {
	case result := <-oauthHandler.Result():
		if result.Error() != nil {
			return nil, result.Error()
		}
		if result.Token == nil {
			return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
		}
		return result.Token, nil
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrAuthFailed, authTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
