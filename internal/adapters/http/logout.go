package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bft-labs/sessionguard/internal/domain"
	"github.com/bft-labs/sessionguard/internal/ports"
	"github.com/bft-labs/sessionguard/pkg/log"
)

const logoutEndpoint = "/_matrix/client/v3/logout"

// maxErrorBody bounds how much of a failed response is kept.
const maxErrorBody = 4 << 10

// LogoutClient implements ports.LogoutOperation against a Matrix homeserver.
type LogoutClient struct {
	client   ports.HTTPClient
	sessions ports.SessionRepository
	logger   ports.Logger
}

// NewLogoutClient creates a logout client. The session to sign out is read
// from sessions and cleared once the homeserver accepts the request.
func NewLogoutClient(client ports.HTTPClient, sessions ports.SessionRepository, logger ports.Logger) *LogoutClient {
	return &LogoutClient{
		client:   client,
		sessions: sessions,
		logger:   log.OrNoop(logger).With(log.String("component", "logout_client")),
	}
}

// Logout invalidates the access token and clears the local session.
// It returns the device id that was signed out, or "" when no session exists.
func (c *LogoutClient) Logout(ctx context.Context, ignoreServerError bool) (string, error) {
	session, err := c.sessions.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoSession) {
			c.logger.Info("no session to sign out")
			return "", nil
		}
		return "", fmt.Errorf("load session: %w", err)
	}
	if err := session.Validate(); err != nil {
		return "", err
	}

	logger := c.logger.With(log.String("user_id", session.UserID), log.String("device_id", session.DeviceID))

	if err := c.post(ctx, session); err != nil {
		var serr *domain.ServerError
		switch {
		case errors.As(err, &serr) && serr.Unauthorized():
			// The token is already gone server-side.
			logger.Info("access token already invalid", log.Err(err))
		case ignoreServerError:
			logger.Warn("logout request failed, clearing local session anyway", log.Err(err))
		default:
			return "", err
		}
	}

	if err := c.sessions.Clear(ctx); err != nil {
		return "", fmt.Errorf("clear session: %w", err)
	}
	logger.Info("signed out")
	return session.DeviceID, nil
}

func (c *LogoutClient) post(ctx context.Context, session domain.Session) error {
	url := strings.TrimRight(session.Homeserver, "/") + logoutEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte("{}")))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	serr := &domain.ServerError{StatusCode: resp.StatusCode, Body: string(body)}
	var matrixErr struct {
		ErrCode string `json:"errcode"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &matrixErr) == nil && matrixErr.ErrCode != "" {
		serr.ErrCode = matrixErr.ErrCode
		serr.Body = matrixErr.Error
	}
	return serr
}
