package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"skylink/internal/core/domain"
	"skylink/pkg/circuitbreaker"
	apperrors "skylink/pkg/errors"
)

// Limits shapes the best-effort telemetry calls so a flapping link cannot
// flood the control channel.
type Limits struct {
	StatsPerSecond      float64
	CandidatesPerSecond float64
	Burst               int
}

// Client talks to the drone-side control daemon over HTTP. It implements
// both ports.ControlAPI and ports.SignalingAPI; the daemon multiplexes both
// surfaces on one base URL.
type Client struct {
	baseURL   string
	authToken string
	http      *http.Client
	breaker   *circuitbreaker.Breaker
	logger    *zap.SugaredLogger

	statsLimiter     *rate.Limiter
	candidateLimiter *rate.Limiter
}

// NewClient creates a client for the given base URL, e.g.
// "http://10.0.0.1:8080/api".
func NewClient(baseURL, authToken string, timeout time.Duration, limits Limits, logger *zap.SugaredLogger) *Client {
	if limits.Burst <= 0 {
		limits.Burst = 1
	}
	c := &Client{
		baseURL:   baseURL,
		authToken: authToken,
		http:      &http.Client{Timeout: timeout},
		breaker: circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          10 * time.Second,
		}),
		logger:           logger,
		statsLimiter:     rate.NewLimiter(rate.Limit(limits.StatsPerSecond), limits.Burst),
		candidateLimiter: rate.NewLimiter(rate.Limit(limits.CandidatesPerSecond), limits.Burst),
	}
	c.breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warnw("control link breaker state changed", "from", from.String(), "to", to.String())
	})
	return c
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Detail string `json:"detail"`
}

// do runs one JSON request through the circuit breaker. A nil out skips
// response decoding.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	return c.breaker.Execute(ctx, func() error {
		var reader io.Reader
		if body != nil {
			buf, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("failed to encode request body: %w", err)
			}
			reader = bytes.NewReader(buf)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Request-ID", uuid.New().String())
		if c.authToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.authToken)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return apperrors.WrapError(err, apperrors.ErrCodeUnavailable, "backend unreachable", http.StatusServiceUnavailable)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return c.decodeError(resp)
		}
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	})
}

// decodeError extracts the structured error the daemon returns; a malformed
// or empty body falls back to a generic message so a broken error path never
// hides the status code.
func (c *Client) decodeError(resp *http.Response) error {
	var parsed errorBody
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(data, &parsed); err == nil {
		if parsed.Error.Message != "" {
			return apperrors.NewAppError(apperrors.ErrorCode(parsed.Error.Code), parsed.Error.Message, resp.StatusCode)
		}
		if parsed.Detail != "" {
			return apperrors.NewAppError(apperrors.ErrCodeSubmissionRejected, parsed.Detail, resp.StatusCode)
		}
	}
	return apperrors.NewAppError(apperrors.ErrCodeInternal,
		fmt.Sprintf("backend returned %d", resp.StatusCode), resp.StatusCode)
}

// --- ports.ControlAPI ---

func (c *Client) SubmitVideoConfig(ctx context.Context, cfg domain.StreamConfig) error {
	return c.do(ctx, http.MethodPost, "/config/video", cfg, nil)
}

func (c *Client) SubmitStreamingConfig(ctx context.Context, cfg domain.StreamConfig) error {
	return c.do(ctx, http.MethodPost, "/config/streaming", cfg, nil)
}

func (c *Client) StartPipeline(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/pipeline/start", nil, nil)
}

func (c *Client) StopPipeline(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/pipeline/stop", nil, nil)
}

func (c *Client) RestartPipeline(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/pipeline/restart", nil, nil)
}

func (c *Client) LiveUpdate(ctx context.Context, property string, value interface{}) error {
	payload := map[string]interface{}{
		"property": property,
		"value":    value,
	}
	return c.do(ctx, http.MethodPost, "/pipeline/params", payload, nil)
}

// --- ports.SignalingAPI ---

type sessionResponse struct {
	PeerID     string `json:"peer_id"`
	ICEServers []struct {
		URLs       []string `json:"urls"`
		Username   string   `json:"username,omitempty"`
		Credential string   `json:"credential,omitempty"`
	} `json:"ice_servers"`
}

func (c *Client) CreateSession(ctx context.Context) (*domain.SessionGrant, error) {
	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/webrtc/sessions", nil, &resp); err != nil {
		return nil, err
	}

	grant := &domain.SessionGrant{PeerID: domain.PeerID(resp.PeerID)}
	for _, s := range resp.ICEServers {
		grant.ICEServers = append(grant.ICEServers, domain.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
	}
	return grant, nil
}

func (c *Client) FetchLinkHints(ctx context.Context) (*domain.LinkHints, error) {
	var hints domain.LinkHints
	err := c.do(ctx, http.MethodGet, "/webrtc/link-hints", nil, &hints)
	if err != nil {
		// Older daemons do not expose hints at all.
		if appErr := apperrors.GetAppError(err); appErr != nil && appErr.HTTPStatus == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &hints, nil
}

func (c *Client) SendOffer(ctx context.Context, peerID domain.PeerID, sdp string) (string, error) {
	var resp struct {
		SDP string `json:"sdp"`
	}
	payload := map[string]string{"sdp": sdp}
	if err := c.do(ctx, http.MethodPost, "/webrtc/sessions/"+string(peerID)+"/offer", payload, &resp); err != nil {
		return "", err
	}
	return resp.SDP, nil
}

func (c *Client) SendCandidate(ctx context.Context, peerID domain.PeerID, candidate domain.ICECandidate) error {
	if !c.candidateLimiter.Allow() {
		c.logger.Debugw("candidate dropped by rate limiter", "peer_id", peerID)
		return nil
	}
	return c.do(ctx, http.MethodPost, "/webrtc/sessions/"+string(peerID)+"/candidates", candidate, nil)
}

func (c *Client) NotifyConnected(ctx context.Context, peerID domain.PeerID) error {
	return c.do(ctx, http.MethodPost, "/webrtc/sessions/"+string(peerID)+"/connected", nil, nil)
}

func (c *Client) NotifyDisconnect(ctx context.Context, peerID domain.PeerID) error {
	return c.do(ctx, http.MethodDelete, "/webrtc/sessions/"+string(peerID), nil, nil)
}

func (c *Client) ReportStats(ctx context.Context, peerID domain.PeerID, snapshot domain.StatsSnapshot) error {
	if !c.statsLimiter.Allow() {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/webrtc/sessions/"+string(peerID)+"/stats", snapshot, nil)
}
