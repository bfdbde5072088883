package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lee-tech/hrportal/config"
	"github.com/lee-tech/hrportal/internal/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	googleStateTTL    = 10 * time.Minute
)

var (
	ErrGoogleDisabled = errors.New("google sign-in is not configured")
	ErrInvalidState   = errors.New("invalid or expired sign-in state")
)

type googleUserInfo struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func newGoogleOAuthConfig(cfg *config.HRConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
}

// GoogleEnabled reports whether Google sign-in is available.
func (s *AuthenticationService) GoogleEnabled() bool {
	return s.google != nil
}

// GoogleLoginURL returns the consent page URL and the signed state the
// caller must hand back to GoogleCallback.
func (s *AuthenticationService) GoogleLoginURL() (string, string, error) {
	if s.google == nil {
		return "", "", ErrGoogleDisabled
	}
	state, err := s.signState(s.now().Add(googleStateTTL))
	if err != nil {
		return "", "", err
	}
	return s.google.AuthCodeURL(state, oauth2.AccessTypeOnline), state, nil
}

// GoogleCallback completes the authorisation-code flow. The Google account
// must belong to an existing employee.
func (s *AuthenticationService) GoogleCallback(ctx context.Context, state, expectedState, code string) (*models.LoginResponse, error) {
	if s.google == nil {
		return nil, ErrGoogleDisabled
	}
	if state == "" || !hmac.Equal([]byte(state), []byte(expectedState)) || !s.verifyState(state) {
		return nil, ErrInvalidState
	}
	if strings.TrimSpace(code) == "" {
		return nil, ErrInvalidCredentials
	}

	token, err := s.google.Exchange(ctx, code)
	if err != nil {
		s.metrics.Logins.WithLabelValues("google", "exchange_error").Inc()
		return nil, fmt.Errorf("exchange google code: %w", err)
	}
	info, err := s.fetchGoogleUser(ctx, token)
	if err != nil {
		return nil, err
	}
	if info.Email == "" || !info.EmailVerified {
		s.metrics.Logins.WithLabelValues("google", "unverified").Inc()
		return nil, ErrInvalidCredentials
	}

	employee, err := s.employees.GetByEmail(ctx, info.Email)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		s.metrics.Logins.WithLabelValues("google", "unknown").Inc()
		s.logger.Info("google sign-in refused for unknown email", zap.String("email", info.Email))
		return nil, ErrEmployeeNotFound
	}
	if employee.IsLocked(s.now()) {
		s.metrics.Logins.WithLabelValues("google", "locked").Inc()
		return nil, ErrAccountLocked
	}

	resp, err := s.completeLogin(ctx, employee.ID)
	if err != nil {
		return nil, err
	}
	s.metrics.Logins.WithLabelValues("google", "ok").Inc()
	return resp, nil
}

func (s *AuthenticationService) fetchGoogleUser(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.google.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch google profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("google profile returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode google profile: %w", err)
	}
	info.Email = strings.ToLower(strings.TrimSpace(info.Email))
	return &info, nil
}

// signState returns nonce.expiry.mac, keyed with the JWT secret.
func (s *AuthenticationService) signState(expires time.Time) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(nonce) + "." + strconv.FormatInt(expires.Unix(), 10)
	return payload + "." + s.stateMAC(payload), nil
}

func (s *AuthenticationService) verifyState(state string) bool {
	idx := strings.LastIndex(state, ".")
	if idx <= 0 {
		return false
	}
	payload, mac := state[:idx], state[idx+1:]
	if !hmac.Equal([]byte(mac), []byte(s.stateMAC(payload))) {
		return false
	}
	parts := strings.SplitN(payload, ".", 2)
	if len(parts) != 2 {
		return false
	}
	expires, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return false
	}
	return s.now().Unix() < expires
}

func (s *AuthenticationService) stateMAC(payload string) string {
	h := hmac.New(sha256.New, []byte(s.config.JWTSecret))
	h.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
