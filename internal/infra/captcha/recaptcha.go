package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const verifyURL = "https://www.google.com/recaptcha/api/siteverify"

// ErrRejected indicates the verifier judged the response to be non-human.
var ErrRejected = errors.New("captcha: response rejected")

// Verifier validates reCAPTCHA responses with the external verification
// endpoint. Implements port.CaptchaVerifier.
type Verifier struct {
	secret string
	client *http.Client
	logger *zap.Logger
}

// NewVerifier constructs a Verifier with a bounded HTTP client.
func NewVerifier(secret string, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify posts the client response token to the verification endpoint.
// A failed verdict returns ErrRejected; transport failures surface as-is.
func (v *Verifier) Verify(ctx context.Context, response string) error {
	response = strings.TrimSpace(response)
	if response == "" {
		return ErrRejected
	}

	form := url.Values{
		"secret":   {v.secret},
		"response": {response},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("verify captcha: %w", err)
	}
	defer resp.Body.Close()

	var verdict verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return fmt.Errorf("decode captcha response: %w", err)
	}

	if !verdict.Success {
		v.logger.Warn("captcha rejected", zap.Strings("error_codes", verdict.ErrorCodes))
		return ErrRejected
	}

	return nil
}
