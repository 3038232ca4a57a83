package port

import "context"

// CaptchaVerifier validates a client-side CAPTCHA response with the external
// verification service.
type CaptchaVerifier interface {
	Verify(ctx context.Context, response string) error
}
