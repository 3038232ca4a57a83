package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/victor-wayward/ironode/internal/core/domain"
	"github.com/victor-wayward/ironode/internal/transport/http/middleware"
)

// ErrorResponse is the generic error payload. RequestID ties the response to
// the access log line for the same request.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorResponse builds an error payload carrying the request id.
func NewErrorResponse(c *gin.Context, message string) ErrorResponse {
	return ErrorResponse{
		Error:     message,
		RequestID: middleware.RequestIDFromContext(c.Request.Context()),
	}
}

// MessageResponse is a simple acknowledgement payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// AccountSummary is the account view returned by the API. Credentials and
// outstanding tokens never leave the server.
type AccountSummary struct {
	ID            string         `json:"id"`
	Username      string         `json:"username"`
	Email         string         `json:"email"`
	Group         string         `json:"group"`
	Enabled       bool           `json:"enabled"`
	PendingEmail  string         `json:"pending_email,omitempty"`
	Profile       ProfileView    `json:"profile"`
	Address       domain.Address `json:"address"`
	SocialLinks   []string       `json:"social_links,omitempty"`
	LastLoginAt   *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ProfileView is the profile sub-document of AccountSummary.
type ProfileView struct {
	GivenName      string `json:"given_name"`
	FamilyName     string `json:"family_name"`
	AvatarPath     string `json:"avatar_path"`
	AvatarVerified bool   `json:"avatar_verified"`
}

func newAccountSummary(account *domain.Account) AccountSummary {
	summary := AccountSummary{
		ID:       account.ID,
		Username: account.Username,
		Email:    account.Email,
		Group:    account.Group,
		Enabled:  account.Login.Enabled,
		Profile: ProfileView{
			GivenName:      account.Profile.GivenName,
			FamilyName:     account.Profile.FamilyName,
			AvatarPath:     account.Profile.AvatarPath,
			AvatarVerified: account.Profile.AvatarVerified,
		},
		Address:   account.Address,
		CreatedAt: account.CreatedAt,
	}
	if account.NewEmail != nil {
		summary.PendingEmail = account.NewEmail.Email
	}
	for provider := range account.Social {
		summary.SocialLinks = append(summary.SocialLinks, string(provider))
	}
	if !account.Login.LastAt.IsZero() {
		last := account.Login.LastAt
		summary.LastLoginAt = &last
	}
	return summary
}

// LoginRequest is the payload for local authentication. Identifier accepts a
// username or an email address.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// LoginResponse is returned for a successful login.
type LoginResponse struct {
	Account AccountSummary `json:"account"`
}

// RegisterRequest is the payload for account registration.
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	Verify          string `json:"verify"`
	CaptchaResponse string `json:"captcha_response"`
	Locale          string `json:"locale"`
}

// RegisterResponse describes the registration outcome.
type RegisterResponse struct {
	Account              AccountSummary `json:"account"`
	RequiresConfirmation bool           `json:"requires_confirmation"`
	Message              string         `json:"message,omitempty"`
}

// TokenResponse reports the outcome of following a mailed token link.
type TokenResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ResetRequest asks for a password reset link.
type ResetRequest struct {
	Email  string `json:"email" binding:"required"`
	Locale string `json:"locale"`
}

// CompletePasswordRequest carries the new password together with the mailed
// reset token.
type CompletePasswordRequest struct {
	Username string `json:"username" binding:"required"`
	Token    string `json:"token" binding:"required"`
	Password string `json:"password"`
	Verify   string `json:"verify"`
}

// UpdateAccountRequest changes the username and primary email address.
type UpdateAccountRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Locale   string `json:"locale"`
}

// UpdatePasswordRequest changes the password from a live session.
type UpdatePasswordRequest struct {
	Password string `json:"password"`
	Verify   string `json:"verify"`
}

// UpdateProfileRequest changes the display names.
type UpdateProfileRequest struct {
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// UpdateAddressRequest replaces the postal address.
type UpdateAddressRequest struct {
	Line1    string `json:"line1"`
	Line2    string `json:"line2"`
	City     string `json:"city"`
	Region   string `json:"region"`
	Country  string `json:"country"`
	Postcode string `json:"postcode"`
}

// UpdateAvatarRequest points the profile at an uploaded avatar.
type UpdateAvatarRequest struct {
	Path string `json:"path"`
}

// ContactRequest is the contact form payload.
type ContactRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Message         string `json:"message"`
	CaptchaResponse string `json:"captcha_response"`
}

// FieldCheckRequest asks for a verdict on a single form field.
type FieldCheckRequest struct {
	Field    string `json:"field" binding:"required"`
	Value    string `json:"value"`
	Verify   string `json:"verify"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// FieldCheckResponse is the per-field verdict for live form validation.
type FieldCheckResponse struct {
	Field    string `json:"field"`
	Valid    bool   `json:"valid"`
	Detail   string `json:"detail,omitempty"`
	Strength *int   `json:"strength,omitempty"`
}
