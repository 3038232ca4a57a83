package usecase

import "errors"

var (
	// ErrAccountNotFound indicates no account matches the supplied identifier.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountDisabled indicates local login is disabled for the account.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrInvalidCredentials indicates the password check failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation indicates one or more submitted fields were rejected.
	// Transports surface it as a generic message; per-field detail lives on
	// the live validation channel only.
	ErrValidation = errors.New("submitted fields rejected")
	// ErrBlankForm indicates an entirely empty submission, dropped without
	// side effects.
	ErrBlankForm = errors.New("blank form submission")
	// ErrCaptchaRejected indicates the CAPTCHA response failed verification.
	ErrCaptchaRejected = errors.New("captcha rejected")
	// ErrEmailDispatch indicates a lifecycle email could not be handed to the
	// mailer. State written before the dispatch attempt is kept.
	ErrEmailDispatch = errors.New("email dispatch failed")
	// ErrTooManyResets indicates the account exhausted its reset request budget.
	ErrTooManyResets = errors.New("too many password reset requests")
	// ErrResetTooSoon indicates the linear backoff window since the previous
	// reset request has not elapsed yet.
	ErrResetTooSoon = errors.New("password reset requested too soon")
	// ErrNoPendingEmail indicates no email change was awaiting confirmation.
	ErrNoPendingEmail = errors.New("no pending email change")
)
