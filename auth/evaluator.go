package auth

import (
	"fmt"
	"strings"

	"github.com/jrsteele09/buddy-auth/credentials"
	apperrors "github.com/jrsteele09/buddy-auth/internal/errors"
	"github.com/jrsteele09/buddy-auth/token"
	"github.com/pkg/errors"
)

// Evaluator inspects a sanitized credential bundle and either asserts an
// identity or abstains by returning a nil claim. A returned error is a fault:
// the arbiter logs it and treats the evaluator as having abstained.
type Evaluator interface {
	Name() string
	Evaluate(bundle credentials.Bundle) (*AuthResult, error)
}

const bearerPrefix = "bearer "

// TokenEvaluator accepts a bearer token issued by the token manager.
type TokenEvaluator struct {
	tokens *token.Manager
}

var _ Evaluator = (*TokenEvaluator)(nil)

func NewTokenEvaluator(tokens *token.Manager) *TokenEvaluator {
	return &TokenEvaluator{tokens: tokens}
}

func (e *TokenEvaluator) Name() string { return "token" }

func (e *TokenEvaluator) Evaluate(bundle credentials.Bundle) (*AuthResult, error) {
	raw, ok := BearerToken(bundle.Headers)
	if !ok {
		return nil, nil
	}

	record, err := e.tokens.Validate(raw)
	switch {
	case err == nil:
	case apperrors.Is(err, apperrors.ErrInvalidToken),
		apperrors.Is(err, apperrors.ErrTokenExpired),
		apperrors.Is(err, apperrors.ErrTokenRevoked):
		return nil, nil
	default:
		return nil, errors.Wrap(err, "[TokenEvaluator.Evaluate] validate")
	}

	return &AuthResult{
		Authenticated: true,
		UserID:        record.UserID,
		Role:          record.Role,
		Method:        MethodToken,
		DeviceID:      record.DeviceID,
	}, nil
}

// BearerToken extracts the credential from an "authorization: Bearer <token>" header.
func BearerToken(headers credentials.Headers) (string, bool) {
	value := strings.TrimSpace(headers.Get("authorization"))
	if len(value) <= len(bearerPrefix) || !strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	raw := strings.TrimSpace(value[len(bearerPrefix):])
	return raw, raw != ""
}

// evaluateSafely runs an evaluator, converting a panic into a fault.
func evaluateSafely(e Evaluator, bundle credentials.Bundle) (claim *AuthResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			claim = nil
			err = fmt.Errorf("evaluator %s panicked: %v", e.Name(), r)
		}
	}()
	return e.Evaluate(bundle)
}
