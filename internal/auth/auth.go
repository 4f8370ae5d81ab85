// Package auth guards the console boundary with a shared preview secret.
//
// It intentionally avoids policy decisions and storage concerns.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SignatureHeader carries the shared secret on every guarded request.
const SignatureHeader = "x-preview-signature"

var ErrUnauthorized = errors.New("auth: unauthorized")

// Validator validates a presented signature.
type Validator interface {
	Validate(signature string) error
}

// SharedSecret validates against a single configured secret in constant
// time. An unset secret denies every request.
type SharedSecret struct {
	Secret string
}

func (s SharedSecret) Validate(signature string) error {
	if s.Secret == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(s.Secret), []byte(signature)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// FuncValidator adapts a function into a Validator.
type FuncValidator func(signature string) error

func (f FuncValidator) Validate(signature string) error {
	return f(signature)
}

// Middleware aborts any request whose signature header fails validation.
func Middleware(v Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := v.Validate(c.GetHeader(SignatureHeader)); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
