package api

import (
	"crypto/rsa"
	"fmt"
	"net/http"
	"strings"

	"context"

	"github.com/dgrijalva/jwt-go"

	"github.com/homeclimate/thermoms/errors"
	"github.com/homeclimate/thermoms/log"
)

const (
	ownerIDKey = "ownerID"
	authHeader = "Authorization"
)

type ctxKey string

type token struct {
	publicKey *rsa.PublicKey
	log       log.Logger
}

func newToken(pubKey string, l log.Logger) (*token, error) {
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pubKey))
	if err != nil {
		return nil, fmt.Errorf("unable to parse RSA public key: %v", err)
	}
	return &token{publicKey: publicKey, log: l}, nil
}

func (t *token) validator(next http.HandlerFunc, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := t.getTokenClaims(r)
		if err != nil {
			t.log.Debugf("func getTokenClaims: %s", err)
			respError(w, t.log, errors.NewBadJwtError())
			return
		}

		ownerID, ok := claims[ownerIDKey]
		if !ok {
			respError(w, t.log, errors.NewBadJwtError())
			return
		}
		ownerIDStr, ok := ownerID.(string)
		if !ok {
			respError(w, t.log, errors.NewBadJwtError())
			return
		}

		r = r.WithContext(context.WithValue(r.Context(), ctxKey(ownerIDKey), ownerIDStr))
		next(w, r)
	}
}

func (t *token) getTokenClaims(r *http.Request) (jwt.MapClaims, error) {
	header := strings.Split(r.Header.Get(authHeader), " ")
	if len(header) < 2 {
		return nil, fmt.Errorf("bad %s header", authHeader)
	}

	parsed, err := jwt.Parse(header[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.publicKey, nil
	})
	if err != nil {
		if er, ok := err.(*jwt.ValidationError); ok {
			return nil, er
		}
		return nil, fmt.Errorf("can not parse token: %v", err)
	}

	if parsed == nil {
		return nil, fmt.Errorf("token is empty")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("token is invalid")
	}

	return claims, nil
}
