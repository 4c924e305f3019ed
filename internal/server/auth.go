package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"VestLedger/internal/asset"
	"VestLedger/internal/core"
)

const (
	headerAuthorization = "authorization"
	headerAPIKey        = "x-api-key"
)

// KeyRing maps API tokens to the account each token signs for.
type KeyRing struct {
	keys map[string]asset.Name
}

// ParseKeyRing parses "token=account,token=account".
func ParseKeyRing(spec string) (*KeyRing, error) {
	kr := &KeyRing{keys: make(map[string]asset.Name)}
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		token, account, ok := strings.Cut(entry, "=")
		if !ok || token == "" {
			return nil, fmt.Errorf("api key entry %q: want token=account", entry)
		}
		name, err := asset.ParseName(account)
		if err != nil {
			return nil, fmt.Errorf("api key entry %q: %w", entry, err)
		}
		kr.keys[token] = name
	}
	return kr, nil
}

// Len returns the number of configured tokens.
func (kr *KeyRing) Len() int {
	return len(kr.keys)
}

// Resolve turns a presented token into signers. No token yields anonymous
// signers; an unknown token is rejected.
func (kr *KeyRing) Resolve(token string) (core.Signers, error) {
	if token == "" {
		return core.NewSigners(), nil
	}
	name, ok := kr.keys[token]
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unknown api key")
	}
	return core.NewSigners(name), nil
}

func tokenFrom(authorization, apiKey string) string {
	if apiKey != "" {
		return apiKey
	}
	if t, ok := strings.CutPrefix(authorization, "Bearer "); ok {
		return strings.TrimSpace(t)
	}
	return ""
}

// UnaryInterceptor resolves the caller's signers from gRPC metadata.
func (kr *KeyRing) UnaryInterceptor(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	var authz, apiKey string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(headerAuthorization); len(v) > 0 {
			authz = v[0]
		}
		if v := md.Get(headerAPIKey); len(v) > 0 {
			apiKey = v[0]
		}
	}
	signers, err := kr.Resolve(tokenFrom(authz, apiKey))
	if err != nil {
		return nil, err
	}
	return handler(WithSigners(ctx, signers), req)
}

// FromHTTP resolves the caller's signers from request headers.
func (kr *KeyRing) FromHTTP(r *http.Request) (core.Signers, error) {
	return kr.Resolve(tokenFrom(r.Header.Get(headerAuthorization), r.Header.Get(headerAPIKey)))
}

type signersKey struct{}

// WithSigners attaches the authenticated signers to ctx.
func WithSigners(ctx context.Context, s core.Signers) context.Context {
	return context.WithValue(ctx, signersKey{}, s)
}

// SignersFrom returns the signers attached to ctx, or none.
func SignersFrom(ctx context.Context) core.Signers {
	if s, ok := ctx.Value(signersKey{}).(core.Signers); ok {
		return s
	}
	return core.NewSigners()
}
