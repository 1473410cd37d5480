// Package providerfake provides a scripted in-memory provider.Client for
// testing. Each operation can be overridden per test, and call counts are
// tracked so tests can assert on remote-call behavior.
package providerfake

import (
	"context"
	"sync/atomic"

	"github.com/jrsteele09/go-identity-gateway/provider"
)

// FakeProvider implements provider.Client with overridable behavior.
type FakeProvider struct {
	SignUpFunc  func(ctx context.Context, identifier, secret string, attributes map[string]string) (provider.Subject, error)
	SignInFunc  func(ctx context.Context, identifier, secret string) (provider.TokenBundle, error)
	RefreshFunc func(ctx context.Context, refreshToken string) (provider.TokenBundle, error)
	VerifyFunc  func(ctx context.Context, accessToken string) (provider.SubjectClaims, error)

	signUpCalls  atomic.Int64
	signInCalls  atomic.Int64
	refreshCalls atomic.Int64
	verifyCalls  atomic.Int64
}

// NewFakeProvider creates a fake whose operations fail until scripted.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{}
}

var _ provider.Client = (*FakeProvider)(nil)

func (f *FakeProvider) SignUp(ctx context.Context, identifier, secret string, attributes map[string]string) (provider.Subject, error) {
	f.signUpCalls.Add(1)
	if f.SignUpFunc == nil {
		return provider.Subject{}, provider.NewError(provider.CodeServiceUnavailable, "SignUp not scripted", nil)
	}
	return f.SignUpFunc(ctx, identifier, secret, attributes)
}

func (f *FakeProvider) SignIn(ctx context.Context, identifier, secret string) (provider.TokenBundle, error) {
	f.signInCalls.Add(1)
	if f.SignInFunc == nil {
		return provider.TokenBundle{}, provider.NewError(provider.CodeServiceUnavailable, "SignIn not scripted", nil)
	}
	return f.SignInFunc(ctx, identifier, secret)
}

func (f *FakeProvider) Refresh(ctx context.Context, refreshToken string) (provider.TokenBundle, error) {
	f.refreshCalls.Add(1)
	if f.RefreshFunc == nil {
		return provider.TokenBundle{}, provider.NewError(provider.CodeServiceUnavailable, "Refresh not scripted", nil)
	}
	return f.RefreshFunc(ctx, refreshToken)
}

func (f *FakeProvider) Verify(ctx context.Context, accessToken string) (provider.SubjectClaims, error) {
	f.verifyCalls.Add(1)
	if f.VerifyFunc == nil {
		return provider.SubjectClaims{}, provider.NewError(provider.CodeServiceUnavailable, "Verify not scripted", nil)
	}
	return f.VerifyFunc(ctx, accessToken)
}

// SignUpCalls returns how many times SignUp has been invoked.
func (f *FakeProvider) SignUpCalls() int64 { return f.signUpCalls.Load() }

// SignInCalls returns how many times SignIn has been invoked.
func (f *FakeProvider) SignInCalls() int64 { return f.signInCalls.Load() }

// RefreshCalls returns how many times Refresh has been invoked.
func (f *FakeProvider) RefreshCalls() int64 { return f.refreshCalls.Load() }

// VerifyCalls returns how many times Verify has been invoked.
func (f *FakeProvider) VerifyCalls() int64 { return f.verifyCalls.Load() }
