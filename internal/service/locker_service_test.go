package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/locker-client/internal/api/dto"
)

type recordedCall struct {
	method string
	path   string
	body   interface{}
}

type fakeDoer struct {
	calls []recordedCall
	err   error
}

func (f *fakeDoer) Do(ctx context.Context, method, path string, body, out interface{}) error {
	f.calls = append(f.calls, recordedCall{method: method, path: path, body: body})
	return f.err
}

func TestLockerService_Paths(t *testing.T) {
	doer := &fakeDoer{}
	svc := NewLockerService(doer)
	ctx := context.Background()
	lockerID := "550e8400-e29b-41d4-a716-446655440000"

	_, _ = svc.Login(ctx, "a@b.co", "pw")
	_ = svc.Signup(ctx, "Ada", "a@b.co", "pw")
	_, _ = svc.Me(ctx)
	_, _ = svc.States(ctx)
	_, _ = svc.Lockers(ctx)
	_ = svc.RequestOTP(ctx, lockerID, "a@b.co")
	_, _ = svc.Collect(ctx, lockerID, "123456")
	_ = svc.DeleteLocker(ctx, lockerID)
	_ = svc.ForceClearLocker(ctx, lockerID)
	_, _ = svc.Transactions(ctx)

	want := []recordedCall{
		{method: http.MethodPost, path: "/login", body: dto.LoginRequest{Email: "a@b.co", Password: "pw"}},
		{method: http.MethodPost, path: "/signup", body: dto.SignupRequest{Name: "Ada", Email: "a@b.co", Password: "pw"}},
		{method: http.MethodGet, path: "/me"},
		{method: http.MethodGet, path: "/states"},
		{method: http.MethodGet, path: "/lockers"},
		{method: http.MethodPost, path: "/lockers/" + lockerID + "/request-otp", body: dto.OTPRequest{Contact: "a@b.co"}},
		{method: http.MethodPost, path: "/lockers/" + lockerID + "/collect", body: dto.CollectRequest{OTP: "123456"}},
		{method: http.MethodDelete, path: "/lockers/" + lockerID},
		{method: http.MethodDelete, path: "/lockers/" + lockerID + "/force-clear"},
		{method: http.MethodGet, path: "/transactions"},
	}
	require.Equal(t, want, doer.calls)
}
