package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spec-kit/locker-client/internal/api/dto"
)

// Doer is the request channel the service needs; satisfied by *gateway.Gateway.
type Doer interface {
	Do(ctx context.Context, method, path string, body, out interface{}) error
}

// LockerService exposes the remote locker API as typed operations. All calls
// go through the gateway and inherit its bearer-attach and refresh-retry
// behavior.
type LockerService struct {
	gw Doer
}

// NewLockerService builds the service.
func NewLockerService(gw Doer) *LockerService {
	return &LockerService{gw: gw}
}

// Login exchanges credentials for an access/refresh pair.
func (s *LockerService) Login(ctx context.Context, email, password string) (dto.AuthResponse, error) {
	var out dto.AuthResponse
	err := s.gw.Do(ctx, http.MethodPost, "/login", dto.LoginRequest{Email: email, Password: password}, &out)
	return out, err
}

// Signup registers a new end-user account.
func (s *LockerService) Signup(ctx context.Context, name, email, password string) error {
	return s.gw.Do(ctx, http.MethodPost, "/signup", dto.SignupRequest{Name: name, Email: email, Password: password}, nil)
}

// Me fetches the bearer-authenticated profile.
func (s *LockerService) Me(ctx context.Context) (dto.MeResponse, error) {
	var out dto.MeResponse
	err := s.gw.Do(ctx, http.MethodGet, "/me", nil, &out)
	return out, err
}

// States lists states with their cities and locker points.
func (s *LockerService) States(ctx context.Context) ([]dto.StateResponse, error) {
	var out []dto.StateResponse
	err := s.gw.Do(ctx, http.MethodGet, "/states", nil, &out)
	return out, err
}

// Lockers lists all lockers.
func (s *LockerService) Lockers(ctx context.Context) ([]dto.LockerResponse, error) {
	var out []dto.LockerResponse
	err := s.gw.Do(ctx, http.MethodGet, "/lockers", nil, &out)
	return out, err
}

// StoreItem places an item into an available locker.
func (s *LockerService) StoreItem(ctx context.Context, req dto.ItemCreateRequest) (dto.ItemResponse, error) {
	var out dto.ItemResponse
	err := s.gw.Do(ctx, http.MethodPost, "/items", req, &out)
	return out, err
}

// MyItems lists the caller's stored items.
func (s *LockerService) MyItems(ctx context.Context) ([]dto.ItemResponse, error) {
	var out []dto.ItemResponse
	err := s.gw.Do(ctx, http.MethodGet, "/items", nil, &out)
	return out, err
}

// Transactions lists the caller's billing records.
func (s *LockerService) Transactions(ctx context.Context) ([]dto.TransactionResponse, error) {
	var out []dto.TransactionResponse
	err := s.gw.Do(ctx, http.MethodGet, "/transactions", nil, &out)
	return out, err
}

// RequestOTP asks the server to send a one-time password to contact for the
// given locker.
func (s *LockerService) RequestOTP(ctx context.Context, lockerID, contact string) error {
	path := fmt.Sprintf("/lockers/%s/request-otp", lockerID)
	return s.gw.Do(ctx, http.MethodPost, path, dto.OTPRequest{Contact: contact}, nil)
}

// Collect redeems the OTP and completes the collection.
func (s *LockerService) Collect(ctx context.Context, lockerID, otp string) (dto.CollectResponse, error) {
	var out dto.CollectResponse
	path := fmt.Sprintf("/lockers/%s/collect", lockerID)
	err := s.gw.Do(ctx, http.MethodPost, path, dto.CollectRequest{OTP: otp}, &out)
	return out, err
}

// CreateLocker provisions a locker at a locker point. Admin only.
func (s *LockerService) CreateLocker(ctx context.Context, lockerPointID string) (dto.LockerResponse, error) {
	var out dto.LockerResponse
	err := s.gw.Do(ctx, http.MethodPost, "/lockers", dto.LockerCreateRequest{LockerPointID: lockerPointID}, &out)
	return out, err
}

// UpdateLocker changes a locker's name or status. Admin only.
func (s *LockerService) UpdateLocker(ctx context.Context, lockerID string, req dto.LockerUpdateRequest) (dto.LockerResponse, error) {
	var out dto.LockerResponse
	err := s.gw.Do(ctx, http.MethodPut, "/lockers/"+lockerID, req, &out)
	return out, err
}

// DeleteLocker removes a locker. Admin only.
func (s *LockerService) DeleteLocker(ctx context.Context, lockerID string) error {
	return s.gw.Do(ctx, http.MethodDelete, "/lockers/"+lockerID, nil, nil)
}

// ForceClearLocker evicts whatever occupies a locker and frees it. Admin only.
func (s *LockerService) ForceClearLocker(ctx context.Context, lockerID string) error {
	return s.gw.Do(ctx, http.MethodDelete, "/lockers/"+lockerID+"/force-clear", nil, nil)
}
