// Package mocks holds testify mocks of the identity gateway.
package mocks

import (
	context "context"

	access "github.com/BearBump/CargoBox/internal/access"
	identity "github.com/BearBump/CargoBox/internal/identity"
	models "github.com/BearBump/CargoBox/internal/models"
	uuid "github.com/google/uuid"
	mock "github.com/stretchr/testify/mock"
)

// MockGateway mocks identity.Gateway.
type MockGateway struct {
	mock.Mock
}

func (_m *MockGateway) EmailFor(phone string) string {
	ret := _m.Called(phone)
	return ret.String(0)
}

func (_m *MockGateway) SignUp(ctx context.Context, phone string, password string) (*models.Account, error) {
	ret := _m.Called(ctx, phone, password)
	var r0 *models.Account
	if rf, ok := ret.Get(0).(func(context.Context, string, string) *models.Account); ok {
		r0 = rf(ctx, phone, password)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Account)
	}
	return r0, ret.Error(1)
}

func (_m *MockGateway) SignIn(ctx context.Context, phone string, password string) (*identity.Session, error) {
	ret := _m.Called(ctx, phone, password)
	return session(ret.Get(0)), ret.Error(1)
}

func (_m *MockGateway) Refresh(ctx context.Context, refreshToken string) (*identity.Session, error) {
	ret := _m.Called(ctx, refreshToken)
	return session(ret.Get(0)), ret.Error(1)
}

func (_m *MockGateway) SignOut(ctx context.Context, accessToken string) error {
	ret := _m.Called(ctx, accessToken)
	return ret.Error(0)
}

func (_m *MockGateway) Authenticate(ctx context.Context, accessToken string) (access.Principal, error) {
	ret := _m.Called(ctx, accessToken)
	var r0 access.Principal
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(access.Principal)
	}
	return r0, ret.Error(1)
}

func (_m *MockGateway) GenerateLoginToken(ctx context.Context, userID uuid.UUID, impersonator *uuid.UUID) (string, error) {
	ret := _m.Called(ctx, userID, impersonator)
	return ret.String(0), ret.Error(1)
}

func (_m *MockGateway) RedeemLoginToken(ctx context.Context, token string) (*identity.Session, error) {
	ret := _m.Called(ctx, token)
	return session(ret.Get(0)), ret.Error(1)
}

func (_m *MockGateway) IssueSession(ctx context.Context, userID uuid.UUID) (*identity.Session, error) {
	ret := _m.Called(ctx, userID)
	return session(ret.Get(0)), ret.Error(1)
}

func (_m *MockGateway) UpdatePassword(ctx context.Context, userID uuid.UUID, password string) error {
	ret := _m.Called(ctx, userID, password)
	return ret.Error(0)
}

func (_m *MockGateway) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	ret := _m.Called(ctx, userID)
	return ret.Error(0)
}

func session(v any) *identity.Session {
	if v == nil {
		return nil
	}
	return v.(*identity.Session)
}

var _ identity.Gateway = (*MockGateway)(nil)
