package notification

import (
	"context"
	"errors"
	"testing"

	"finlink/internal/domain/connection"
)

type mockRepo struct {
	UpsertDeviceTokenFunc       func(ctx context.Context, params RegisterDeviceParams) (*DeviceToken, error)
	GetActiveTokensByUserIDFunc func(ctx context.Context, userID int64) ([]*DeviceToken, error)
	DeactivateTokenFunc         func(ctx context.Context, token string) error
}

func (m *mockRepo) UpsertDeviceToken(ctx context.Context, params RegisterDeviceParams) (*DeviceToken, error) {
	return m.UpsertDeviceTokenFunc(ctx, params)
}

func (m *mockRepo) GetActiveTokensByUserID(ctx context.Context, userID int64) ([]*DeviceToken, error) {
	return m.GetActiveTokensByUserIDFunc(ctx, userID)
}

func (m *mockRepo) DeactivateToken(ctx context.Context, token string) error {
	if m.DeactivateTokenFunc == nil {
		return nil
	}
	return m.DeactivateTokenFunc(ctx, token)
}

type mockMessenger struct {
	SendFunc          func(ctx context.Context, token string, title, body string, data map[string]string) error
	SendMulticastFunc func(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}

func (m *mockMessenger) Send(ctx context.Context, token string, title, body string, data map[string]string) error {
	return m.SendFunc(ctx, token, title, body, data)
}

func (m *mockMessenger) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	return m.SendMulticastFunc(ctx, tokens, title, body, data)
}

func TestRegisterDeviceValidation(t *testing.T) {
	svc := NewService(&mockRepo{}, nil)

	tests := []struct {
		name    string
		params  RegisterDeviceParams
		wantErr error
	}{
		{
			name:    "missing token",
			params:  RegisterDeviceParams{UserID: 1, DeviceType: "ios"},
			wantErr: ErrInvalidToken,
		},
		{
			name:    "bad device type",
			params:  RegisterDeviceParams{UserID: 1, Token: "tok", DeviceType: "blackberry"},
			wantErr: ErrInvalidDeviceType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterDevice(context.Background(), tt.params)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RegisterDevice() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegisterDeviceUpserts(t *testing.T) {
	repo := &mockRepo{
		UpsertDeviceTokenFunc: func(ctx context.Context, params RegisterDeviceParams) (*DeviceToken, error) {
			return &DeviceToken{ID: "dt-1", UserID: params.UserID, Token: params.Token, DeviceType: params.DeviceType, IsActive: true}, nil
		},
	}
	svc := NewService(repo, nil)

	token, err := svc.RegisterDevice(context.Background(), RegisterDeviceParams{UserID: 7, Token: "fcm-token", DeviceType: "android"})
	if err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}
	if token.ID != "dt-1" || !token.IsActive {
		t.Errorf("RegisterDevice() = %+v", token)
	}
}

func TestSyncFailedDeliversToAllDevices(t *testing.T) {
	repo := &mockRepo{
		GetActiveTokensByUserIDFunc: func(ctx context.Context, userID int64) ([]*DeviceToken, error) {
			return []*DeviceToken{
				{Token: "tok-a", IsActive: true},
				{Token: "tok-b", IsActive: true},
			}, nil
		},
	}

	var gotTokens []string
	var gotData map[string]string
	messenger := &mockMessenger{
		SendMulticastFunc: func(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
			gotTokens = tokens
			gotData = data
			return nil
		},
	}

	svc := NewService(repo, messenger)
	conn := &connection.Connection{ID: 42, UserID: 7, InstitutionName: "First Platypus Bank"}
	svc.SyncFailed(context.Background(), conn, []string{"transactions sync failed"})

	if len(gotTokens) != 2 {
		t.Fatalf("SendMulticast tokens = %v, want 2", gotTokens)
	}
	if gotData["route"] != CategoryConnections {
		t.Errorf("data route = %q, want %q", gotData["route"], CategoryConnections)
	}
	if gotData["connectionId"] != "42" {
		t.Errorf("data connectionId = %q, want 42", gotData["connectionId"])
	}
}

func TestSyncFailedNoDevicesIsNoop(t *testing.T) {
	repo := &mockRepo{
		GetActiveTokensByUserIDFunc: func(ctx context.Context, userID int64) ([]*DeviceToken, error) {
			return nil, nil
		},
	}
	messenger := &mockMessenger{
		SendMulticastFunc: func(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
			t.Fatal("SendMulticast should not be called without device tokens")
			return nil
		},
	}

	svc := NewService(repo, messenger)
	svc.SyncFailed(context.Background(), &connection.Connection{ID: 1, UserID: 7}, nil)
}

func TestSyncFailedSurvivesDeliveryError(t *testing.T) {
	repo := &mockRepo{
		GetActiveTokensByUserIDFunc: func(ctx context.Context, userID int64) ([]*DeviceToken, error) {
			return []*DeviceToken{{Token: "tok-a"}}, nil
		},
	}
	messenger := &mockMessenger{
		SendMulticastFunc: func(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
			return errors.New("fcm unavailable")
		},
	}

	svc := NewService(repo, messenger)
	// Must not panic or propagate; delivery is best effort.
	svc.SyncFailed(context.Background(), &connection.Connection{ID: 1, UserID: 7, InstitutionName: "Bank"}, []string{"boom"})
}
