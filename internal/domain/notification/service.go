package notification

import (
	"context"
	"fmt"
	"log"

	"finlink/internal/domain/connection"
)

// Service delivers connection-health alerts to the user's registered devices.
type Service struct {
	repo      Repository
	messenger Messenger
}

// NewService creates a new notification service. messenger may be nil,
// in which case alerts are recorded in the log only.
func NewService(repo Repository, messenger Messenger) *Service {
	return &Service{repo: repo, messenger: messenger}
}

// RegisterDevice registers a device token for the authenticated user.
// If the token already belongs to another user, it is reassigned.
func (s *Service) RegisterDevice(ctx context.Context, params RegisterDeviceParams) (*DeviceToken, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return s.repo.UpsertDeviceToken(ctx, params)
}

// SyncFailed alerts the connection's owner that a sync run failed.
// Delivery is best effort and never blocks the sync path.
func (s *Service) SyncFailed(ctx context.Context, conn *connection.Connection, errs []string) {
	body := fmt.Sprintf("We couldn't refresh your %s accounts. We'll retry automatically.", conn.InstitutionName)
	if len(errs) == 0 {
		body = fmt.Sprintf("We couldn't refresh your %s accounts.", conn.InstitutionName)
	}
	s.sendToUser(ctx, conn.UserID, "Sync issue", body, map[string]string{
		"route":        CategoryConnections,
		"connectionId": fmt.Sprintf("%d", conn.ID),
	})
}

// ConnectionDisconnected alerts the connection's owner that the link was severed.
func (s *Service) ConnectionDisconnected(ctx context.Context, conn *connection.Connection) {
	body := fmt.Sprintf("Your connection to %s was disconnected. Relink to resume syncing.", conn.InstitutionName)
	s.sendToUser(ctx, conn.UserID, "Connection disconnected", body, map[string]string{
		"route":        CategoryConnections,
		"connectionId": fmt.Sprintf("%d", conn.ID),
	})
}

func (s *Service) sendToUser(ctx context.Context, userID int64, title, body string, data map[string]string) {
	tokens, err := s.repo.GetActiveTokensByUserID(ctx, userID)
	if err != nil {
		log.Printf("Error loading device tokens for user %d: %v", userID, err)
		return
	}
	if len(tokens) == 0 {
		log.Printf("No active device tokens for user %d", userID)
		return
	}
	if s.messenger == nil {
		log.Printf("Alert for user %d (no messenger configured): %s: %s", userID, title, body)
		return
	}

	tokenStrings := make([]string, len(tokens))
	for i, t := range tokens {
		tokenStrings[i] = t.Token
	}
	if err := s.messenger.SendMulticast(ctx, tokenStrings, title, body, data); err != nil {
		log.Printf("Error sending alert to user %d: %v", userID, err)
	}
}
