// Copyright 2026 The Pmbot Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/pmbot-project/pmbot/lib/ref"
)

// DirectSession is a Session backed by direct HTTP calls with a bearer
// access token. Create one via [Client.SessionFromToken].
type DirectSession struct {
	client      *Client
	accessToken string
	userID      ref.UserID
}

var _ Session = (*DirectSession)(nil)

// UserID returns the identity this session authenticates as.
func (s *DirectSession) UserID() ref.UserID {
	return s.userID
}

// WhoAmI asks the homeserver which user owns the access token.
func (s *DirectSession) WhoAmI(ctx context.Context) (*WhoAmIResponse, error) {
	body, err := s.client.doRequest(ctx, http.MethodGet,
		"/_matrix/client/v3/account/whoami", s.accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("whoami: %w", err)
	}

	var response WhoAmIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("whoami: failed to parse response: %w", err)
	}
	if response.UserID.IsZero() {
		return nil, fmt.Errorf("whoami: response missing user_id")
	}
	return &response, nil
}

// Sync performs one long-poll against /sync.
func (s *DirectSession) Sync(ctx context.Context, opts SyncOptions) (*SyncResponse, error) {
	query := url.Values{}
	if opts.Since != "" {
		query.Set("since", opts.Since)
	}
	if opts.Timeout > 0 || opts.SetTimeout {
		query.Set("timeout", strconv.Itoa(opts.Timeout))
	}
	if opts.FullState {
		query.Set("full_state", "true")
	}
	if opts.Filter != "" {
		query.Set("filter", opts.Filter)
	}

	body, err := s.client.doRequest(ctx, http.MethodGet,
		"/_matrix/client/v3/sync", s.accessToken, nil, query)
	if err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}

	var response SyncResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("sync: failed to parse response: %w", err)
	}
	if response.NextBatch == "" {
		return nil, fmt.Errorf("sync: response missing next_batch")
	}
	return &response, nil
}

// JoinRoom accepts an invite (or joins a public room) by room ID.
func (s *DirectSession) JoinRoom(ctx context.Context, roomID ref.RoomID) error {
	path := "/_matrix/client/v3/join/" + url.PathEscape(roomID.String())
	if _, err := s.client.doRequest(ctx, http.MethodPost, path, s.accessToken, struct{}{}); err != nil {
		return fmt.Errorf("joining room %s: %w", roomID, err)
	}
	return nil
}

// LeaveRoom leaves a room the session is joined to or invited to.
func (s *DirectSession) LeaveRoom(ctx context.Context, roomID ref.RoomID) error {
	path := "/_matrix/client/v3/rooms/" + url.PathEscape(roomID.String()) + "/leave"
	if _, err := s.client.doRequest(ctx, http.MethodPost, path, s.accessToken, struct{}{}); err != nil {
		return fmt.Errorf("leaving room %s: %w", roomID, err)
	}
	return nil
}

// JoinedRooms lists the rooms the session's user is currently joined to.
func (s *DirectSession) JoinedRooms(ctx context.Context) ([]ref.RoomID, error) {
	body, err := s.client.doRequest(ctx, http.MethodGet,
		"/_matrix/client/v3/joined_rooms", s.accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("listing joined rooms: %w", err)
	}

	var response JoinedRoomsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("listing joined rooms: failed to parse response: %w", err)
	}
	return response.JoinedRooms, nil
}

// SendMessage sends an m.room.message event.
func (s *DirectSession) SendMessage(ctx context.Context, roomID ref.RoomID, content MessageContent) (ref.EventID, error) {
	return s.SendEvent(ctx, roomID, ref.EventTypeMessage, content)
}

// SendEvent sends an arbitrary event. Each call uses a fresh
// transaction ID; the homeserver deduplicates retries of the same
// transaction, so a resend after an ambiguous network failure cannot
// produce a duplicate visible message.
func (s *DirectSession) SendEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, content any) (ref.EventID, error) {
	txnID := "pmbot-" + uuid.NewString()
	path := "/_matrix/client/v3/rooms/" + url.PathEscape(roomID.String()) +
		"/send/" + url.PathEscape(string(eventType)) + "/" + url.PathEscape(txnID)

	body, err := s.client.doRequest(ctx, http.MethodPut, path, s.accessToken, content)
	if err != nil {
		return ref.EventID{}, fmt.Errorf("sending %s to %s: %w", eventType, roomID, err)
	}

	var response SendEventResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ref.EventID{}, fmt.Errorf("sending %s to %s: failed to parse response: %w", eventType, roomID, err)
	}
	return response.EventID, nil
}

// CloseIdleConnections drops pooled HTTP connections on the underlying
// client.
func (s *DirectSession) CloseIdleConnections() {
	s.client.CloseIdleConnections()
}
