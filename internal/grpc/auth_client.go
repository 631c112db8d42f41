package grpc

import (
	"context"
	"errors"

	authpb "messenger-service/pb/auth"
)

// AuthClient wraps the auth-service gRPC client. The auth service is the
// identity provider: it owns accounts, sessions and user profiles.
type AuthClient struct {
	client authpb.AuthServiceClient
}

// NewAuthClient constructs the wrapper.
func NewAuthClient(client authpb.AuthServiceClient) *AuthClient {
	return &AuthClient{client: client}
}

// ValidateToken verifies the JWT and returns the authenticated user id.
func (a *AuthClient) ValidateToken(ctx context.Context, token string) (int, error) {
	resp, err := a.client.ValidateToken(ctx, &authpb.ValidateTokenRequest{Token: token})
	if err != nil {
		return 0, err
	}
	if !resp.GetValid() || resp.GetUserId() == 0 {
		return 0, errors.New("invalid token")
	}
	return int(resp.GetUserId()), nil
}

// GetUser fetches user info from the identity provider.
func (a *AuthClient) GetUser(ctx context.Context, userID int) (*authpb.User, error) {
	resp, err := a.client.GetUser(ctx, &authpb.GetUserRequest{UserId: int64(userID)})
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.GetId() == 0 {
		return nil, errors.New("user not found")
	}
	return resp, nil
}

// BulkUsers fetches multiple users in one call.
func (a *AuthClient) BulkUsers(ctx context.Context, ids []int) ([]*authpb.User, error) {
	if len(ids) == 0 {
		return []*authpb.User{}, nil
	}
	id64s := make([]int64, 0, len(ids))
	for _, id := range ids {
		id64s = append(id64s, int64(id))
	}

	resp, err := a.client.BulkUsers(ctx, &authpb.BulkUsersRequest{Ids: id64s})
	if err != nil {
		return nil, err
	}
	return resp.GetUsers(), nil
}

// ListUsers returns all known users except the caller.
func (a *AuthClient) ListUsers(ctx context.Context, excludeID int) ([]*authpb.User, error) {
	resp, err := a.client.ListUsers(ctx, &authpb.ListUsersRequest{ExcludeId: int64(excludeID)})
	if err != nil {
		return nil, err
	}
	return resp.GetUsers(), nil
}
