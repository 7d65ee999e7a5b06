package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func (s *GRPCServer) Verify(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	info, err := s.gateway.Verify(ctx, req.GetValue())
	if err != nil {
		return nil, s.statusError(ctx, "verify", err)
	}

	return s.newStruct(ctx, map[string]any{
		"account_id": info.AccountID.String(),
		"token_type": info.TokenType,
		"expires_at": info.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *GRPCServer) Refresh(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	pair, err := s.gateway.Refresh(ctx, req.GetValue())
	if err != nil {
		return nil, s.statusError(ctx, "refresh", err)
	}

	return s.newStruct(ctx, map[string]any{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (s *GRPCServer) Revoke(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if err := s.gateway.Logout(ctx, req.GetValue()); err != nil {
		return nil, s.statusError(ctx, "revoke", err)
	}
	return wrapperspb.Bool(true), nil
}

func (s *GRPCServer) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	id, ok := accountIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	account, err := s.gateway.Account(ctx, id)
	if err != nil {
		return nil, s.statusError(ctx, "whoami", err)
	}

	return s.newStruct(ctx, map[string]any{
		"account_id": account.ID.String(),
		"email":      account.Email,
		"first_name": account.FirstName,
		"last_name":  account.LastName,
	})
}

func (s *GRPCServer) newStruct(ctx context.Context, fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		s.logger.Error(ctx, "response encoding failed", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

// statusError hides everything except token failures and missing accounts.
func (s *GRPCServer) statusError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, "invalid token")
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	default:
		s.logger.Error(ctx, "request failed", "op", op, "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
