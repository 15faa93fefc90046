package domain

import (
	"context"
	"log/slog"
)

// BaseUseCase centralizes the auth checks and structured logging every
// usecase in this service repeats around its domain call.
type BaseUseCase struct{}

func NewBaseUseCase() *BaseUseCase {
	return &BaseUseCase{}
}

func (uc *BaseUseCase) RequireAuthentication(ctx context.Context) error {
	isAuthenticated := ctx.Value(AuthenticatedKey)
	if isAuthenticated == nil || !isAuthenticated.(bool) {
		return NewErrUnauthorized()
	}
	return nil
}

func (uc *BaseUseCase) RequireOwnership(ctx context.Context, resourceOwner ResourceOwner) error {
	currentUser := GetResourceOwner(ctx)
	if resourceOwner.UserID != currentUser.UserID {
		return NewErrUnauthorized()
	}
	return nil
}

// UseCaseOperation describes one usecase invocation: the auth gate to apply
// before running, and the structured log line to emit after.
type UseCaseOperation[T any] struct {
	RequireAuth bool
	Execute     func(ctx context.Context) (T, error)
	LogMessage  string
	LogFields   map[string]interface{}
}

func (uc *BaseUseCase) ExecuteOperation[T any](ctx context.Context, op UseCaseOperation[T]) (T, error) {
	var zero T

	if op.RequireAuth {
		if err := uc.RequireAuthentication(ctx); err != nil {
			return zero, err
		}
	}

	result, err := op.Execute(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Operation failed", "operation", op.LogMessage, "error", err)
		return zero, err
	}

	if op.LogMessage != "" {
		logArgs := []interface{}{op.LogMessage}
		for k, v := range op.LogFields {
			logArgs = append(logArgs, k, v)
		}
		slog.InfoContext(ctx, op.LogMessage, logArgs...)
	}

	return result, nil
}
