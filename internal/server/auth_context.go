package server

import (
	"context"

	"cumulus/internal/models"
)

type authContextKey struct{}

func contextWithAccount(ctx context.Context, account *models.Account) context.Context {
	return context.WithValue(ctx, authContextKey{}, account)
}

func accountFromContext(ctx context.Context) (*models.Account, bool) {
	if ctx == nil {
		return nil, false
	}
	account, ok := ctx.Value(authContextKey{}).(*models.Account)
	if !ok || account == nil {
		return nil, false
	}
	return account, true
}
