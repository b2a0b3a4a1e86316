package ctxkeys

import (
	"context"

	"github.com/syntaxduel/syntaxduel/internal/model"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const AccountKey contextKey = "account"

func Account(ctx context.Context) *model.Account {
	account, _ := ctx.Value(AccountKey).(*model.Account)
	return account
}

func WithAccount(ctx context.Context, account *model.Account) context.Context {
	return context.WithValue(ctx, AccountKey, account)
}
