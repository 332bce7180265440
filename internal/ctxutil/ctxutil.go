package ctxutil

import (
	"context"
	"time"

	"github.com/empjr/jrpoints/internal/models"
)

// приватные ключи, чтобы исключить коллизии
type key int

const (
	keyPrincipal key = iota
	keyOpName
)

// WithPrincipal /Principal — прокидываем аутентифицированного участника
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, keyPrincipal, p)
}

func Principal(ctx context.Context) (models.Principal, bool) {
	v := ctx.Value(keyPrincipal)
	if v == nil {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}

// WithOp /Op — имя операции (для логов/трейса)
func WithOp(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyOpName, name)
}

func Op(ctx context.Context) (string, bool) {
	v := ctx.Value(keyOpName)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Таймауты: общий и для БД.
// Пока константы; при желании позже сделаем из ENV/конфига.
var (
	DefaultDBTimeout = 5 * time.Second
)

// WithTimeout — удобная обёртка над context.WithTimeout.
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		// на всякий случай: если d<=0 — без таймаута
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}

// WithDBTimeout — стандартный таймаут для БД.
func WithDBTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := parent.Deadline(); ok {
		// если у родителя осталось меньше defaultDBTimeout — берем остаток
		remain := time.Until(dl)
		if remain < DefaultDBTimeout {
			return context.WithTimeout(parent, remain)
		}
	}
	return context.WithTimeout(parent, DefaultDBTimeout)
}
