package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrincipalDefaultsToAnonymous(t *testing.T) {
	assert.Equal(t, AnonymousPrincipal, Principal(context.Background()))
	assert.Equal(t, AnonymousPrincipal, Principal(WithPrincipal(context.Background(), "")))
	assert.Equal(t, "verifier-7", Principal(WithPrincipal(context.Background(), "verifier-7")))
}

func TestNowUsesInjectedTime(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, fixed, Now(WithTime(context.Background(), fixed)))
	assert.WithinDuration(t, time.Now(), Now(context.Background()), time.Second)
}

func TestRequestMetadata(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithClientIP(ctx, "10.0.0.1")
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "10.0.0.1", ClientIP(ctx))
}
