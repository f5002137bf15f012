package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Crush-on-Study/Black-Market/internal/password"
	"github.com/Crush-on-Study/Black-Market/internal/repository/memory"
	"github.com/Crush-on-Study/Black-Market/internal/testutil"
	"github.com/Crush-on-Study/Black-Market/internal/token"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type env struct {
	db     *memory.DB
	clock  *testutil.FakeClock
	mailer *testutil.CapturingMailer
	codec  *token.JWT
	tokens *TokenService
	auth   *Auth
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db := memory.New()
	clk := testutil.NewFakeClock(epoch)
	mailer := &testutil.CapturingMailer{}
	log := testutil.MakeNoopLogger()

	codec, err := token.NewJWT("test-secret", "HS256", token.WithClock(clk))
	require.NoError(t, err)
	hasher, err := password.NewHasher(password.Params{Time: 1, MemKiB: 1024, Par: 1})
	require.NoError(t, err)

	tokens := NewTokenService(codec, token.NewOpaque(), db, clk, 0, log)
	auth := NewAuth(db, hasher, codec, tokens, mailer, clk, DefaultAuthConfig(), log)

	return &env{db: db, clock: clk, mailer: mailer, codec: codec, tokens: tokens, auth: auth}
}

// signup walks the full verification flow and returns the new session.
func (e *env) signup(t *testing.T, email, displayName, pw string) Session {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, e.auth.RequestVerification(ctx, email, displayName))
	sent, ok := e.mailer.Last(email)
	require.True(t, ok)

	vt, err := e.auth.ConfirmCode(ctx, email, sent.Code)
	require.NoError(t, err)

	session, err := e.auth.CompleteSetup(ctx, SetupParams{VerificationToken: vt, Email: email, Password: pw})
	require.NoError(t, err)
	return session
}
