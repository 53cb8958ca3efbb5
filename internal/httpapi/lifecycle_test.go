// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

package httpapi_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/conectasenior/authgate/internal/access"
	"github.com/conectasenior/authgate/internal/auth"
	"github.com/conectasenior/authgate/internal/auth/mocks"
	"github.com/conectasenior/authgate/internal/httpapi"
	"github.com/conectasenior/authgate/internal/token"
)

func newLifecycleServer(t *testing.T) *httpapi.Server {
	t.Helper()

	codec, err := token.NewCodec([]byte(testSecret))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service, err := auth.NewServiceWithLogger(
		mocks.NewMockPrincipalRepository(t),
		mocks.NewMockPasswordHasher(t),
		codec, time.Minute, logger)
	require.NoError(t, err)

	evaluator, err := access.NewEvaluator(access.DefaultPolicy(), logger)
	require.NoError(t, err)

	server, err := httpapi.NewServer("127.0.0.1:0", service, codec, evaluator, nil, logger)
	require.NoError(t, err)
	return server
}

func TestServer_Lifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	server := newLifecycleServer(t)

	errCh, err := server.Start()
	require.NoError(t, err)
	assert.NotEmpty(t, server.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))

	// The serve goroutine closes the channel on graceful shutdown.
	select {
	case serveErr, open := <-errCh:
		require.False(t, open, "unexpected serve error: %v", serveErr)
	case <-time.After(5 * time.Second):
		t.Fatal("serve goroutine did not exit")
	}
}

func TestServer_DoubleStart(t *testing.T) {
	server := newLifecycleServer(t)

	_, err := server.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})

	_, err = server.Start()
	require.Error(t, err)
}

func TestServer_StopIdempotent(t *testing.T) {
	server := newLifecycleServer(t)

	_, err := server.Start()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, server.Stop(ctx))
	require.NoError(t, server.Stop(ctx))
}
