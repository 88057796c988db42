package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cafepos/terminal/internal/model"
)

type mockFinder struct {
	session *model.Session
}

func (m *mockFinder) OpenSessionFor(ctx context.Context, operatorID uuid.UUID) (*model.Session, error) {
	return m.session, nil
}

func TestResolveSession(t *testing.T) {
	sessID := uuid.New()
	open := &mockFinder{session: &model.Session{ID: sessID}}

	id, err := resolveSession(context.Background(), open, sessID.String(), "")
	require.NoError(t, err)
	assert.Equal(t, sessID, id)

	id, err = resolveSession(context.Background(), open, "", uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, sessID, id)

	_, err = resolveSession(context.Background(), &mockFinder{}, "", uuid.NewString())
	assert.ErrorContains(t, err, "no open session")

	_, err = resolveSession(context.Background(), open, "", "")
	assert.Error(t, err)

	_, err = resolveSession(context.Background(), open, sessID.String(), uuid.NewString())
	assert.Error(t, err)

	_, err = resolveSession(context.Background(), open, "nope", "")
	assert.ErrorContains(t, err, "invalid session id")
}

type mockCloser struct {
	session *model.Session
	err     error
}

func (m *mockCloser) CloseSession(ctx context.Context, sessionID uuid.UUID) (*model.Session, error) {
	return m.session, m.err
}

func TestCloseSession(t *testing.T) {
	sessID, opID := uuid.New(), uuid.New()

	t.Run("with final row", func(t *testing.T) {
		var out bytes.Buffer
		closed := &model.Session{ID: sessID, OperatorID: opID, CollectedTotal: decimal.RequireFromString("123.4")}
		require.NoError(t, closeSession(context.Background(), &mockCloser{session: closed}, sessID, &out))
		assert.Contains(t, out.String(), sessID.String())
		assert.Contains(t, out.String(), opID.String())
		assert.Contains(t, out.String(), "123.40")
	})

	t.Run("without final row", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, closeSession(context.Background(), &mockCloser{}, sessID, &out))
		assert.Contains(t, out.String(), "Session closed successfully!")
		assert.Contains(t, out.String(), sessID.String())
		assert.NotContains(t, out.String(), "Collected")
	})

	t.Run("backend error", func(t *testing.T) {
		var out bytes.Buffer
		err := closeSession(context.Background(), &mockCloser{err: errors.New("boom")}, sessID, &out)
		assert.EqualError(t, err, "boom")
		assert.Empty(t, out.String())
	})
}
