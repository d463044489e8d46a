package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s, err := New("localhost:9009", 5*time.Second, 100, 1000)
	require.NoError(t, err)
	_, err = uuid.Parse(s.ID)
	assert.NoError(t, err)
	assert.Equal(t, "localhost:9009", s.Endpoint)
	assert.False(t, s.StartedAt.IsZero())
	assert.GreaterOrEqual(t, s.Uptime(), time.Duration(0))
	assert.Contains(t, s.String(), s.ID)

	other, err := New("localhost:9009", 5*time.Second, 100, 1000)
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, other.ID)
}

func TestNewRejects(t *testing.T) {
	_, err := New("", time.Second, 1, 1)
	assert.Error(t, err)
	_, err = New("x:1", 0, 1, 1)
	assert.Error(t, err)
	_, err = New("x:1", time.Second, 10, 5)
	assert.Error(t, err)
	_, err = New("x:1", time.Second, 0, 5)
	assert.Error(t, err)
}
