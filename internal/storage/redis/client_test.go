package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	cfgpkg "github.com/taoyao-code/s1-panel-bridge/internal/config"
)

func TestNewClientDisabled(t *testing.T) {
	c, err := NewClient(context.Background(), cfgpkg.RedisConfig{})
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Nil(t, c)

	var nilClient *Client
	assert.NoError(t, nilClient.Close())
}
