package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdvertiseAddrFromBindAddr(t *testing.T) {
	addr, err := AdvertiseAddrFromBindAddr("10.26.104.45:8002")
	assert.NoError(t, err)
	assert.Equal(t, "10.26.104.45:8002", addr)

	addr, err = AdvertiseAddrFromBindAddr("localhost:8002")
	assert.NoError(t, err)
	assert.Equal(t, "localhost:8002", addr)

	_, err = AdvertiseAddrFromBindAddr("8002")
	assert.Error(t, err)
}
