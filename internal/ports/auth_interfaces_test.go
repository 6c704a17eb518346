package ports_test

import (
	"testing"

	mocks "github.com/chorusapp/sessiond/internal/mocks/auth"
	"github.com/chorusapp/sessiond/internal/ports"
)

// This test only verifies that our doubles conform to the ports at compile time.
func TestMocksImplementPorts(t *testing.T) {
	t.Helper()

	var _ ports.IdentityProvider = (*mocks.MockIdentityProvider)(nil)
	var _ ports.LocalStore = (*mocks.MemoryLocalStore)(nil)
	var _ ports.DeviceSessionRepository = (*mocks.MemoryDeviceSessionRepo)(nil)
	var _ ports.PremiumCacheStore = (*mocks.MemoryPremiumCache)(nil)
	var _ ports.UserDirectoryRepository = (*mocks.MemoryUserDirectory)(nil)
}
