// Package mocks provides mock implementations for testing the session system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockUserDirectoryRepository(ctrl)
//	mockRepo.EXPECT().GetUser(gomock.Any(), gomock.Any()).Return(rec, nil)
package mocks

// Generate mock for UserDirectoryRepository interface from internal/ports package.
// This creates MockUserDirectoryRepository with methods for all UserDirectoryRepository interface methods:
// GetUser, UpsertUser, SetRole, Allowlist
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=user_directory_repository_mock.go github.com/chorusapp/sessiond/internal/ports UserDirectoryRepository

// Generate mock for DeviceSessionRepository interface from internal/ports package.
// This creates MockDeviceSessionRepository with methods for all DeviceSessionRepository interface methods:
// List, Put, Delete, DeleteExpired
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=device_session_repository_mock.go github.com/chorusapp/sessiond/internal/ports DeviceSessionRepository
