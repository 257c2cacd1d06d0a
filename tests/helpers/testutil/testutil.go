// Package testutil provides testing utilities and helpers for loader and
// harness tests.
package testutil

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/loader"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/logging"
)

// TestRoot is the URI base test module trees are mapped under.
const TestRoot = "resource://test/"

// MockUnloader is a mock implementation of lifecycle.Unloader for testing.
type MockUnloader struct {
	mock.Mock
}

// Unload mocks the Unload method.
func (m *MockUnloader) Unload(reason string) error {
	args := m.Called(reason)
	return args.Error(0)
}

// NewMockUnloader creates a mock unloader whose Unload succeeds.
func NewMockUnloader(t *testing.T) *MockUnloader {
	t.Helper()
	m := new(MockUnloader)
	m.On("Unload", mock.Anything).Return(nil).Maybe()
	return m
}

// ModuleTree builds an in-memory module tree from path → source pairs.
func ModuleTree(files map[string]string) fstest.MapFS {
	fsys := make(fstest.MapFS, len(files))
	for name, src := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(src)}
	}
	return fsys
}

// Options returns loader options serving files under TestRoot.
func Options(t *testing.T, files map[string]string) loader.Options {
	t.Helper()
	return loader.Options{
		Name:   "test",
		Paths:  map[string]string{"": TestRoot},
		Source: loader.FSFetcher(ModuleTree(files)),
	}
}

// NewTestLogger returns a logger writing through t.
func NewTestLogger(t *testing.T) *logging.Logger {
	t.Helper()
	return logging.Wrap(zaptest.NewLogger(t))
}

// NewObservedLogger returns a logger recording every entry at or above level.
func NewObservedLogger(level zapcore.Level) (*logging.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return logging.Wrap(zap.New(core)), logs
}
