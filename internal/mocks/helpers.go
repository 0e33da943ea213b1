package mocks

import (
	"testing"

	"go.uber.org/mock/gomock"
)

// NewMockRendererForTest creates a MockRenderer whose controller is finished
// when the test ends.
func NewMockRendererForTest(t *testing.T) *MockRenderer {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	return NewMockRenderer(ctrl)
}

// NewMockSenderForTest creates a MockSender whose controller is finished when
// the test ends.
func NewMockSenderForTest(t *testing.T) *MockSender {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	return NewMockSender(ctrl)
}
