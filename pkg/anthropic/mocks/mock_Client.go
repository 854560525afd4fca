// Package mocks provides test doubles for the anthropic client.
package mocks

import (
	"context"

	anthropic "github.com/logiclamp/leadscout/pkg/anthropic"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

type MockClient_Expecter struct {
	mock *mock.Mock
}

func (_m *MockClient) EXPECT() *MockClient_Expecter {
	return &MockClient_Expecter{mock: &_m.Mock}
}

// CreateMessage provides a mock function with given fields: ctx, req
func (_m *MockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for CreateMessage")
	}

	var r0 *anthropic.MessageResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, anthropic.MessageRequest) (*anthropic.MessageResponse, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, anthropic.MessageRequest) *anthropic.MessageResponse); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*anthropic.MessageResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, anthropic.MessageRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// CreateMessage is a helper method to define mock.On call
//   - ctx context.Context
//   - req anthropic.MessageRequest
func (_e *MockClient_Expecter) CreateMessage(ctx interface{}, req interface{}) *MockClient_CreateMessage_Call {
	return &MockClient_CreateMessage_Call{Call: _e.mock.On("CreateMessage", ctx, req)}
}

type MockClient_CreateMessage_Call struct {
	*mock.Call
}

func (_c *MockClient_CreateMessage_Call) Run(run func(ctx context.Context, req anthropic.MessageRequest)) *MockClient_CreateMessage_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(anthropic.MessageRequest))
	})
	return _c
}

func (_c *MockClient_CreateMessage_Call) Return(_a0 *anthropic.MessageResponse, _a1 error) *MockClient_CreateMessage_Call {
	_c.Call.Return(_a0, _a1)
	return _c
}

func (_c *MockClient_CreateMessage_Call) RunAndReturn(run func(context.Context, anthropic.MessageRequest) (*anthropic.MessageResponse, error)) *MockClient_CreateMessage_Call {
	_c.Call.Return(run)
	return _c
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
