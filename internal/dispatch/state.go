package dispatch

import (
	"context"

	"github.com/SafeMPC/wallet-bridge/internal/util"
)

// State 签名请求状态
type State string

const (
	StateReceived          State = "RECEIVED"
	StateResolvingIdentity State = "RESOLVING_IDENTITY"
	StateAutoApproved      State = "AUTO_APPROVED"
	StateAwaitingHolder    State = "AWAITING_HOLDER"
	StateSigning           State = "SIGNING"
	StateResponded         State = "RESPONDED"
	StateErrored           State = "ERRORED"
)

// TransitionHook 每次状态转换后调用
type TransitionHook func(requestID string, from State, to State)

type stateMachine struct {
	requestID string
	state     State
	hook      TransitionHook
}

func newStateMachine(requestID string, hook TransitionHook) *stateMachine {
	return &stateMachine{
		requestID: requestID,
		state:     StateReceived,
		hook:      hook,
	}
}

func (m *stateMachine) to(ctx context.Context, next State) {
	from := m.state
	m.state = next

	util.LogFromContext(ctx).Debug().
		Str("from", string(from)).
		Str("state", string(next)).
		Msg("Signature request transition")

	if m.hook != nil {
		m.hook(m.requestID, from, next)
	}
}

// fail 转入 ERRORED 并原样返回错误
func (m *stateMachine) fail(ctx context.Context, err error) error {
	m.to(ctx, StateErrored)
	return err
}
