package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/SafeMPC/wallet-bridge/internal/approval"
	"github.com/SafeMPC/wallet-bridge/internal/chain"
	"github.com/SafeMPC/wallet-bridge/internal/identity"
	"github.com/SafeMPC/wallet-bridge/internal/metrics"
	"github.com/SafeMPC/wallet-bridge/internal/permission"
	"github.com/SafeMPC/wallet-bridge/internal/types"
	"github.com/SafeMPC/wallet-bridge/internal/util"
)

// PermissionStore 授权存储，由 permission.Store 实现
type PermissionStore interface {
	IdentityFor(ctx context.Context, origin string, requireOneAccount bool) (*identity.Identity, error)
	GrantFor(ctx context.Context, origin string) (*permission.Grant, error)
	Grant(ctx context.Context, ident *identity.Identity, accounts []identity.Account, fields identity.RequiredFields, origin string) error
	Revoke(ctx context.Context, origin string) error
	IsWhitelisted(ctx context.Context, origin string, ident *identity.Identity, accounts []identity.Account, messages []chain.Message, fields identity.RequiredFields) bool
	Remember(ctx context.Context, origin string, ident *identity.Identity, accounts []identity.Account, messages []chain.Message, fields identity.RequiredFields, unconditional bool) error
	WidenGrant(ctx context.Context, origin string, ident *identity.Identity, fields identity.RequiredFields) error
}

// Approvals 审批队列，由 approval.Queue 实现
type Approvals interface {
	Await(ctx context.Context, req approval.Request) (approval.Result, error)
}

// Identities 持有者的身份，由 keychain 实现
type Identities interface {
	Identities(ctx context.Context) ([]identity.Identity, error)
	Identity(ctx context.Context, publicKey string) (*identity.Identity, error)
}

// Networks 网络注册表，由 network.Registry 实现
type Networks interface {
	Validate(ctx context.Context, n *types.Network) error
	Contains(ctx context.Context, n *types.Network) (bool, error)
	Add(ctx context.Context, n *types.Network) (bool, error)
}

// Dispatcher 校验请求类型并路由到唯一的处理函数
type Dispatcher struct {
	permissions PermissionStore
	approvals   Approvals
	plugins     *chain.Registry
	networks    Networks
	identities  Identities

	version         string
	approvalTimeout time.Duration
	metrics         *metrics.Metrics
	hook            TransitionHook
}

type Option func(d *Dispatcher)

func WithVersion(version string) Option {
	return func(d *Dispatcher) {
		d.version = version
	}
}

// WithApprovalTimeout 等待持有者的上限，<= 0 表示只受调用方 ctx 约束
func WithApprovalTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.approvalTimeout = timeout
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func WithTransitionHook(hook TransitionHook) Option {
	return func(d *Dispatcher) {
		d.hook = hook
	}
}

func New(
	permissions PermissionStore,
	approvals Approvals,
	plugins *chain.Registry,
	networks Networks,
	identities Identities,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		permissions:     permissions,
		approvals:       approvals,
		plugins:         plugins,
		networks:        networks,
		identities:      identities,
		approvalTimeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle 处理一个请求
// 未知类型返回 ok=false，不执行任何处理函数，也不产生响应
// 已接受的请求总是得到恰好一个结果或错误
func (d *Dispatcher) Handle(ctx context.Context, req *Request) (resp *Response, ok bool) {
	if req == nil {
		return nil, false
	}
	action, known := ParseActionType(req.Type)
	if !known {
		log.Debug().Str("request_id", req.ID).Str("origin", req.Origin).Msg("Dropping request with unsupported type")
		return nil, false
	}

	ctx = util.ContextWithLogger(ctx, map[string]interface{}{
		"request_id": req.ID,
		"origin":     req.Origin,
		"action":     action.String(),
	})
	logger := util.LogFromContext(ctx)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Handler panicked")
			resp = &Response{ID: req.ID, Error: types.ErrInternal()}
			ok = true
		}

		outcome := "success"
		if resp.Error != nil {
			outcome = string(resp.Error.Type)
		}
		d.metrics.ObserveRequest(action.String(), outcome)
		logger.Info().
			Str("outcome", outcome).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	}()

	result, err := d.dispatch(ctx, action, req)
	return d.respond(ctx, req, result, err), true
}

func (d *Dispatcher) dispatch(ctx context.Context, action ActionType, req *Request) (interface{}, error) {
	switch action {
	case ActionGetVersion:
		return d.version, nil
	case ActionGetOrRequestIdentity:
		return d.getOrRequestIdentity(ctx, req)
	case ActionIdentityFromPermissions:
		return d.identityFromPermissions(ctx, req)
	case ActionForgetIdentity:
		return d.forgetIdentity(ctx, req)
	case ActionAuthenticate:
		return d.authenticate(ctx, req)
	case ActionRequestSignature:
		return d.requestSignature(ctx, req)
	case ActionRequestArbitrarySignature:
		return d.requestArbitrarySignature(ctx, req)
	case ActionSuggestNetwork:
		return d.suggestNetwork(ctx, req)
	case ActionHasAccountFor:
		return d.hasAccountFor(ctx, req)
	default:
		panic(fmt.Sprintf("unhandled action type %d", action))
	}
}

func (d *Dispatcher) respond(ctx context.Context, req *Request, result interface{}, err error) *Response {
	if err == nil {
		return &Response{ID: req.ID, Result: result}
	}

	var publicErr *types.Error
	if errors.As(err, &publicErr) {
		return &Response{ID: req.ID, Error: publicErr}
	}

	util.LogFromContext(ctx).Error().Err(err).Msg("Request failed with internal error")
	return &Response{ID: req.ID, Error: types.ErrInternal()}
}

// awaitHolder 等待持有者决定，超时视为拒绝
func (d *Dispatcher) awaitHolder(ctx context.Context, req approval.Request) approval.Result {
	if d.approvalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.approvalTimeout)
		defer cancel()
	}

	result, err := d.approvals.Await(ctx, req)
	if err != nil {
		util.LogFromContext(ctx).Warn().Err(err).Str("kind", string(req.Kind)).Msg("Holder did not decide in time")
		return approval.Rejected()
	}
	return result
}

func decodePayload(req *Request, v interface{}) error {
	if len(req.Payload) == 0 {
		return types.ErrInvalidPayload("payload is required")
	}
	if err := json.Unmarshal(req.Payload, v); err != nil {
		return types.ErrInvalidPayload(err.Error())
	}
	return nil
}
