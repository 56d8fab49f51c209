package dispatch

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"

	"github.com/SafeMPC/wallet-bridge/internal/approval"
	"github.com/SafeMPC/wallet-bridge/internal/chain"
	"github.com/SafeMPC/wallet-bridge/internal/identity"
	"github.com/SafeMPC/wallet-bridge/internal/permission"
	"github.com/SafeMPC/wallet-bridge/internal/types"
	"github.com/SafeMPC/wallet-bridge/internal/util"
)

// requestSignature RECEIVED → RESOLVING_IDENTITY → (AUTO_APPROVED | AWAITING_HOLDER) → SIGNING → RESPONDED
// 任一步失败进入 ERRORED
func (d *Dispatcher) requestSignature(ctx context.Context, req *Request) (interface{}, error) {
	m := newStateMachine(req.ID, d.hook)

	var payload chain.Payload
	if err := decodePayload(req, &payload); err != nil {
		return nil, m.fail(ctx, err)
	}
	plugin, err := d.plugins.Get(payload.Blockchain)
	if err != nil {
		return nil, m.fail(ctx, types.ErrUnsupportedBlockchain(string(payload.Blockchain)))
	}
	if payload.Network != nil {
		if payload.Network.Blockchain != payload.Blockchain {
			return nil, m.fail(ctx, types.ErrInvalidNetwork(fmt.Sprintf("network is for %s, payload is for %s", payload.Network.Blockchain, payload.Blockchain)))
		}
		if err := d.networks.Validate(ctx, payload.Network); err != nil {
			return nil, m.fail(ctx, types.ErrInvalidNetwork(err.Error()))
		}
	}

	m.to(ctx, StateResolvingIdentity)

	// 授权中没有账户时由参与者匹配报告
	ident, err := d.permissions.IdentityFor(ctx, req.Origin, false)
	if err != nil {
		return nil, m.fail(ctx, err)
	}
	if ident == nil {
		return nil, m.fail(ctx, types.ErrIdentityMissing())
	}

	participants, err := plugin.Participants(&payload)
	if err != nil {
		return nil, m.fail(ctx, types.ErrInvalidPayload(err.Error()))
	}
	accounts := ident.MatchParticipants(payload.Blockchain, participants)
	if len(accounts) == 0 {
		return nil, m.fail(ctx, types.ErrNoMatchingParticipant())
	}

	messages, err := plugin.Parse(ctx, &payload, payload.Network)
	if err != nil {
		return nil, m.fail(ctx, types.ErrInvalidPayload(err.Error()))
	}

	fields := payload.RequiredFields
	locationID := ""

	if !ident.NeedsLocationChoice(fields) &&
		d.permissions.IsWhitelisted(ctx, req.Origin, ident, accounts, messages, fields) {
		m.to(ctx, StateAutoApproved)
	} else {
		m.to(ctx, StateAwaitingHolder)

		result := d.awaitHolder(ctx, approval.Request{
			Kind:       approval.KindSignature,
			Origin:     req.Origin,
			RequestID:  req.ID,
			Blockchain: payload.Blockchain,
			Identity:   ident,
			Accounts:   accounts,
			Messages:   messages,
			Locations:  ident.Locations,
			Fields:     fields,
			Network:    payload.Network,
		})
		if !result.Accepted {
			return nil, m.fail(ctx, types.ErrSignatureRejected())
		}
		locationID = result.LocationID

		if err := d.recordApproval(ctx, req.Origin, ident, accounts, messages, fields, result); err != nil {
			if errors.Is(err, permission.ErrNotGranted) {
				util.LogFromContext(ctx).Warn().Err(err).Msg("Origin was revoked while awaiting the holder")
				return nil, m.fail(ctx, types.ErrIdentityMissing())
			}
			util.LogFromContext(ctx).Error().Err(err).Msg("Failed to record approval")
			return nil, m.fail(ctx, types.ErrInternal())
		}
	}

	m.to(ctx, StateSigning)

	signatures, err := d.signAll(ctx, plugin, &payload, accounts)
	if err != nil {
		util.LogFromContext(ctx).Warn().Err(err).Int("participants", len(accounts)).Msg("Signing incomplete")
		return nil, m.fail(ctx, types.ErrSignatureFailed())
	}

	scoped := ident.Scope(accounts, fields, locationID)
	m.to(ctx, StateResponded)

	return &SignatureResult{
		Signatures: signatures,
		ReturnedFields: ReturnedFields{
			Personal: scoped.Personal,
			Location: scoped.Location,
		},
	}, nil
}

// recordApproval 签名前持久化字段授权和白名单
// 两次写入都在存储锁内确认来源仍授权给该身份，等待期间被撤销时返回 permission.ErrNotGranted
func (d *Dispatcher) recordApproval(
	ctx context.Context,
	origin string,
	ident *identity.Identity,
	accounts []identity.Account,
	messages []chain.Message,
	fields identity.RequiredFields,
	result approval.Result,
) error {
	if err := d.permissions.WidenGrant(ctx, origin, ident, fields); err != nil {
		return err
	}
	if result.Remember {
		if err := d.permissions.Remember(ctx, origin, ident, accounts, messages, fields, result.Unconditional); err != nil {
			return errors.Wrap(err, "failed to remember whitelist")
		}
	}
	return nil
}

// signAll 每个参与账户并行签名一次，必须全部成功
func (d *Dispatcher) signAll(ctx context.Context, plugin chain.Plugin, payload *chain.Payload, accounts []identity.Account) ([]string, error) {
	var (
		wg         sync.WaitGroup
		mu         deadlock.Mutex
		signatures = make([]string, len(accounts))
		errs       []error
	)

	for i, account := range accounts {
		wg.Add(1)
		go func(index int, account identity.Account) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					errs = append(errs, fmt.Errorf("plugin panicked signing %s: %v", account.Identifier(), r))
					mu.Unlock()
				}
			}()

			sig, err := plugin.Sign(ctx, payload, account.PublicKey, false, false)
			if err == nil && len(sig) == 0 {
				err = errors.New("empty signature")
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				d.metrics.ObserveSignature(string(plugin.Blockchain()), "failed")
				errs = append(errs, errors.Wrapf(err, "failed to sign for %s", account.Identifier()))
				return
			}
			d.metrics.ObserveSignature(string(plugin.Blockchain()), "success")
			signatures[index] = hex.EncodeToString(sig)
		}(i, account)
	}

	wg.Wait()

	if len(errs) > 0 {
		return nil, errs[0]
	}
	for _, s := range signatures {
		if s == "" {
			return nil, errors.New("fewer signatures than participants")
		}
	}
	return signatures, nil
}

// requestArbitrarySignature 任意数据签名总是需要持有者确认
func (d *Dispatcher) requestArbitrarySignature(ctx context.Context, req *Request) (interface{}, error) {
	var payload arbitrarySignaturePayload
	if err := decodePayload(req, &payload); err != nil {
		return nil, err
	}
	if payload.PublicKey == "" || payload.Data == "" {
		return nil, types.ErrInvalidPayload("publicKey and data are required")
	}

	ident, err := d.permissions.IdentityFor(ctx, req.Origin, false)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, types.ErrIdentityMissing()
	}

	account, ok := ident.AccountByPublicKey(payload.PublicKey)
	if !ok {
		return nil, types.ErrNoMatchingParticipant()
	}
	plugin, err := d.plugins.Get(account.Blockchain)
	if err != nil {
		return nil, types.ErrUnsupportedBlockchain(string(account.Blockchain))
	}

	result := d.awaitHolder(ctx, approval.Request{
		Kind:       approval.KindArbitrarySignature,
		Origin:     req.Origin,
		RequestID:  req.ID,
		Blockchain: account.Blockchain,
		Identity:   ident,
		Accounts:   []identity.Account{account},
		Data:       payload.Data,
		IsHash:     payload.IsHash,
	})
	if !result.Accepted {
		return nil, types.ErrSignatureRejected()
	}

	sig, err := plugin.Sign(ctx, &chain.Payload{Blockchain: account.Blockchain, Data: payload.Data}, account.PublicKey, true, payload.IsHash)
	if err != nil {
		d.metrics.ObserveSignature(string(account.Blockchain), "failed")
		util.LogFromContext(ctx).Warn().Err(err).Str("account", account.Identifier()).Msg("Arbitrary signing failed")
		if errors.Is(err, chain.ErrInvalidData) {
			return nil, types.ErrInvalidPayload(err.Error())
		}
		return nil, types.ErrSignatureFailed()
	}
	d.metrics.ObserveSignature(string(account.Blockchain), "success")
	return hex.EncodeToString(sig), nil
}
