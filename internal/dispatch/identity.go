package dispatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/SafeMPC/wallet-bridge/internal/approval"
	"github.com/SafeMPC/wallet-bridge/internal/chain"
	"github.com/SafeMPC/wallet-bridge/internal/identity"
	"github.com/SafeMPC/wallet-bridge/internal/types"
	"github.com/SafeMPC/wallet-bridge/internal/util"
)

const minNonceLength = 12

// getOrRequestIdentity 已有授权覆盖请求字段时直接返回，否则请持有者选择身份
func (d *Dispatcher) getOrRequestIdentity(ctx context.Context, req *Request) (interface{}, error) {
	var payload identityPayload
	if len(req.Payload) > 0 {
		if err := decodePayload(req, &payload); err != nil {
			return nil, err
		}
	}
	fields := payload.Fields

	grant, err := d.permissions.GrantFor(ctx, req.Origin)
	if err != nil {
		return nil, err
	}
	if grant != nil && grant.Fields.Covers(fields) {
		ident, err := d.permissions.IdentityFor(ctx, req.Origin, false)
		if err != nil {
			return nil, err
		}
		if ident != nil {
			return ident.Scope(ident.Accounts, fields, ""), nil
		}
	}

	candidates, err := d.identities.Identities(ctx)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, types.ErrIdentityMissing()
	}

	result := d.awaitHolder(ctx, approval.Request{
		Kind:       approval.KindIdentity,
		Origin:     req.Origin,
		RequestID:  req.ID,
		Candidates: candidates,
		Fields:     fields,
	})
	if !result.Accepted {
		return nil, types.ErrIdentityRejected()
	}

	publicKey := result.IdentityPublicKey
	if publicKey == "" && len(candidates) == 1 {
		publicKey = candidates[0].PublicKey
	}
	ident, err := d.identities.Identity(ctx, publicKey)
	if err != nil {
		util.LogFromContext(ctx).Warn().Err(err).Str("identity", publicKey).Msg("Holder selected an unknown identity")
		return nil, types.ErrIdentityRejected()
	}

	accounts := selectAccounts(ident, result.Accounts, fields.Accounts)
	if err := d.permissions.Grant(ctx, ident, accounts, fields, req.Origin); err != nil {
		return nil, errors.Wrap(err, "failed to persist grant")
	}

	return ident.Scope(accounts, fields, result.LocationID), nil
}

// selectAccounts 使用持有者选中的账户；未选择时每个请求的网络取身份在该链上的第一个账户
func selectAccounts(ident *identity.Identity, selected []identity.Account, networks []identity.NetworkRef) []identity.Account {
	accounts := make([]identity.Account, 0)
	seen := make(map[string]bool)
	add := func(a identity.Account) {
		if !seen[a.Key()] {
			seen[a.Key()] = true
			accounts = append(accounts, a)
		}
	}

	if len(selected) > 0 {
		for _, s := range selected {
			for _, held := range ident.Accounts {
				if held.Equal(s) {
					add(held)
				}
			}
		}
		return accounts
	}

	for _, n := range networks {
		if held := ident.AccountsFor(n.Blockchain); len(held) > 0 {
			add(held[0])
		}
	}
	return accounts
}

func (d *Dispatcher) identityFromPermissions(ctx context.Context, req *Request) (interface{}, error) {
	grant, err := d.permissions.GrantFor(ctx, req.Origin)
	if err != nil || grant == nil {
		return nil, err
	}
	ident, err := d.permissions.IdentityFor(ctx, req.Origin, false)
	if err != nil || ident == nil {
		return nil, err
	}
	return ident.Scope(ident.Accounts, grant.Fields, ""), nil
}

func (d *Dispatcher) forgetIdentity(ctx context.Context, req *Request) (interface{}, error) {
	if err := d.permissions.Revoke(ctx, req.Origin); err != nil {
		return nil, err
	}
	return true, nil
}

// authenticate 身份密钥对 sha256(sha256(origin) || sha256(nonce)) 做 schnorr 签名
func (d *Dispatcher) authenticate(ctx context.Context, req *Request) (interface{}, error) {
	var payload authenticatePayload
	if err := decodePayload(req, &payload); err != nil {
		return nil, err
	}
	if len(payload.Nonce) < minNonceLength {
		return nil, types.ErrInvalidPayload("nonce must be at least 12 characters")
	}

	ident, err := d.permissions.IdentityFor(ctx, req.Origin, false)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, types.ErrIdentityMissing()
	}

	plugin, err := d.plugins.Get(chain.Nostr)
	if err != nil {
		return nil, err
	}

	originHash := sha256.Sum256([]byte(req.Origin))
	nonceHash := sha256.Sum256([]byte(payload.Nonce))
	digest := sha256.Sum256(append(originHash[:], nonceHash[:]...))

	sig, err := plugin.Sign(ctx, &chain.Payload{Data: hex.EncodeToString(digest[:])}, ident.PublicKey, true, true)
	if err != nil {
		d.metrics.ObserveSignature(string(chain.Nostr), "failed")
		return nil, errors.Wrap(err, "failed to sign authentication challenge")
	}
	d.metrics.ObserveSignature(string(chain.Nostr), "success")
	return hex.EncodeToString(sig), nil
}

func (d *Dispatcher) hasAccountFor(ctx context.Context, req *Request) (interface{}, error) {
	var payload networkPayload
	if err := decodePayload(req, &payload); err != nil {
		return nil, err
	}
	if err := d.networks.Validate(ctx, payload.Network); err != nil {
		return nil, types.ErrInvalidNetwork(err.Error())
	}

	ident, err := d.permissions.IdentityFor(ctx, req.Origin, false)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return false, nil
	}
	return len(ident.AccountsFor(payload.Network.Blockchain)) > 0, nil
}

func (d *Dispatcher) suggestNetwork(ctx context.Context, req *Request) (interface{}, error) {
	var payload networkPayload
	if err := decodePayload(req, &payload); err != nil {
		return nil, err
	}
	if err := d.networks.Validate(ctx, payload.Network); err != nil {
		return nil, types.ErrInvalidNetwork(err.Error())
	}

	exists, err := d.networks.Contains(ctx, payload.Network)
	if err != nil {
		return nil, err
	}
	if exists {
		return true, nil
	}

	result := d.awaitHolder(ctx, approval.Request{
		Kind:       approval.KindNetwork,
		Origin:     req.Origin,
		RequestID:  req.ID,
		Blockchain: payload.Network.Blockchain,
		Network:    payload.Network,
	})
	if !result.Accepted {
		// 拒绝不是错误，来源收到 false
		return false, nil
	}

	if _, err := d.networks.Add(ctx, payload.Network); err != nil {
		return nil, errors.Wrap(err, "failed to add network")
	}
	return true, nil
}
