package identity

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/SafeMPC/wallet-bridge/internal/api"
	"github.com/SafeMPC/wallet-bridge/internal/chain"
	"github.com/SafeMPC/wallet-bridge/internal/identity"
	"github.com/SafeMPC/wallet-bridge/internal/keychain"
	"github.com/SafeMPC/wallet-bridge/internal/util/command"
)

const (
	nameFlag       = "name"
	fieldFlag      = "field"
	blockchainFlag = "blockchain"
	locationFlag   = "location"
)

func newCreate() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Creates an identity with one account per blockchain",
		Long: `Creates an identity in the keychain. A fresh key is generated for the
identity itself and for every requested blockchain.

Locations are given as id:name[:key=value;key=value], e.g.
  --location "home:Home:country=NL;city=Utrecht"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := command.LoadConfig(cmd)
			if err != nil {
				return err
			}

			req, err := createRequestFromFlags(cmd)
			if err != nil {
				return err
			}

			return command.WithServer(cmd.Context(), cfg, func(ctx context.Context, s *api.Server) error {
				ident, err := createIdentity(ctx, s, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), ident)
			})
		},
	}
	cmd.Flags().String(nameFlag, "", "Display name of the identity.")
	cmd.Flags().StringArray(fieldFlag, nil, "Personal field as key=value, repeatable.")
	cmd.Flags().StringSlice(blockchainFlag, []string{string(chain.Ethereum)}, "Blockchains to create accounts for.")
	cmd.Flags().StringArray(locationFlag, nil, "Location as id:name[:key=value;...], repeatable.")
	return cmd
}

func createRequestFromFlags(cmd *cobra.Command) (keychain.CreateIdentityRequest, error) {
	var req keychain.CreateIdentityRequest

	name, err := cmd.Flags().GetString(nameFlag)
	if err != nil {
		return req, err
	}
	fields, err := cmd.Flags().GetStringArray(fieldFlag)
	if err != nil {
		return req, err
	}
	blockchains, err := cmd.Flags().GetStringSlice(blockchainFlag)
	if err != nil {
		return req, err
	}
	locations, err := cmd.Flags().GetStringArray(locationFlag)
	if err != nil {
		return req, err
	}

	req.Name = name
	for _, f := range fields {
		key, value, err := parsePair(f)
		if err != nil {
			return req, errors.Wrapf(err, "invalid --%s", fieldFlag)
		}
		req.Fields = append(req.Fields, identity.Field{Key: key, Value: value})
	}
	for _, b := range blockchains {
		req.Blockchains = append(req.Blockchains, chain.Blockchain(strings.TrimSpace(b)))
	}
	for _, l := range locations {
		loc, err := parseLocation(l)
		if err != nil {
			return req, errors.Wrapf(err, "invalid --%s", locationFlag)
		}
		req.Locations = append(req.Locations, loc)
	}
	return req, nil
}

func createIdentity(ctx context.Context, s *api.Server, req keychain.CreateIdentityRequest) (*identity.Identity, error) {
	for _, b := range req.Blockchains {
		if !s.Plugins.Has(b) {
			return nil, errors.Errorf("no plugin registered for blockchain %q", b)
		}
	}
	return s.Keychain.CreateIdentity(ctx, s.Plugins, req)
}

func parsePair(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", errors.Errorf("expected key=value, got %q", s)
	}
	return key, strings.TrimSpace(value), nil
}

func parseLocation(s string) (identity.Location, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" {
		return identity.Location{}, errors.Errorf("expected id:name[:key=value;...], got %q", s)
	}

	loc := identity.Location{
		ID:   strings.TrimSpace(parts[0]),
		Name: strings.TrimSpace(parts[1]),
	}
	if len(parts) == 3 && parts[2] != "" {
		loc.Fields = make(map[string]string)
		for _, pair := range strings.Split(parts[2], ";") {
			key, value, err := parsePair(pair)
			if err != nil {
				return identity.Location{}, err
			}
			loc.Fields[key] = value
		}
	}
	return loc, nil
}
