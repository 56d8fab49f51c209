package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/SafeMPC/wallet-bridge/internal/config"
	"github.com/SafeMPC/wallet-bridge/internal/util/command"
)

const (
	verboseFlag string = "verbose"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("probe",
		newLiveness(),
		newReadiness(),
	)
}

type probeResult struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// runProbe 请求运行中服务的健康端点，非 200 视为失败
func runProbe(cmd *cobra.Command, path string) error {
	cfg, err := command.LoadConfig(cmd)
	if err != nil {
		return err
	}

	verbose, err := cmd.Flags().GetBool(verboseFlag)
	if err != nil {
		return err
	}

	result, err := probe(cmd.Context(), cfg.Management, path)
	if verbose {
		if result != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", path, result.Status, result.Timestamp)
		}
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", path, err)
		}
	}
	return err
}

func probe(ctx context.Context, cfg config.Management, path string) (*probeResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := strings.TrimSuffix(cfg.ProbeURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid probe url %s", url)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to reach %s", url)
	}
	defer res.Body.Close()

	var result probeResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to decode probe response")
	}
	if res.StatusCode != http.StatusOK {
		return &result, errors.Errorf("probe returned status %d", res.StatusCode)
	}
	return &result, nil
}
