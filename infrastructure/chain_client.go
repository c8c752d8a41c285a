package infrastructure

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"slotbridge/domain/entities"
	"slotbridge/domain/interfaces"
)

const defaultPollInterval = 2 * time.Second

// ChainClient calls the machine contract's RPC gateway over HTTP. It signs
// spin submissions with the session wallet signer; the gateway relays signed
// transactions to the chain and exposes confirmation polling.
type ChainClient struct {
	baseURL      string
	contractID   string
	signer       interfaces.WalletSigner
	http         *http.Client
	pollInterval time.Duration
}

// NewChainClient creates a chain client for the given gateway and contract
func NewChainClient(baseURL, contractID string, signer interfaces.WalletSigner) *ChainClient {
	return &ChainClient{
		baseURL:      baseURL,
		contractID:   contractID,
		signer:       signer,
		http:         &http.Client{Timeout: 30 * time.Second},
		pollInterval: defaultPollInterval,
	}
}

type submitSpinRequest struct {
	ContractID string         `json:"contractId"`
	From       string         `json:"from"`
	Stake      entities.Stake `json:"stake"`
	Mode       string         `json:"mode"`
	Signature  string         `json:"signature"`
}

type submitSpinResponse struct {
	TxID  string `json:"txId"`
	Error string `json:"error"`
}

// SubmitSpin signs and submits a spin transaction. It returns once the
// network accepted the transaction; the tx id becomes the engine id.
func (c *ChainClient) SubmitSpin(ctx context.Context, stake entities.Stake, mode entities.WagerMode) (string, error) {
	payload := submitSpinRequest{
		ContractID: c.contractID,
		From:       c.signer.Address(),
		Stake:      stake,
		Mode:       string(mode),
	}

	unsigned, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal spin transaction: %w", err)
	}
	sig, err := c.signer.Sign(unsigned)
	if err != nil {
		return "", fmt.Errorf("failed to sign spin transaction: %w", err)
	}
	payload.Signature = hex.EncodeToString(sig)

	var result submitSpinResponse
	if err := c.post(ctx, "/spins", payload, &result); err != nil {
		return "", err
	}
	if result.TxID == "" {
		return "", fmt.Errorf("chain accepted spin without a tx id")
	}
	return result.TxID, nil
}

type spinResultResponse struct {
	Status            string     `json:"status"`
	Grid              [][]string `json:"grid"`
	BonusSpinsAwarded int        `json:"bonusSpinsAwarded"`
	JackpotHit        bool       `json:"jackpotHit"`
	JackpotAmount     int64      `json:"jackpotAmount"`
	Error             string     `json:"error"`
}

// AwaitOutcome polls until the transaction confirms and returns the raw spin
// result. The context bounds the wait.
func (c *ChainClient) AwaitOutcome(ctx context.Context, txID string) (*entities.SpinResult, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var result spinResultResponse
		err := c.get(ctx, "/spins/"+txID+"/result", &result)
		if err == nil {
			switch result.Status {
			case "confirmed":
				return &entities.SpinResult{
					Grid:              result.Grid,
					BonusSpinsAwarded: result.BonusSpinsAwarded,
					JackpotHit:        result.JackpotHit,
					JackpotAmount:     result.JackpotAmount,
				}, nil
			case "rejected":
				return nil, fmt.Errorf("transaction %s rejected: %s", txID, result.Error)
			}
		} else if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

type balanceResponse struct {
	Confirmed int64  `json:"confirmed"`
	Error     string `json:"error"`
}

// Balance fetches the confirmed wallet balance from the ledger
func (c *ChainClient) Balance(ctx context.Context) (int64, error) {
	var result balanceResponse
	if err := c.get(ctx, "/balance/"+c.signer.Address(), &result); err != nil {
		return 0, err
	}
	return result.Confirmed, nil
}

type creditBalanceResponse struct {
	Credits    int64  `json:"credits"`
	BonusSpins int    `json:"bonusSpins"`
	Error      string `json:"error"`
}

// CreditBalance fetches the authoritative credit and bonus-spin counters from
// the machine contract
func (c *ChainClient) CreditBalance(ctx context.Context) (entities.CreditBalance, error) {
	var result creditBalanceResponse
	if err := c.get(ctx, "/contracts/"+c.contractID+"/credits/"+c.signer.Address(), &result); err != nil {
		return entities.CreditBalance{}, err
	}
	return entities.CreditBalance{Credits: result.Credits, BonusSpins: result.BonusSpins}, nil
}

func (c *ChainClient) post(ctx context.Context, path string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, result)
}

func (c *ChainClient) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, result)
}

func (c *ChainClient) do(req *http.Request, result any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("chain request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read chain response: %w", err)
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode chain response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var fail struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &fail)
		if fail.Error == "" {
			fail.Error = resp.Status
		}
		return fmt.Errorf("chain: %s", fail.Error)
	}
	return nil
}
