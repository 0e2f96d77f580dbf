package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/mr-tron/base58"

	"solana-token-indexer/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call with retries and exponential backoff.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		start := time.Now()
		resp, err := c.client.Do(req)
		observability.RecordRPCLatency(time.Since(start).Seconds())
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			// RPC errors are not retried
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// GetTransaction retrieves a confirmed transaction by signature, including
// pre/post token balance snapshots. Returns (nil, nil) when not found.
func (c *HTTPClient) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "json",
			"commitment":                     "confirmed",
			"maxSupportedTransactionVersion": 0,
		},
	}

	var result getTransactionResult
	if err := c.call(ctx, "getTransaction", params, &result); err != nil {
		return nil, err
	}

	if result.Slot == 0 && result.Meta == nil {
		return nil, nil
	}

	tx := &Transaction{
		Slot:      result.Slot,
		Signature: signature,
	}
	if result.BlockTime != nil {
		tx.BlockTime = *result.BlockTime
	}
	if result.Meta != nil {
		tx.Meta = &TransactionMeta{
			Err:               result.Meta.Err,
			LogMessages:       result.Meta.LogMessages,
			PreTokenBalances:  convertTokenBalances(result.Meta.PreTokenBalances),
			PostTokenBalances: convertTokenBalances(result.Meta.PostTokenBalances),
		}
	}
	if result.Transaction != nil && result.Transaction.Message != nil {
		tx.Message = &TransactionMessage{
			AccountKeys: result.Transaction.Message.AccountKeys,
		}
	}

	return tx, nil
}

type getTransactionResult struct {
	Slot        int64               `json:"slot"`
	BlockTime   *int64              `json:"blockTime"`
	Meta        *getTransactionMeta `json:"meta"`
	Transaction *getTransactionTx   `json:"transaction"`
}

type getTransactionMeta struct {
	Err               interface{}       `json:"err"`
	LogMessages       []string          `json:"logMessages"`
	PreTokenBalances  []rawTokenBalance `json:"preTokenBalances"`
	PostTokenBalances []rawTokenBalance `json:"postTokenBalances"`
}

type getTransactionTx struct {
	Message *getTransactionMessage `json:"message"`
}

type getTransactionMessage struct {
	AccountKeys []string `json:"accountKeys"`
}

type rawTokenBalance struct {
	AccountIndex  int            `json:"accountIndex"`
	Mint          string         `json:"mint"`
	Owner         string         `json:"owner"`
	UiTokenAmount *rawUiTokenAmt `json:"uiTokenAmount"`
}

type rawUiTokenAmt struct {
	UiAmount       *float64 `json:"uiAmount"`
	UiAmountString string   `json:"uiAmountString"`
}

// convertTokenBalances coerces raw balance entries into the typed view.
// Null or unparsable amounts contribute 0 rather than an error.
func convertTokenBalances(raw []rawTokenBalance) []TokenBalance {
	if len(raw) == 0 {
		return nil
	}
	out := make([]TokenBalance, 0, len(raw))
	for _, b := range raw {
		tb := TokenBalance{
			AccountIndex: b.AccountIndex,
			Mint:         b.Mint,
			Owner:        b.Owner,
		}
		if b.UiTokenAmount != nil {
			tb.UiAmount = coerceAmount(b.UiTokenAmount)
		}
		out = append(out, tb)
	}
	return out
}

func coerceAmount(a *rawUiTokenAmt) float64 {
	if a.UiAmount != nil && !math.IsNaN(*a.UiAmount) && !math.IsInf(*a.UiAmount, 0) {
		return *a.UiAmount
	}
	v, err := strconv.ParseFloat(a.UiAmountString, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// GetTokenAccountBalance returns the ui-denominated balance of a token
// account. A missing or unparsable balance is reported as 0.
func (c *HTTPClient) GetTokenAccountBalance(ctx context.Context, account string) (float64, error) {
	params := []interface{}{
		account,
		map[string]string{"commitment": "confirmed"},
	}

	var result struct {
		Value *rawUiTokenAmt `json:"value"`
	}
	if err := c.call(ctx, "getTokenAccountBalance", params, &result); err != nil {
		return 0, err
	}
	if result.Value == nil {
		return 0, nil
	}
	return coerceAmount(result.Value), nil
}

// parsedMintInfo is the jsonParsed view of a mint account.
type parsedMintInfo struct {
	Decimals   *int                  `json:"decimals"`
	Supply     string                `json:"supply"`
	Extensions []parsedMintExtension `json:"extensions"`
}

type parsedMintExtension struct {
	Extension string `json:"extension"`
	State     struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
		URI    string `json:"uri"`
	} `json:"state"`
}

// getParsedMint fetches a mint account in jsonParsed encoding.
// Returns (nil, nil) when the account does not exist or is not a mint.
func (c *HTTPClient) getParsedMint(ctx context.Context, mint string) (*parsedMintInfo, error) {
	params := []interface{}{
		mint,
		map[string]string{"encoding": "jsonParsed", "commitment": "confirmed"},
	}

	var result struct {
		Value *struct {
			Data struct {
				Parsed struct {
					Info json.RawMessage `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}
	if result.Value == nil || len(result.Value.Data.Parsed.Info) == 0 {
		return nil, nil
	}

	var info parsedMintInfo
	if err := json.Unmarshal(result.Value.Data.Parsed.Info, &info); err != nil {
		return nil, fmt.Errorf("parse mint info: %w", err)
	}
	return &info, nil
}

// GetMintInfo returns decimal precision and ui-denominated total supply for
// a mint. Fields the chain could not provide are nil.
func (c *HTTPClient) GetMintInfo(ctx context.Context, mint string) (*MintInfo, error) {
	parsed, err := c.getParsedMint(ctx, mint)
	if err != nil {
		return nil, err
	}
	if parsed == nil {
		return &MintInfo{}, nil
	}

	info := &MintInfo{Decimals: parsed.Decimals}
	if parsed.Supply != "" && parsed.Decimals != nil {
		if raw, err := strconv.ParseFloat(parsed.Supply, 64); err == nil {
			supply := raw / math.Pow(10, float64(*parsed.Decimals))
			info.Supply = &supply
		}
	}
	return info, nil
}

// TokenMetadataInfo is on-chain token-2022 metadata extension state.
type TokenMetadataInfo struct {
	Name   string
	Symbol string
	URI    string
}

// GetTokenMetadata reads the tokenMetadata extension of a token-2022 mint.
// Returns (nil, nil) when the mint has no such extension.
func (c *HTTPClient) GetTokenMetadata(ctx context.Context, mint string) (*TokenMetadataInfo, error) {
	parsed, err := c.getParsedMint(ctx, mint)
	if err != nil {
		return nil, err
	}
	if parsed == nil {
		return nil, nil
	}
	for _, ext := range parsed.Extensions {
		if ext.Extension == "tokenMetadata" {
			return &TokenMetadataInfo{
				Name:   ext.State.Name,
				Symbol: ext.State.Symbol,
				URI:    ext.State.URI,
			}, nil
		}
	}
	return nil, nil
}

// GetSlot retrieves the current confirmed slot.
func (c *HTTPClient) GetSlot(ctx context.Context) (int64, error) {
	params := []interface{}{
		map[string]string{"commitment": "confirmed"},
	}
	var result int64
	if err := c.call(ctx, "getSlot", params, &result); err != nil {
		return 0, err
	}
	return result, nil
}

// GetBlockTime retrieves the estimated production time of a slot.
func (c *HTTPClient) GetBlockTime(ctx context.Context, slot int64) (*int64, error) {
	params := []interface{}{slot}
	var result *int64
	if err := c.call(ctx, "getBlockTime", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetAccountInfo retrieves raw account state by public key.
// Returns (nil, nil) when the account does not exist.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error) {
	params := []interface{}{
		pubkey,
		map[string]string{"encoding": "base64", "commitment": "confirmed"},
	}

	var result struct {
		Value *rawAccount `json:"value"`
	}
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, nil
	}
	return result.Value.toAccountInfo()
}

type rawAccount struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
}

func (a *rawAccount) toAccountInfo() (*AccountInfo, error) {
	info := &AccountInfo{
		Lamports:   a.Lamports,
		Owner:      a.Owner,
		Executable: a.Executable,
	}
	if len(a.Data) >= 1 {
		data, err := base64.StdEncoding.DecodeString(a.Data[0])
		if err != nil {
			return nil, fmt.Errorf("decode account data: %w", err)
		}
		info.Data = data
	}
	return info, nil
}

// GetProgramAccounts scans accounts owned by a program, optionally narrowed
// by data size and memcmp filters.
func (c *HTTPClient) GetProgramAccounts(ctx context.Context, program string, opts *ProgramAccountsOpts) ([]ProgramAccount, error) {
	config := map[string]interface{}{
		"encoding":   "base64",
		"commitment": "confirmed",
	}

	var filters []interface{}
	if opts != nil {
		if opts.DataSize > 0 {
			filters = append(filters, map[string]interface{}{"dataSize": opts.DataSize})
		}
		for _, mc := range opts.MemCmp {
			filters = append(filters, map[string]interface{}{
				"memcmp": map[string]interface{}{
					"offset": mc.Offset,
					"bytes":  base58.Encode(mc.Bytes),
				},
			})
		}
	}
	if len(filters) > 0 {
		config["filters"] = filters
	}

	params := []interface{}{program, config}

	var result []struct {
		Pubkey  string      `json:"pubkey"`
		Account *rawAccount `json:"account"`
	}
	if err := c.call(ctx, "getProgramAccounts", params, &result); err != nil {
		return nil, err
	}

	accounts := make([]ProgramAccount, 0, len(result))
	for _, r := range result {
		if r.Account == nil {
			continue
		}
		info, err := r.Account.toAccountInfo()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, ProgramAccount{Pubkey: r.Pubkey, Account: *info})
	}
	return accounts, nil
}

var _ RPCClient = (*HTTPClient)(nil)
