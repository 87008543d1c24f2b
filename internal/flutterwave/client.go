// Package flutterwave is a narrow REST client for the Flutterwave v3 API:
// transfers, verification of charges and transfers, and virtual accounts.
package flutterwave

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paywave/paywave/internal/apperr"
	"github.com/paywave/paywave/internal/money"
)

const (
	currencyNGN    = "NGN"
	maxErrorBody   = 4 << 10
	defaultTimeout = 15 * time.Second
)

// Client talks to Flutterwave with a bearer secret key.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
	logger    *slog.Logger
}

// NewClient builds a client. A zero timeout falls back to 15s.
func NewClient(baseURL, secretKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// SubmitTransfer asks the processor to pay out to an external account.
func (c *Client) SubmitTransfer(ctx context.Context, req TransferRequest) (TransferAck, error) {
	body := transferBody{
		AccountBank:   req.BankCode,
		AccountNumber: req.AccountNumber,
		Amount:        json.Number(money.ToNaira(req.Amount).String()),
		Narration:     req.Narration,
		Currency:      currencyNGN,
		Reference:     req.Reference,
		DebitCurrency: currencyNGN,
	}
	var out envelope[TransferAck]
	if err := c.do(ctx, http.MethodPost, "/transfers", body, &out); err != nil {
		return TransferAck{}, err
	}
	return out.Data, nil
}

// VerifyTransaction fetches the processor's view of an inbound charge.
func (c *Client) VerifyTransaction(ctx context.Context, id int64) (VerifiedTransaction, error) {
	var out envelope[transactionData]
	if err := c.do(ctx, http.MethodGet, "/transactions/"+strconv.FormatInt(id, 10)+"/verify", nil, &out); err != nil {
		return VerifiedTransaction{}, err
	}
	d := out.Data
	amount, err := money.ToKobo(d.Amount)
	if err != nil {
		return VerifiedTransaction{}, apperr.Upstream("payment processor returned an invalid amount", err)
	}
	return VerifiedTransaction{
		ID:                      d.ID,
		FlwRef:                  d.FlwRef,
		Amount:                  amount,
		Currency:                d.Currency,
		Status:                  d.Status,
		CustomerEmail:           d.Customer.Email,
		OriginatorName:          d.Meta.OriginatorName,
		OriginatorBank:          d.Meta.BankName,
		OriginatorAccountNumber: d.Meta.OriginatorAccountNumber,
	}, nil
}

// VerifyTransfer fetches the processor's view of an outbound transfer.
func (c *Client) VerifyTransfer(ctx context.Context, id int64) (VerifiedTransfer, error) {
	var out envelope[transferData]
	if err := c.do(ctx, http.MethodGet, "/transfers/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return VerifiedTransfer{}, err
	}
	d := out.Data
	amount, err := money.ToKobo(d.Amount)
	if err != nil {
		return VerifiedTransfer{}, apperr.Upstream("payment processor returned an invalid amount", err)
	}
	return VerifiedTransfer{
		ID:            d.ID,
		Reference:     d.Reference,
		Amount:        amount,
		Status:        d.Status,
		Narration:     d.Narration,
		BankName:      d.BankName,
		FullName:      d.FullName,
		AccountNumber: d.AccountNumber,
	}, nil
}

// CreateVirtualAccount issues a permanent virtual account number.
func (c *Client) CreateVirtualAccount(ctx context.Context, req VirtualAccountRequest) (VirtualAccount, error) {
	req.IsPermanent = true
	var out envelope[VirtualAccount]
	if err := c.do(ctx, http.MethodPost, "/virtual-account-numbers", req, &out); err != nil {
		return VirtualAccount{}, err
	}
	return out.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.logger.Warn("flutterwave request timed out", slog.String("path", path))
			return apperr.Wrap(ErrOutcomeUnknown, err)
		}
		return apperr.Upstream("payment processor unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return apperr.Wrap(ErrOutcomeUnknown, err)
		}
		return apperr.Upstream("read payment processor response", err)
	}

	var head envelope[json.RawMessage]
	decodeErr := json.Unmarshal(raw, &head)
	if resp.StatusCode >= http.StatusBadRequest || decodeErr != nil || head.Status != "success" {
		apiErr := &APIError{StatusCode: resp.StatusCode, Status: head.Status, Message: head.Message}
		c.logger.Error("flutterwave request failed",
			slog.String("path", path),
			slog.Int("status_code", resp.StatusCode),
			slog.String("payload", truncate(raw)))
		return apperr.Upstream("payment processor rejected the request", apiErr)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Upstream("decode payment processor response", err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(raw []byte) string {
	if len(raw) > maxErrorBody {
		raw = raw[:maxErrorBody]
	}
	return string(raw)
}
