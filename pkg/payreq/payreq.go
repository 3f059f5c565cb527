// Package payreq implements "dpc:" payment request URIs.
//
// A payment request names the outputs of a shielded transaction, similar to
// Bitcoin's BIP 21. It can be shared as a link, a QR code or plain text and
// fed straight into the authorization builder.
//
// URI Format:
//
//	dpc:<address>?amount=<amount>&memo=<memo>&label=<label>&message=<message>
//
// Multiple recipients are supported with indexed parameters:
//
//	dpc:?address.1=<addr1>&amount.1=<amt1>&address.2=<addr2>&amount.2=<amt2>
//
// Amounts are whole base units. The memo is transaction-wide (the scheme
// carries a single memo per authorization) and is never indexed.
package payreq

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/suffix-labs/dpc-auth/pkg/dpc"
)

// Scheme is the URI scheme prefix.
const Scheme = "dpc:"

// maxIndex is the largest accepted parameter index.
const maxIndex = 9999

var (
	// ErrNoPayments is returned when a URI names no recipient.
	ErrNoPayments = errors.New("no payments found in URI")
	// ErrMemoTooLong is returned for memos longer than dpc.MemoSize bytes.
	ErrMemoTooLong = errors.New("memo too long")
)

// PaymentRequest represents a parsed payment request.
type PaymentRequest struct {
	Payments []Payment // Recipients in index order
	Memo     *string   // Optional transaction memo
}

// Payment represents a single payment within a request.
type Payment struct {
	Address dpc.Address // Recipient
	Amount  uint64      // Amount in base units
	Label   *string     // Optional label for the recipient
	Message *string     // Optional message to display to the user
}

// Parse parses a payment request URI.
//
// URI formats supported:
//  1. Single recipient: dpc:<address>?amount=150&memo=hello
//  2. Multiple recipients: dpc:?address.1=addr1&amount.1=10&address.2=addr2&amount.2=20
//
// Every payment must carry an address and an amount.
func Parse(uri string) (*PaymentRequest, error) {
	if !strings.HasPrefix(uri, Scheme) {
		return nil, errors.Newf("missing %q prefix", Scheme)
	}
	uri = strings.TrimPrefix(uri, Scheme)

	baseAddress, query := uri, ""
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		baseAddress, query = uri[:i], uri[i+1:]
	}

	params, err := url.ParseQuery(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse query")
	}

	req := &PaymentRequest{}
	if memo := params.Get("memo"); memo != "" {
		if len(memo) > dpc.MemoSize {
			return nil, errors.Wrapf(ErrMemoTooLong, "%d bytes, max %d", len(memo), dpc.MemoSize)
		}
		req.Memo = &memo
	}

	if hasIndexedParams(params) {
		if baseAddress != "" {
			return nil, errors.New("indexed parameters cannot follow a base address")
		}
		req.Payments, err = parseIndexedPayments(params)
	} else {
		var payment Payment
		payment, err = parsePayment(params, baseAddress, -1)
		req.Payments = []Payment{payment}
	}
	if err != nil {
		return nil, err
	}

	if len(req.Payments) == 0 {
		return nil, ErrNoPayments
	}
	return req, nil
}

// parsePayment reads one payment. index < 0 selects unindexed parameters.
func parsePayment(params url.Values, address string, index int) (Payment, error) {
	var payment Payment

	what := "payment"
	if index >= 0 {
		what = fmt.Sprintf("payment %d", index)
	}
	get := func(name string) string {
		if index < 0 {
			return params.Get(name)
		}
		return getIndexedParam(params, name, index)
	}

	if addrParam := get("address"); addrParam != "" {
		address = addrParam
	}
	if address == "" {
		return payment, errors.Newf("%s missing address", what)
	}
	addr, err := dpc.ParseAddress(address)
	if err != nil {
		return payment, errors.Wrap(err, what)
	}
	payment.Address = addr

	amountStr := get("amount")
	if amountStr == "" {
		return payment, errors.Newf("%s missing amount", what)
	}
	amount, err := parseAmount(amountStr)
	if err != nil {
		return payment, errors.Wrapf(err, "%s invalid amount", what)
	}
	payment.Amount = amount

	if label := get("label"); label != "" {
		payment.Label = &label
	}
	if message := get("message"); message != "" {
		payment.Message = &message
	}

	return payment, nil
}

// parseIndexedPayments parses multiple recipients using indexed parameters.
//
// Index 0 can be written without suffix.
func parseIndexedPayments(params url.Values) ([]Payment, error) {
	seen := make(map[int]bool)
	for key := range params {
		if strings.HasPrefix(key, "memo.") {
			return nil, errors.Newf("memo is transaction-wide, got %q", key)
		}
		if idx := extractIndex(key); idx >= 0 {
			seen[idx] = true
		}
	}
	if params.Get("address") != "" {
		seen[0] = true
	}

	indices := make([]int, 0, len(seen))
	for idx := range seen {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	payments := make([]Payment, 0, len(indices))
	for _, idx := range indices {
		payment, err := parsePayment(params, "", idx)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	return payments, nil
}

// hasIndexedParams checks if the query contains indexed parameters.
func hasIndexedParams(params url.Values) bool {
	for key := range params {
		if strings.Contains(key, ".") {
			return true
		}
	}
	return false
}

// extractIndex extracts the index from a parameter name.
//
// Examples:
//   - "address.1" -> 1
//   - "amount.42" -> 42
//   - "address" -> -1 (no index)
//
// Returns -1 if no index found.
func extractIndex(paramName string) int {
	parts := strings.Split(paramName, ".")
	if len(parts) != 2 {
		return -1
	}

	idx, err := strconv.Atoi(parts[1])
	if err != nil || idx < 0 || idx > maxIndex {
		return -1
	}

	return idx
}

// getIndexedParam gets a parameter value for a specific index.
//
// For index 0, tries both "name" and "name.0".
func getIndexedParam(params url.Values, name string, index int) string {
	if index == 0 {
		if val := params.Get(name); val != "" {
			return val
		}
	}
	return params.Get(fmt.Sprintf("%s.%d", name, index))
}

// parseAmount parses a whole-unit amount.
func parseAmount(amountStr string) (uint64, error) {
	amount, err := strconv.ParseUint(amountStr, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "not a valid amount")
	}
	return amount, nil
}

// Outputs returns the recipients and amounts in payment order.
func (req *PaymentRequest) Outputs() ([]dpc.Address, []uint64) {
	recipients := make([]dpc.Address, len(req.Payments))
	amounts := make([]uint64, len(req.Payments))
	for i, p := range req.Payments {
		recipients[i] = p.Address
		amounts[i] = p.Amount
	}
	return recipients, amounts
}

// MemoBytes returns the memo zero-padded to dpc.MemoSize, or nil.
func (req *PaymentRequest) MemoBytes() *dpc.Memo {
	if req.Memo == nil {
		return nil
	}
	var memo dpc.Memo
	copy(memo[:], *req.Memo)
	return &memo
}

// ============================================================================
// Encoding
// ============================================================================

// Encode creates a URI from a PaymentRequest. It is the inverse of Parse.
func (req *PaymentRequest) Encode() string {
	params := url.Values{}
	if req.Memo != nil {
		params.Add("memo", *req.Memo)
	}

	base := ""
	switch len(req.Payments) {
	case 0:
	case 1:
		base = req.Payments[0].Address.String()
		addPaymentParams(params, req.Payments[0], "")
	default:
		for i, p := range req.Payments {
			idx := fmt.Sprintf(".%d", i)
			params.Add("address"+idx, p.Address.String())
			addPaymentParams(params, p, idx)
		}
	}

	uri := Scheme + base
	if len(params) > 0 {
		uri += "?" + params.Encode()
	}
	return uri
}

func addPaymentParams(params url.Values, p Payment, suffix string) {
	params.Add("amount"+suffix, strconv.FormatUint(p.Amount, 10))
	if p.Label != nil {
		params.Add("label"+suffix, *p.Label)
	}
	if p.Message != nil {
		params.Add("message"+suffix, *p.Message)
	}
}
