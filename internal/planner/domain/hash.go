package domain

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// sequenceHashTuple is the exact shape hashed for a sequence entry. Field
// order matters only for JSON key order inside one object, not across the
// array — Go's json.Marshal on a struct always emits fields in declaration
// order, which is what makes this deterministic across runs.
type sequenceHashTuple struct {
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Quantity int    `json:"quantity"`
}

// GenerateSequenceHash returns the 32-character lowercase hex MD5 digest
// over the ordered tuple [(symbol, side, quantity), ...] (§3). Order
// sensitive: a permutation of the same actions hashes differently.
func GenerateSequenceHash(actions []ActionCandidate) string {
	tuples := make([]sequenceHashTuple, len(actions))
	for i, a := range actions {
		tuples[i] = sequenceHashTuple{
			Symbol:   a.Symbol,
			Side:     string(a.Side),
			Quantity: a.Quantity,
		}
	}
	data, _ := json.Marshal(tuples)
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// positionFingerprint and cashFingerprint are the canonicalized pieces that
// go into the portfolio hash. Sorting by key before marshaling is what
// makes the hash invariant to map iteration order (§8 property 5).

type positionFingerprint struct {
	Symbol   string `json:"symbol"`
	Quantity int    `json:"quantity"`
}

type securityActiveFingerprint struct {
	Symbol string `json:"symbol"`
	Active bool   `json:"active"`
}

type cashFingerprint struct {
	Currency string  `json:"currency"`
	Amount   float64 `json:"amount"`
}

type pendingOrderFingerprint struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Quantity float64 `json:"quantity"`
}

// PendingOrder is a not-yet-settled order that participates in the
// portfolio fingerprint (§3: "sorted pending orders").
type PendingOrder struct {
	Symbol   string
	Side     TradeSide
	Quantity float64
}

// GeneratePortfolioHash returns the 32-character lowercase hex MD5 digest
// over the canonicalized quadruple (sorted positions, sorted security
// active state, sorted cash balances, sorted pending orders) — the stable
// fingerprint of "the state the planner is solving for" (§3). This is the
// sole canonical hash path: the source's richer StateHashService variant,
// which additionally folds in scores/rates/settings/allocations, is not
// carried forward.
func GeneratePortfolioHash(
	positions map[string]int,
	activeSecurities map[string]bool,
	cashBalances map[string]float64,
	pendingOrders []PendingOrder,
) string {
	posFingerprints := make([]positionFingerprint, 0, len(positions))
	for symbol, qty := range positions {
		posFingerprints = append(posFingerprints, positionFingerprint{Symbol: symbol, Quantity: qty})
	}
	sort.Slice(posFingerprints, func(i, j int) bool { return posFingerprints[i].Symbol < posFingerprints[j].Symbol })

	secFingerprints := make([]securityActiveFingerprint, 0, len(activeSecurities))
	for symbol, active := range activeSecurities {
		secFingerprints = append(secFingerprints, securityActiveFingerprint{Symbol: symbol, Active: active})
	}
	sort.Slice(secFingerprints, func(i, j int) bool { return secFingerprints[i].Symbol < secFingerprints[j].Symbol })

	cashFingerprints := make([]cashFingerprint, 0, len(cashBalances))
	for currency, amount := range cashBalances {
		cashFingerprints = append(cashFingerprints, cashFingerprint{Currency: currency, Amount: amount})
	}
	sort.Slice(cashFingerprints, func(i, j int) bool { return cashFingerprints[i].Currency < cashFingerprints[j].Currency })

	orderFingerprints := make([]pendingOrderFingerprint, len(pendingOrders))
	for i, o := range pendingOrders {
		orderFingerprints[i] = pendingOrderFingerprint{Symbol: o.Symbol, Side: string(o.Side), Quantity: o.Quantity}
	}
	sort.Slice(orderFingerprints, func(i, j int) bool {
		if orderFingerprints[i].Symbol != orderFingerprints[j].Symbol {
			return orderFingerprints[i].Symbol < orderFingerprints[j].Symbol
		}
		return orderFingerprints[i].Side < orderFingerprints[j].Side
	})

	payload := struct {
		Positions        []positionFingerprint       `json:"positions"`
		ActiveSecurities []securityActiveFingerprint `json:"active_securities"`
		CashBalances     []cashFingerprint           `json:"cash_balances"`
		PendingOrders    []pendingOrderFingerprint   `json:"pending_orders"`
	}{posFingerprints, secFingerprints, cashFingerprints, orderFingerprints}

	data, _ := json.Marshal(payload)
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
