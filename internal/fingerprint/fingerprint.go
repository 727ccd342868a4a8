// SPDX-License-Identifier: Apache-2.0

// Package fingerprint derives a stable digest of a payment payload so that a
// reused idempotency key can be checked against the request it was first
// seen with.
package fingerprint

import (
	"encoding/json"
	"strconv"

	"github.com/adiadia/idempotent-payments/internal/domain"
	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

const version = "v1"

// canonicalPayload fixes field order and encoding. Field names are part of
// the hashed form, so renaming one changes every fingerprint; bump version
// when that happens.
type canonicalPayload struct {
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Email       string `json:"email"`
	Name        string `json:"name"`
}

// Canonical returns the normalized serialization of params: strings in NFC
// form, amount in shortest decimal notation, keys in lexical order.
func Canonical(params domain.CreateTransactionParams) []byte {
	body, err := json.Marshal(canonicalPayload{
		Amount:      decimal.NewFromFloat(params.Amount).String(),
		Description: norm.NFC.String(params.Description),
		Email:       norm.NFC.String(params.Email),
		Name:        norm.NFC.String(params.Name),
	})
	if err != nil {
		// Only strings are marshaled; this cannot fail.
		panic(err)
	}
	return body
}

// Of returns the fingerprint of params, e.g. "v1:9f0e6c1d2a3b4c5d".
func Of(params domain.CreateTransactionParams) string {
	return Sum(Canonical(params))
}

// Sum hashes an already canonical payload.
func Sum(canonical []byte) string {
	digest := strconv.FormatUint(xxhash.Sum64(canonical), 16)
	for len(digest) < 16 {
		digest = "0" + digest
	}
	return version + ":" + digest
}
