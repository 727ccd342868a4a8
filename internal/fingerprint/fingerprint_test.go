// SPDX-License-Identifier: Apache-2.0

package fingerprint

import (
	"regexp"
	"testing"

	"github.com/adiadia/idempotent-payments/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coffee() domain.CreateTransactionParams {
	return domain.CreateTransactionParams{
		Name:        "coffee",
		Amount:      4.50,
		Email:       "a@b.com",
		Description: "morning",
	}
}

func TestCanonicalFieldOrderAndAmount(t *testing.T) {
	got := string(Canonical(coffee()))
	assert.Equal(t, `{"amount":"4.5","description":"morning","email":"a@b.com","name":"coffee"}`, got)
}

func TestOfIsDeterministic(t *testing.T) {
	first := Of(coffee())
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Of(coffee()))
	}
	assert.Regexp(t, regexp.MustCompile(`^v1:[0-9a-f]{16}$`), first)
}

func TestOfNormalizesUnicode(t *testing.T) {
	composed := coffee()
	composed.Name = "caf\u00e9"

	decomposed := coffee()
	decomposed.Name = "cafe\u0301"

	assert.Equal(t, Of(composed), Of(decomposed))
}

func TestOfDiscriminatesPayloads(t *testing.T) {
	base := Of(coffee())

	testCases := []struct {
		name   string
		mutate func(p *domain.CreateTransactionParams)
	}{
		{name: "amount", mutate: func(p *domain.CreateTransactionParams) { p.Amount = 5.00 }},
		{name: "name", mutate: func(p *domain.CreateTransactionParams) { p.Name = "tea" }},
		{name: "email", mutate: func(p *domain.CreateTransactionParams) { p.Email = "c@d.com" }},
		{name: "description", mutate: func(p *domain.CreateTransactionParams) { p.Description = "evening" }},
		{name: "field_boundary", mutate: func(p *domain.CreateTransactionParams) {
			p.Name = "coffee\",\"x"
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := coffee()
			tc.mutate(&p)
			assert.NotEqual(t, base, Of(p))
		})
	}
}

func TestSumPadsDigest(t *testing.T) {
	got := Sum([]byte{})
	require.Len(t, got, len("v1:")+16)
	assert.Equal(t, "v1:ef46db3751d8e999", got)
}
